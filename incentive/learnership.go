package incentive

import (
	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// ComputeLearnershipAllowance computes the deduction for a list of
// registered learnerships against the rule set's allowance table.
//
// For each learner the qualification band (lower/upper, split at the
// table's band boundary) and ability column (disability/standard) select
// the table row. The annual allowance is always granted; the completion
// allowance only when the learner completed. The tax-saving figure is the
// aggregate multiplied by statutoryRate, which comes from configuration.
//
// An empty learner list is valid and yields zero totals. A qualification
// level outside the table's range fails with InvalidInputError; no
// partial result is returned.
func ComputeLearnershipAllowance(learners []regulation.LearnerRecord, rs *regulation.RuleSet, statutoryRate decimal.Decimal) (*LearnershipResult, error) {
	table := rs.Learnership
	if table == nil {
		return nil, &regulation.InvalidInputError{Field: "rule_set", Value: string(rs.ID)}
	}

	result := &LearnershipResult{
		Regulation:     rs.Name,
		TotalAllowance: decimal.Zero,
		TaxSaving:      decimal.Zero,
		Source:         rs.Source(),
		VerifiedAt:     rs.Version,
	}

	for _, learner := range learners {
		if learner.NQFLevel < table.MinLevel || learner.NQFLevel > table.MaxLevel {
			return nil, &regulation.InvalidInputError{
				Field: "nqf_level",
				Value: learner.NQFLevel,
				Min:   table.MinLevel,
				Max:   table.MaxLevel,
			}
		}

		annualRates := table.Annual.Upper
		completionRates := table.Completion.Upper
		if learner.NQFLevel <= table.BandBoundary {
			annualRates = table.Annual.Lower
			completionRates = table.Completion.Lower
		}

		annual := annualRates.For(learner.Disabled)
		completion := decimal.Zero
		if learner.Completed {
			completion = completionRates.For(learner.Disabled)
		}
		total := annual.Add(completion)

		result.Breakdown = append(result.Breakdown, LearnerBreakdown{
			LearnerID:           learner.ID,
			NQFLevel:            learner.NQFLevel,
			AnnualAllowance:     annual,
			CompletionAllowance: completion,
			Total:               total,
		})
		result.TotalAllowance = result.TotalAllowance.Add(total)
	}

	result.LearnerCount = len(result.Breakdown)
	result.TaxSaving = result.TotalAllowance.Mul(statutoryRate)
	return result, nil
}
