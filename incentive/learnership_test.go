package incentive_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaalgrid/regulation-engine/incentive"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func seedRuleSet(t *testing.T, id regulation.RegulationID) *regulation.RuleSet {
	t.Helper()
	for _, rs := range regstore.SeedRuleSets() {
		if rs.ID == id {
			return rs
		}
	}
	t.Fatalf("no seed rule set %q", id)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var taxRate = dec("0.28")

// =============================================================================
// BAND AND ABILITY SELECTION
// =============================================================================

func TestLearnership_LowerBand_Completed(t *testing.T) {
	// GIVEN: One NQF 4 learner without a disability who completed
	// WHEN: Computing the allowance
	// THEN: Annual plus completion at the lower-band standard rate

	rs := seedRuleSet(t, regulation.RegLearnership)
	learners := []regulation.LearnerRecord{
		{ID: "l-1", NQFLevel: 4, Completed: true},
	}

	result, err := incentive.ComputeLearnershipAllowance(learners, rs, taxRate)
	require.NoError(t, err)

	require.Len(t, result.Breakdown, 1)
	line := result.Breakdown[0]
	assert.True(t, line.AnnualAllowance.Equal(dec("40000")), "annual: %s", line.AnnualAllowance)
	assert.True(t, line.CompletionAllowance.Equal(dec("40000")), "completion: %s", line.CompletionAllowance)
	assert.True(t, line.Total.Equal(dec("80000")))
	assert.True(t, result.TotalAllowance.Equal(dec("80000")))
	assert.True(t, result.TaxSaving.Equal(dec("22400")), "tax saving: %s", result.TaxSaving)
}

func TestLearnership_UpperBand_Disability_NotCompleted(t *testing.T) {
	// GIVEN: One NQF 8 learner with a disability, not yet completed
	// WHEN: Computing the allowance
	// THEN: Upper-band disability annual rate only, no completion amount

	rs := seedRuleSet(t, regulation.RegLearnership)
	learners := []regulation.LearnerRecord{
		{ID: "l-1", NQFLevel: 8, Disabled: true},
	}

	result, err := incentive.ComputeLearnershipAllowance(learners, rs, taxRate)
	require.NoError(t, err)

	line := result.Breakdown[0]
	assert.True(t, line.AnnualAllowance.Equal(dec("50000")))
	assert.True(t, line.CompletionAllowance.IsZero())
	assert.True(t, result.TaxSaving.Equal(dec("14000")))
}

func TestLearnership_BandBoundary(t *testing.T) {
	// GIVEN: Learners at the boundary level and one above it
	// WHEN: Computing the allowance
	// THEN: The boundary level itself uses the lower-band rates

	rs := seedRuleSet(t, regulation.RegLearnership)
	learners := []regulation.LearnerRecord{
		{ID: "at-boundary", NQFLevel: 6},
		{ID: "above-boundary", NQFLevel: 7},
	}

	result, err := incentive.ComputeLearnershipAllowance(learners, rs, taxRate)
	require.NoError(t, err)

	assert.True(t, result.Breakdown[0].AnnualAllowance.Equal(dec("40000")), "level 6 is lower band")
	assert.True(t, result.Breakdown[1].AnnualAllowance.Equal(dec("20000")), "level 7 is upper band")
}

// =============================================================================
// AGGREGATES AND EDGE CASES
// =============================================================================

func TestLearnership_AggregateIsSumOfBreakdown(t *testing.T) {
	// GIVEN: A mixed list of learners across bands and abilities
	// WHEN: Computing the allowance
	// THEN: The total equals the sum of the per-learner totals

	rs := seedRuleSet(t, regulation.RegLearnership)
	learners := []regulation.LearnerRecord{
		{ID: "a", NQFLevel: 2, Completed: true},
		{ID: "b", NQFLevel: 5, Disabled: true},
		{ID: "c", NQFLevel: 9, Completed: true},
		{ID: "d", NQFLevel: 10, Disabled: true, Completed: true},
	}

	result, err := incentive.ComputeLearnershipAllowance(learners, rs, taxRate)
	require.NoError(t, err)
	require.Len(t, result.Breakdown, 4)

	sum := decimal.Zero
	for _, line := range result.Breakdown {
		sum = sum.Add(line.Total)
	}
	assert.True(t, result.TotalAllowance.Equal(sum))
	assert.Equal(t, 4, result.LearnerCount)
	assert.True(t, result.TaxSaving.Equal(sum.Mul(taxRate)))
}

func TestLearnership_EmptyList(t *testing.T) {
	// GIVEN: No learners
	// WHEN: Computing the allowance
	// THEN: Zero totals, no error

	rs := seedRuleSet(t, regulation.RegLearnership)

	result, err := incentive.ComputeLearnershipAllowance(nil, rs, taxRate)
	require.NoError(t, err)
	assert.Equal(t, 0, result.LearnerCount)
	assert.True(t, result.TotalAllowance.IsZero())
	assert.True(t, result.TaxSaving.IsZero())
}

func TestLearnership_LevelOutOfRange(t *testing.T) {
	// GIVEN: A learner at qualification level 12, above the table's range
	// WHEN: Computing the allowance
	// THEN: InvalidInputError naming the field and the allowed range

	rs := seedRuleSet(t, regulation.RegLearnership)
	learners := []regulation.LearnerRecord{
		{ID: "ok", NQFLevel: 4},
		{ID: "bad", NQFLevel: 12},
	}

	result, err := incentive.ComputeLearnershipAllowance(learners, rs, taxRate)
	assert.Nil(t, result, "no partial result on invalid input")
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)

	var inputErr *regulation.InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "nqf_level", inputErr.Field)
	assert.Equal(t, 1, inputErr.Min)
	assert.Equal(t, 10, inputErr.Max)
}

func TestLearnership_WrongRuleSetKind(t *testing.T) {
	// GIVEN: A rule set without a learnership table
	// WHEN: Computing the allowance
	// THEN: InvalidInputError, not a panic

	rs := seedRuleSet(t, regulation.RegEmployment)

	_, err := incentive.ComputeLearnershipAllowance(nil, rs, taxRate)
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)
}
