/*
Package incentive computes statutory incentive entitlements from rule-set
tables.

PURPOSE:
  Pure functions over caller-supplied records and a validated RuleSet.
  Nothing here holds state or performs I/O, so both calculators are safe
  to call concurrently. Every rate, band boundary and coefficient comes
  from the rule set (or, for the statutory tax rate, from configuration);
  the calculators contain no monetary constants.

CALCULATORS:
  ComputeLearnershipAllowance: band/ability allowance table, annual plus
  completion amounts, aggregate and tax-saving figure.

  ComputeEmploymentIncentive: eligibility window filter, then a
  three-segment piecewise monthly amount per tenure band.

SEE ALSO:
  - regulation/types.go: the tables these calculators read
  - regulation/validate.go: guarantees assumed by the calculators
*/
package incentive

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// LearnerBreakdown is the per-learner line of a learnership calculation.
type LearnerBreakdown struct {
	LearnerID           string          `json:"learner_id"`
	NQFLevel            int             `json:"nqf_level"`
	AnnualAllowance     decimal.Decimal `json:"annual_allowance"`
	CompletionAllowance decimal.Decimal `json:"completion_allowance"`
	Total               decimal.Decimal `json:"total"`
}

// LearnershipResult is the complete outcome of a learnership calculation.
type LearnershipResult struct {
	Regulation     string             `json:"regulation"`
	Breakdown      []LearnerBreakdown `json:"breakdown"`
	TotalAllowance decimal.Decimal    `json:"total_allowance"`
	TaxSaving      decimal.Decimal    `json:"tax_saving"`
	LearnerCount   int                `json:"learner_count"`
	Source         string             `json:"source"`
	VerifiedAt     string             `json:"last_verified"`
}

// EmployeeBreakdown is the per-employee line of an employment incentive
// calculation. Only qualifying employees appear.
type EmployeeBreakdown struct {
	EmployeeID       string          `json:"employee_id"`
	Age              int             `json:"age"`
	MonthlySalary    decimal.Decimal `json:"monthly_salary"`
	MonthsEmployed   int             `json:"months_employed"`
	MonthlyIncentive decimal.Decimal `json:"monthly_incentive"`
}

// EmploymentResult is the complete outcome of an employment incentive
// calculation.
type EmploymentResult struct {
	Regulation          string              `json:"regulation"`
	Breakdown           []EmployeeBreakdown `json:"breakdown"`
	MonthlyTotal        decimal.Decimal     `json:"monthly_total"`
	AnnualTotal         decimal.Decimal     `json:"annual_total"`
	QualifyingEmployees int                 `json:"qualifying_employees"`
	Source              string              `json:"source"`
	VerifiedAt          string              `json:"last_verified"`
}
