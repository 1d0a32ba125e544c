package incentive

import (
	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/regulation"
)

var twelve = decimal.NewFromInt(12)

// ComputeEmploymentIncentive computes the monthly and annual wage subsidy
// for a list of employees against the rule set's eligibility window and
// tenure-band coefficients.
//
// Employees whose age falls outside the window, or whose salary is at or
// above the ceiling, are excluded from both the breakdown and the
// qualifying-employee count. This is documented behavior, not an error:
// ineligibility is an expected outcome of the eligibility test.
//
// For each qualifying employee the monthly amount is a three-segment
// piecewise function of salary (ramp, plateau, taper) with coefficients
// taken from the tenure band covering their months of employment, clamped
// to a minimum of zero. The annual figure is the monthly total times twelve.
func ComputeEmploymentIncentive(employees []regulation.EmployeeRecord, rs *regulation.RuleSet) (*EmploymentResult, error) {
	table := rs.Employment
	if table == nil {
		return nil, &regulation.InvalidInputError{Field: "rule_set", Value: string(rs.ID)}
	}

	result := &EmploymentResult{
		Regulation:   rs.Name,
		MonthlyTotal: decimal.Zero,
		AnnualTotal:  decimal.Zero,
		Source:       rs.Source(),
		VerifiedAt:   rs.Version,
	}

	for _, emp := range employees {
		if emp.MonthlySalary.IsNegative() {
			return nil, &regulation.InvalidInputError{Field: "monthly_salary", Value: emp.MonthlySalary.String()}
		}
		if emp.MonthsEmployed < 0 {
			return nil, &regulation.InvalidInputError{Field: "months_employed", Value: emp.MonthsEmployed}
		}

		if emp.Age < table.MinAge || emp.Age > table.MaxAge {
			continue
		}
		if emp.MonthlySalary.GreaterThanOrEqual(table.SalaryCeiling) {
			continue
		}

		months := emp.MonthsEmployed
		if months == 0 {
			months = 1 // an employee on the payroll is in at least their first month
		}

		monthly := monthlyIncentive(emp.MonthlySalary, table.BandFor(months))
		result.Breakdown = append(result.Breakdown, EmployeeBreakdown{
			EmployeeID:       emp.ID,
			Age:              emp.Age,
			MonthlySalary:    emp.MonthlySalary,
			MonthsEmployed:   months,
			MonthlyIncentive: monthly,
		})
		result.MonthlyTotal = result.MonthlyTotal.Add(monthly)
	}

	result.QualifyingEmployees = len(result.Breakdown)
	result.AnnualTotal = result.MonthlyTotal.Mul(twelve)
	return result, nil
}

// monthlyIncentive evaluates the three-segment curve for one salary.
// Structural validation guarantees continuity at the ramp/plateau boundary;
// the zero clamp keeps the taper from going negative at high salaries.
func monthlyIncentive(salary decimal.Decimal, band regulation.TenureBand) decimal.Decimal {
	var amount decimal.Decimal
	switch {
	case salary.LessThan(band.PlateauFrom):
		amount = salary.Mul(band.RampRate)
	case salary.LessThan(band.PlateauTo):
		amount = band.Plateau
	default:
		amount = band.Plateau.Sub(band.TaperRate.Mul(salary.Sub(band.PlateauTo)))
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
