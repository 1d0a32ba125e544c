/*
validate.go - Structural validation of rule sets

PURPOSE:
  A RuleSet must pass Validate before any calculator may run against it.
  The store validates on load and again on every update, so half-written
  or malformed documents are rejected up front instead of producing
  partial calculation results.

VALIDATION GUARANTEES:
  - Kind matches exactly one populated table
  - Allowance rates and thresholds are non-negative
  - Tenure bands are ordered, with only the final band open-ended
  - The piecewise incentive curve is continuous at the ramp/plateau
    boundary (RampRate * PlateauFrom == Plateau)
  - Every tier has a recommendation list; every sector has mitigation text
*/
package regulation

import (
	"fmt"
)

// Validate checks the structural integrity of a rule set. A nil return
// means every table the kind requires is present and internally coherent.
func (rs *RuleSet) Validate() error {
	if rs.ID == "" {
		return fmt.Errorf("missing regulation id")
	}
	if rs.Name == "" {
		return fmt.Errorf("regulation %q: missing name", rs.ID)
	}
	if rs.Status == "" {
		return fmt.Errorf("regulation %q: missing status", rs.ID)
	}
	if rs.Version == "" {
		return fmt.Errorf("regulation %q: missing version", rs.ID)
	}
	if len(rs.Sources) == 0 {
		return fmt.Errorf("regulation %q: at least one official source required", rs.ID)
	}

	switch rs.Kind {
	case KindLearnership:
		if rs.Learnership == nil {
			return fmt.Errorf("regulation %q: kind %s requires an allowance table", rs.ID, rs.Kind)
		}
		return rs.Learnership.validate(rs.ID)
	case KindEmployment:
		if rs.Employment == nil {
			return fmt.Errorf("regulation %q: kind %s requires an eligibility/coefficient table", rs.ID, rs.Kind)
		}
		return rs.Employment.validate(rs.ID)
	case KindCrisis:
		if rs.Crisis == nil {
			return fmt.Errorf("regulation %q: kind %s requires a threshold table", rs.ID, rs.Kind)
		}
		return rs.Crisis.validate(rs.ID)
	default:
		return fmt.Errorf("regulation %q: unknown kind %q", rs.ID, rs.Kind)
	}
}

func (t *LearnershipTable) validate(id RegulationID) error {
	if t.MinLevel < 1 {
		return fmt.Errorf("regulation %q: minimum qualification level must be >= 1, got %d", id, t.MinLevel)
	}
	if t.MaxLevel <= t.MinLevel {
		return fmt.Errorf("regulation %q: qualification level range %d..%d is empty", id, t.MinLevel, t.MaxLevel)
	}
	if t.BandBoundary < t.MinLevel || t.BandBoundary >= t.MaxLevel {
		return fmt.Errorf("regulation %q: band boundary %d outside level range %d..%d", id, t.BandBoundary, t.MinLevel, t.MaxLevel)
	}
	for _, r := range []struct {
		name  string
		rates AbilityRates
	}{
		{"annual lower", t.Annual.Lower},
		{"annual upper", t.Annual.Upper},
		{"completion lower", t.Completion.Lower},
		{"completion upper", t.Completion.Upper},
	} {
		if r.rates.Standard.IsNegative() || r.rates.Disability.IsNegative() {
			return fmt.Errorf("regulation %q: %s allowance must be non-negative", id, r.name)
		}
	}
	return nil
}

func (t *EmploymentTable) validate(id RegulationID) error {
	if t.MinAge <= 0 || t.MaxAge < t.MinAge {
		return fmt.Errorf("regulation %q: invalid eligibility age window %d..%d", id, t.MinAge, t.MaxAge)
	}
	if !t.SalaryCeiling.IsPositive() {
		return fmt.Errorf("regulation %q: salary ceiling must be positive", id)
	}
	if len(t.Bands) == 0 {
		return fmt.Errorf("regulation %q: at least one tenure band required", id)
	}

	prev := 0
	for i, b := range t.Bands {
		last := i == len(t.Bands)-1
		if b.MonthsUpTo == 0 && !last {
			return fmt.Errorf("regulation %q: tenure band %d is open-ended but not last", id, i)
		}
		if b.MonthsUpTo != 0 && b.MonthsUpTo <= prev {
			return fmt.Errorf("regulation %q: tenure bands must be strictly increasing, band %d ends at %d after %d", id, i, b.MonthsUpTo, prev)
		}
		prev = b.MonthsUpTo

		if !b.PlateauFrom.IsPositive() || b.PlateauTo.LessThan(b.PlateauFrom) {
			return fmt.Errorf("regulation %q: tenure band %d has invalid plateau window %s..%s", id, i, b.PlateauFrom, b.PlateauTo)
		}
		if b.PlateauTo.GreaterThanOrEqual(t.SalaryCeiling) {
			return fmt.Errorf("regulation %q: tenure band %d taper starts at %s, at or above the ceiling %s", id, i, b.PlateauTo, t.SalaryCeiling)
		}
		if b.Plateau.IsNegative() || b.RampRate.IsNegative() || b.TaperRate.IsNegative() {
			return fmt.Errorf("regulation %q: tenure band %d has negative coefficients", id, i)
		}
		// Continuity at the ramp/plateau boundary. The taper side needs no
		// check: it starts exactly at the plateau value by construction.
		if !b.RampRate.Mul(b.PlateauFrom).Equal(b.Plateau) {
			return fmt.Errorf("regulation %q: tenure band %d is discontinuous at %s: ramp reaches %s, plateau is %s",
				id, i, b.PlateauFrom, b.RampRate.Mul(b.PlateauFrom), b.Plateau)
		}
	}
	return nil
}

func (t *CrisisTable) validate(id RegulationID) error {
	if len(t.Indicators) == 0 {
		return fmt.Errorf("regulation %q: at least one indicator rule required", id)
	}
	for i, ind := range t.Indicators {
		if ind.Name == "" || ind.Metric == "" {
			return fmt.Errorf("regulation %q: indicator %d missing name or metric", id, i)
		}
		if ind.Comparison != Below && ind.Comparison != Above {
			return fmt.Errorf("regulation %q: indicator %q has unknown comparison %q", id, ind.Name, ind.Comparison)
		}
	}
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh, TierCritical} {
		if len(t.Recommendations[tier]) == 0 {
			return fmt.Errorf("regulation %q: no recommendations for tier %s", id, tier)
		}
	}
	if len(t.Impact) == 0 {
		return fmt.Errorf("regulation %q: empty business impact matrix", id)
	}
	for sector, impact := range t.Impact {
		if len(impact.Stages) == 0 {
			return fmt.Errorf("regulation %q: sector %q has no stage impacts", id, sector)
		}
		if impact.Mitigation == "" {
			return fmt.Errorf("regulation %q: sector %q missing mitigation", id, sector)
		}
	}
	return nil
}
