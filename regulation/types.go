/*
Package regulation defines the core domain model for the regulatory
calculation engine.

PURPOSE:
  This package contains the typed rule-set model shared by every other
  component: the versioned store loads documents into these types, the
  incentive calculators read allowance and coefficient tables from them,
  and the risk assessor reads indicator thresholds from them.

KEY CONCEPTS IN THIS FILE (types.go):
  - RuleSet: One regulation's complete, validated rule content
  - LearnershipTable / EmploymentTable / CrisisTable: kind-specific tables
  - LearnerRecord / EmployeeRecord / MetricSnapshot: caller-supplied inputs
  - Tier / AlertLevel: totally ordered risk severity

DESIGN PRINCIPLES:
  1. Precision: all monetary values use decimal.Decimal, never float64
  2. Immutability: a loaded RuleSet is never mutated; updates replace it
  3. Data-driven: every rate, breakpoint and threshold lives in the tables,
     never in calculator code
  4. Type safety: strong typing for regulation identifiers and tiers

SEE ALSO:
  - validate.go: structural validation run before any calculator may use a RuleSet
  - errors.go: error taxonomy shared across components
*/
package regulation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RegulationID string

// Canonical identifiers of the documents shipped with the engine.
const (
	RegLearnership  RegulationID = "learnership"
	RegEmployment   RegulationID = "employment_incentive"
	RegLoadshedding RegulationID = "loadshedding"
)

// Kind selects which rule table a RuleSet carries.
type Kind string

const (
	KindLearnership Kind = "learnership"
	KindEmployment  Kind = "employment_incentive"
	KindCrisis      Kind = "crisis"
)

// =============================================================================
// RULE SET - One regulation's validated rule content
// =============================================================================

// RuleSet is the in-memory form of one persisted regulation document.
// Exactly one of Learnership, Employment or Crisis is set, matching Kind.
type RuleSet struct {
	ID          RegulationID
	Kind        Kind
	Name        string // official title, e.g. "Section 12H - Learnership Allowances"
	Description string
	Status      string // e.g. "Active", "Suspended"
	Version     string // last-updated stamp, doubles as the version identifier

	Learnership *LearnershipTable
	Employment  *EmploymentTable
	Crisis      *CrisisTable

	Documentation []string // documents an employer must retain
	Pitfalls      []string // common filing mistakes
	Examples      []WorkedExample
	Sources       []string // official source citations, ordered
}

// WorkedExample is a pre-computed scenario published with a regulation.
type WorkedExample struct {
	Scenario string
	Outcome  string
}

// Source returns the primary official citation.
func (rs *RuleSet) Source() string {
	if len(rs.Sources) == 0 {
		return ""
	}
	return rs.Sources[0]
}

// =============================================================================
// LEARNERSHIP TABLE - Band/ability allowance rates
// =============================================================================

// AbilityRates holds the standard and disability columns of an allowance row.
type AbilityRates struct {
	Standard   decimal.Decimal
	Disability decimal.Decimal
}

// For selects the column for a learner.
func (r AbilityRates) For(disabled bool) decimal.Decimal {
	if disabled {
		return r.Disability
	}
	return r.Standard
}

// BandRates holds the lower-band and upper-band rows of an allowance table.
type BandRates struct {
	Lower AbilityRates
	Upper AbilityRates
}

// LearnershipTable drives the learnership allowance calculation.
// Qualification levels in [MinLevel, BandBoundary] fall in the lower band,
// (BandBoundary, MaxLevel] in the upper band.
type LearnershipTable struct {
	MinLevel     int
	MaxLevel     int
	BandBoundary int

	Annual     BandRates
	Completion BandRates
}

// =============================================================================
// EMPLOYMENT TABLE - Eligibility window and piecewise coefficients
// =============================================================================

// TenureBand holds the coefficients of the three-segment monthly incentive
// curve for one employment-tenure range:
//
//	salary <  PlateauFrom            -> salary * RampRate
//	salary in [PlateauFrom,PlateauTo) -> Plateau
//	salary >= PlateauTo              -> Plateau - TaperRate*(salary-PlateauTo)
//
// MonthsUpTo is the inclusive upper bound in months; 0 marks the final,
// open-ended band.
type TenureBand struct {
	MonthsUpTo  int
	RampRate    decimal.Decimal
	Plateau     decimal.Decimal
	PlateauFrom decimal.Decimal
	PlateauTo   decimal.Decimal
	TaperRate   decimal.Decimal
}

// EmploymentTable drives the employment incentive calculation.
type EmploymentTable struct {
	MinAge        int
	MaxAge        int
	SalaryCeiling decimal.Decimal // exclusive: salary must be strictly below

	Bands []TenureBand // ordered by MonthsUpTo, last band open-ended
}

// BandFor returns the tenure band covering monthsEmployed.
func (t *EmploymentTable) BandFor(monthsEmployed int) TenureBand {
	for _, b := range t.Bands {
		if b.MonthsUpTo == 0 || monthsEmployed <= b.MonthsUpTo {
			return b
		}
	}
	return t.Bands[len(t.Bands)-1]
}

// =============================================================================
// CRISIS TABLE - Indicator thresholds, recommendations, impact matrix
// =============================================================================

// Comparison is the direction of an indicator threshold test.
type Comparison string

const (
	Below Comparison = "below"
	Above Comparison = "above"
)

// IndicatorRule compares exactly one named metric against a threshold.
type IndicatorRule struct {
	Name       string
	Metric     string
	Comparison Comparison
	Threshold  decimal.Decimal
	Tier       Tier
	Outcome    string // likely consequence when the rule fires
	Action     string // immediate remediation note
}

// Matches reports whether the rule fires for the given metric value.
func (r IndicatorRule) Matches(value decimal.Decimal) bool {
	switch r.Comparison {
	case Below:
		return value.LessThan(r.Threshold)
	case Above:
		return value.GreaterThan(r.Threshold)
	default:
		return false
	}
}

// SectorImpact holds the per-stage impact rows for one business sector.
type SectorImpact struct {
	Stages     map[int]string
	Mitigation string
}

// ImpactMatrix maps sector name to its impact rows.
type ImpactMatrix map[string]SectorImpact

// CrisisTable drives risk assessment and business impact lookups.
type CrisisTable struct {
	Indicators      []IndicatorRule
	Recommendations map[Tier][]string
	Impact          ImpactMatrix
}

// =============================================================================
// RISK TIERS - Totally ordered severity
// =============================================================================

// Tier is an ordered risk severity. The integer ordering is load-bearing:
// the overall tier of an assessment is the maximum of its matched tiers.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Medium"
	case TierHigh:
		return "High"
	case TierCritical:
		return "Critical"
	default:
		return "Low"
	}
}

// ParseTier converts the document form of a tier. ok is false for
// unrecognized values.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "Low":
		return TierLow, true
	case "Medium":
		return TierMedium, true
	case "High":
		return TierHigh, true
	case "Critical":
		return TierCritical, true
	default:
		return TierLow, false
	}
}

// AlertLevel is the operator-facing color for a tier.
type AlertLevel string

const (
	AlertGreen  AlertLevel = "GREEN"
	AlertYellow AlertLevel = "YELLOW"
	AlertOrange AlertLevel = "ORANGE"
	AlertRed    AlertLevel = "RED"
)

// AlertFor is the fixed, order-preserving tier to alert mapping.
func AlertFor(t Tier) AlertLevel {
	switch t {
	case TierCritical:
		return AlertRed
	case TierHigh:
		return AlertOrange
	case TierMedium:
		return AlertYellow
	default:
		return AlertGreen
	}
}

// =============================================================================
// CALLER-SUPPLIED INPUT RECORDS
// =============================================================================

// LearnerRecord is one registered learnership agreement.
type LearnerRecord struct {
	ID        string
	NQFLevel  int // qualification band, ordinal
	Disabled  bool
	Completed bool
}

// EmployeeRecord is one employee considered for the employment incentive.
type EmployeeRecord struct {
	ID             string
	Age            int
	MonthlySalary  decimal.Decimal
	MonthsEmployed int
}

// Metric names recognized by the shipped crisis document.
const (
	MetricAvailabilityFactor = "availability_factor"
	MetricUnplannedOutagesMW = "unplanned_outages_mw"
	MetricReserveDays        = "reserve_days"
)

// MetricSnapshot is a set of named operational metrics at a point in time.
// An indicator whose metric is absent from Values does not fire.
type MetricSnapshot struct {
	ObservedAt time.Time
	Values     map[string]decimal.Decimal
}
