/*
Package risk classifies operational metrics into tiered alerts and looks
up sector impact, using the threshold tables of a crisis rule set.

PURPOSE:
  Pure evaluation over caller-supplied metrics and a validated rule set.
  The assessor holds no state and performs no I/O; every threshold, tier
  assignment, remediation note and recommendation comes from the tables.

SEE ALSO:
  - regulation/types.go: IndicatorRule, CrisisTable, Tier, AlertLevel
*/
package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// TriggeredIndicator is one matched indicator rule with the observed value.
type TriggeredIndicator struct {
	Name      string          `json:"indicator"`
	Metric    string          `json:"metric"`
	Observed  decimal.Decimal `json:"current_value"`
	Threshold decimal.Decimal `json:"threshold"`
	Tier      string          `json:"risk_level"`
	Outcome   string          `json:"likely_outcome"`
	Action    string          `json:"action"`
}

// Assessment is the complete outcome of a risk evaluation.
type Assessment struct {
	AssessedAt      time.Time            `json:"timestamp"`
	OverallTier     string               `json:"overall_risk"`
	Alert           regulation.AlertLevel `json:"alert_level"`
	Triggered       []TriggeredIndicator `json:"risks"`
	Recommendations []string             `json:"recommendations"`
	Source          string               `json:"source"`
}

// Severity is the stage-derived severity band of a business impact.
type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// ImpactUnknown is returned as the impact text when a sector is known but
// has no row for the requested stage.
const ImpactUnknown = "Impact unknown for this stage"

// Impact is the outcome of a sector/stage lookup.
type Impact struct {
	Sector     string   `json:"sector"`
	Stage      int      `json:"stage"`
	Impact     string   `json:"impact"`
	Mitigation string   `json:"mitigation"`
	Severity   Severity `json:"severity"`
}
