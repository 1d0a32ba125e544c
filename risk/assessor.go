package risk

import (
	"time"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// Assess evaluates the crisis rule set's indicator rules against a metric
// snapshot.
//
// Each rule compares exactly one named metric to its threshold; rules are
// independent, so every rule whose condition holds is reported, regardless
// of tier. A rule whose metric is absent from the snapshot does not fire.
// The overall tier is the maximum tier among matched rules (Low when none
// match), the alert level is the fixed order-preserving mapping from that
// tier, and the recommendation list is the canonical list for the overall
// tier only.
func Assess(metrics regulation.MetricSnapshot, rs *regulation.RuleSet) (*Assessment, error) {
	table := rs.Crisis
	if table == nil {
		return nil, &regulation.InvalidInputError{Field: "rule_set", Value: string(rs.ID)}
	}

	observedAt := metrics.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	overall := regulation.TierLow
	var triggered []TriggeredIndicator
	for _, rule := range table.Indicators {
		value, present := metrics.Values[rule.Metric]
		if !present || !rule.Matches(value) {
			continue
		}
		triggered = append(triggered, TriggeredIndicator{
			Name:      rule.Name,
			Metric:    rule.Metric,
			Observed:  value,
			Threshold: rule.Threshold,
			Tier:      rule.Tier.String(),
			Outcome:   rule.Outcome,
			Action:    rule.Action,
		})
		if rule.Tier > overall {
			overall = rule.Tier
		}
	}

	return &Assessment{
		AssessedAt:      observedAt,
		OverallTier:     overall.String(),
		Alert:           regulation.AlertFor(overall),
		Triggered:       triggered,
		Recommendations: table.Recommendations[overall],
		Source:          rs.Source(),
	}, nil
}
