package risk

import (
	"sort"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// BusinessImpact looks up the impact of an outage stage on a business
// sector.
//
// An unknown sector fails with UnknownSectorError listing the sectors the
// matrix defines. A known sector with no row for the requested stage
// returns the ImpactUnknown sentinel rather than failing: the sector's
// mitigation guidance still applies even when the exact stage is
// undocumented.
func BusinessImpact(sector string, stage int, rs *regulation.RuleSet) (*Impact, error) {
	table := rs.Crisis
	if table == nil {
		return nil, &regulation.InvalidInputError{Field: "rule_set", Value: string(rs.ID)}
	}
	if stage < 0 {
		return nil, &regulation.InvalidInputError{Field: "stage", Value: stage, Min: 0, Max: 8}
	}

	row, ok := table.Impact[sector]
	if !ok {
		return nil, &regulation.UnknownSectorError{Sector: sector, Known: sectorNames(table.Impact)}
	}

	text, ok := row.Stages[stage]
	if !ok {
		text = ImpactUnknown
	}

	return &Impact{
		Sector:     sector,
		Stage:      stage,
		Impact:     text,
		Mitigation: row.Mitigation,
		Severity:   severityFor(stage),
	}, nil
}

// severityFor maps an outage stage to its severity band.
func severityFor(stage int) Severity {
	switch {
	case stage >= 4:
		return SeveritySevere
	case stage >= 2:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

func sectorNames(m regulation.ImpactMatrix) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
