/*
render.go - Human-readable rendering of operation responses

PURPOSE:
  CLI fronts want a readable report, not a JSON blob. Render knows every
  response type the registry can produce and formats each one; anything
  unrecognized falls back to indented JSON so new response types degrade
  gracefully instead of failing.
*/
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vaalgrid/regulation-engine/incentive"
	"github.com/vaalgrid/regulation-engine/risk"
)

// Render formats an operation response for terminal output.
func Render(resp any) string {
	switch v := resp.(type) {
	case *incentive.LearnershipResult:
		return renderLearnership(v)
	case *incentive.EmploymentResult:
		return renderEmployment(v)
	case *risk.Assessment:
		return renderAssessment(v)
	case *risk.Impact:
		return renderImpact(v)
	case *SearchResponse:
		return renderSearch(v)
	case *UpdateResponse:
		return fmt.Sprintf("Updated %s: %s -> %s", v.RegulationID, v.PriorVersion, v.NewVersion)
	case *RollbackResponse:
		return fmt.Sprintf("Rolled back %s to version %s", v.RegulationID, v.RestoredVersion)
	case []RegulationStatus:
		return renderStatus(v)
	case []SourceList:
		return renderSources(v)
	default:
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Sprintf("%+v", resp)
		}
		return string(data)
	}
}

func renderLearnership(r *incentive.LearnershipResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Regulation)
	for _, line := range r.Breakdown {
		fmt.Fprintf(&b, "  %-12s NQF %-2d  annual R%s  completion R%s  total R%s\n",
			line.LearnerID, line.NQFLevel,
			line.AnnualAllowance, line.CompletionAllowance, line.Total)
	}
	fmt.Fprintf(&b, "Learners: %d\n", r.LearnerCount)
	fmt.Fprintf(&b, "Total allowance: R%s\n", r.TotalAllowance)
	fmt.Fprintf(&b, "Tax saving: R%s\n", r.TaxSaving)
	fmt.Fprintf(&b, "Source: %s (verified %s)\n", r.Source, r.VerifiedAt)
	return b.String()
}

func renderEmployment(r *incentive.EmploymentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Regulation)
	for _, line := range r.Breakdown {
		fmt.Fprintf(&b, "  %-12s age %-3d salary R%-8s month %-3d incentive R%s\n",
			line.EmployeeID, line.Age, line.MonthlySalary,
			line.MonthsEmployed, line.MonthlyIncentive)
	}
	fmt.Fprintf(&b, "Qualifying employees: %d\n", r.QualifyingEmployees)
	fmt.Fprintf(&b, "Monthly total: R%s\n", r.MonthlyTotal)
	fmt.Fprintf(&b, "Annual total: R%s\n", r.AnnualTotal)
	fmt.Fprintf(&b, "Source: %s (verified %s)\n", r.Source, r.VerifiedAt)
	return b.String()
}

func renderAssessment(a *risk.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall risk: %s (alert %s)\n", a.OverallTier, a.Alert)
	if len(a.Triggered) == 0 {
		b.WriteString("No indicators triggered.\n")
	}
	for _, t := range a.Triggered {
		fmt.Fprintf(&b, "  [%s] %s\n", t.Tier, t.Name)
		fmt.Fprintf(&b, "        observed %s, threshold %s\n", t.Observed, t.Threshold)
		fmt.Fprintf(&b, "        %s\n", t.Outcome)
		fmt.Fprintf(&b, "        action: %s\n", t.Action)
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	return b.String()
}

func renderImpact(i *risk.Impact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sector %s at stage %d: %s\n", i.Sector, i.Stage, i.Severity)
	fmt.Fprintf(&b, "  Impact: %s\n", i.Impact)
	fmt.Fprintf(&b, "  Mitigation: %s\n", i.Mitigation)
	return b.String()
}

func renderSearch(s *SearchResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d result(s) for %q\n", s.Total, s.Query)
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%d. %s (score %.2f)\n", r.Rank, r.Item.ID, r.Score)
		fmt.Fprintf(&b, "   %s\n", firstLine(r.Item.Content))
	}
	return b.String()
}

func renderStatus(report []RegulationStatus) string {
	var b strings.Builder
	for _, row := range report {
		fmt.Fprintf(&b, "%-22s %-8s version %-12s backups %d\n",
			row.ID, row.Status, row.LastUpdated, row.Backups)
	}
	return b.String()
}

func renderSources(lists []SourceList) string {
	var b strings.Builder
	for _, l := range lists {
		fmt.Fprintf(&b, "%s (%s)\n", l.Name, l.RegulationID)
		for _, src := range l.Sources {
			fmt.Fprintf(&b, "  %s\n", src)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
