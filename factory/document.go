/*
Package factory provides JSON to Go rule-set conversion.

PURPOSE:
  Converts persisted regulation documents (flat JSON files) into typed
  regulation.RuleSet values and back. This keeps rule content out of code:
  when an authority publishes new rates, the document changes and the
  calculators pick up the new tables without a rebuild.

JSON SCHEMA (abridged):
  {
    "id": "learnership",
    "kind": "learnership",
    "regulation": "Section 12H - Learnership Allowances",
    "status": "Active",
    "last_updated": "2025-03-01",
    "allowances": {
      "min_level": 1, "max_level": 10, "band_boundary": 6,
      "annual":     {"lower": {"standard": 40000, "disability": 60000}, ...},
      "completion": {...}
    },
    "documentation_required": [...],
    "common_pitfalls": [...],
    "calculation_examples": [{"scenario": "...", "outcome": "..."}],
    "official_sources": [...]
  }

  Employment documents carry "eligibility" (age window, salary ceiling,
  tenure bands), crisis documents carry "thresholds" (indicator rules,
  recommendations per tier, sector impact matrix).

KEY FEATURES:
  - Monetary fields decode through decimal.Decimal (quoted or bare numbers)
  - ParseDocument runs full structural validation; a document that parses
    but fails validation is rejected the same way as malformed JSON

SEE ALSO:
  - regulation/validate.go: the validation applied after decoding
  - regstore: reads and writes documents through this package
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// DocumentJSON is the persisted form of one regulation.
type DocumentJSON struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Regulation  string `json:"regulation"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated"`

	Allowances  *AllowancesJSON  `json:"allowances,omitempty"`
	Eligibility *EligibilityJSON `json:"eligibility,omitempty"`
	Thresholds  *ThresholdsJSON  `json:"thresholds,omitempty"`

	Documentation []string      `json:"documentation_required,omitempty"`
	Pitfalls      []string      `json:"common_pitfalls,omitempty"`
	Examples      []ExampleJSON `json:"calculation_examples,omitempty"`
	Sources       []string      `json:"official_sources"`
}

// ExampleJSON is a published worked example.
type ExampleJSON struct {
	Scenario string `json:"scenario"`
	Outcome  string `json:"outcome"`
}

// AllowancesJSON is the learnership allowance table.
type AllowancesJSON struct {
	MinLevel     int           `json:"min_level"`
	MaxLevel     int           `json:"max_level"`
	BandBoundary int           `json:"band_boundary"`
	Annual       BandRatesJSON `json:"annual"`
	Completion   BandRatesJSON `json:"completion"`
}

type BandRatesJSON struct {
	Lower AbilityRatesJSON `json:"lower"`
	Upper AbilityRatesJSON `json:"upper"`
}

type AbilityRatesJSON struct {
	Standard   decimal.Decimal `json:"standard"`
	Disability decimal.Decimal `json:"disability"`
}

// EligibilityJSON is the employment incentive table.
type EligibilityJSON struct {
	MinAge        int              `json:"min_age"`
	MaxAge        int              `json:"max_age"`
	SalaryCeiling decimal.Decimal  `json:"salary_ceiling"`
	TenureBands   []TenureBandJSON `json:"tenure_bands"`
}

type TenureBandJSON struct {
	MonthsUpTo  int             `json:"months_up_to"`
	RampRate    decimal.Decimal `json:"ramp_rate"`
	Plateau     decimal.Decimal `json:"plateau"`
	PlateauFrom decimal.Decimal `json:"plateau_from"`
	PlateauTo   decimal.Decimal `json:"plateau_to"`
	TaperRate   decimal.Decimal `json:"taper_rate"`
}

// ThresholdsJSON is the crisis threshold table.
type ThresholdsJSON struct {
	Indicators      []IndicatorJSON         `json:"indicators"`
	Recommendations map[string][]string     `json:"recommendations"`
	ImpactMatrix    map[string]SectorImpact `json:"impact_matrix"`
}

type IndicatorJSON struct {
	Name       string          `json:"name"`
	Metric     string          `json:"metric"`
	Comparison string          `json:"comparison"`
	Threshold  decimal.Decimal `json:"threshold"`
	Tier       string          `json:"tier"`
	Outcome    string          `json:"likely_outcome"`
	Action     string          `json:"action"`
}

type SectorImpact struct {
	Stages     map[string]string `json:"stages"` // keys are stage numbers
	Mitigation string            `json:"mitigation"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseDocument decodes and validates one regulation document.
func ParseDocument(data []byte) (*regulation.RuleSet, error) {
	var dj DocumentJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return nil, fmt.Errorf("failed to parse regulation document: %w", err)
	}
	return FromJSON(dj)
}

// FromJSON converts DocumentJSON into a validated RuleSet.
func FromJSON(dj DocumentJSON) (*regulation.RuleSet, error) {
	rs := &regulation.RuleSet{
		ID:            regulation.RegulationID(dj.ID),
		Kind:          regulation.Kind(dj.Kind),
		Name:          dj.Regulation,
		Description:   dj.Description,
		Status:        dj.Status,
		Version:       dj.LastUpdated,
		Documentation: dj.Documentation,
		Pitfalls:      dj.Pitfalls,
		Sources:       dj.Sources,
	}
	for _, ex := range dj.Examples {
		rs.Examples = append(rs.Examples, regulation.WorkedExample{
			Scenario: ex.Scenario,
			Outcome:  ex.Outcome,
		})
	}

	if dj.Allowances != nil {
		rs.Learnership = parseAllowances(*dj.Allowances)
	}
	if dj.Eligibility != nil {
		rs.Employment = parseEligibility(*dj.Eligibility)
	}
	if dj.Thresholds != nil {
		crisis, err := parseThresholds(*dj.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("regulation %q: %w", dj.ID, err)
		}
		rs.Crisis = crisis
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func parseAllowances(aj AllowancesJSON) *regulation.LearnershipTable {
	return &regulation.LearnershipTable{
		MinLevel:     aj.MinLevel,
		MaxLevel:     aj.MaxLevel,
		BandBoundary: aj.BandBoundary,
		Annual:       parseBandRates(aj.Annual),
		Completion:   parseBandRates(aj.Completion),
	}
}

func parseBandRates(bj BandRatesJSON) regulation.BandRates {
	return regulation.BandRates{
		Lower: regulation.AbilityRates{Standard: bj.Lower.Standard, Disability: bj.Lower.Disability},
		Upper: regulation.AbilityRates{Standard: bj.Upper.Standard, Disability: bj.Upper.Disability},
	}
}

func bandRatesJSON(br regulation.BandRates) BandRatesJSON {
	return BandRatesJSON{
		Lower: AbilityRatesJSON{Standard: br.Lower.Standard, Disability: br.Lower.Disability},
		Upper: AbilityRatesJSON{Standard: br.Upper.Standard, Disability: br.Upper.Disability},
	}
}

func parseEligibility(ej EligibilityJSON) *regulation.EmploymentTable {
	t := &regulation.EmploymentTable{
		MinAge:        ej.MinAge,
		MaxAge:        ej.MaxAge,
		SalaryCeiling: ej.SalaryCeiling,
	}
	for _, bj := range ej.TenureBands {
		t.Bands = append(t.Bands, regulation.TenureBand{
			MonthsUpTo:  bj.MonthsUpTo,
			RampRate:    bj.RampRate,
			Plateau:     bj.Plateau,
			PlateauFrom: bj.PlateauFrom,
			PlateauTo:   bj.PlateauTo,
			TaperRate:   bj.TaperRate,
		})
	}
	return t
}

func parseThresholds(tj ThresholdsJSON) (*regulation.CrisisTable, error) {
	table := &regulation.CrisisTable{
		Recommendations: make(map[regulation.Tier][]string),
		Impact:          make(regulation.ImpactMatrix),
	}

	for _, ij := range tj.Indicators {
		tier, ok := regulation.ParseTier(ij.Tier)
		if !ok {
			return nil, fmt.Errorf("indicator %q: unknown tier %q", ij.Name, ij.Tier)
		}
		table.Indicators = append(table.Indicators, regulation.IndicatorRule{
			Name:       ij.Name,
			Metric:     ij.Metric,
			Comparison: regulation.Comparison(ij.Comparison),
			Threshold:  ij.Threshold,
			Tier:       tier,
			Outcome:    ij.Outcome,
			Action:     ij.Action,
		})
	}

	for name, recs := range tj.Recommendations {
		tier, ok := regulation.ParseTier(name)
		if !ok {
			return nil, fmt.Errorf("recommendations: unknown tier %q", name)
		}
		table.Recommendations[tier] = recs
	}

	for sector, sj := range tj.ImpactMatrix {
		impact := regulation.SectorImpact{
			Stages:     make(map[int]string, len(sj.Stages)),
			Mitigation: sj.Mitigation,
		}
		for key, text := range sj.Stages {
			stage, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("sector %q: stage key %q is not a number", sector, key)
			}
			impact.Stages[stage] = text
		}
		table.Impact[sector] = impact
	}

	return table, nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON converts a RuleSet back into its persisted form.
func ToJSON(rs *regulation.RuleSet) DocumentJSON {
	dj := DocumentJSON{
		ID:            string(rs.ID),
		Kind:          string(rs.Kind),
		Regulation:    rs.Name,
		Description:   rs.Description,
		Status:        rs.Status,
		LastUpdated:   rs.Version,
		Documentation: rs.Documentation,
		Pitfalls:      rs.Pitfalls,
		Sources:       rs.Sources,
	}
	for _, ex := range rs.Examples {
		dj.Examples = append(dj.Examples, ExampleJSON{Scenario: ex.Scenario, Outcome: ex.Outcome})
	}

	if rs.Learnership != nil {
		dj.Allowances = &AllowancesJSON{
			MinLevel:     rs.Learnership.MinLevel,
			MaxLevel:     rs.Learnership.MaxLevel,
			BandBoundary: rs.Learnership.BandBoundary,
			Annual:       bandRatesJSON(rs.Learnership.Annual),
			Completion:   bandRatesJSON(rs.Learnership.Completion),
		}
	}
	if rs.Employment != nil {
		ej := &EligibilityJSON{
			MinAge:        rs.Employment.MinAge,
			MaxAge:        rs.Employment.MaxAge,
			SalaryCeiling: rs.Employment.SalaryCeiling,
		}
		for _, b := range rs.Employment.Bands {
			ej.TenureBands = append(ej.TenureBands, TenureBandJSON{
				MonthsUpTo:  b.MonthsUpTo,
				RampRate:    b.RampRate,
				Plateau:     b.Plateau,
				PlateauFrom: b.PlateauFrom,
				PlateauTo:   b.PlateauTo,
				TaperRate:   b.TaperRate,
			})
		}
		dj.Eligibility = ej
	}
	if rs.Crisis != nil {
		tj := &ThresholdsJSON{
			Recommendations: make(map[string][]string),
			ImpactMatrix:    make(map[string]SectorImpact),
		}
		for _, ind := range rs.Crisis.Indicators {
			tj.Indicators = append(tj.Indicators, IndicatorJSON{
				Name:       ind.Name,
				Metric:     ind.Metric,
				Comparison: string(ind.Comparison),
				Threshold:  ind.Threshold,
				Tier:       ind.Tier.String(),
				Outcome:    ind.Outcome,
				Action:     ind.Action,
			})
		}
		for tier, recs := range rs.Crisis.Recommendations {
			tj.Recommendations[tier.String()] = recs
		}
		for sector, impact := range rs.Crisis.Impact {
			sj := SectorImpact{
				Stages:     make(map[string]string, len(impact.Stages)),
				Mitigation: impact.Mitigation,
			}
			for stage, text := range impact.Stages {
				sj.Stages[strconv.Itoa(stage)] = text
			}
			tj.ImpactMatrix[sector] = sj
		}
		dj.Thresholds = tj
	}

	return dj
}

// MarshalDocument renders a RuleSet as an indented persisted document.
func MarshalDocument(rs *regulation.RuleSet) ([]byte, error) {
	return json.MarshalIndent(ToJSON(rs), "", "  ")
}
