/*
seed.go - First-run canonical regulation documents

PURPOSE:
  Ships the three documents the engine is built around so a fresh data
  directory serves meaningful answers immediately: the learnership
  allowance, the employment incentive, and the load-shedding risk
  thresholds. Seeding never overwrites existing documents; after first
  run the persisted files are the source of truth and evolve only
  through Update.
*/
package regstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regulation"
)

// Seed writes the canonical documents into dataDir when it holds no
// regulation documents yet. Returns the number of documents written.
func Seed(dataDir string) (int, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			return 0, nil // already seeded
		}
	}

	written := 0
	for _, rs := range SeedRuleSets() {
		doc, err := factory.MarshalDocument(rs)
		if err != nil {
			return written, fmt.Errorf("seed %q: %w", rs.ID, err)
		}
		path := filepath.Join(dataDir, string(rs.ID)+".json")
		if err := writeFileAtomic(path, doc); err != nil {
			return written, fmt.Errorf("seed %q: %w", rs.ID, err)
		}
		written++
	}
	return written, nil
}

// SeedRuleSets returns the canonical rule sets. Also used by tests that
// need realistic tables.
func SeedRuleSets() []*regulation.RuleSet {
	return []*regulation.RuleSet{
		learnershipSeed(),
		employmentSeed(),
		loadsheddingSeed(),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func learnershipSeed() *regulation.RuleSet {
	return &regulation.RuleSet{
		ID:          regulation.RegLearnership,
		Kind:        regulation.KindLearnership,
		Name:        "Section 12H - Learnership Allowances",
		Description: "Additional income tax deduction for employers with registered learnership agreements",
		Status:      "Active",
		Version:     "2025-03-01",
		Learnership: &regulation.LearnershipTable{
			MinLevel:     1,
			MaxLevel:     10,
			BandBoundary: 6,
			Annual: regulation.BandRates{
				Lower: regulation.AbilityRates{Standard: d("40000"), Disability: d("60000")},
				Upper: regulation.AbilityRates{Standard: d("20000"), Disability: d("50000")},
			},
			Completion: regulation.BandRates{
				Lower: regulation.AbilityRates{Standard: d("40000"), Disability: d("60000")},
				Upper: regulation.AbilityRates{Standard: d("20000"), Disability: d("50000")},
			},
		},
		Documentation: []string{
			"Registered learnership agreement with a SETA",
			"Proof of learner employment for the assessment year",
			"Completion certificate for completion allowance claims",
		},
		Pitfalls: []string{
			"Claiming the completion allowance before the learnership is formally completed",
			"Using the NQF 1-6 rates for NQF 7-10 learners",
			"Missing the pro-rata reduction for agreements shorter than 12 months",
		},
		Examples: []regulation.WorkedExample{
			{
				Scenario: "Employer with 5 NQF 4 learners, 2 completing this year",
				Outcome:  "Annual 5 x R40,000 plus completion 2 x R40,000 = R280,000 deduction",
			},
			{
				Scenario: "One NQF 8 learner with a disability, completed",
				Outcome:  "Annual R50,000 plus completion R50,000 = R100,000 deduction",
			},
		},
		Sources: []string{
			"https://www.sars.gov.za/wp-content/uploads/Ops/Guides/LAPD-IT-G09-Guide-on-the-Tax-Incentive-for-Learnership-Agreements.pdf",
			"https://www.sars.gov.za/wp-content/uploads/Legal/Notes/Legal-IntR-IN-20-Additional-deduction-for-learnership-agreements.pdf",
		},
	}
}

func employmentSeed() *regulation.RuleSet {
	return &regulation.RuleSet{
		ID:          regulation.RegEmployment,
		Kind:        regulation.KindEmployment,
		Name:        "Employment Tax Incentive (ETI)",
		Description: "Monthly wage subsidy for employing young workers below the salary ceiling",
		Status:      "Active",
		Version:     "2025-03-01",
		Employment: &regulation.EmploymentTable{
			MinAge:        18,
			MaxAge:        29,
			SalaryCeiling: d("7500"),
			Bands: []regulation.TenureBand{
				{
					MonthsUpTo:  12,
					RampRate:    d("0.6"),
					Plateau:     d("1500"),
					PlateauFrom: d("2500"),
					PlateauTo:   d("5500"),
					TaperRate:   d("0.75"),
				},
				{
					MonthsUpTo:  0, // second and subsequent qualifying months
					RampRate:    d("0.3"),
					Plateau:     d("750"),
					PlateauFrom: d("2500"),
					PlateauTo:   d("5500"),
					TaperRate:   d("0.375"),
				},
			},
		},
		Documentation: []string{
			"EMP201 monthly employer declaration reflecting the ETI claim",
			"Employee ID documents proving age eligibility",
			"Payroll records showing monthly remuneration",
		},
		Pitfalls: []string{
			"Claiming for employees earning at or above the salary ceiling",
			"Applying first-year rates beyond the twelfth qualifying month",
			"Claiming for connected persons or domestic workers",
		},
		Examples: []regulation.WorkedExample{
			{
				Scenario: "Employee aged 24 earning R4,000, sixth month of employment",
				Outcome:  "Plateau segment applies: R1,500 monthly incentive",
			},
			{
				Scenario: "Employee aged 22 earning R6,500, fourteenth month",
				Outcome:  "Second-year taper: R750 - 0.375 x (6500 - 5500) = R375 monthly",
			},
		},
		Sources: []string{
			"https://www.sars.gov.za/types-of-tax/pay-as-you-earn/employment-tax-incentive-eti/",
		},
	}
}

func loadsheddingSeed() *regulation.RuleSet {
	return &regulation.RuleSet{
		ID:          regulation.RegLoadshedding,
		Kind:        regulation.KindCrisis,
		Name:        "Load-Shedding Risk Thresholds",
		Description: "Predictive grid indicators and business impact classification for supply interruptions",
		Status:      "Active",
		Version:     "2025-01-15",
		Crisis: &regulation.CrisisTable{
			Indicators: []regulation.IndicatorRule{
				{
					Name:       "Energy availability factor below 60%",
					Metric:     regulation.MetricAvailabilityFactor,
					Comparison: regulation.Below,
					Threshold:  d("60"),
					Tier:       regulation.TierCritical,
					Outcome:    "Stage 4-6 load-shedding imminent",
					Action:     "Activate backup generators immediately",
				},
				{
					Name:       "Energy availability factor below 65%",
					Metric:     regulation.MetricAvailabilityFactor,
					Comparison: regulation.Below,
					Threshold:  d("65"),
					Tier:       regulation.TierHigh,
					Outcome:    "Stage 2-4 load-shedding within 48 hours",
					Action:     "Prepare backup power systems",
				},
				{
					Name:       "Unplanned outages above 15,000 MW",
					Metric:     regulation.MetricUnplannedOutagesMW,
					Comparison: regulation.Above,
					Threshold:  d("15000"),
					Tier:       regulation.TierCritical,
					Outcome:    "Stage 4-6 load-shedding imminent",
					Action:     "Implement emergency protocols",
				},
				{
					Name:       "Coal stockpile below 20 days",
					Metric:     regulation.MetricReserveDays,
					Comparison: regulation.Below,
					Threshold:  d("20"),
					Tier:       regulation.TierMedium,
					Outcome:    "Increased risk within 2-4 weeks",
					Action:     "Monitor situation closely",
				},
			},
			Recommendations: map[regulation.Tier][]string{
				regulation.TierCritical: {
					"Activate all backup power systems immediately",
					"Reschedule critical operations to off-peak hours",
					"Alert all stakeholders of imminent disruption",
					"Implement emergency business continuity protocols",
				},
				regulation.TierHigh: {
					"Test backup generators and UPS systems",
					"Stock up on diesel and battery reserves",
					"Schedule flexible work arrangements",
					"Communicate potential disruptions to clients",
				},
				regulation.TierMedium: {
					"Monitor utility announcements closely",
					"Review business continuity plans",
					"Ensure backup systems are operational",
					"Consider demand-side management options",
				},
				regulation.TierLow: {
					"Maintain regular monitoring schedule",
					"Keep backup systems in standby mode",
					"Continue normal operations",
				},
			},
			Impact: regulation.ImpactMatrix{
				"manufacturing": {
					Stages: map[int]string{
						2: "Production line interruptions of 2-4 hours per day",
						4: "Shift rescheduling required, 20-30% output loss",
						6: "Plant shutdowns, only critical lines on generator power",
					},
					Mitigation: "Generator capacity for critical lines, shift production to off-peak windows",
				},
				"retail": {
					Stages: map[int]string{
						2: "Point-of-sale downtime during outage windows",
						4: "Cold-chain losses, reduced trading hours",
						6: "Store closures outside generator-backed malls",
					},
					Mitigation: "UPS for point-of-sale, generator contracts for refrigeration",
				},
				"data_centers": {
					Stages: map[int]string{
						2: "Running on UPS bridging, no customer impact",
						4: "Extended generator runs, diesel logistics pressure",
						6: "Fuel supply risk, possible workload shedding",
					},
					Mitigation: "N+1 generator redundancy, 72-hour on-site diesel reserves",
				},
				"agriculture": {
					Stages: map[int]string{
						2: "Irrigation scheduling disrupted",
						4: "Cold storage at risk, pumping backlog",
						6: "Crop loss risk from failed irrigation and storage",
					},
					Mitigation: "Solar-diesel hybrid pumping, staggered irrigation cycles",
				},
			},
		},
		Documentation: []string{
			"Grid status bulletins for the assessment period",
			"Site outage logs correlating stages to production loss",
		},
		Pitfalls: []string{
			"Treating the availability factor as a same-day predictor; it leads by 24-72 hours",
			"Ignoring reserve-day depletion because no outages occurred this week",
		},
		Examples: []regulation.WorkedExample{
			{
				Scenario: "Availability factor 55%, unplanned outages 16,500 MW",
				Outcome:  "Two critical indicators fire: overall risk Critical, alert RED",
			},
			{
				Scenario: "Availability factor 70%, coal stockpile 15 days",
				Outcome:  "Only the stockpile indicator fires: overall risk Medium, alert YELLOW",
			},
		},
		Sources: []string{
			"https://www.eskom.co.za/dataportal/",
		},
	}
}
