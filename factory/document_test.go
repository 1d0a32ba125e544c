package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseDocument_Learnership(t *testing.T) {
	// GIVEN: A learnership document with quoted and bare monetary values
	// WHEN: Parsing
	// THEN: The table decodes with exact decimal rates

	doc := []byte(`{
		"id": "learnership",
		"kind": "learnership",
		"regulation": "Section 12H - Learnership Allowances",
		"status": "Active",
		"last_updated": "2025-03-01",
		"allowances": {
			"min_level": 1, "max_level": 10, "band_boundary": 6,
			"annual": {
				"lower": {"standard": "40000", "disability": 60000},
				"upper": {"standard": 20000, "disability": "50000"}
			},
			"completion": {
				"lower": {"standard": 40000, "disability": 60000},
				"upper": {"standard": 20000, "disability": 50000}
			}
		},
		"official_sources": ["https://example.gov/guide.pdf"]
	}`)

	rs, err := factory.ParseDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, regulation.RegLearnership, rs.ID)
	assert.Equal(t, regulation.KindLearnership, rs.Kind)
	assert.Equal(t, "2025-03-01", rs.Version)
	require.NotNil(t, rs.Learnership)
	assert.Equal(t, "40000", rs.Learnership.Annual.Lower.Standard.String())
	assert.Equal(t, "60000", rs.Learnership.Annual.Lower.Disability.String())
}

func TestParseDocument_CrisisStageKeys(t *testing.T) {
	// GIVEN: A crisis document with string stage keys (JSON objects cannot
	//        have integer keys)
	// WHEN: Parsing
	// THEN: Stage keys become integers in the impact matrix

	doc, err := factory.MarshalDocument(seedByID(t, regulation.RegLoadshedding))
	require.NoError(t, err)

	rs, err := factory.ParseDocument(doc)
	require.NoError(t, err)
	require.NotNil(t, rs.Crisis)
	assert.Contains(t, rs.Crisis.Impact["manufacturing"].Stages, 4)
}

func TestParseDocument_MalformedJSON(t *testing.T) {
	_, err := factory.ParseDocument([]byte(`{"id": "learnership"`))
	assert.Error(t, err)
}

func TestParseDocument_ValidationFailuresRejected(t *testing.T) {
	// GIVEN: Documents that parse as JSON but violate structure
	// WHEN: Parsing
	// THEN: Each is rejected with a descriptive error

	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "missing table for kind",
			doc: `{"id": "learnership", "kind": "learnership", "regulation": "x",
				"status": "Active", "last_updated": "2025-01-01",
				"official_sources": ["https://example.gov"]}`,
		},
		{
			name: "no sources",
			doc: `{"id": "learnership", "kind": "learnership", "regulation": "x",
				"status": "Active", "last_updated": "2025-01-01",
				"allowances": {"min_level": 1, "max_level": 10, "band_boundary": 6,
					"annual": {"lower": {"standard": 1, "disability": 1}, "upper": {"standard": 1, "disability": 1}},
					"completion": {"lower": {"standard": 1, "disability": 1}, "upper": {"standard": 1, "disability": 1}}}}`,
		},
		{
			name: "unknown kind",
			doc: `{"id": "x", "kind": "levy", "regulation": "x", "status": "Active",
				"last_updated": "2025-01-01", "official_sources": ["https://example.gov"]}`,
		},
		{
			name: "unknown tier in thresholds",
			doc: `{"id": "loadshedding", "kind": "crisis", "regulation": "x",
				"status": "Active", "last_updated": "2025-01-01",
				"thresholds": {
					"indicators": [{"name": "n", "metric": "m", "comparison": "below",
						"threshold": 1, "tier": "Catastrophic"}],
					"recommendations": {}, "impact_matrix": {}},
				"official_sources": ["https://example.gov"]}`,
		},
		{
			name: "non-numeric stage key",
			doc: `{"id": "loadshedding", "kind": "crisis", "regulation": "x",
				"status": "Active", "last_updated": "2025-01-01",
				"thresholds": {
					"indicators": [{"name": "n", "metric": "m", "comparison": "below",
						"threshold": 1, "tier": "High"}],
					"recommendations": {"Low": ["a"], "Medium": ["a"], "High": ["a"], "Critical": ["a"]},
					"impact_matrix": {"retail": {"stages": {"two": "x"}, "mitigation": "m"}}},
				"official_sources": ["https://example.gov"]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.ParseDocument([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseDocument_DiscontinuousTenureBandRejected(t *testing.T) {
	// GIVEN: An employment document whose ramp does not reach the plateau
	// WHEN: Parsing
	// THEN: Rejected; the incentive curve must be continuous

	doc := []byte(`{
		"id": "employment_incentive", "kind": "employment_incentive", "regulation": "ETI",
		"status": "Active", "last_updated": "2025-01-01",
		"eligibility": {
			"min_age": 18, "max_age": 29, "salary_ceiling": "7500",
			"tenure_bands": [{
				"months_up_to": 0, "ramp_rate": "0.5", "plateau": "1500",
				"plateau_from": "2500", "plateau_to": "5500", "taper_rate": "0.75"
			}]
		},
		"official_sources": ["https://example.gov"]
	}`)

	_, err := factory.ParseDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discontinuous")
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestMarshalDocument_RoundTripsSeeds(t *testing.T) {
	// GIVEN: Each canonical rule set
	// WHEN: Marshalling and re-parsing
	// THEN: The result validates and matches the original

	for _, rs := range regstore.SeedRuleSets() {
		data, err := factory.MarshalDocument(rs)
		require.NoError(t, err, "marshal %s", rs.ID)

		parsed, err := factory.ParseDocument(data)
		require.NoError(t, err, "parse %s", rs.ID)
		assert.Equal(t, rs, parsed, "round trip %s", rs.ID)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func seedByID(t *testing.T, id regulation.RegulationID) *regulation.RuleSet {
	t.Helper()
	for _, rs := range regstore.SeedRuleSets() {
		if rs.ID == id {
			return rs
		}
	}
	t.Fatalf("no seed rule set %q", id)
	return nil
}
