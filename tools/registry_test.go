package tools_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/incentive"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
	"github.com/vaalgrid/regulation-engine/risk"
	"github.com/vaalgrid/regulation-engine/tools"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	dataDir := t.TempDir()
	_, err := regstore.Seed(dataDir)
	require.NoError(t, err)

	store, err := regstore.New(regstore.Options{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))

	engine := &tools.Engine{
		Store:   store,
		TaxRate: decimal.RequireFromString("0.28"),
	}
	return tools.NewRegistry(engine)
}

func dispatch(t *testing.T, r *tools.Registry, name string, req any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if req != nil {
		data, err := json.Marshal(req)
		require.NoError(t, err)
		raw = data
	}
	return r.Dispatch(context.Background(), name, raw)
}

// =============================================================================
// DISPATCH TABLE
// =============================================================================

func TestRegistry_AllOperationsRegistered(t *testing.T) {
	r := newTestRegistry(t)

	var names []string
	for _, op := range r.Operations() {
		names = append(names, op.Name)
		assert.NotEmpty(t, op.Description, "operation %s has no description", op.Name)
	}
	assert.Equal(t, []string{
		"compute_learnership_allowance",
		"compute_employment_incentive",
		"assess_loadshedding_risk",
		"business_impact",
		"search_regulations",
		"update_regulation",
		"rollback_regulation",
		"regulation_status",
		"list_sources",
	}, names)
}

func TestRegistry_UnknownOperation(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Dispatch(context.Background(), "transmute_lead", nil)
	assert.ErrorIs(t, err, tools.ErrUnknownOperation)
}

func TestRegistry_UnknownRequestFieldRejected(t *testing.T) {
	// GIVEN: A request carrying a field the operation does not define
	// WHEN: Dispatching
	// THEN: InvalidInputError instead of silently ignoring the field

	r := newTestRegistry(t)
	_, err := r.Dispatch(context.Background(), "search_regulations",
		json.RawMessage(`{"query": "x", "topn": 3}`))
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)
}

// =============================================================================
// CALCULATION OPERATIONS
// =============================================================================

func TestRegistry_ComputeLearnership(t *testing.T) {
	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "compute_learnership_allowance", tools.LearnershipRequest{
		Learners: []tools.LearnerInput{
			{ID: "l-1", NQFLevel: 4, Completed: true},
		},
	})
	require.NoError(t, err)

	result, ok := resp.(*incentive.LearnershipResult)
	require.True(t, ok)
	assert.Equal(t, 1, result.LearnerCount)
	assert.True(t, result.TotalAllowance.Equal(decimal.RequireFromString("80000")))
	assert.True(t, result.TaxSaving.Equal(decimal.RequireFromString("22400")))
}

func TestRegistry_ComputeEmployment(t *testing.T) {
	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "compute_employment_incentive", tools.EmploymentRequest{
		Employees: []tools.EmployeeInput{
			{ID: "e-1", Age: 24, MonthlySalary: decimal.RequireFromString("4000"), MonthsEmployed: 6},
			{ID: "e-2", Age: 40, MonthlySalary: decimal.RequireFromString("4000"), MonthsEmployed: 6},
		},
	})
	require.NoError(t, err)

	result, ok := resp.(*incentive.EmploymentResult)
	require.True(t, ok)
	assert.Equal(t, 1, result.QualifyingEmployees)
	assert.True(t, result.MonthlyTotal.Equal(decimal.RequireFromString("1500")))
}

func TestRegistry_AssessRisk(t *testing.T) {
	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "assess_loadshedding_risk", tools.RiskRequest{
		Metrics: map[string]decimal.Decimal{
			regulation.MetricAvailabilityFactor: decimal.RequireFromString("55"),
		},
	})
	require.NoError(t, err)

	assessment, ok := resp.(*risk.Assessment)
	require.True(t, ok)
	assert.Equal(t, "Critical", assessment.OverallTier)
}

func TestRegistry_BusinessImpact_UnknownSectorSurfaces(t *testing.T) {
	r := newTestRegistry(t)

	_, err := dispatch(t, r, "business_impact", tools.ImpactRequest{Sector: "mining", Stage: 4})
	assert.ErrorIs(t, err, regulation.ErrUnknownSector)
}

// =============================================================================
// SEARCH
// =============================================================================

func TestRegistry_Search(t *testing.T) {
	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "search_regulations", tools.SearchRequest{Query: "learnership eligibility"})
	require.NoError(t, err)

	search, ok := resp.(*tools.SearchResponse)
	require.True(t, ok)
	assert.LessOrEqual(t, search.Total, 3, "default top_n is 3")
	require.NotEmpty(t, search.Results)
	assert.Equal(t, regulation.RegLearnership, search.Results[0].Item.Regulation)
}

func TestRegistry_SearchEmptyQuery(t *testing.T) {
	r := newTestRegistry(t)
	_, err := dispatch(t, r, "search_regulations", tools.SearchRequest{})
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)
}

// =============================================================================
// UPDATE / ROLLBACK / STATUS
// =============================================================================

func TestRegistry_UpdateThenRollback(t *testing.T) {
	// GIVEN: A valid replacement document
	// WHEN: Dispatching update_regulation and then rollback_regulation
	// THEN: The update reports the version transition and the rollback
	//       restores the prior version

	r := newTestRegistry(t)

	var replacement *regulation.RuleSet
	for _, rs := range regstore.SeedRuleSets() {
		if rs.ID == regulation.RegLearnership {
			replacement = rs
		}
	}
	replacement.Version = "2026-03-01"
	doc, err := factory.MarshalDocument(replacement)
	require.NoError(t, err)

	resp, err := dispatch(t, r, "update_regulation", tools.UpdateRequest{
		RegulationID: string(regulation.RegLearnership),
		Document:     doc,
	})
	require.NoError(t, err)

	update, ok := resp.(*tools.UpdateResponse)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01", update.PriorVersion)
	assert.Equal(t, "2026-03-01", update.NewVersion)

	resp, err = dispatch(t, r, "rollback_regulation", tools.RollbackRequest{
		RegulationID: string(regulation.RegLearnership),
	})
	require.NoError(t, err)

	rollback, ok := resp.(*tools.RollbackResponse)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01", rollback.RestoredVersion)
}

func TestRegistry_UpdateMalformedDocument(t *testing.T) {
	r := newTestRegistry(t)

	_, err := dispatch(t, r, "update_regulation", tools.UpdateRequest{
		RegulationID: string(regulation.RegLearnership),
		Document:     json.RawMessage(`{"id": "learnership"}`),
	})
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)
}

func TestRegistry_StatusAndSources(t *testing.T) {
	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "regulation_status", nil)
	require.NoError(t, err)
	report, ok := resp.([]tools.RegulationStatus)
	require.True(t, ok)
	require.Len(t, report, 3)
	for _, row := range report {
		assert.Equal(t, "Active", row.Status)
		assert.NotEmpty(t, row.Sources)
		assert.Zero(t, row.Backups)
	}

	resp, err = dispatch(t, r, "list_sources", nil)
	require.NoError(t, err)
	lists, ok := resp.([]tools.SourceList)
	require.True(t, ok)
	assert.Len(t, lists, 3)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRender_HumanReadable(t *testing.T) {
	// GIVEN: Operation responses of known types
	// WHEN: Rendering
	// THEN: Terminal-friendly text, not JSON

	r := newTestRegistry(t)

	resp, err := dispatch(t, r, "assess_loadshedding_risk", tools.RiskRequest{
		Metrics: map[string]decimal.Decimal{
			regulation.MetricReserveDays: decimal.RequireFromString("15"),
		},
	})
	require.NoError(t, err)

	text := tools.Render(resp)
	assert.Contains(t, text, "Overall risk: Medium")
	assert.Contains(t, text, "Recommendations:")
	assert.False(t, strings.HasPrefix(text, "{"))
}
