/*
Package tools exposes the engine's operations as a named, typed
request/response dispatch table.

PURPOSE:
  Any front end that can name an operation and supply a JSON body can
  drive the engine: an HTTP handler, a CLI, a conversational runtime
  registering these as callable functions. The table is the single
  integration surface; hosts never reach into the components directly.

DISPATCH CONTRACT:
  Requests are decoded into typed structs and validated at this boundary,
  so malformed input is rejected before it reaches a calculator.
  Responses are plain structs that marshal cleanly to JSON. Errors come
  back typed; hosts branch with the regulation package's errors.Is
  helpers.

OPERATIONS:
  compute_learnership_allowance   learner list -> deduction breakdown
  compute_employment_incentive    employee list -> subsidy breakdown
  assess_loadshedding_risk        metric snapshot -> tiered assessment
  business_impact                 sector/stage -> impact row
  search_regulations              free text -> ranked knowledge items
  update_regulation               replacement document -> prior version
  rollback_regulation             regulation id -> restored version
  regulation_status               -> per-regulation version report
  list_sources                    -> monitored official sources
*/
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/incentive"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
	"github.com/vaalgrid/regulation-engine/retrieval"
	"github.com/vaalgrid/regulation-engine/risk"
)

// ErrUnknownOperation is returned by Dispatch for an unregistered name.
var ErrUnknownOperation = errors.New("unknown operation")

// Engine bundles the dependencies the operations run against.
type Engine struct {
	Store   *regstore.Store
	Ranker  retrieval.Ranker // optional; nil means keyword search only
	TaxRate decimal.Decimal
}

// HandlerFunc executes one operation against a raw JSON request body.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) (any, error)

// Operation is one named entry of the dispatch table.
type Operation struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// Registry is the dispatch table.
type Registry struct {
	ops   map[string]Operation
	order []string
}

// NewRegistry builds the table over an engine.
func NewRegistry(e *Engine) *Registry {
	r := &Registry{ops: make(map[string]Operation)}
	r.register(Operation{
		Name:        "compute_learnership_allowance",
		Description: "Compute the learnership allowance deduction for a list of learners",
		Handler:     e.computeLearnership,
	})
	r.register(Operation{
		Name:        "compute_employment_incentive",
		Description: "Compute the monthly and annual employment incentive for a list of employees",
		Handler:     e.computeEmployment,
	})
	r.register(Operation{
		Name:        "assess_loadshedding_risk",
		Description: "Classify operational metrics into a tiered load-shedding risk assessment",
		Handler:     e.assessRisk,
	})
	r.register(Operation{
		Name:        "business_impact",
		Description: "Look up the impact of an outage stage on a business sector",
		Handler:     e.businessImpact,
	})
	r.register(Operation{
		Name:        "search_regulations",
		Description: "Search the regulation knowledge index",
		Handler:     e.search,
	})
	r.register(Operation{
		Name:        "update_regulation",
		Description: "Replace a regulation's rule set with a new document version",
		Handler:     e.update,
	})
	r.register(Operation{
		Name:        "rollback_regulation",
		Description: "Restore a regulation's most recently backed-up version",
		Handler:     e.rollback,
	})
	r.register(Operation{
		Name:        "regulation_status",
		Description: "Report status, version and sources for every loaded regulation",
		Handler:     e.status,
	})
	r.register(Operation{
		Name:        "list_sources",
		Description: "List the official sources monitored per regulation",
		Handler:     e.sources,
	})
	return r
}

func (r *Registry) register(op Operation) {
	r.ops[op.Name] = op
	r.order = append(r.order, op.Name)
}

// Operations returns the table entries in registration order.
func (r *Registry) Operations() []Operation {
	out := make([]Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// Dispatch runs a named operation against a raw request body.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return op.Handler(ctx, raw)
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LearnerInput mirrors regulation.LearnerRecord at the JSON boundary.
type LearnerInput struct {
	ID        string `json:"id"`
	NQFLevel  int    `json:"nqf_level"`
	Disabled  bool   `json:"disabled"`
	Completed bool   `json:"completed"`
}

type LearnershipRequest struct {
	RegulationID string         `json:"regulation_id,omitempty"`
	Learners     []LearnerInput `json:"learners"`
}

// EmployeeInput mirrors regulation.EmployeeRecord at the JSON boundary.
type EmployeeInput struct {
	ID             string          `json:"id"`
	Age            int             `json:"age"`
	MonthlySalary  decimal.Decimal `json:"monthly_salary"`
	MonthsEmployed int             `json:"months_employed"`
}

type EmploymentRequest struct {
	RegulationID string          `json:"regulation_id,omitempty"`
	Employees    []EmployeeInput `json:"employees"`
}

type RiskRequest struct {
	RegulationID string                     `json:"regulation_id,omitempty"`
	Metrics      map[string]decimal.Decimal `json:"metrics"`
}

type ImpactRequest struct {
	RegulationID string `json:"regulation_id,omitempty"`
	Sector       string `json:"sector"`
	Stage        int    `json:"stage"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"top_n,omitempty"`
}

type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []retrieval.ScoredItem `json:"results"`
	Total   int                    `json:"total_results"`
}

type UpdateRequest struct {
	RegulationID string          `json:"regulation_id"`
	Document     json.RawMessage `json:"document"`
}

type UpdateResponse struct {
	RegulationID string `json:"regulation_id"`
	PriorVersion string `json:"prior_version"`
	NewVersion   string `json:"new_version"`
}

type RollbackRequest struct {
	RegulationID string `json:"regulation_id"`
}

type RollbackResponse struct {
	RegulationID    string `json:"regulation_id"`
	RestoredVersion string `json:"restored_version"`
}

// RegulationStatus is one row of the status report.
type RegulationStatus struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	LastUpdated string   `json:"last_updated"`
	Backups     int      `json:"backups"`
	Sources     []string `json:"sources"`
}

// SourceList is the monitored sources of one regulation.
type SourceList struct {
	RegulationID string   `json:"regulation_id"`
	Name         string   `json:"name"`
	Sources      []string `json:"sources"`
}

// =============================================================================
// HANDLERS
// =============================================================================

func decode[T any](raw json.RawMessage) (T, error) {
	var req T
	if len(raw) == 0 {
		return req, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, &regulation.InvalidInputError{Field: "request", Value: err.Error()}
	}
	return req, nil
}

func (e *Engine) ruleSet(id, fallback regulation.RegulationID) (*regulation.RuleSet, error) {
	if id == "" {
		id = fallback
	}
	return e.Store.RuleSet(id)
}

func (e *Engine) computeLearnership(_ context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[LearnershipRequest](raw)
	if err != nil {
		return nil, err
	}
	rs, err := e.ruleSet(regulation.RegulationID(req.RegulationID), regulation.RegLearnership)
	if err != nil {
		return nil, err
	}
	learners := make([]regulation.LearnerRecord, len(req.Learners))
	for i, l := range req.Learners {
		learners[i] = regulation.LearnerRecord{
			ID:        l.ID,
			NQFLevel:  l.NQFLevel,
			Disabled:  l.Disabled,
			Completed: l.Completed,
		}
	}
	return incentive.ComputeLearnershipAllowance(learners, rs, e.TaxRate)
}

func (e *Engine) computeEmployment(_ context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[EmploymentRequest](raw)
	if err != nil {
		return nil, err
	}
	rs, err := e.ruleSet(regulation.RegulationID(req.RegulationID), regulation.RegEmployment)
	if err != nil {
		return nil, err
	}
	employees := make([]regulation.EmployeeRecord, len(req.Employees))
	for i, emp := range req.Employees {
		employees[i] = regulation.EmployeeRecord{
			ID:             emp.ID,
			Age:            emp.Age,
			MonthlySalary:  emp.MonthlySalary,
			MonthsEmployed: emp.MonthsEmployed,
		}
	}
	return incentive.ComputeEmploymentIncentive(employees, rs)
}

func (e *Engine) assessRisk(_ context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[RiskRequest](raw)
	if err != nil {
		return nil, err
	}
	rs, err := e.ruleSet(regulation.RegulationID(req.RegulationID), regulation.RegLoadshedding)
	if err != nil {
		return nil, err
	}
	return risk.Assess(regulation.MetricSnapshot{Values: req.Metrics}, rs)
}

func (e *Engine) businessImpact(_ context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[ImpactRequest](raw)
	if err != nil {
		return nil, err
	}
	rs, err := e.ruleSet(regulation.RegulationID(req.RegulationID), regulation.RegLoadshedding)
	if err != nil {
		return nil, err
	}
	return risk.BusinessImpact(req.Sector, req.Stage, rs)
}

func (e *Engine) search(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[SearchRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Query == "" {
		return nil, &regulation.InvalidInputError{Field: "query", Value: ""}
	}
	topN := req.TopN
	if topN <= 0 {
		topN = 3
	}

	var results []retrieval.ScoredItem
	if e.Ranker != nil {
		results, err = e.Store.SearchWith(ctx, e.Ranker, req.Query, topN)
	} else {
		results, err = e.Store.Search(req.Query, topN)
	}
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Query: req.Query, Results: results, Total: len(results)}, nil
}

func (e *Engine) update(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[UpdateRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.RegulationID == "" {
		return nil, &regulation.InvalidInputError{Field: "regulation_id", Value: ""}
	}
	rs, err := factory.ParseDocument(req.Document)
	if err != nil {
		return nil, &regulation.InvalidInputError{Field: "document", Value: err.Error()}
	}
	prior, err := e.Store.Update(ctx, regulation.RegulationID(req.RegulationID), rs)
	if err != nil {
		return nil, err
	}
	return &UpdateResponse{
		RegulationID: req.RegulationID,
		PriorVersion: prior,
		NewVersion:   rs.Version,
	}, nil
}

func (e *Engine) rollback(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := decode[RollbackRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.RegulationID == "" {
		return nil, &regulation.InvalidInputError{Field: "regulation_id", Value: ""}
	}
	restored, err := e.Store.Rollback(ctx, regulation.RegulationID(req.RegulationID))
	if err != nil {
		return nil, err
	}
	return &RollbackResponse{RegulationID: req.RegulationID, RestoredVersion: restored}, nil
}

func (e *Engine) status(_ context.Context, _ json.RawMessage) (any, error) {
	ruleSets, err := e.Store.RuleSets()
	if err != nil {
		return nil, err
	}
	report := make([]RegulationStatus, 0, len(ruleSets))
	for _, rs := range ruleSets {
		backups, _ := e.Store.History(rs.ID)
		report = append(report, RegulationStatus{
			ID:          string(rs.ID),
			Name:        rs.Name,
			Status:      rs.Status,
			LastUpdated: rs.Version,
			Backups:     len(backups),
			Sources:     rs.Sources,
		})
	}
	return report, nil
}

func (e *Engine) sources(_ context.Context, _ json.RawMessage) (any, error) {
	ruleSets, err := e.Store.RuleSets()
	if err != nil {
		return nil, err
	}
	lists := make([]SourceList, 0, len(ruleSets))
	for _, rs := range ruleSets {
		lists = append(lists, SourceList{
			RegulationID: string(rs.ID),
			Name:         rs.Name,
			Sources:      rs.Sources,
		})
	}
	return lists, nil
}
