/*
handlers.go - HTTP handlers for the regulation engine

PURPOSE:
  Exposes the operations registry over REST. Handles HTTP
  request/response, JSON serialization, and delegates everything else to
  the registry and the regulation store.

ENDPOINTS:
  Operations (generic front):
    POST   /api/ops/{name}                 Dispatch any registered operation

  Regulations:
    GET    /api/regulations                Status report for every regulation
    GET    /api/regulations/{id}           Full rule document
    GET    /api/regulations/{id}/history   Backup records, oldest first
    PUT    /api/regulations/{id}           Replace the rule document
    POST   /api/regulations/{id}/rollback  Restore the latest backup

  Calculations:
    POST   /api/calculations/learnership   Learnership allowance
    POST   /api/calculations/employment    Employment incentive

  Risk:
    POST   /api/risk/assessment            Classify a metric snapshot
    GET    /api/risk/impact                Sector/stage impact lookup

  Knowledge:
    GET    /api/search                     Ranked knowledge search
    GET    /api/sources                    Monitored official sources

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, rejected documents
  - 404: Unknown regulation or sector
  - 409: Rollback with no backup available
  - 502: External ranking collaborator failure
  - 503: Store not yet loaded
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - tools/registry.go: The operations dispatched here
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
	"github.com/vaalgrid/regulation-engine/tools"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *regstore.Store
	Registry *tools.Registry
}

// NewHandler creates a handler over a store and its operations registry.
func NewHandler(store *regstore.Store, registry *tools.Registry) *Handler {
	return &Handler{Store: store, Registry: registry}
}

// =============================================================================
// GENERIC OPERATION FRONT
// =============================================================================

// DispatchOperation runs any registered operation by name.
// POST /api/ops/{name}
func (h *Handler) DispatchOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	resp, err := h.Registry.Dispatch(r.Context(), name, body)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownOperation) {
			writeError(w, http.StatusNotFound, "Unknown operation", err)
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOperations describes the registered operations.
// GET /api/ops
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.Registry.Operations()
	dtos := make([]OperationDTO, len(ops))
	for i, op := range ops {
		dtos[i] = OperationDTO{Name: op.Name, Description: op.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REGULATION HANDLERS
// =============================================================================

// ListRegulations returns the status report for every loaded regulation.
// GET /api/regulations
func (h *Handler) ListRegulations(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "regulation_status", nil)
}

// GetRegulation returns the full rule document for one regulation.
// GET /api/regulations/{id}
func (h *Handler) GetRegulation(w http.ResponseWriter, r *http.Request) {
	id := regulation.RegulationID(chi.URLParam(r, "id"))
	rs, err := h.Store.RuleSet(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	doc, err := factory.MarshalDocument(rs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render document", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// GetRegulationHistory returns the backup records for one regulation.
// GET /api/regulations/{id}/history
func (h *Handler) GetRegulationHistory(w http.ResponseWriter, r *http.Request) {
	id := regulation.RegulationID(chi.URLParam(r, "id"))
	backups, err := h.Store.History(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

// UpdateRegulation replaces one regulation's rule document. The request
// body is the replacement document itself.
// PUT /api/regulations/{id}
func (h *Handler) UpdateRegulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	req, err := json.Marshal(tools.UpdateRequest{RegulationID: id, Document: doc})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build update request", err)
		return
	}

	ctx := regstore.WithActor(r.Context(), actorOf(r))
	resp, err := h.Registry.Dispatch(ctx, "update_regulation", req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RollbackRegulation restores the most recently backed-up version.
// POST /api/regulations/{id}/rollback
func (h *Handler) RollbackRegulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := json.Marshal(tools.RollbackRequest{RegulationID: id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build rollback request", err)
		return
	}

	ctx := regstore.WithActor(r.Context(), actorOf(r))
	resp, err := h.Registry.Dispatch(ctx, "rollback_regulation", req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CALCULATION AND RISK HANDLERS
// =============================================================================

// ComputeLearnership runs the learnership allowance calculation.
// POST /api/calculations/learnership
func (h *Handler) ComputeLearnership(w http.ResponseWriter, r *http.Request) {
	h.dispatchBody(w, r, "compute_learnership_allowance")
}

// ComputeEmployment runs the employment incentive calculation.
// POST /api/calculations/employment
func (h *Handler) ComputeEmployment(w http.ResponseWriter, r *http.Request) {
	h.dispatchBody(w, r, "compute_employment_incentive")
}

// AssessRisk classifies a metric snapshot.
// POST /api/risk/assessment
func (h *Handler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	h.dispatchBody(w, r, "assess_loadshedding_risk")
}

// BusinessImpact looks up sector impact for an outage stage.
// GET /api/risk/impact?sector=manufacturing&stage=4
func (h *Handler) BusinessImpact(w http.ResponseWriter, r *http.Request) {
	sector := r.URL.Query().Get("sector")
	stage, err := strconv.Atoi(r.URL.Query().Get("stage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Stage must be an integer", err)
		return
	}
	req, err := json.Marshal(tools.ImpactRequest{Sector: sector, Stage: stage})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build impact request", err)
		return
	}
	h.dispatch(w, r, "business_impact", req)
}

// =============================================================================
// KNOWLEDGE HANDLERS
// =============================================================================

// Search runs a ranked knowledge search.
// GET /api/search?q=eligibility&top_n=3
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	topN := 0
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "top_n must be an integer", err)
			return
		}
		topN = n
	}
	req, err := json.Marshal(tools.SearchRequest{Query: r.URL.Query().Get("q"), TopN: topN})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build search request", err)
		return
	}
	h.dispatch(w, r, "search_regulations", req)
}

// ListSources returns the monitored official sources.
// GET /api/sources
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "list_sources", nil)
}

// Health reports whether the store is loaded and serving.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Store.RuleSets(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// dispatchBody forwards the raw request body to a named operation.
func (h *Handler) dispatchBody(w http.ResponseWriter, r *http.Request, name string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	h.dispatch(w, r, name, body)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, name string, req json.RawMessage) {
	resp, err := h.Registry.Dispatch(r.Context(), name, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// actorOf identifies the caller for audit purposes. Without
// authentication the best available identity is the remote address,
// refined by an explicit header when a gateway supplies one.
func actorOf(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return r.RemoteAddr
}

// writeDomainError maps engine error categories onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case regulation.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case regulation.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, regstore.ErrNoBackup):
		writeError(w, http.StatusConflict, "No backup available", err)
	case errors.Is(err, regulation.ErrExternalService):
		writeError(w, http.StatusBadGateway, "Ranking service unavailable", err)
	case errors.Is(err, regulation.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "Store not loaded", err)
	case errors.Is(err, regulation.ErrCorruptDocument):
		writeError(w, http.StatusInternalServerError, "Document error", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
