/*
semantic.go - External semantic ranking collaborator

PURPOSE:
  Optional upgrade path for Search. A rerank service receives the query
  and candidate texts and returns index/score pairs. Presence of an API
  key gates whether the engine uses it at all; its absence or failure
  never prevents keyword search from serving the request.

CONTRACT:
  Request:  POST {"model", "query", "documents": [...], "top_n"}
  Response: {"results": [{"index": 0, "relevance_score": 0.98}, ...]}

  Failures (transport, non-2xx, malformed body, context timeout) are
  reported as ExternalServiceError so callers can branch with errors.Is
  and fall back.
*/
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// SemanticRanker calls an external rerank endpoint.
type SemanticRanker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewSemanticRanker creates a ranker for the given endpoint. The timeout
// bounds every call; callers may tighten it further per request through
// their context.
func NewSemanticRanker(endpoint, apiKey, model string, timeout time.Duration) *SemanticRanker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SemanticRanker{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rank sends the candidate texts to the rerank service and maps the
// returned index/score pairs back onto the items.
func (r *SemanticRanker) Rank(ctx context.Context, query string, items []KnowledgeItem, topN int) ([]ScoredItem, error) {
	docs := make([]string, len(items))
	for i, item := range items {
		docs[i] = item.Content
	}

	body, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: docs, TopN: topN})
	if err != nil {
		return nil, &regulation.ExternalServiceError{Service: "semantic ranker", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &regulation.ExternalServiceError{Service: "semantic ranker", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &regulation.ExternalServiceError{Service: "semantic ranker", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &regulation.ExternalServiceError{
			Service: "semantic ranker",
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet),
		}
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, &regulation.ExternalServiceError{Service: "semantic ranker", Err: err}
	}

	var ranked []ScoredItem
	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= len(items) {
			return nil, &regulation.ExternalServiceError{
				Service: "semantic ranker",
				Err:     fmt.Errorf("result index %d out of range (%d candidates)", res.Index, len(items)),
			}
		}
		ranked = append(ranked, ScoredItem{Score: res.RelevanceScore, Item: items[res.Index]})
	}
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// FallbackRanker tries the primary ranker and recovers to the fallback on
// collaborator failure. Non-recoverable errors pass through unchanged.
type FallbackRanker struct {
	Primary  Ranker
	Fallback Ranker
	Logger   *slog.Logger
}

// Rank delegates to Primary, falling back when the error is recoverable.
func (f *FallbackRanker) Rank(ctx context.Context, query string, items []KnowledgeItem, topN int) ([]ScoredItem, error) {
	ranked, err := f.Primary.Rank(ctx, query, items, topN)
	if err == nil {
		return ranked, nil
	}
	if !regulation.IsRecoverable(err) {
		return nil, err
	}
	if f.Logger != nil {
		f.Logger.Warn("semantic ranker unavailable, using keyword search", "error", err)
	}
	return f.Fallback.Rank(ctx, query, items, topN)
}
