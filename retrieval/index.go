/*
Package retrieval derives a searchable knowledge index from loaded rule
sets and scores free-text queries against it.

PURPOSE:
  The index is the always-available search path. It is rebuilt from the
  current rule sets on every load/update, never persisted, and never
  serves a stale snapshot. An external semantic ranking service can be
  substituted behind the same Ranker contract to improve ordering without
  changing any caller.

SCORING:
  Queries are tokenized on whitespace, case-insensitively. Each item
  scores 10 points per query token found in its content plus 5 points per
  token found in its keywords. Zero-score items are excluded; ties break
  by original build order, so identical queries against an unchanged
  index always return identical ranked lists.

SEE ALSO:
  - semantic.go: external ranking collaborator and fallback composite
*/
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// KNOWLEDGE ITEMS
// =============================================================================

// Topic is the kind of knowledge item derived from a rule set.
type Topic string

const (
	TopicOverview      Topic = "overview"
	TopicEligibility   Topic = "eligibility"
	TopicDocumentation Topic = "documentation"
	TopicPitfalls      Topic = "pitfalls"
	TopicExamples      Topic = "examples"
)

// topicOrder fixes the derivation order within one rule set.
var topicOrder = []Topic{
	TopicOverview,
	TopicEligibility,
	TopicDocumentation,
	TopicPitfalls,
	TopicExamples,
}

// topicKeywords are the hand-assigned keyword sets per item kind.
var topicKeywords = map[Topic][]string{
	TopicOverview:      {"overview", "summary", "regulation", "status", "allowance", "incentive", "risk"},
	TopicEligibility:   {"eligibility", "eligible", "qualify", "criteria", "age", "salary", "level", "threshold"},
	TopicDocumentation: {"documentation", "documents", "records", "evidence", "filing", "required"},
	TopicPitfalls:      {"pitfalls", "mistakes", "errors", "audit", "penalty", "compliance"},
	TopicExamples:      {"example", "scenario", "calculation", "worked", "illustration"},
}

// KnowledgeItem is one searchable unit. Items are derived, never
// independently persisted, and always regenerated from the current rule
// sets.
type KnowledgeItem struct {
	ID         string                  `json:"id"`
	Regulation regulation.RegulationID `json:"regulation"`
	Topic      Topic                   `json:"topic"`
	Content    string                  `json:"content"`
	Keywords   []string                `json:"keywords"`
	Source     string                  `json:"source"`
}

// ScoredItem is a ranked search result.
type ScoredItem struct {
	Rank  int           `json:"rank"`
	Score float64       `json:"relevance_score"`
	Item  KnowledgeItem `json:"item"`
}

// Ranker orders a candidate item set by estimated relevance to a query.
// The keyword index implements it locally; an external semantic service
// may be substituted behind the same shape.
type Ranker interface {
	Rank(ctx context.Context, query string, items []KnowledgeItem, topN int) ([]ScoredItem, error)
}

// =============================================================================
// INDEX
// =============================================================================

// Index holds the derived items in build order.
type Index struct {
	items []KnowledgeItem
}

// Build deterministically derives the knowledge items for the given rule
// sets, in the order supplied.
func Build(ruleSets []*regulation.RuleSet) *Index {
	ix := &Index{}
	for _, rs := range ruleSets {
		for _, topic := range topicOrder {
			keywords := append([]string{string(rs.ID)}, topicKeywords[topic]...)
			ix.items = append(ix.items, KnowledgeItem{
				ID:         fmt.Sprintf("%s/%s", rs.ID, topic),
				Regulation: rs.ID,
				Topic:      topic,
				Content:    renderTopic(rs, topic),
				Keywords:   keywords,
				Source:     rs.Source(),
			})
		}
	}
	return ix
}

// Items returns the derived items in build order.
func (ix *Index) Items() []KnowledgeItem { return ix.items }

// Search scores the query against every item and returns the top n.
func (ix *Index) Search(query string, topN int) []ScoredItem {
	return keywordRank(query, ix.items, topN)
}

// Rank implements Ranker over an arbitrary candidate set using the same
// keyword scoring as Search.
func (ix *Index) Rank(_ context.Context, query string, items []KnowledgeItem, topN int) ([]ScoredItem, error) {
	return keywordRank(query, items, topN), nil
}

// KeywordRanker is the stateless Ranker form of the keyword scoring,
// used as the fallback behind an external collaborator.
type KeywordRanker struct{}

// Rank implements Ranker.
func (KeywordRanker) Rank(_ context.Context, query string, items []KnowledgeItem, topN int) ([]ScoredItem, error) {
	return keywordRank(query, items, topN), nil
}

func keywordRank(query string, items []KnowledgeItem, topN int) []ScoredItem {
	tokens := strings.Fields(strings.ToLower(query))

	var scored []ScoredItem
	for _, item := range items {
		score := scoreItem(tokens, item)
		if score == 0 {
			continue
		}
		scored = append(scored, ScoredItem{Score: score, Item: item})
	}

	// Descending score; the stable sort keeps build order among ties.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

const (
	contentPoints = 10
	keywordPoints = 5
)

func scoreItem(tokens []string, item KnowledgeItem) float64 {
	content := strings.ToLower(item.Content)
	var score float64
	for _, token := range tokens {
		if strings.Contains(content, token) {
			score += contentPoints
		}
		for _, kw := range item.Keywords {
			if strings.Contains(strings.ToLower(kw), token) {
				score += keywordPoints
				break
			}
		}
	}
	return score
}

// =============================================================================
// CONTENT DERIVATION
// =============================================================================

func renderTopic(rs *regulation.RuleSet, topic Topic) string {
	switch topic {
	case TopicOverview:
		return renderOverview(rs)
	case TopicEligibility:
		return renderEligibility(rs)
	case TopicDocumentation:
		return renderList(rs.Name, "Required documentation", rs.Documentation)
	case TopicPitfalls:
		return renderList(rs.Name, "Common pitfalls", rs.Pitfalls)
	case TopicExamples:
		return renderExamples(rs)
	default:
		return ""
	}
}

func renderOverview(rs *regulation.RuleSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s. Status: %s. Last updated: %s.", rs.Name, rs.Description, rs.Status, rs.Version)
	switch {
	case rs.Learnership != nil:
		t := rs.Learnership
		fmt.Fprintf(&b, " Annual allowances: levels %d-%d standard R%s, disability R%s; levels %d-%d standard R%s, disability R%s.",
			t.MinLevel, t.BandBoundary, t.Annual.Lower.Standard, t.Annual.Lower.Disability,
			t.BandBoundary+1, t.MaxLevel, t.Annual.Upper.Standard, t.Annual.Upper.Disability)
	case rs.Employment != nil:
		t := rs.Employment
		fmt.Fprintf(&b, " Monthly incentive up to R%s, employees aged %d-%d earning below R%s.",
			t.Bands[0].Plateau, t.MinAge, t.MaxAge, t.SalaryCeiling)
	case rs.Crisis != nil:
		fmt.Fprintf(&b, " %d predictive indicators tracked across %d sectors.",
			len(rs.Crisis.Indicators), len(rs.Crisis.Impact))
	}
	return b.String()
}

func renderEligibility(rs *regulation.RuleSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s eligibility:", rs.Name)
	switch {
	case rs.Learnership != nil:
		t := rs.Learnership
		fmt.Fprintf(&b, " registered learnership agreement at qualification levels %d to %d; completion allowance on successful completion; higher rates for learners with disabilities.",
			t.MinLevel, t.MaxLevel)
	case rs.Employment != nil:
		t := rs.Employment
		fmt.Fprintf(&b, " employees aged %d to %d with monthly salary strictly below R%s.", t.MinAge, t.MaxAge, t.SalaryCeiling)
	case rs.Crisis != nil:
		for _, ind := range rs.Crisis.Indicators {
			fmt.Fprintf(&b, " %s (%s %s %s -> %s risk: %s).",
				ind.Name, ind.Metric, ind.Comparison, ind.Threshold, ind.Tier, ind.Outcome)
		}
	}
	return b.String()
}

func renderList(name, heading string, entries []string) string {
	if len(entries) == 0 {
		return fmt.Sprintf("%s: no %s recorded.", name, strings.ToLower(heading))
	}
	return fmt.Sprintf("%s %s: %s.", name, strings.ToLower(heading), strings.Join(entries, "; "))
}

func renderExamples(rs *regulation.RuleSet) string {
	if len(rs.Examples) == 0 {
		return fmt.Sprintf("%s: no worked examples recorded.", rs.Name)
	}
	var parts []string
	for _, ex := range rs.Examples {
		parts = append(parts, fmt.Sprintf("%s -> %s", ex.Scenario, ex.Outcome))
	}
	return fmt.Sprintf("%s worked examples: %s.", rs.Name, strings.Join(parts, " "))
}
