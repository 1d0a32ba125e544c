/*
Package regstore owns the current and historical versions of every
regulation rule set. It is the only mutable shared state in the engine.

PURPOSE:
  Loads flat JSON documents (one per regulation) into validated RuleSets,
  rebuilds the retrieval index on every load, and performs atomic
  self-update with backup-before-replace and first-class rollback.

UPDATE SEQUENCE (per regulation, mutually exclusive):
  1. Validate the replacement rule set structurally
  2. Write exactly one backup of the currently persisted document
     (skipped, and logged, only when no prior version exists)
  3. Write the replacement atomically (tmp file + rename)
  4. Reload all documents and rebuild the index, so readers immediately
     see the new data and the index is never stale
  5. Record the update in the audit log and return the prior version

CONCURRENCY:
  Readers take an RWMutex read lock and receive an immutable snapshot
  reference; rule sets are never mutated in place, so an in-flight update
  cannot change data already handed to a caller. Writers additionally
  hold a per-regulation mutex across the whole backup/replace/reload
  sequence.

SEE ALSO:
  - watcher.go: reload on external document edits
  - seed.go: first-run canonical documents
  - factory: document parsing and validation
*/
package regstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regulation"
	"github.com/vaalgrid/regulation-engine/retrieval"
)

// ErrNoBackup is returned by Rollback when a regulation has never been
// replaced and therefore has nothing to roll back to.
var ErrNoBackup = errors.New("no backup available")

// =============================================================================
// BACKUPS AND AUDIT
// =============================================================================

// Backup is an immutable record of a replaced document version.
type Backup struct {
	RegulationID regulation.RegulationID `json:"regulation_id"`
	Version      string                  `json:"version"`
	Path         string                  `json:"path"`
	ReplacedAt   time.Time               `json:"replaced_at"`
}

// AuditEntry describes one completed update or rollback.
type AuditEntry struct {
	RegulationID string
	Action       string // "update" or "rollback"
	PriorVersion string
	NewVersion   string
	Actor        string
	BackupPath   string
	At           time.Time
}

// AuditLog receives completed update events. Implemented by store/sqlite.
type AuditLog interface {
	RecordUpdate(ctx context.Context, entry AuditEntry) error
}

type actorKey struct{}

// WithActor annotates a context with the identity performing an update,
// recorded in the audit log.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return ""
}

// =============================================================================
// STORE
// =============================================================================

// Options configures a Store.
type Options struct {
	DataDir      string
	BackupDir    string // defaults to DataDir/backups
	HistoryDepth int    // in-memory backups kept per regulation, default 20
	Audit        AuditLog
	Logger       *slog.Logger
}

// Store holds the loaded rule sets and the derived retrieval index.
type Store struct {
	dataDir      string
	backupDir    string
	historyDepth int
	audit        AuditLog
	log          *slog.Logger

	mu          sync.RWMutex
	initialized bool
	current     map[regulation.RegulationID]*regulation.RuleSet
	order       []regulation.RegulationID
	index       *retrieval.Index
	history     map[regulation.RegulationID][]Backup

	lockMu   sync.Mutex
	regLocks map[regulation.RegulationID]*sync.Mutex
}

// New creates an uninitialized store. Call Load before serving reads.
func New(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("regstore: data directory required")
	}
	if opts.BackupDir == "" {
		opts.BackupDir = filepath.Join(opts.DataDir, "backups")
	}
	if opts.HistoryDepth <= 0 {
		opts.HistoryDepth = 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	for _, dir := range []string{opts.DataDir, opts.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("regstore: create %s: %w", dir, err)
		}
	}
	return &Store{
		dataDir:      opts.DataDir,
		backupDir:    opts.BackupDir,
		historyDepth: opts.HistoryDepth,
		audit:        opts.Audit,
		log:          opts.Logger,
		history:      make(map[regulation.RegulationID][]Backup),
		regLocks:     make(map[regulation.RegulationID]*sync.Mutex),
	}, nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads every regulation document, validates it, and swaps in the
// new snapshot together with a freshly built index. On any failure the
// previous state (or uninitialized state, on first load) is kept intact.
func (s *Store) Load(ctx context.Context) error {
	_ = ctx

	current, order, err := s.readDocuments()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A document that vanished between loads is corruption, not an update.
	for _, id := range s.order {
		if _, ok := current[id]; !ok {
			return &regulation.CorruptDocumentError{
				ID:     id,
				Path:   s.documentPath(id),
				Reason: "document missing on reload",
			}
		}
	}

	s.current = current
	s.order = order
	s.index = retrieval.Build(s.snapshotLocked())
	s.initialized = true
	s.log.Info("regulation store loaded", "regulations", len(order))
	return nil
}

// readDocuments parses every *.json document in the data directory.
func (s *Store) readDocuments() (map[regulation.RegulationID]*regulation.RuleSet, []regulation.RegulationID, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, nil, &regulation.CorruptDocumentError{Path: s.dataDir, Reason: err.Error()}
	}

	current := make(map[regulation.RegulationID]*regulation.RuleSet)
	var order []regulation.RegulationID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isDocumentFile(name) {
			continue
		}
		path := filepath.Join(s.dataDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, &regulation.CorruptDocumentError{Path: path, Reason: err.Error()}
		}
		rs, err := factory.ParseDocument(data)
		if err != nil {
			return nil, nil, &regulation.CorruptDocumentError{Path: path, Reason: err.Error()}
		}
		if want := strings.TrimSuffix(name, ".json"); string(rs.ID) != want {
			return nil, nil, &regulation.CorruptDocumentError{
				ID:     rs.ID,
				Path:   path,
				Reason: fmt.Sprintf("document id %q does not match file name %q", rs.ID, want),
			}
		}
		current[rs.ID] = rs
		order = append(order, rs.ID)
	}

	if len(current) == 0 {
		return nil, nil, &regulation.CorruptDocumentError{
			Path:   s.dataDir,
			Reason: "no regulation documents found",
		}
	}

	sort.Slice(order, func(a, b int) bool { return order[a] < order[b] })
	return current, order, nil
}

// snapshotLocked returns the rule sets in deterministic order. Caller
// holds s.mu.
func (s *Store) snapshotLocked() []*regulation.RuleSet {
	out := make([]*regulation.RuleSet, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.current[id])
	}
	return out
}

// =============================================================================
// READS
// =============================================================================

// RuleSet returns the current immutable snapshot of one regulation.
func (s *Store) RuleSet(id regulation.RegulationID) (*regulation.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, regulation.ErrNotInitialized
	}
	rs, ok := s.current[id]
	if !ok {
		return nil, &regulation.UnknownRegulationError{ID: id, Known: s.order}
	}
	return rs, nil
}

// RuleSets returns every loaded rule set in deterministic order.
func (s *Store) RuleSets() ([]*regulation.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, regulation.ErrNotInitialized
	}
	return s.snapshotLocked(), nil
}

// Search runs a keyword query against the index built from the rule sets
// currently held by the store.
func (s *Store) Search(query string, topN int) ([]retrieval.ScoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, regulation.ErrNotInitialized
	}
	return s.index.Search(query, topN), nil
}

// SearchWith ranks the current items with the supplied ranker. Callers
// wanting collaborator upgrade with local fallback pass a FallbackRanker.
func (s *Store) SearchWith(ctx context.Context, ranker retrieval.Ranker, query string, topN int) ([]retrieval.ScoredItem, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return nil, regulation.ErrNotInitialized
	}
	items := s.index.Items()
	s.mu.RUnlock()
	return ranker.Rank(ctx, query, items, topN)
}

// History returns the in-memory backup records for one regulation, most
// recent last.
func (s *Store) History(id regulation.RegulationID) ([]Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, regulation.ErrNotInitialized
	}
	if _, ok := s.current[id]; !ok {
		return nil, &regulation.UnknownRegulationError{ID: id, Known: s.order}
	}
	return append([]Backup(nil), s.history[id]...), nil
}

// =============================================================================
// UPDATE / ROLLBACK
// =============================================================================

// Update replaces a regulation's rule set. The replacement is validated
// before any persisted state is touched; exactly one backup of the prior
// persisted version is written before the atomic replacement write.
// Returns the prior version's identifier for audit purposes.
func (s *Store) Update(ctx context.Context, id regulation.RegulationID, rs *regulation.RuleSet) (string, error) {
	return s.replace(ctx, id, rs, "update")
}

// Rollback restores the most recently backed-up version of a regulation.
// The restore runs through the same backup-then-replace sequence, so the
// version being discarded is itself preserved.
func (s *Store) Rollback(ctx context.Context, id regulation.RegulationID) (string, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return "", regulation.ErrNotInitialized
	}
	if _, ok := s.current[id]; !ok {
		known := s.order
		s.mu.RUnlock()
		return "", &regulation.UnknownRegulationError{ID: id, Known: known}
	}
	backups := s.history[id]
	s.mu.RUnlock()

	if len(backups) == 0 {
		return "", fmt.Errorf("regulation %q: %w", id, ErrNoBackup)
	}
	latest := backups[len(backups)-1]

	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return "", &regulation.CorruptDocumentError{ID: id, Path: latest.Path, Reason: err.Error()}
	}
	restored, err := factory.ParseDocument(data)
	if err != nil {
		return "", &regulation.CorruptDocumentError{ID: id, Path: latest.Path, Reason: err.Error()}
	}

	if _, err := s.replace(ctx, id, restored, "rollback"); err != nil {
		return "", err
	}
	return restored.Version, nil
}

// replace performs the mutually exclusive backup/write/reload sequence.
func (s *Store) replace(ctx context.Context, id regulation.RegulationID, rs *regulation.RuleSet, action string) (string, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return "", regulation.ErrNotInitialized
	}
	prior, known := s.current[id]
	order := s.order
	s.mu.RUnlock()

	if !known {
		return "", &regulation.UnknownRegulationError{ID: id, Known: order}
	}
	if rs.ID != id {
		return "", &regulation.InvalidInputError{Field: "rule_set.id", Value: string(rs.ID)}
	}
	if err := rs.Validate(); err != nil {
		return "", fmt.Errorf("replacement rule set rejected: %w", err)
	}

	lock := s.regLock(id)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the write lock: another update may have landed
	// between the eligibility check and lock acquisition.
	s.mu.RLock()
	if cur, ok := s.current[id]; ok {
		prior = cur
	}
	s.mu.RUnlock()

	path := s.documentPath(id)
	priorVersion := prior.Version

	// Backup before replace. Skipped only when no document is persisted
	// yet, which is worth a log line but is not an error.
	var backupPath string
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		backup := Backup{
			RegulationID: id,
			Version:      priorVersion,
			ReplacedAt:   time.Now().UTC(),
		}
		// Nanosecond stamp keeps rapid successive replacements from
		// colliding on the backup name.
		backup.Path = filepath.Join(s.backupDir, fmt.Sprintf("%s.backup.%s.json",
			id, backup.ReplacedAt.Format("20060102T150405.000000000Z0700")))
		if err := writeFileAtomic(backup.Path, existing); err != nil {
			return "", fmt.Errorf("write backup for %q: %w", id, err)
		}
		backupPath = backup.Path
		s.appendHistory(id, backup)
	case os.IsNotExist(err):
		s.log.Warn("no persisted version to back up", "regulation", id)
	default:
		return "", fmt.Errorf("read current document for %q: %w", id, err)
	}

	doc, err := factory.MarshalDocument(rs)
	if err != nil {
		return "", fmt.Errorf("marshal replacement for %q: %w", id, err)
	}
	if err := writeFileAtomic(path, doc); err != nil {
		return "", fmt.Errorf("write replacement for %q: %w", id, err)
	}

	if err := s.Load(ctx); err != nil {
		return "", err
	}
	s.log.Info("regulation replaced",
		"regulation", id, "action", action,
		"prior_version", priorVersion, "new_version", rs.Version)

	if s.audit != nil {
		entry := AuditEntry{
			RegulationID: string(id),
			Action:       action,
			PriorVersion: priorVersion,
			NewVersion:   rs.Version,
			Actor:        actorFrom(ctx),
			BackupPath:   backupPath,
			At:           time.Now().UTC(),
		}
		if err := s.audit.RecordUpdate(ctx, entry); err != nil {
			s.log.Warn("audit log write failed", "regulation", id, "error", err)
		}
	}

	return priorVersion, nil
}

func (s *Store) appendHistory(id regulation.RegulationID, b Backup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[id], b)
	if len(h) > s.historyDepth {
		h = h[len(h)-s.historyDepth:]
	}
	s.history[id] = h
}

func (s *Store) regLock(id regulation.RegulationID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.regLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.regLocks[id] = lock
	}
	return lock
}

func (s *Store) documentPath(id regulation.RegulationID) string {
	return filepath.Join(s.dataDir, string(id)+".json")
}

// writeFileAtomic writes data to a temp file, syncs it, then renames it
// into place so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
