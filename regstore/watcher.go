package regstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault is the default debounce interval for document events.
// Editors and atomic renames produce bursts of events per save; one
// reload per burst is enough.
const debounceDefault = 300 * time.Millisecond

// Watcher reloads the store when a regulation document changes on disk
// outside the Update path (operator edits, external sync jobs).
type Watcher struct {
	store    *Store
	log      *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher over the store's data directory.
func NewWatcher(store *Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{store: store, log: logger, debounce: debounceDefault}
}

// Run watches for document writes. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.store.dataDir); err != nil {
		return err
	}

	// Single debounce timer, reset on each relevant event. Starts
	// stopped; the first event arms it.
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			if err := w.store.Load(ctx); err != nil {
				w.log.Error("reload after document change failed", "error", err)
				continue
			}
			w.log.Info("regulation documents reloaded")

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isDocumentFile(event.Name) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("document watcher error", "error", err)
		}
	}
}

// isDocumentFile returns true for a rule document (not a .tmp partial
// write, not a backup).
func isDocumentFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") &&
		!strings.HasSuffix(name, ".tmp") &&
		!strings.Contains(name, ".backup.")
}
