package regstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
)

func TestWatcher_ReloadsOnExternalDocumentWrite(t *testing.T) {
	// GIVEN: A running watcher over a loaded store
	// WHEN: An operator rewrites a document directly on disk
	// THEN: The store picks up the new version without an explicit reload

	store, dataDir := newTestStore(t, regstore.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := regstore.NewWatcher(store, nil)
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give fsnotify a moment to arm before writing.
	time.Sleep(100 * time.Millisecond)

	updated := updatedLearnership(t)
	updated.Version = "2026-06-01"
	doc, err := factory.MarshalDocument(updated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "learnership.json"), doc, 0o644))

	require.Eventually(t, func() bool {
		rs, err := store.RuleSet(regulation.RegLearnership)
		return err == nil && rs.Version == "2026-06-01"
	}, 5*time.Second, 50*time.Millisecond, "watcher should reload the rewritten document")

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_IgnoresTempAndBackupFiles(t *testing.T) {
	// GIVEN: A running watcher
	// WHEN: Partial writes and backups land in the data directory
	// THEN: No reload happens for them; the served version is unchanged

	store, dataDir := newTestStore(t, regstore.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := regstore.NewWatcher(store, nil)
	go func() { _ = watcher.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "learnership.json.tmp"), []byte("{partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "learnership.backup.x.json"), []byte("{old"), 0o644))

	// Longer than the debounce window; a reload of these files would fail
	// and leave an error in the log, but the snapshot must stay servable
	// either way.
	time.Sleep(600 * time.Millisecond)

	rs, err := store.RuleSet(regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", rs.Version)
}
