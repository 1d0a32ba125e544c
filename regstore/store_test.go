package regstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaalgrid/regulation-engine/factory"
	"github.com/vaalgrid/regulation-engine/regstore"
	"github.com/vaalgrid/regulation-engine/regulation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T, opts regstore.Options) (*regstore.Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	written, err := regstore.Seed(dataDir)
	require.NoError(t, err)
	require.Equal(t, 3, written)

	opts.DataDir = dataDir
	store, err := regstore.New(opts)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	return store, dataDir
}

// updatedLearnership returns a valid replacement document with a bumped
// version and a changed rate, for exercising the update path.
func updatedLearnership(t *testing.T) *regulation.RuleSet {
	t.Helper()
	for _, rs := range regstore.SeedRuleSets() {
		if rs.ID != regulation.RegLearnership {
			continue
		}
		rs.Version = "2026-03-01"
		rs.Learnership.Annual.Lower.Standard = rs.Learnership.Annual.Lower.Standard.Add(rs.Learnership.Annual.Lower.Standard)
		return rs
	}
	t.Fatal("no learnership seed")
	return nil
}

func backupFiles(t *testing.T, dataDir string, id regulation.RegulationID) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dataDir, "backups"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), string(id)+".backup.") {
			names = append(names, e.Name())
		}
	}
	return names
}

// recordingAudit captures audit entries in memory.
type recordingAudit struct {
	entries []regstore.AuditEntry
}

func (a *recordingAudit) RecordUpdate(_ context.Context, entry regstore.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

func TestStore_ReadsBeforeLoadRejected(t *testing.T) {
	// GIVEN: A store that has never loaded
	// WHEN: Reading
	// THEN: ErrNotInitialized, never a partial answer

	store, err := regstore.New(regstore.Options{DataDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.RuleSet(regulation.RegLearnership)
	assert.ErrorIs(t, err, regulation.ErrNotInitialized)
	_, err = store.Search("anything", 3)
	assert.ErrorIs(t, err, regulation.ErrNotInitialized)
}

func TestStore_LoadEmptyDirectoryFails(t *testing.T) {
	// GIVEN: A data directory with no documents
	// WHEN: Loading
	// THEN: CorruptDocumentError and the store stays uninitialized

	store, err := regstore.New(regstore.Options{DataDir: t.TempDir()})
	require.NoError(t, err)

	err = store.Load(context.Background())
	assert.ErrorIs(t, err, regulation.ErrCorruptDocument)

	_, err = store.RuleSets()
	assert.ErrorIs(t, err, regulation.ErrNotInitialized)
}

func TestStore_LoadSeededDirectory(t *testing.T) {
	// GIVEN: A freshly seeded directory
	// WHEN: Loading
	// THEN: All three regulations are served in deterministic order

	store, _ := newTestStore(t, regstore.Options{})

	ruleSets, err := store.RuleSets()
	require.NoError(t, err)
	require.Len(t, ruleSets, 3)
	assert.Equal(t, regulation.RegEmployment, ruleSets[0].ID)
	assert.Equal(t, regulation.RegLearnership, ruleSets[1].ID)
	assert.Equal(t, regulation.RegLoadshedding, ruleSets[2].ID)
}

func TestStore_LoadRejectsFilenameMismatch(t *testing.T) {
	// GIVEN: A document whose id does not match its file name
	// WHEN: Loading
	// THEN: CorruptDocumentError; nothing is served

	dataDir := t.TempDir()
	_, err := regstore.Seed(dataDir)
	require.NoError(t, err)
	require.NoError(t, os.Rename(
		filepath.Join(dataDir, "learnership.json"),
		filepath.Join(dataDir, "renamed.json")))

	store, err := regstore.New(regstore.Options{DataDir: dataDir})
	require.NoError(t, err)
	err = store.Load(context.Background())
	assert.ErrorIs(t, err, regulation.ErrCorruptDocument)
}

func TestStore_FailedReloadKeepsPreviousState(t *testing.T) {
	// GIVEN: A loaded store whose on-disk document is then corrupted
	// WHEN: Reloading
	// THEN: The reload fails but readers still see the last good snapshot

	store, dataDir := newTestStore(t, regstore.Options{})

	path := filepath.Join(dataDir, "learnership.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := store.Load(context.Background())
	assert.ErrorIs(t, err, regulation.ErrCorruptDocument)

	rs, err := store.RuleSet(regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", rs.Version)
}

func TestStore_UnknownRegulation(t *testing.T) {
	// GIVEN: A loaded store
	// WHEN: Asking for an id it does not hold
	// THEN: UnknownRegulationError listing the known ids

	store, _ := newTestStore(t, regstore.Options{})

	_, err := store.RuleSet("carbon_tax")
	assert.ErrorIs(t, err, regulation.ErrUnknownRegulation)

	var unknownErr *regulation.UnknownRegulationError
	require.ErrorAs(t, err, &unknownErr)
	assert.Contains(t, unknownErr.Known, regulation.RegLearnership)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestStore_UpdateBacksUpThenReplaces(t *testing.T) {
	// GIVEN: A loaded store
	// WHEN: Updating the learnership regulation
	// THEN: Exactly one backup of the prior document exists, the prior
	//       version is returned, and readers immediately see the new data

	store, dataDir := newTestStore(t, regstore.Options{})
	ctx := context.Background()

	prior, err := store.Update(ctx, regulation.RegLearnership, updatedLearnership(t))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", prior)

	backups := backupFiles(t, dataDir, regulation.RegLearnership)
	require.Len(t, backups, 1, "exactly one backup per replacement")

	// The backup holds the prior version, byte-parseable as a document.
	data, err := os.ReadFile(filepath.Join(dataDir, "backups", backups[0]))
	require.NoError(t, err)
	backedUp, err := factory.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", backedUp.Version)

	rs, err := store.RuleSet(regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", rs.Version)

	history, err := store.History(regulation.RegLearnership)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-03-01", history[0].Version)
}

func TestStore_UpdateRejectsInvalidReplacement(t *testing.T) {
	// GIVEN: A replacement failing structural validation
	// WHEN: Updating
	// THEN: The update is rejected before any file is touched

	store, dataDir := newTestStore(t, regstore.Options{})

	bad := updatedLearnership(t)
	bad.Sources = nil // validation requires at least one source

	_, err := store.Update(context.Background(), regulation.RegLearnership, bad)
	require.Error(t, err)

	assert.Empty(t, backupFiles(t, dataDir, regulation.RegLearnership),
		"rejected update must not write a backup")
	rs, err := store.RuleSet(regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", rs.Version)
}

func TestStore_UpdateUnknownRegulation(t *testing.T) {
	// GIVEN: A loaded store
	// WHEN: Updating an id it does not hold
	// THEN: UnknownRegulationError; new regulations arrive via documents,
	//       not via Update

	store, _ := newTestStore(t, regstore.Options{})

	rs := updatedLearnership(t)
	rs.ID = "carbon_tax"
	_, err := store.Update(context.Background(), "carbon_tax", rs)
	assert.ErrorIs(t, err, regulation.ErrUnknownRegulation)
}

func TestStore_UpdateMismatchedID(t *testing.T) {
	// GIVEN: A replacement document whose id differs from the target
	// WHEN: Updating
	// THEN: InvalidInputError

	store, _ := newTestStore(t, regstore.Options{})

	_, err := store.Update(context.Background(), regulation.RegEmployment, updatedLearnership(t))
	assert.ErrorIs(t, err, regulation.ErrInvalidInput)
}

func TestStore_UpdateRebuildsIndex(t *testing.T) {
	// GIVEN: A replacement whose description introduces a new term
	// WHEN: Updating and then searching for that term
	// THEN: The index reflects the replacement without an explicit reload

	store, _ := newTestStore(t, regstore.Options{})

	rs := updatedLearnership(t)
	rs.Description = "Apprenticeship deduction for registered training agreements"

	_, err := store.Update(context.Background(), regulation.RegLearnership, rs)
	require.NoError(t, err)

	results, err := store.Search("apprenticeship", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, regulation.RegLearnership, results[0].Item.Regulation)
}

func TestStore_UpdateRecordsAudit(t *testing.T) {
	// GIVEN: A store wired to an audit log and an actor on the context
	// WHEN: Updating
	// THEN: One entry with action, versions and actor

	audit := &recordingAudit{}
	store, _ := newTestStore(t, regstore.Options{Audit: audit})

	ctx := regstore.WithActor(context.Background(), "ops@vaalgrid")
	_, err := store.Update(ctx, regulation.RegLearnership, updatedLearnership(t))
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "update", entry.Action)
	assert.Equal(t, "2025-03-01", entry.PriorVersion)
	assert.Equal(t, "2026-03-01", entry.NewVersion)
	assert.Equal(t, "ops@vaalgrid", entry.Actor)
	assert.NotEmpty(t, entry.BackupPath)
}

// =============================================================================
// ROLLBACK
// =============================================================================

func TestStore_RollbackRestoresPriorVersion(t *testing.T) {
	// GIVEN: A regulation that has been updated once
	// WHEN: Rolling back
	// THEN: The prior version serves again, and the discarded version is
	//       itself backed up

	store, dataDir := newTestStore(t, regstore.Options{})
	ctx := context.Background()

	_, err := store.Update(ctx, regulation.RegLearnership, updatedLearnership(t))
	require.NoError(t, err)

	restored, err := store.Rollback(ctx, regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", restored)

	rs, err := store.RuleSet(regulation.RegLearnership)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", rs.Version)

	assert.Len(t, backupFiles(t, dataDir, regulation.RegLearnership), 2,
		"the rollback preserves the version it replaced")
}

func TestStore_RollbackWithoutBackup(t *testing.T) {
	// GIVEN: A regulation that has never been replaced
	// WHEN: Rolling back
	// THEN: ErrNoBackup

	store, _ := newTestStore(t, regstore.Options{})

	_, err := store.Rollback(context.Background(), regulation.RegLearnership)
	assert.ErrorIs(t, err, regstore.ErrNoBackup)
}

func TestStore_RollbackUnknownRegulation(t *testing.T) {
	store, _ := newTestStore(t, regstore.Options{})

	_, err := store.Rollback(context.Background(), "carbon_tax")
	assert.ErrorIs(t, err, regulation.ErrUnknownRegulation)
}

// =============================================================================
// HISTORY DEPTH
// =============================================================================

func TestStore_HistoryBoundedDiskBackupsKept(t *testing.T) {
	// GIVEN: A store with an in-memory history depth of 2
	// WHEN: Updating three times
	// THEN: History reports the latest two, but all three disk backups remain

	store, dataDir := newTestStore(t, regstore.Options{HistoryDepth: 2})
	ctx := context.Background()

	versions := []string{"2026-01-01", "2026-02-01", "2026-03-01"}
	for _, v := range versions {
		rs := updatedLearnership(t)
		rs.Version = v
		_, err := store.Update(ctx, regulation.RegLearnership, rs)
		require.NoError(t, err)
	}

	history, err := store.History(regulation.RegLearnership)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-01-01", history[0].Version)
	assert.Equal(t, "2026-02-01", history[1].Version)

	assert.Len(t, backupFiles(t, dataDir, regulation.RegLearnership), 3,
		"disk backups are never pruned")
}

// =============================================================================
// SEED
// =============================================================================

func TestSeed_Idempotent(t *testing.T) {
	// GIVEN: An already-seeded directory
	// WHEN: Seeding again
	// THEN: Nothing is written; persisted documents stay authoritative

	dataDir := t.TempDir()
	first, err := regstore.Seed(dataDir)
	require.NoError(t, err)
	assert.Equal(t, 3, first)

	second, err := regstore.Seed(dataDir)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}
