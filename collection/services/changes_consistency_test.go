package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

func registryFixture() (*fakeRemote, *ChangesChecker, values.CollectionRef) {
	remote := newFakeRemote()
	registry := mustRef("monitor", "changes")
	return remote, NewChangesChecker(remote, nil), registry
}

func TestChangesChecker_AllConsistent(t *testing.T) {
	t.Parallel()

	remote, checker, registry := registryFixture()
	remote.records[registry.String()] = []entities.Record{
		{"id": "1", "bucket": "blocklists", "collection": "certificates", "last_modified": float64(100)},
		{"id": "2", "bucket": "pinning", "collection": "pins", "last_modified": float64(250)},
	}
	remote.timestamps["blocklists/certificates"] = 100
	remote.timestamps["pinning/pins"] = 250

	assert.NoError(t, checker.Run(context.Background(), registry))
}

func TestChangesChecker_MismatchFailsAfterCheckingEverything(t *testing.T) {
	t.Parallel()

	remote, checker, registry := registryFixture()
	remote.records[registry.String()] = []entities.Record{
		{"id": "1", "bucket": "blocklists", "collection": "certificates", "last_modified": float64(100)},
		{"id": "2", "bucket": "pinning", "collection": "pins", "last_modified": float64(250)},
	}
	remote.timestamps["blocklists/certificates"] = 101 // stale replica
	remote.timestamps["pinning/pins"] = 250

	err := checker.Run(context.Background(), registry)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrConsistencyFailed)

	var cerr *entities.ConsistencyError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Mismatches, 1)
	assert.Equal(t, "blocklists/certificates", cerr.Mismatches[0].Ref.String())
	assert.Equal(t, "100", cerr.Mismatches[0].Recorded)
	assert.Equal(t, "101", cerr.Mismatches[0].Live)

	// The second entry was still checked.
	assert.Contains(t, remote.calls, "timestamp pinning/pins")
}

func TestChangesChecker_EntryFetchFailureIsCollected(t *testing.T) {
	t.Parallel()

	remote, checker, registry := registryFixture()
	remote.records[registry.String()] = []entities.Record{
		{"id": "1", "bucket": "blocklists", "collection": "gfx", "last_modified": float64(100)},
		{"id": "2", "bucket": "pinning", "collection": "pins", "last_modified": float64(250)},
	}
	remote.failures["timestamp blocklists/gfx"] = errors.New("boom")
	remote.timestamps["pinning/pins"] = 250

	err := checker.Run(context.Background(), registry)
	require.Error(t, err)

	var cerr *entities.ConsistencyError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Mismatches, 1)
	assert.Contains(t, cerr.Mismatches[0].Live, "fetch failed")
	assert.Contains(t, remote.calls, "timestamp pinning/pins")
}

func TestChangesChecker_MalformedEntry(t *testing.T) {
	t.Parallel()

	remote, checker, registry := registryFixture()
	remote.records[registry.String()] = []entities.Record{
		{"id": "1", "collection": "pins", "last_modified": float64(100)}, // no bucket
	}

	err := checker.Run(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing bucket")
}

func TestChangesChecker_RegistryListingFailureIsFatal(t *testing.T) {
	t.Parallel()

	remote, checker, registry := registryFixture()
	remote.failures["records "+registry.String()] = errors.New("boom")

	err := checker.Run(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing registry entries")
}

func TestChangeEntryFromRecord_StringTimestamp(t *testing.T) {
	t.Parallel()

	entry, err := changeEntryFromRecord(entities.Record{
		"id": "1", "bucket": "b", "collection": "c", "last_modified": "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", entry.LastModified.String())
}
