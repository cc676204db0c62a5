package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

type fakeMetadataClient struct {
	raw      map[string]map[string]any
	failures map[string]error
	patched  map[string]map[string]any
}

func newFakeMetadataClient() *fakeMetadataClient {
	return &fakeMetadataClient{
		raw:      map[string]map[string]any{},
		failures: map[string]error{},
		patched:  map[string]map[string]any{},
	}
}

func (f *fakeMetadataClient) GetCollectionRaw(_ context.Context, ref values.CollectionRef) (map[string]any, error) {
	if err := f.failures[ref.String()]; err != nil {
		return nil, err
	}
	return f.raw[ref.String()], nil
}

func (f *fakeMetadataClient) PatchCollection(_ context.Context, ref values.CollectionRef, data map[string]any) (entities.CollectionMetadata, error) {
	f.patched[ref.String()] = data
	return entities.CollectionMetadata{}, nil
}

func mustRef(t *testing.T, bucket, collection string) values.CollectionRef {
	t.Helper()
	ref, err := values.NewCollectionRef(bucket, collection)
	require.NoError(t, err)
	return ref
}

func writeSchemas(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validSchemas = `{
	"collections": {
		"certificates": {
			"config": {
				"schema": {"type": "object", "required": ["issuerName"], "properties": {"issuerName": {"type": "string"}}},
				"displayFields": ["issuerName"]
			}
		}
	}
}`

func TestLoadDocument(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		doc, err := LoadDocument(writeSchemas(t, validSchemas))
		require.NoError(t, err)
		assert.Contains(t, doc.Collections, "certificates")
	})

	t.Run("invalid embedded schema", func(t *testing.T) {
		_, err := LoadDocument(writeSchemas(t, `{
			"collections": {"certificates": {"config": {"schema": {"type": 12}}}}
		}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid schema")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDocument(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestUpdater(t *testing.T) {
	t.Parallel()

	doc, err := LoadDocument(writeSchemas(t, validSchemas))
	require.NoError(t, err)

	ref := mustRef(t, "staging", "certificates")

	t.Run("patches missing schema", func(t *testing.T) {
		client := newFakeMetadataClient()
		client.raw[ref.String()] = map[string]any{"status": "work-in-progress"}

		require.NoError(t, NewUpdater(client, nil).Run(context.Background(), []values.CollectionRef{ref}, doc))
		require.Contains(t, client.patched, ref.String())
		assert.Contains(t, client.patched[ref.String()], "schema")
	})

	t.Run("skips up-to-date schema", func(t *testing.T) {
		client := newFakeMetadataClient()
		client.raw[ref.String()] = map[string]any{
			"schema":        doc.Collections["certificates"].Config["schema"],
			"displayFields": []any{"issuerName"},
		}

		require.NoError(t, NewUpdater(client, nil).Run(context.Background(), []values.CollectionRef{ref}, doc))
		assert.Empty(t, client.patched)
	})

	t.Run("patches stale schema", func(t *testing.T) {
		client := newFakeMetadataClient()
		client.raw[ref.String()] = map[string]any{
			"schema":        map[string]any{"type": "object"},
			"displayFields": []any{"issuerName"},
		}

		require.NoError(t, NewUpdater(client, nil).Run(context.Background(), []values.CollectionRef{ref}, doc))
		assert.Contains(t, client.patched, ref.String())
	})

	t.Run("unknown collection type", func(t *testing.T) {
		client := newFakeMetadataClient()
		err := NewUpdater(client, nil).Run(context.Background(), []values.CollectionRef{mustRef(t, "staging", "unknown")}, doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no schema config")
	})

	t.Run("failures joined across collections", func(t *testing.T) {
		client := newFakeMetadataClient()
		failing := mustRef(t, "staging", "certificates")
		client.failures[failing.String()] = errors.New("boom")

		other := mustRef(t, "other", "certificates")
		client.raw[other.String()] = map[string]any{}

		err := NewUpdater(client, nil).Run(context.Background(), []values.CollectionRef{failing, other}, doc)
		require.Error(t, err)
		// The second collection was still processed.
		assert.Contains(t, client.patched, other.String())
	})
}
