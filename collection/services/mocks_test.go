package services

import (
	"context"
	"fmt"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// fakeRemote is a scripted RemoteClient for tests.
type fakeRemote struct {
	metadata   map[string]entities.CollectionMetadata
	records    map[string][]entities.Record
	timestamps map[string]values.Timestamp

	// failures maps "op ref" to an error, e.g. "timestamp blocklists/gfx".
	failures map[string]error

	// patched collects PatchCollection calls as "ref status".
	patched []string

	// patchResult is returned by PatchCollection when set.
	patchResult map[string]entities.CollectionMetadata

	// calls records every remote call in order, e.g. "records pinning/pins".
	calls []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		metadata:    map[string]entities.CollectionMetadata{},
		records:     map[string][]entities.Record{},
		timestamps:  map[string]values.Timestamp{},
		failures:    map[string]error{},
		patchResult: map[string]entities.CollectionMetadata{},
	}
}

func (f *fakeRemote) GetCollection(_ context.Context, ref values.CollectionRef) (entities.CollectionMetadata, error) {
	f.calls = append(f.calls, "metadata "+ref.String())
	if err := f.failures["metadata "+ref.String()]; err != nil {
		return entities.CollectionMetadata{}, err
	}
	meta, ok := f.metadata[ref.String()]
	if !ok {
		return entities.CollectionMetadata{}, fmt.Errorf("collection %s not found", ref)
	}
	return meta, nil
}

func (f *fakeRemote) ListRecords(_ context.Context, ref values.CollectionRef, _ string) ([]entities.Record, error) {
	f.calls = append(f.calls, "records "+ref.String())
	if err := f.failures["records "+ref.String()]; err != nil {
		return nil, err
	}
	return f.records[ref.String()], nil
}

func (f *fakeRemote) RecordsTimestamp(_ context.Context, ref values.CollectionRef) (values.Timestamp, error) {
	f.calls = append(f.calls, "timestamp "+ref.String())
	if err := f.failures["timestamp "+ref.String()]; err != nil {
		return 0, err
	}
	return f.timestamps[ref.String()], nil
}

func (f *fakeRemote) PatchCollection(_ context.Context, ref values.CollectionRef, data map[string]any) (entities.CollectionMetadata, error) {
	f.calls = append(f.calls, "patch "+ref.String())
	if err := f.failures["patch "+ref.String()]; err != nil {
		return entities.CollectionMetadata{}, err
	}
	f.patched = append(f.patched, fmt.Sprintf("%s %v", ref, data["status"]))
	return f.patchResult[ref.String()], nil
}

// fakeConfirmer is a scripted Confirmer.
type fakeConfirmer struct {
	answer bool
	asked  int
}

func (f *fakeConfirmer) Confirm(string) (bool, error) {
	f.asked++
	return f.answer, nil
}

func mustRef(bucket, collection string) values.CollectionRef {
	ref, err := values.NewCollectionRef(bucket, collection)
	if err != nil {
		panic(err)
	}
	return ref
}
