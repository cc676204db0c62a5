// Package schema keeps staged collections' record schemas in sync with an
// operator-authored schemas document.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// MetadataClient is the narrow remote surface the updater needs: raw
// metadata reads (schemas are server-defined fields outside the typed
// metadata) and patches.
type MetadataClient interface {
	GetCollectionRaw(ctx context.Context, ref values.CollectionRef) (map[string]any, error)
	PatchCollection(ctx context.Context, ref values.CollectionRef, data map[string]any) (entities.CollectionMetadata, error)
}

// Document is the schemas file: one config per collection name.
type Document struct {
	Collections map[string]CollectionConfig `json:"collections"`
}

// CollectionConfig is the metadata fields a collection should carry. The
// "schema" field, when present, must be a valid JSON schema.
type CollectionConfig struct {
	Config map[string]any `json:"config"`
}

// LoadDocument reads and validates a schemas file. Every embedded schema
// must compile; a schemas file that does not validate never reaches the
// server.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schemas file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schemas file: %w", err)
	}

	for name, cfg := range doc.Collections {
		raw, ok := cfg.Config["schema"]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name+".json", strings.NewReader(string(encoded))); err != nil {
			return nil, fmt.Errorf("collection %s: invalid schema: %w", name, err)
		}
		if _, err := compiler.Compile(name + ".json"); err != nil {
			return nil, fmt.Errorf("collection %s: invalid schema: %w", name, err)
		}
	}
	return &doc, nil
}

// Updater pushes schema configs to collections whose stored fields are
// missing or stale.
type Updater struct {
	client MetadataClient
	logger *slog.Logger
}

// NewUpdater creates a schema updater.
func NewUpdater(client MetadataClient, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{client: client, logger: logger}
}

// Run checks every collection in order, patching the ones whose stored
// config differs from the document. Per-collection failures are joined
// into the returned error once every collection has been processed.
func (u *Updater) Run(ctx context.Context, refs []values.CollectionRef, doc *Document) error {
	var errs []error

	for _, ref := range refs {
		u.logger.Info("checking collection schema", "bucket", ref.Bucket(), "collection", ref.Collection())

		if err := u.updateOne(ctx, ref, doc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}

func (u *Updater) updateOne(ctx context.Context, ref values.CollectionRef, doc *Document) error {
	cfg, ok := doc.Collections[ref.Collection()]
	if !ok {
		return fmt.Errorf("no schema config for collection type %q", ref.Collection())
	}

	current, err := u.client.GetCollectionRaw(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}

	stale := staleFields(current, cfg.Config)
	if len(stale) == 0 {
		u.logger.Info("schema up to date", "collection", ref.String())
		return nil
	}

	u.logger.Info("updating schema", "collection", ref.String(), "fields", stale)
	if _, err := u.client.PatchCollection(ctx, ref, cfg.Config); err != nil {
		return fmt.Errorf("patching schema: %w", err)
	}
	return nil
}

// staleFields lists the config keys whose stored value differs from the
// wanted one. Comparison goes through a JSON round trip so numeric types
// from different decoders compare equal.
func staleFields(current, wanted map[string]any) []string {
	var stale []string
	for key, want := range wanted {
		if !jsonEqual(current[key], want) {
			stale = append(stale, key)
		}
	}
	return stale
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}

	var va, vb any
	if json.Unmarshal(ja, &va) != nil || json.Unmarshal(jb, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
