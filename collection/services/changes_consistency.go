package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/ports"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// ChangesChecker cross-checks the registry collection against the live
// timestamp of each referenced collection.
type ChangesChecker struct {
	client ports.RemoteClient
	logger *slog.Logger
}

// NewChangesChecker creates a consistency checker.
func NewChangesChecker(client ports.RemoteClient, logger *slog.Logger) *ChangesChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangesChecker{client: client, logger: logger}
}

// Run reads every entry of the registry and compares its recorded
// last_modified, as a string, to the live records timestamp of the
// referenced collection. Every entry is checked even after a mismatch; the
// returned ConsistencyError names all offending entries.
//
// Comparison is deliberately by string rendering of both sides, matching
// the established behavior; switching to numeric comparison is a product
// decision, not a cleanup.
func (c *ChangesChecker) Run(ctx context.Context, registry values.CollectionRef) error {
	c.logger.Info("looking at registry", "bucket", registry.Bucket(), "collection", registry.Collection())

	records, err := c.client.ListRecords(ctx, registry, "")
	if err != nil {
		return fmt.Errorf("listing registry entries: %w", err)
	}

	var mismatches []entities.ConsistencyMismatch
	for _, record := range records {
		entry, err := changeEntryFromRecord(record)
		if err != nil {
			mismatches = append(mismatches, entities.ConsistencyMismatch{
				Ref:      registry,
				Recorded: fmt.Sprintf("%v", record["id"]),
				Live:     fmt.Sprintf("unreadable entry: %v", err),
			})
			continue
		}

		ref, err := entry.Ref()
		if err != nil {
			mismatches = append(mismatches, entities.ConsistencyMismatch{
				Ref:      registry,
				Recorded: entry.ID,
				Live:     err.Error(),
			})
			continue
		}

		live, err := c.client.RecordsTimestamp(ctx, ref)
		if err != nil {
			mismatches = append(mismatches, entities.ConsistencyMismatch{
				Ref:      ref,
				Recorded: entry.LastModified.String(),
				Live:     fmt.Sprintf("fetch failed: %v", err),
			})
			continue
		}

		if entry.LastModified.String() == live.String() {
			c.logger.Info("etag OK", "collection", ref.String(), "etag", live.String())
			continue
		}

		c.logger.Warn("etag mismatch", "collection", ref.String(), "recorded", entry.LastModified.String(), "live", live.String())
		mismatches = append(mismatches, entities.ConsistencyMismatch{
			Ref:      ref,
			Recorded: entry.LastModified.String(),
			Live:     live.String(),
		})
	}

	if len(mismatches) > 0 {
		return &entities.ConsistencyError{Mismatches: mismatches}
	}
	return nil
}

// changeEntryFromRecord decodes a registry record into a ChangeEntry.
func changeEntryFromRecord(record entities.Record) (entities.ChangeEntry, error) {
	entry := entities.ChangeEntry{}

	if id, ok := record["id"].(string); ok {
		entry.ID = id
	}

	bucket, ok := record["bucket"].(string)
	if !ok {
		return entry, fmt.Errorf("entry %s: missing bucket", entry.ID)
	}
	entry.Bucket = bucket

	collection, ok := record["collection"].(string)
	if !ok {
		return entry, fmt.Errorf("entry %s: missing collection", entry.ID)
	}
	entry.Collection = collection

	switch v := record["last_modified"].(type) {
	case float64:
		entry.LastModified = values.Timestamp(int64(v))
	case string:
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return entry, fmt.Errorf("entry %s: bad last_modified %q", entry.ID, v)
		}
		entry.LastModified = values.Timestamp(ms)
	default:
		return entry, fmt.Errorf("entry %s: missing last_modified", entry.ID)
	}

	return entry, nil
}
