package ports

import (
	"context"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// SortDescendingLastModified is the record ordering the signer
// canonicalized over. It is part of the signed contract, not cosmetic.
const SortDescendingLastModified = "-last_modified"

// RemoteClient is the narrow surface the core needs from the remote
// collection service. Cancellation, timeouts and retries are the client's
// concern; the core issues point-in-time calls and treats a failure as
// that collection's failure.
type RemoteClient interface {
	// GetCollection fetches the authoritative metadata of a collection.
	GetCollection(ctx context.Context, ref values.CollectionRef) (entities.CollectionMetadata, error)

	// ListRecords fetches the records of a collection in the given sort
	// order.
	ListRecords(ctx context.Context, ref values.CollectionRef, sort string) ([]entities.Record, error)

	// RecordsTimestamp fetches the authoritative timestamp of a
	// collection's record set, independent of any listing.
	RecordsTimestamp(ctx context.Context, ref values.CollectionRef) (values.Timestamp, error)

	// PatchCollection updates metadata fields of a collection and returns
	// the resulting metadata. Requires write credentials.
	PatchCollection(ctx context.Context, ref values.CollectionRef, data map[string]any) (entities.CollectionMetadata, error)
}
