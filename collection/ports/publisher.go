package ports

import "context"

// Publisher uploads a generated artifact directory to blob storage.
type Publisher interface {
	// Sync uploads every file under dir and returns the uploaded object
	// names.
	Sync(ctx context.Context, dir string) ([]string, error)
}

// CacheInvalidator purges downstream CDN caches after publication.
type CacheInvalidator interface {
	// Invalidate flushes cached entries for the given distribution and
	// returns the invalidation ID.
	Invalidate(ctx context.Context, distributionID string) (string, error)
}

// Confirmer gates remote mutations behind an operator decision. Implementations
// may prompt interactively or auto-approve in non-interactive runs.
type Confirmer interface {
	Confirm(description string) (bool, error)
}
