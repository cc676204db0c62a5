// Package services implements the core operations of the monitor: signature
// validation, changes consistency checking, and signing lifecycle driving.
// Each operation is an independent entry point; none call each other.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/ports"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// SignatureValidator verifies the content signature of each configured
// collection and aggregates every failure into one consolidated report.
type SignatureValidator struct {
	client        ports.RemoteClient
	canonicalizer ports.Canonicalizer
	hasher        ports.Hasher
	verifier      ports.SignatureVerifier
	logger        *slog.Logger
}

// NewSignatureValidator creates a signature validator.
func NewSignatureValidator(
	client ports.RemoteClient,
	canonicalizer ports.Canonicalizer,
	hasher ports.Hasher,
	verifier ports.SignatureVerifier,
	logger *slog.Logger,
) *SignatureValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignatureValidator{
		client:        client,
		canonicalizer: canonicalizer,
		hasher:        hasher,
		verifier:      verifier,
		logger:        logger,
	}
}

// Run validates every collection in order. A failing collection never
// aborts the loop; after all collections are processed the returned error
// is nil only if every one passed, otherwise a ValidationError carrying
// every per-collection diagnostic.
func (v *SignatureValidator) Run(ctx context.Context, refs []values.CollectionRef) (*entities.ValidationReport, error) {
	report := &entities.ValidationReport{}

	for _, ref := range refs {
		v.logger.Info("looking at collection", "bucket", ref.Bucket(), "collection", ref.Collection())

		digest, ts, canonical, err := v.validateOne(ctx, ref)
		if err != nil {
			v.logger.Warn("signature KO", "collection", ref.String(), "error", err)
			report.Fail(ref, err, digest, ts, canonical)
			continue
		}

		v.logger.Info("signature OK", "collection", ref.String())
		report.Pass(ref)
	}

	return report, report.Err()
}

// validateOne runs the five verification steps for a single collection.
// The three remote fetches stay ordered: the canonical bytes must combine
// the record listing with the timestamp that was authoritative for this
// exact fetch.
func (v *SignatureValidator) validateOne(ctx context.Context, ref values.CollectionRef) (values.Digest, values.Timestamp, []byte, error) {
	meta, err := v.client.GetCollection(ctx, ref)
	if err != nil {
		return values.Digest{}, 0, nil, fmt.Errorf("fetching metadata: %w", err)
	}
	if meta.Signature.IsZero() {
		return values.Digest{}, 0, nil, entities.ErrMissingSignature
	}

	records, err := v.client.ListRecords(ctx, ref, ports.SortDescendingLastModified)
	if err != nil {
		return values.Digest{}, 0, nil, fmt.Errorf("listing records: %w", err)
	}

	ts, err := v.client.RecordsTimestamp(ctx, ref)
	if err != nil {
		return values.Digest{}, 0, nil, fmt.Errorf("fetching records timestamp: %w", err)
	}

	set := entities.RecordSet{Records: records, Timestamp: ts}
	canonical, err := v.canonicalizer.Canonicalize(set)
	if err != nil {
		return values.Digest{}, ts, nil, fmt.Errorf("canonicalizing: %w", err)
	}

	digest, err := v.hasher.Digest(canonical)
	if err != nil {
		return values.Digest{}, ts, canonical, fmt.Errorf("hashing: %w", err)
	}

	if err := v.verifier.Verify(ctx, canonical, meta.Signature); err != nil {
		return digest, ts, canonical, err
	}
	return digest, ts, canonical, nil
}
