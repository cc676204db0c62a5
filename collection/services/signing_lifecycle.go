package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/ports"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// LifecycleStatus is the reported outcome for one collection.
type LifecycleStatus struct {
	Ref values.CollectionRef

	// Status is the lifecycle status as fetched, before any transition.
	Status string

	// ReportedAt is the patch response's last_modified when a re-sign was
	// triggered, otherwise the fetched one.
	ReportedAt values.Timestamp

	// Triggered reports whether a re-sign was requested.
	Triggered bool
}

// LifecycleDriver inspects each collection's signing status and nudges
// terminal ("signed") collections back into the signing queue. It is a
// one-shot nudge, not a state machine: the remote service owns every
// subsequent transition.
type LifecycleDriver struct {
	client    ports.RemoteClient
	confirmer ports.Confirmer
	logger    *slog.Logger
}

// NewLifecycleDriver creates a lifecycle driver. confirmer may be nil, in
// which case transitions proceed without confirmation.
func NewLifecycleDriver(client ports.RemoteClient, confirmer ports.Confirmer, logger *slog.Logger) *LifecycleDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleDriver{client: client, confirmer: confirmer, logger: logger}
}

// Run processes every collection in order. Per-collection failures never
// abort the loop; they are joined into the returned error once every
// collection has been processed.
func (d *LifecycleDriver) Run(ctx context.Context, refs []values.CollectionRef) ([]LifecycleStatus, error) {
	var (
		statuses []LifecycleStatus
		errs     []error
		approved *bool
	)

	for _, ref := range refs {
		d.logger.Info("looking at collection", "bucket", ref.Bucket(), "collection", ref.Collection())

		status, err := d.driveOne(ctx, ref, &approved)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref, err))
			continue
		}

		d.logger.Info("collection status",
			"collection", ref.String(),
			"status", status.Status,
			"at", status.ReportedAt.Human(),
			"timestamp", status.ReportedAt.Int64(),
			"triggered", status.Triggered,
		)
		statuses = append(statuses, status)
	}

	return statuses, errors.Join(errs...)
}

// driveOne fetches one collection's metadata and, if it is in the terminal
// signed state, requests a re-sign. approved caches the operator decision
// so a run prompts at most once.
func (d *LifecycleDriver) driveOne(ctx context.Context, ref values.CollectionRef, approved **bool) (LifecycleStatus, error) {
	meta, err := d.client.GetCollection(ctx, ref)
	if err != nil {
		return LifecycleStatus{}, fmt.Errorf("fetching metadata: %w", err)
	}

	status := LifecycleStatus{
		Ref:        ref,
		Status:     meta.Status,
		ReportedAt: meta.LastModified,
	}

	if !meta.IsSigned() {
		// Anything but "signed" is passed through untouched; the status
		// space is open and owned by the remote service.
		return status, nil
	}

	ok, err := d.approve(approved)
	if err != nil {
		return LifecycleStatus{}, err
	}
	if !ok {
		return status, nil
	}

	d.logger.Info("triggering new signature", "collection", ref.String())
	patched, err := d.client.PatchCollection(ctx, ref, map[string]any{"status": entities.StatusToSign})
	if err != nil {
		return LifecycleStatus{}, fmt.Errorf("requesting re-sign: %w", err)
	}

	status.ReportedAt = patched.LastModified
	status.Triggered = true
	return status, nil
}

func (d *LifecycleDriver) approve(approved **bool) (bool, error) {
	if d.confirmer == nil {
		return true, nil
	}
	if *approved != nil {
		return **approved, nil
	}

	ok, err := d.confirmer.Confirm("Trigger re-signing of collections currently in the signed state?")
	if err != nil {
		return false, fmt.Errorf("confirming re-sign: %w", err)
	}
	*approved = &ok
	return ok, nil
}
