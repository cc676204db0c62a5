package entities

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// excerptLimit bounds the canonical-bytes excerpt carried in diagnostics.
const excerptLimit = 256

// ReportEntry is the verdict for one collection.
type ReportEntry struct {
	Ref       values.CollectionRef
	OK        bool
	Err       error
	Digest    values.Digest
	Timestamp values.Timestamp
	Excerpt   string
}

// Diagnostic renders the operator-facing lines for a failed entry.
func (e ReportEntry) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: signature KO: %v\n", e.Ref, e.Err)
	if !e.Digest.IsZero() {
		fmt.Fprintf(&b, " - Computed hash: `%s`\n", e.Digest)
	}
	if e.Timestamp != 0 {
		fmt.Fprintf(&b, " - Collection timestamp: `%s`\n", e.Timestamp)
	}
	if e.Excerpt != "" {
		fmt.Fprintf(&b, " - Serialized content: `%s`", e.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ValidationReport accumulates per-collection verdicts across a whole run.
// Failures are never discarded mid-run; the decision to fail happens only
// after every collection has been processed.
type ValidationReport struct {
	entries []ReportEntry
}

// Pass records a successful verification.
func (r *ValidationReport) Pass(ref values.CollectionRef) {
	r.entries = append(r.entries, ReportEntry{Ref: ref, OK: true})
}

// Fail records a failed verification with its diagnostics.
func (r *ValidationReport) Fail(ref values.CollectionRef, err error, digest values.Digest, ts values.Timestamp, canonical []byte) {
	excerpt := string(canonical)
	if len(excerpt) > excerptLimit {
		cut := excerptLimit
		// Back up to a rune boundary so the excerpt stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut] + "..."
	}
	r.entries = append(r.entries, ReportEntry{
		Ref:       ref,
		Err:       err,
		Digest:    digest,
		Timestamp: ts,
		Excerpt:   excerpt,
	})
}

// Entries returns all verdicts in processing order.
func (r *ValidationReport) Entries() []ReportEntry {
	return r.entries
}

// Failed returns the failed entries in processing order.
func (r *ValidationReport) Failed() []ReportEntry {
	var failed []ReportEntry
	for _, e := range r.entries {
		if !e.OK {
			failed = append(failed, e)
		}
	}
	return failed
}

// Err returns nil when every collection passed, otherwise a
// ValidationError whose message concatenates every failure's diagnostics.
func (r *ValidationReport) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	lines := make([]string, 0, len(failed))
	for _, e := range failed {
		lines = append(lines, e.Diagnostic())
	}
	return &ValidationError{
		Failures: failed,
		Message:  fmt.Sprintf("%d of %d collections failed to validate:\n%s", len(failed), len(r.entries), strings.Join(lines, "\n")),
	}
}
