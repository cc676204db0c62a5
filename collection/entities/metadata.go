package entities

import (
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// StatusSigned is the only lifecycle status the monitor acts on. Every
// other status value is server-defined and passed through opaquely; the
// remote service may introduce new ones at any time.
const StatusSigned = "signed"

// StatusToSign requests a re-sign from the remote signing worker.
const StatusToSign = "to-sign"

// CollectionMetadata is the authoritative state of one remote collection,
// fetched fresh per operation and never cached or mutated locally.
type CollectionMetadata struct {
	// ID is the collection identifier.
	ID string `json:"id"`

	// Status is the signing lifecycle status, treated as an open string.
	Status string `json:"status"`

	// LastModified is the collection metadata timestamp.
	LastModified values.Timestamp `json:"last_modified"`

	// Signature is the detached content signature, if the collection
	// has been signed.
	Signature values.Signature `json:"signature"`
}

// IsSigned reports whether the collection is in the terminal signed state.
func (m CollectionMetadata) IsSigned() bool {
	return m.Status == StatusSigned
}

// Record is one collection record. Fields are server-defined; the monitor
// only depends on id and last_modified and carries the rest opaquely so
// canonicalization sees the full record.
type Record map[string]any

// LastModified returns the record's modification timestamp, or zero when
// absent or malformed.
func (r Record) LastModified() values.Timestamp {
	switch v := r["last_modified"].(type) {
	case float64:
		return values.Timestamp(int64(v))
	case int64:
		return values.Timestamp(v)
	case int:
		return values.Timestamp(int64(v))
	}
	return 0
}

// RecordSet is an ordered sequence of records plus the authoritative
// timestamp of the set. The timestamp is fetched independently of the
// record listing and is the source of truth for canonicalization.
type RecordSet struct {
	Records   []Record
	Timestamp values.Timestamp
}

// InDescendingOrder reports whether records are sorted by descending
// last_modified, the ordering the signer canonicalized over.
func (s RecordSet) InDescendingOrder() bool {
	for i := 1; i < len(s.Records); i++ {
		if s.Records[i].LastModified() > s.Records[i-1].LastModified() {
			return false
		}
	}
	return true
}
