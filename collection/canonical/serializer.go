// Package canonical produces the deterministic serialization of a record
// set that signatures are computed over, and its content digest.
package canonical

import (
	"encoding/json"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// Serializer implements ports.Canonicalizer with RFC 8785 (JCS) canonical
// JSON over the signed payload shape:
//
//	{"data": <records>, "last_modified": "<timestamp>"}
//
// Records are serialized in the order given; the caller is responsible for
// supplying them in the ordering the signer used (descending
// last_modified). The timestamp is rendered as a decimal string, matching
// the signer.
type Serializer struct{}

// NewSerializer creates a canonical serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Canonicalize returns the canonical bytes for a record set.
func (s *Serializer) Canonicalize(set entities.RecordSet) ([]byte, error) {
	payload := struct {
		Data         []entities.Record `json:"data"`
		LastModified string            `json:"last_modified"`
	}{
		Data:         set.Records,
		LastModified: set.Timestamp.String(),
	}
	if payload.Data == nil {
		payload.Data = []entities.Record{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing record set: %w", err)
	}

	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing record set: %w", err)
	}
	return canonical, nil
}

// Hasher implements ports.Hasher over canonical bytes.
type Hasher struct {
	algorithm string
}

// NewHasher creates a hasher for the given algorithm (default sha256).
func NewHasher(algorithm string) *Hasher {
	if algorithm == "" {
		algorithm = "sha256"
	}
	return &Hasher{algorithm: algorithm}
}

// Digest computes the content digest of canonical bytes.
func (h *Hasher) Digest(canonical []byte) (values.Digest, error) {
	return values.ComputeDigest(h.algorithm, canonical)
}
