package ports

import (
	"context"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// Canonicalizer produces the deterministic byte serialization of a record
// set. Two calls with identical input must yield byte-identical output;
// the whole verification rests on that.
type Canonicalizer interface {
	Canonicalize(set entities.RecordSet) ([]byte, error)
}

// Hasher computes the content digest of canonical bytes.
type Hasher interface {
	Digest(canonical []byte) (values.Digest, error)
}

// SignatureVerifier verifies a detached signature over canonical bytes
// using the public key embedded in the signature value.
type SignatureVerifier interface {
	Verify(ctx context.Context, canonical []byte, sig values.Signature) error
}
