package values

import (
	"fmt"
	"strings"
)

// CollectionRef uniquely identifies a remote collection.
// Format: bucket/collection (e.g. blocklists/certificates).
type CollectionRef struct {
	bucket     string
	collection string
}

// NewCollectionRef creates a reference from components.
func NewCollectionRef(bucket, collection string) (CollectionRef, error) {
	if bucket == "" || collection == "" {
		return CollectionRef{}, fmt.Errorf("collection reference requires bucket and collection, got %q/%q", bucket, collection)
	}
	return CollectionRef{bucket: bucket, collection: collection}, nil
}

// ParseCollectionRef parses a "bucket/collection" path.
func ParseCollectionRef(ref string) (CollectionRef, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 {
		return CollectionRef{}, fmt.Errorf("invalid collection reference: %s", ref)
	}
	return NewCollectionRef(parts[0], parts[1])
}

// String returns the canonical bucket/collection path.
func (r CollectionRef) String() string {
	return fmt.Sprintf("%s/%s", r.bucket, r.collection)
}

// Endpoint returns the server-side resource path for this collection.
func (r CollectionRef) Endpoint() string {
	return fmt.Sprintf("/buckets/%s/collections/%s", r.bucket, r.collection)
}

// Bucket returns the bucket identifier.
func (r CollectionRef) Bucket() string {
	return r.bucket
}

// Collection returns the collection identifier.
func (r CollectionRef) Collection() string {
	return r.collection
}

// Equals checks equality with another reference.
func (r CollectionRef) Equals(other CollectionRef) bool {
	return r.bucket == other.bucket && r.collection == other.collection
}
