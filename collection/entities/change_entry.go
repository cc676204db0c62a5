package entities

import (
	"fmt"

	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// ChangeEntry is one row of the registry ("changes") collection: a pointer
// to another collection and the timestamp it should currently have.
type ChangeEntry struct {
	ID           string           `json:"id"`
	Bucket       string           `json:"bucket"`
	Collection   string           `json:"collection"`
	LastModified values.Timestamp `json:"last_modified"`
}

// Ref returns the referenced collection.
func (e ChangeEntry) Ref() (values.CollectionRef, error) {
	ref, err := values.NewCollectionRef(e.Bucket, e.Collection)
	if err != nil {
		return values.CollectionRef{}, fmt.Errorf("change entry %s: %w", e.ID, err)
	}
	return ref, nil
}
