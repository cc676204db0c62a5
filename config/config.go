// Package config defines the invocation configuration of each operation
// and the documented default collection sets. Defaults are configuration
// data, overridable per invocation, not literals buried in logic.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// AuthEnvVar is consulted for write credentials when the event carries
// none.
const AuthEnvVar = "REFRESH_SIGNATURE_AUTH"

// DefaultCollections is the well-known set validated and refreshed when an
// event names none.
func DefaultCollections() []values.CollectionRef {
	return mustRefs(
		"blocklists/certificates",
		"blocklists/addons",
		"blocklists/plugins",
		"blocklists/gfx",
		"pinning/pins",
	)
}

// DefaultSchemaCollections is the staging set the schema updater targets
// by default.
func DefaultSchemaCollections() []values.CollectionRef {
	return mustRefs(
		"staging/certificates",
		"staging/addons",
		"staging/plugins",
		"staging/gfx",
	)
}

// DefaultRegistry is the registry collection the consistency checker reads
// by default.
func DefaultRegistry() values.CollectionRef {
	ref, _ := values.NewCollectionRef("monitor", "changes")
	return ref
}

func mustRefs(paths ...string) []values.CollectionRef {
	refs := make([]values.CollectionRef, 0, len(paths))
	for _, p := range paths {
		ref, err := values.ParseCollectionRef(p)
		if err != nil {
			panic(err)
		}
		refs = append(refs, ref)
	}
	return refs
}

// Credentials is a (user, secret) pair for mutating calls.
type Credentials struct {
	User   string
	Secret string
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.User == "" && c.Secret == ""
}

// ParseCredentials parses a "user:secret" pair. The secret may itself
// contain colons.
func ParseCredentials(auth string) (Credentials, error) {
	user, secret, found := strings.Cut(auth, ":")
	if !found || user == "" {
		return Credentials{}, fmt.Errorf("malformed credentials, expected user:secret")
	}
	return Credentials{User: user, Secret: secret}, nil
}

// CollectionSpec names one collection in an event. It accepts either the
// original object form {"bucket": ..., "collection": ...} or the compact
// "bucket/collection" string form.
type CollectionSpec struct {
	Bucket     string `json:"bucket" yaml:"bucket"`
	Collection string `json:"collection" yaml:"collection"`
}

// UnmarshalJSON accepts both object and string forms.
func (s *CollectionSpec) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return err
		}
		ref, err := values.ParseCollectionRef(path)
		if err != nil {
			return err
		}
		s.Bucket, s.Collection = ref.Bucket(), ref.Collection()
		return nil
	}

	type plain CollectionSpec
	return json.Unmarshal(data, (*plain)(s))
}

// Ref converts the spec to a CollectionRef.
func (s CollectionSpec) Ref() (values.CollectionRef, error) {
	return values.NewCollectionRef(s.Bucket, s.Collection)
}

// Event is the recognized invocation configuration, mirroring the original
// event shape.
type Event struct {
	// Server is the remote service root URL. Required.
	Server string `json:"server" yaml:"server"`

	// Collections overrides the per-operation default collection set.
	Collections []CollectionSpec `json:"collections,omitempty" yaml:"collections,omitempty"`

	// Bucket/Collection override the registry read by the consistency
	// checker.
	Bucket     string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// Auth is a "user:secret" pair for mutating operations. When empty,
	// the REFRESH_SIGNATURE_AUTH environment variable is consulted.
	Auth string `json:"auth,omitempty" yaml:"auth,omitempty"`

	// Include/Exclude filter the effective collection set with doublestar
	// patterns over "bucket/collection" paths.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// MinServerVersion optionally gates the run on a server version
	// constraint, e.g. ">= 10.0.0".
	MinServerVersion string `json:"min_server_version,omitempty" yaml:"min_server_version,omitempty"`

	// DistributionID targets the cache invalidation operation.
	DistributionID string `json:"distribution_id,omitempty" yaml:"distribution_id,omitempty"`

	// Publication settings.
	AWSRegion   string `json:"aws_region,omitempty" yaml:"aws_region,omitempty"`
	BucketName  string `json:"bucket_name,omitempty" yaml:"bucket_name,omitempty"`
	ArtifactDir string `json:"artifact_dir,omitempty" yaml:"artifact_dir,omitempty"`

	// SchemaFile points at the schemas document for the schema updater.
	SchemaFile string `json:"schema_file,omitempty" yaml:"schema_file,omitempty"`
}

// Validate fails fast on configuration errors, before any remote call.
func (e Event) Validate() error {
	if e.Server == "" {
		return fmt.Errorf("event is missing required field: server")
	}
	for _, pattern := range append(append([]string{}, e.Include...), e.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid collection pattern: %s", pattern)
		}
	}
	return nil
}

// CollectionRefs resolves the effective collection set: the event's
// collections when present, otherwise defaults, filtered by the
// include/exclude patterns.
func (e Event) CollectionRefs(defaults []values.CollectionRef) ([]values.CollectionRef, error) {
	refs := defaults
	if len(e.Collections) > 0 {
		refs = make([]values.CollectionRef, 0, len(e.Collections))
		for _, spec := range e.Collections {
			ref, err := spec.Ref()
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}

	filtered := make([]values.CollectionRef, 0, len(refs))
	for _, ref := range refs {
		ok, err := e.matches(ref)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, ref)
		}
	}
	return filtered, nil
}

func (e Event) matches(ref values.CollectionRef) (bool, error) {
	path := ref.String()

	if len(e.Include) > 0 {
		included := false
		for _, pattern := range e.Include {
			ok, err := doublestar.Match(pattern, path)
			if err != nil {
				return false, fmt.Errorf("pattern %s: %w", pattern, err)
			}
			if ok {
				included = true
				break
			}
		}
		if !included {
			return false, nil
		}
	}

	for _, pattern := range e.Exclude {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("pattern %s: %w", pattern, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

// Registry resolves the registry collection, defaulting to monitor/changes.
func (e Event) Registry() (values.CollectionRef, error) {
	if e.Bucket == "" && e.Collection == "" {
		return DefaultRegistry(), nil
	}
	bucket, collection := e.Bucket, e.Collection
	if bucket == "" {
		bucket = DefaultRegistry().Bucket()
	}
	if collection == "" {
		collection = DefaultRegistry().Collection()
	}
	return values.NewCollectionRef(bucket, collection)
}

// Credentials resolves write credentials from the event or the
// environment. Returns zero credentials when neither is set.
func (e Event) Credentials() (Credentials, error) {
	auth := e.Auth
	if auth == "" {
		auth = os.Getenv(AuthEnvVar)
	}
	if auth == "" {
		return Credentials{}, nil
	}
	return ParseCredentials(auth)
}
