// Command sigwatch-lambda runs the collection monitor operations as one
// AWS Lambda function. The invocation event selects the operation by
// name and carries the same configuration fields the CLI accepts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sigwatch-dev/sigwatch/collection/canonical"
	"github.com/sigwatch-dev/sigwatch/collection/services"
	"github.com/sigwatch-dev/sigwatch/collection/signing"
	"github.com/sigwatch-dev/sigwatch/config"
	"github.com/sigwatch-dev/sigwatch/prompt"
	"github.com/sigwatch-dev/sigwatch/publish"
	"github.com/sigwatch-dev/sigwatch/remote"
	"github.com/sigwatch-dev/sigwatch/schema"
)

// Operation names recognized in the invocation event, matching the
// historical per-handler deployment.
const (
	OpValidateSignature = "validate_signature"
	OpValidateChanges   = "validate_changes_collection"
	OpRefreshSignature  = "refresh_signature"
	OpSchemaUpdater     = "schema_updater"
	OpSyncArtifacts     = "sync_artifacts"
	OpInvalidateCache   = "invalidate_cloudfront_cache"
)

// Event is the Lambda invocation payload.
type Event struct {
	Command string `json:"command"`
	config.Event
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	lambda.Start(handle)
}

func handle(ctx context.Context, event Event) error {
	switch event.Command {
	case OpValidateSignature:
		return validateSignature(ctx, event)
	case OpValidateChanges:
		return validateChanges(ctx, event)
	case OpRefreshSignature:
		return refreshSignature(ctx, event)
	case OpSchemaUpdater:
		return updateSchemas(ctx, event)
	case OpSyncArtifacts:
		return syncArtifacts(ctx, event)
	case OpInvalidateCache:
		return invalidateCache(ctx, event)
	default:
		return fmt.Errorf("unrecognized command %q", event.Command)
	}
}

// client builds the remote client for one invocation, attaching
// credentials when the operation mutates server state.
func client(ctx context.Context, event Event, needAuth bool) (*remote.Client, error) {
	opts := []remote.Option{remote.WithUserAgent("sigwatch-lambda")}
	if needAuth {
		creds, err := event.Credentials()
		if err != nil {
			return nil, err
		}
		if creds.IsZero() {
			return nil, fmt.Errorf("credentials are required, set auth or %s", config.AuthEnvVar)
		}
		opts = append(opts, remote.WithBasicAuth(creds.User, creds.Secret))
	}

	c, err := remote.NewClient(event.Server, opts...)
	if err != nil {
		return nil, err
	}
	if event.MinServerVersion != "" {
		if err := c.CheckServerVersion(ctx, event.MinServerVersion); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateSignature(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	c, err := client(ctx, event, false)
	if err != nil {
		return err
	}
	refs, err := event.CollectionRefs(config.DefaultCollections())
	if err != nil {
		return err
	}

	validator := services.NewSignatureValidator(
		c,
		canonical.NewSerializer(),
		canonical.NewHasher(""),
		signing.NewContentSignatureVerifier(),
		slog.Default(),
	)
	_, err = validator.Run(ctx, refs)
	return err
}

func validateChanges(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	c, err := client(ctx, event, false)
	if err != nil {
		return err
	}
	registry, err := event.Registry()
	if err != nil {
		return err
	}
	return services.NewChangesChecker(c, slog.Default()).Run(ctx, registry)
}

func refreshSignature(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	c, err := client(ctx, event, true)
	if err != nil {
		return err
	}
	refs, err := event.CollectionRefs(config.DefaultCollections())
	if err != nil {
		return err
	}

	// No operator is present in Lambda; transitions are pre-approved.
	driver := services.NewLifecycleDriver(c, prompt.AutoApprover{Answer: true}, slog.Default())
	_, err = driver.Run(ctx, refs)
	return err
}

func updateSchemas(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.SchemaFile == "" {
		return fmt.Errorf("event is missing required field: schema_file")
	}
	doc, err := schema.LoadDocument(event.SchemaFile)
	if err != nil {
		return err
	}
	c, err := client(ctx, event, true)
	if err != nil {
		return err
	}
	refs, err := event.CollectionRefs(config.DefaultSchemaCollections())
	if err != nil {
		return err
	}
	return schema.NewUpdater(c, slog.Default()).Run(ctx, refs, doc)
}

func syncArtifacts(ctx context.Context, event Event) error {
	if event.ArtifactDir == "" {
		return fmt.Errorf("event is missing required field: artifact_dir")
	}

	region := event.AWSRegion
	if region == "" {
		region = publish.DefaultRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	syncer := publish.NewS3Syncer(s3.NewFromConfig(cfg), region, event.BucketName, slog.Default())
	_, err = syncer.Sync(ctx, event.ArtifactDir)
	return err
}

func invalidateCache(ctx context.Context, event Event) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	inv := publish.NewCacheInvalidator(cloudfront.NewFromConfig(cfg), slog.Default())
	_, err = inv.Invalidate(ctx, event.DistributionID)
	return err
}
