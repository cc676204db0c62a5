package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
)

// invalidationPath covers every versioned API response the CDN caches.
const invalidationPath = "/v1/*"

// CloudFrontAPI is the CDN surface the invalidator needs.
type CloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// CacheInvalidator flushes the CDN cache in front of the server.
type CacheInvalidator struct {
	client CloudFrontAPI
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewCacheInvalidator(client CloudFrontAPI, logger *slog.Logger) *CacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidator{client: client, logger: logger, now: time.Now}
}

// Invalidate submits an invalidation of every versioned path on the given
// distribution and returns the invalidation ID.
func (c *CacheInvalidator) Invalidate(ctx context.Context, distributionID string) (string, error) {
	if distributionID == "" {
		return "", fmt.Errorf("distribution ID is required")
	}

	reference := fmt.Sprintf("%d-%s", c.now().Unix(), uuid.NewString())
	out, err := c.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(reference),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{invalidationPath},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("invalidating distribution %s: %w", distributionID, err)
	}

	id := ""
	if out.Invalidation != nil {
		id = aws.ToString(out.Invalidation.Id)
	}
	c.logger.Info("cache invalidation submitted", "distribution", distributionID, "invalidation", id, "path", invalidationPath)
	return id, nil
}
