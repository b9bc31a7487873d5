package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kactica/og-image-generator/pkg/redisclient"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

const keyPrefix = "og_image:"

// ArtifactCacheRepo caches fingerprint -> image URL with the artifact's
// remaining freshness as the entry TTL. It only ever shortcuts the postgres
// lookup; entries are filled on Put and on ledger hits.
type ArtifactCacheRepo struct {
	*redisclient.RedisClient
}

func NewArtifactCacheRepo(rc *redisclient.RedisClient) *ArtifactCacheRepo {
	return &ArtifactCacheRepo{rc}
}

func (r *ArtifactCacheRepo) GetURL(ctx context.Context, fingerprint string) (string, error) {
	url, err := r.Client.Get(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("ArtifactCacheRepo - GetURL: %w", errs.ErrRecordNotFound)
		}
		return "", fmt.Errorf("ArtifactCacheRepo - GetURL - r.Client.Get: %w", err)
	}

	return url, nil
}

func (r *ArtifactCacheRepo) SetURL(ctx context.Context, fingerprint, url string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired, nothing worth caching.
		return nil
	}

	err := r.Client.Set(ctx, keyPrefix+fingerprint, url, ttl).Err()
	if err != nil {
		return fmt.Errorf("ArtifactCacheRepo - SetURL - r.Client.Set: %w", err)
	}

	return nil
}
