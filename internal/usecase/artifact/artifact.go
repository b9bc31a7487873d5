// Package artifact implements the artifact store: S3 blobs, postgres
// metadata and a redis URL cache in front.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/internal/repo"
	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

const contentTypePNG = "image/png"

type ArtifactUseCase struct {
	imageRepo    repo.ImageRepo
	metadataRepo repo.ArtifactMetadataRepo
	cache        repo.ArtifactCache

	logger logger.Interface
}

func New(
	imageRepo repo.ImageRepo,
	metadataRepo repo.ArtifactMetadataRepo,
	cache repo.ArtifactCache,
	l logger.Interface,
) *ArtifactUseCase {
	return &ArtifactUseCase{
		imageRepo:    imageRepo,
		metadataRepo: metadataRepo,
		cache:        cache,
		logger:       l,
	}
}

// Lookup reports the fresh artifact for a fingerprint, if any. Cache entries
// expire with the artifact, so a cache hit is fresh by construction; a
// broken cache degrades to the metadata lookup.
func (uc *ArtifactUseCase) Lookup(ctx context.Context, fingerprint string) (*entity.Artifact, bool, error) {
	url, err := uc.cache.GetURL(ctx, fingerprint)
	if err == nil {
		return &entity.Artifact{Fingerprint: fingerprint, URL: url}, true, nil
	}
	if !errors.Is(err, errs.ErrRecordNotFound) {
		uc.logger.Warn("artifact cache unavailable, falling back to metadata: %v", err)
	}

	artifact, err := uc.metadataRepo.Lookup(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ArtifactUseCase - Lookup - uc.metadataRepo.Lookup: %w", err)
	}

	now := time.Now()
	if !artifact.Fresh(now) {
		return nil, false, nil
	}

	remaining := artifact.StoredAt.Add(artifact.TTL).Sub(now)
	if cacheErr := uc.cache.SetURL(ctx, fingerprint, artifact.URL, remaining); cacheErr != nil {
		uc.logger.Warn("failed to refill artifact cache for %s: %v", fingerprint, cacheErr)
	}

	return artifact, true, nil
}

// Put uploads the rendered image and records its metadata. A failed
// metadata write removes the fresh blob again so Lookup never reports an
// artifact the ledger does not know about.
func (uc *ArtifactUseCase) Put(ctx context.Context, fingerprint string, data []byte, ttl time.Duration) (*entity.Artifact, error) {
	key := fmt.Sprintf("og_images/%s.png", fingerprint)

	err := uc.imageRepo.UploadBytes(ctx, key, data, contentTypePNG, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ArtifactUseCase - Put - uc.imageRepo.UploadBytes: %w", err)
	}

	artifact := &entity.Artifact{
		Fingerprint: fingerprint,
		URL:         uc.imageRepo.PublicURL(key),
		StoredAt:    time.Now(),
		TTL:         ttl,
	}

	err = uc.metadataRepo.Upsert(ctx, artifact)
	if err != nil {
		deleteErr := uc.imageRepo.Delete(ctx, key)
		if deleteErr != nil {
			uc.logger.Error(deleteErr, "ArtifactUseCase - Put - uc.imageRepo.Delete")
		}
		return nil, fmt.Errorf("ArtifactUseCase - Put - uc.metadataRepo.Upsert: %w", err)
	}

	if cacheErr := uc.cache.SetURL(ctx, fingerprint, artifact.URL, ttl); cacheErr != nil {
		uc.logger.Warn("failed to fill artifact cache for %s: %v", fingerprint, cacheErr)
	}

	return artifact, nil
}
