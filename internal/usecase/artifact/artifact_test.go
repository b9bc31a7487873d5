package artifact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

type fakeImageRepo struct {
	uploads   map[string][]byte
	deletes   []string
	uploadErr error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{uploads: make(map[string][]byte)}
}

func (f *fakeImageRepo) UploadBytes(_ context.Context, key string, data []byte, _ string, _ int64) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}

	f.uploads[key] = data

	return nil
}

func (f *fakeImageRepo) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	delete(f.uploads, key)

	return nil
}

func (f *fakeImageRepo) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeMetadataRepo struct {
	byFP      map[string]*entity.Artifact
	upsertErr error
}

func newFakeMetadataRepo() *fakeMetadataRepo {
	return &fakeMetadataRepo{byFP: make(map[string]*entity.Artifact)}
}

func (f *fakeMetadataRepo) Lookup(_ context.Context, fp string) (*entity.Artifact, error) {
	a, ok := f.byFP[fp]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}

	cp := *a

	return &cp, nil
}

func (f *fakeMetadataRepo) Upsert(_ context.Context, a *entity.Artifact) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}

	cp := *a
	f.byFP[a.Fingerprint] = &cp

	return nil
}

type fakeCache struct {
	urls   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{urls: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeCache) GetURL(_ context.Context, fp string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}

	url, ok := f.urls[fp]
	if !ok {
		return "", errs.ErrRecordNotFound
	}

	return url, nil
}

func (f *fakeCache) SetURL(_ context.Context, fp, url string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}

	f.urls[fp] = url
	f.ttls[fp] = ttl

	return nil
}

func newArtifactUseCase(img *fakeImageRepo, meta *fakeMetadataRepo, cache *fakeCache) *ArtifactUseCase {
	return New(img, meta, cache, logger.New("error"))
}

func TestLookupCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.urls["fp1"] = "https://cdn.test/og_images/fp1.png"
	uc := newArtifactUseCase(newFakeImageRepo(), newFakeMetadataRepo(), cache)

	artifact, found, err := uc.Lookup(context.Background(), "fp1")

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", artifact.URL)
}

func TestLookupFreshMetadataRefillsCache(t *testing.T) {
	meta := newFakeMetadataRepo()
	meta.byFP["fp1"] = &entity.Artifact{
		Fingerprint: "fp1",
		URL:         "https://cdn.test/og_images/fp1.png",
		StoredAt:    time.Now().Add(-time.Hour),
		TTL:         24 * time.Hour,
	}
	cache := newFakeCache()
	uc := newArtifactUseCase(newFakeImageRepo(), meta, cache)

	artifact, found, err := uc.Lookup(context.Background(), "fp1")

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", artifact.URL)

	// The refill carries the remaining window, not a full TTL.
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", cache.urls["fp1"])
	assert.InDelta(t, float64(23*time.Hour), float64(cache.ttls["fp1"]), float64(time.Minute))
}

func TestLookupExpiredArtifactIsAMiss(t *testing.T) {
	meta := newFakeMetadataRepo()
	meta.byFP["fp1"] = &entity.Artifact{
		Fingerprint: "fp1",
		URL:         "https://cdn.test/og_images/fp1.png",
		StoredAt:    time.Now().Add(-25 * time.Hour),
		TTL:         24 * time.Hour,
	}
	uc := newArtifactUseCase(newFakeImageRepo(), meta, newFakeCache())

	_, found, err := uc.Lookup(context.Background(), "fp1")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestLookupUnknownFingerprintIsAMiss(t *testing.T) {
	uc := newArtifactUseCase(newFakeImageRepo(), newFakeMetadataRepo(), newFakeCache())

	_, found, err := uc.Lookup(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestLookupBrokenCacheDegradesToMetadata(t *testing.T) {
	meta := newFakeMetadataRepo()
	meta.byFP["fp1"] = &entity.Artifact{
		Fingerprint: "fp1",
		URL:         "https://cdn.test/og_images/fp1.png",
		StoredAt:    time.Now(),
		TTL:         time.Hour,
	}
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")
	uc := newArtifactUseCase(newFakeImageRepo(), meta, cache)

	artifact, found, err := uc.Lookup(context.Background(), "fp1")

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", artifact.URL)
}

func TestPut(t *testing.T) {
	img := newFakeImageRepo()
	meta := newFakeMetadataRepo()
	cache := newFakeCache()
	uc := newArtifactUseCase(img, meta, cache)

	artifact, err := uc.Put(context.Background(), "fp1", []byte("png-bytes"), time.Hour)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", artifact.URL)
	assert.Equal(t, time.Hour, artifact.TTL)

	assert.Equal(t, []byte("png-bytes"), img.uploads["og_images/fp1.png"])
	require.Contains(t, meta.byFP, "fp1")
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", cache.urls["fp1"])
}

func TestPutUploadFailure(t *testing.T) {
	img := newFakeImageRepo()
	img.uploadErr = errors.New("s3 down")
	meta := newFakeMetadataRepo()
	uc := newArtifactUseCase(img, meta, newFakeCache())

	_, err := uc.Put(context.Background(), "fp1", []byte("png-bytes"), time.Hour)

	require.Error(t, err)
	assert.Empty(t, meta.byFP)
}

func TestPutMetadataFailureRemovesBlob(t *testing.T) {
	img := newFakeImageRepo()
	meta := newFakeMetadataRepo()
	meta.upsertErr = errors.New("pg down")
	uc := newArtifactUseCase(img, meta, newFakeCache())

	_, err := uc.Put(context.Background(), "fp1", []byte("png-bytes"), time.Hour)

	require.Error(t, err)
	assert.Contains(t, img.deletes, "og_images/fp1.png")
	assert.Empty(t, img.uploads, "the orphaned blob must be removed")
}
