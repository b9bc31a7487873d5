package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/pkg/postgres"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

const (
	// Table
	artifactsTable = "artifacts"

	// Columns
	artifactFingerprintColumn = "fingerprint"
	artifactURLColumn         = "url"
	artifactStoredAtColumn    = "stored_at"
	artifactTTLSecondsColumn  = "ttl_seconds"
)

// ArtifactMetadataRepo holds one row per fingerprint, the most recent
// successful render. Staleness never mutates a row in place; a newer Put
// simply overwrites it.
type ArtifactMetadataRepo struct {
	*postgres.Postgres
}

func NewArtifactMetadataRepo(pg *postgres.Postgres) *ArtifactMetadataRepo {
	return &ArtifactMetadataRepo{pg}
}

func (r *ArtifactMetadataRepo) Lookup(ctx context.Context, fingerprint string) (*entity.Artifact, error) {
	sql, args, err := r.Builder.
		Select(
			artifactFingerprintColumn,
			artifactURLColumn,
			artifactStoredAtColumn,
			artifactTTLSecondsColumn,
		).
		From(artifactsTable).
		Where(squirrel.Eq{artifactFingerprintColumn: fingerprint}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ArtifactMetadataRepo - Lookup - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var artifact entity.Artifact
	var ttlSeconds int64

	err = executor.QueryRow(ctx, sql, args...).Scan(
		&artifact.Fingerprint,
		&artifact.URL,
		&artifact.StoredAt,
		&ttlSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ArtifactMetadataRepo - Lookup: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ArtifactMetadataRepo - Lookup - executor.QueryRow: %w", err)
	}

	artifact.TTL = time.Duration(ttlSeconds) * time.Second

	return &artifact, nil
}

func (r *ArtifactMetadataRepo) Upsert(ctx context.Context, artifact *entity.Artifact) error {
	sql, args, err := r.Builder.
		Insert(artifactsTable).
		Columns(
			artifactFingerprintColumn,
			artifactURLColumn,
			artifactStoredAtColumn,
			artifactTTLSecondsColumn,
		).
		Values(
			artifact.Fingerprint,
			artifact.URL,
			artifact.StoredAt,
			int64(artifact.TTL/time.Second),
		).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s",
			artifactFingerprintColumn,
			artifactURLColumn, artifactURLColumn,
			artifactStoredAtColumn, artifactStoredAtColumn,
			artifactTTLSecondsColumn, artifactTTLSecondsColumn,
		)).
		ToSql()
	if err != nil {
		return fmt.Errorf("ArtifactMetadataRepo - Upsert - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ArtifactMetadataRepo - Upsert - executor.Exec: %w", err)
	}

	return nil
}
