package persistent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/pkg/postgres"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

const (
	// Table
	screenshotsTable = "screenshots"

	// Columns
	screenshotIDColumn           = "id"
	screenshotFingerprintColumn  = "fingerprint"
	screenshotURLColumn          = "url"
	screenshotWidthColumn        = "width"
	screenshotHeightColumn       = "height"
	screenshotS3PathColumn       = "s3_path"
	screenshotStatusColumn       = "status"
	screenshotErrorMessageColumn = "error_message"
	screenshotCreatedAtColumn    = "created_at"
	screenshotUpdatedAtColumn    = "updated_at"
	screenshotExpiresAtColumn    = "expires_at"

	// Unique constraint violation
	pgUniqueViolationCode = "23505"

	// Failure reasons are persisted truncated, long stack-ish messages add
	// nothing past this point.
	maxErrorMessageLen = 500
)

var screenshotColumns = []string{
	screenshotIDColumn,
	screenshotFingerprintColumn,
	screenshotURLColumn,
	screenshotWidthColumn,
	screenshotHeightColumn,
	screenshotS3PathColumn,
	screenshotStatusColumn,
	screenshotErrorMessageColumn,
	screenshotCreatedAtColumn,
	screenshotUpdatedAtColumn,
	screenshotExpiresAtColumn,
}

// ScreenshotRepo is the task ledger over postgres. The "single active task
// per fingerprint" invariant is enforced by a partial unique index on
// fingerprint WHERE status IN ('pending', 'processing'), which turns a lost
// creation race into a unique violation instead of a duplicate task.
type ScreenshotRepo struct {
	*postgres.Postgres
}

func NewScreenshotRepo(pg *postgres.Postgres) *ScreenshotRepo {
	return &ScreenshotRepo{pg}
}

func (r *ScreenshotRepo) CreateIfAbsent(ctx context.Context, task *entity.Screenshot) error {
	sql, args, err := r.Builder.
		Insert(screenshotsTable).
		Columns(
			screenshotIDColumn,
			screenshotFingerprintColumn,
			screenshotURLColumn,
			screenshotWidthColumn,
			screenshotHeightColumn,
			screenshotStatusColumn,
			screenshotCreatedAtColumn,
			screenshotUpdatedAtColumn,
			screenshotExpiresAtColumn,
		).
		Values(
			task.ID,
			task.Fingerprint,
			task.URL,
			task.Width,
			task.Height,
			task.Status,
			task.CreatedAt,
			task.UpdatedAt,
			task.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("ScreenshotRepo - CreateIfAbsent - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return fmt.Errorf("ScreenshotRepo - CreateIfAbsent: %w", errs.ErrTaskConflict)
		}
		return fmt.Errorf("ScreenshotRepo - CreateIfAbsent - executor.Exec: %w", err)
	}

	return nil
}

func (r *ScreenshotRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Screenshot, error) {
	sql, args, err := r.Builder.
		Select(screenshotColumns...).
		From(screenshotsTable).
		Where(squirrel.Eq{screenshotIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ScreenshotRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	task, err := scanScreenshot(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ScreenshotRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ScreenshotRepo - GetByID - executor.QueryRow: %w", err)
	}

	return task, nil
}

func (r *ScreenshotRepo) FindActiveByFingerprint(ctx context.Context, fingerprint string) (*entity.Screenshot, error) {
	sql, args, err := r.Builder.
		Select(screenshotColumns...).
		From(screenshotsTable).
		Where(squirrel.And{
			squirrel.Eq{screenshotFingerprintColumn: fingerprint},
			squirrel.Eq{screenshotStatusColumn: []entity.Status{entity.Pending, entity.Processing}},
		}).
		OrderBy(screenshotCreatedAtColumn + " DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ScreenshotRepo - FindActiveByFingerprint - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	task, err := scanScreenshot(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ScreenshotRepo - FindActiveByFingerprint: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ScreenshotRepo - FindActiveByFingerprint - executor.QueryRow: %w", err)
	}

	return task, nil
}

func (r *ScreenshotRepo) ClaimPending(ctx context.Context, limit int) ([]*entity.Screenshot, error) {
	// SKIP LOCKED keeps several pool instances from claiming the same rows;
	// the flip to processing and the read happen in one statement, so a
	// claimed task has exactly one owner.
	sql, args, err := r.Builder.
		Update(screenshotsTable).
		Set(screenshotStatusColumn, entity.Processing).
		Set(screenshotUpdatedAtColumn, time.Now()).
		Where(squirrel.Expr(
			screenshotIDColumn+` IN (
				SELECT `+screenshotIDColumn+`
				FROM `+screenshotsTable+`
				WHERE `+screenshotStatusColumn+` = ?
				ORDER BY `+screenshotCreatedAtColumn+` ASC
				LIMIT ?
				FOR UPDATE SKIP LOCKED
			)`,
			entity.Pending, limit,
		)).
		Suffix("RETURNING " + strings.Join(screenshotColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ScreenshotRepo - ClaimPending - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ScreenshotRepo - ClaimPending - executor.Query: %w", err)
	}
	defer rows.Close()

	tasks := make([]*entity.Screenshot, 0, limit)
	for rows.Next() {
		task, err := scanScreenshot(rows)
		if err != nil {
			return nil, fmt.Errorf("ScreenshotRepo - ClaimPending - rows.Scan: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ScreenshotRepo - ClaimPending - rows.Err: %w", err)
	}

	return tasks, nil
}

func (r *ScreenshotRepo) MarkCompleted(ctx context.Context, id uuid.UUID, s3Path string) error {
	sql, args, err := r.Builder.
		Update(screenshotsTable).
		Set(screenshotStatusColumn, entity.Completed).
		Set(screenshotS3PathColumn, s3Path).
		Set(screenshotErrorMessageColumn, nil).
		Set(screenshotUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{screenshotIDColumn: id},
			squirrel.Eq{screenshotStatusColumn: entity.Processing},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ScreenshotRepo - MarkCompleted - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ScreenshotRepo - MarkCompleted - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ScreenshotRepo - MarkCompleted: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *ScreenshotRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if len(reason) > maxErrorMessageLen {
		reason = reason[:maxErrorMessageLen]
	}

	sql, args, err := r.Builder.
		Update(screenshotsTable).
		Set(screenshotStatusColumn, entity.Failed).
		Set(screenshotErrorMessageColumn, reason).
		Set(screenshotUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{screenshotIDColumn: id},
			squirrel.Eq{screenshotStatusColumn: entity.Processing},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ScreenshotRepo - MarkFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ScreenshotRepo - MarkFailed - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ScreenshotRepo - MarkFailed: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func scanScreenshot(row pgx.Row) (*entity.Screenshot, error) {
	var task entity.Screenshot

	err := row.Scan(
		&task.ID,
		&task.Fingerprint,
		&task.URL,
		&task.Width,
		&task.Height,
		&task.S3Path,
		&task.Status,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &task, nil
}
