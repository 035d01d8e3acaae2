package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"news-archiver/internal/domain/entity"
	"news-archiver/internal/repository"
	"news-archiver/internal/resilience/circuitbreaker"
)

type CheckpointRepo struct{ db circuitbreaker.Querier }

func NewCheckpointRepo(db circuitbreaker.Querier) repository.CheckpointRepository {
	return &CheckpointRepo{db: db}
}

func (repo *CheckpointRepo) Upsert(ctx context.Context, cp entity.SourceCheckpoint) error {
	defer observe("checkpoint_upsert", time.Now())

	const query = `
INSERT INTO source_checkpoints (source_slug, last_checked_at, articles_found)
VALUES ($1, $2, $3)
ON CONFLICT (source_slug) DO UPDATE SET
       last_checked_at = EXCLUDED.last_checked_at,
       articles_found  = EXCLUDED.articles_found`
	_, err := repo.db.ExecContext(ctx, query, cp.SourceSlug, cp.LastCheckedAt.UTC(), cp.ArticlesFound)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *CheckpointRepo) Get(ctx context.Context, sourceSlug string) (*entity.SourceCheckpoint, error) {
	const query = `
SELECT source_slug, last_checked_at, articles_found
FROM source_checkpoints
WHERE source_slug = $1`
	var cp entity.SourceCheckpoint
	err := repo.db.QueryRowContext(ctx, query, sourceSlug).
		Scan(&cp.SourceSlug, &cp.LastCheckedAt, &cp.ArticlesFound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &cp, nil
}

func (repo *CheckpointRepo) List(ctx context.Context) ([]*entity.SourceCheckpoint, error) {
	const query = `
SELECT source_slug, last_checked_at, articles_found
FROM source_checkpoints
ORDER BY source_slug`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]*entity.SourceCheckpoint, 0, 32)
	for rows.Next() {
		var cp entity.SourceCheckpoint
		if err := rows.Scan(&cp.SourceSlug, &cp.LastCheckedAt, &cp.ArticlesFound); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		result = append(result, &cp)
	}
	return result, rows.Err()
}
