package repository

import (
	"context"

	"news-archiver/internal/domain/entity"
)

type CheckpointRepository interface {
	// Upsert records the outcome of the latest pass over a source.
	Upsert(ctx context.Context, cp entity.SourceCheckpoint) error
	// Get returns (nil, nil) when the source has never been polled.
	Get(ctx context.Context, sourceSlug string) (*entity.SourceCheckpoint, error)
	List(ctx context.Context) ([]*entity.SourceCheckpoint, error)
}
