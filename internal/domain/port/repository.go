package port

import (
	"context"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

type VideoRepository interface {
	Upsert(ctx context.Context, video *entity.Video) error
	FindByVideoID(ctx context.Context, videoID string) (*entity.Video, error)
	List(ctx context.Context) ([]*entity.Video, error)
}
