package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/domain/port"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO processing_jobs (
			id, video_id, video_key, track_key, bundle_key, status,
			frame_count, file_size, duration_seconds, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.VideoID, job.VideoKey, job.TrackKey, job.BundleKey,
		string(job.Status), job.FrameCount, job.FileSize, job.Duration,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE processing_jobs SET
			status=$2, track_key=$3, bundle_key=$4, frame_count=$5,
			duration_seconds=$6, attempt=$7, error_message=$8,
			updated_at=$9, completed_at=$10
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.TrackKey, job.BundleKey,
		job.FrameCount, job.Duration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, video_id, video_key, track_key, bundle_key, status,
			frame_count, file_size, duration_seconds, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM processing_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.VideoID, &job.VideoKey, &job.TrackKey, &job.BundleKey,
		&status, &job.FrameCount, &job.FileSize, &job.Duration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Upsert(ctx context.Context, v *entity.Video) error {
	query := `
		INSERT INTO videos (
			video_id, title, video_key, track_key, frame_count, fps,
			duration_seconds, width, height, processed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (video_id) DO UPDATE SET
			title=EXCLUDED.title, video_key=EXCLUDED.video_key,
			track_key=EXCLUDED.track_key, frame_count=EXCLUDED.frame_count,
			fps=EXCLUDED.fps, duration_seconds=EXCLUDED.duration_seconds,
			width=EXCLUDED.width, height=EXCLUDED.height,
			processed_at=EXCLUDED.processed_at, updated_at=EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		v.VideoID, v.Title, v.VideoKey, v.TrackKey, v.FrameCount, v.FPS,
		v.DurationSecs, v.Width, v.Height, v.ProcessedAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByVideoID(ctx context.Context, videoID string) (*entity.Video, error) {
	query := `
		SELECT video_id, title, video_key, track_key, frame_count, fps,
			duration_seconds, width, height, processed_at, created_at, updated_at
		FROM videos WHERE video_id=$1`

	v := &entity.Video{}
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&v.VideoID, &v.Title, &v.VideoKey, &v.TrackKey, &v.FrameCount, &v.FPS,
		&v.DurationSecs, &v.Width, &v.Height, &v.ProcessedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return v, nil
}

func (r *VideoRepository) List(ctx context.Context) ([]*entity.Video, error) {
	query := `
		SELECT video_id, title, video_key, track_key, frame_count, fps,
			duration_seconds, width, height, processed_at, created_at, updated_at
		FROM videos ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*entity.Video
	for rows.Next() {
		v := &entity.Video{}
		err := rows.Scan(
			&v.VideoID, &v.Title, &v.VideoKey, &v.TrackKey, &v.FrameCount, &v.FPS,
			&v.DurationSecs, &v.Width, &v.Height, &v.ProcessedAt, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
