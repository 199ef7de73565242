package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type DownloadRepository struct {
	pool *pgxpool.Pool
}

func NewDownloadRepository(pool *pgxpool.Pool) *DownloadRepository {
	return &DownloadRepository{pool: pool}
}

func (r *DownloadRepository) CreateJob(ctx context.Context, job domain.DownloadJob) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO download_jobs (id, user_id, status, total_videos, completed_videos)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, job.UserID, job.Status, job.TotalVideos, job.CompletedVideos)
	return err
}

func (r *DownloadRepository) GetJob(ctx context.Context, jobID string) (domain.DownloadJob, error) {
	var j domain.DownloadJob
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, total_videos, completed_videos,
		       current_video_title, current_video_progress, created_at, updated_at
		FROM download_jobs
		WHERE id=$1
	`, jobID).Scan(&j.ID, &j.UserID, &j.Status, &j.TotalVideos, &j.CompletedVideos,
		&j.CurrentVideoTitle, &j.CurrentVideoProgress, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return j, domain.ErrNotFound
	}
	return j, err
}

func (r *DownloadRepository) SetJobStatus(ctx context.Context, jobID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE download_jobs SET status=$2, updated_at=NOW() WHERE id=$1
	`, jobID, status)
	return err
}

func (r *DownloadRepository) UpdateJobCurrent(ctx context.Context, jobID string, title *string, progress float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE download_jobs
		SET current_video_title=$2, current_video_progress=$3, updated_at=NOW()
		WHERE id=$1
	`, jobID, title, progress)
	return err
}

func (r *DownloadRepository) SetJobCompletedCount(ctx context.Context, jobID string, completed int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE download_jobs SET completed_videos=$2, updated_at=NOW() WHERE id=$1
	`, jobID, completed)
	return err
}

// FinishJob records the terminal status and clears the current-item detail.
func (r *DownloadRepository) FinishJob(ctx context.Context, jobID, status string, progress float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE download_jobs
		SET status=$2, current_video_title=NULL, current_video_progress=$3, updated_at=NOW()
		WHERE id=$1
	`, jobID, status, progress)
	return err
}

func (r *DownloadRepository) InsertVideo(ctx context.Context, v domain.DownloadedVideo) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO downloaded_videos (job_id, user_id, title, original_url, filename, file_path, file_size, platform, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, v.JobID, v.UserID, v.Title, v.OriginalURL, v.Filename, v.FilePath, v.FileSize, v.Platform, v.Status, v.ErrorMessage)
	return err
}

func (r *DownloadRepository) ListVideosByJob(ctx context.Context, jobID string) ([]domain.DownloadedVideo, error) {
	return r.listVideos(ctx, `
		SELECT id, job_id, user_id, title, original_url, filename, file_path, file_size, platform, status, error_message, created_at
		FROM downloaded_videos
		WHERE job_id=$1
		ORDER BY created_at ASC
	`, jobID)
}

func (r *DownloadRepository) ListSuccessfulVideosByUser(ctx context.Context, userID string) ([]domain.DownloadedVideo, error) {
	return r.listVideos(ctx, `
		SELECT id, job_id, user_id, title, original_url, filename, file_path, file_size, platform, status, error_message, created_at
		FROM downloaded_videos
		WHERE user_id=$1 AND status='success'
		ORDER BY created_at DESC
	`, userID)
}

func (r *DownloadRepository) listVideos(ctx context.Context, query string, args ...any) ([]domain.DownloadedVideo, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.DownloadedVideo, 0)
	for rows.Next() {
		var v domain.DownloadedVideo
		if err := rows.Scan(&v.ID, &v.JobID, &v.UserID, &v.Title, &v.OriginalURL, &v.Filename, &v.FilePath,
			&v.FileSize, &v.Platform, &v.Status, &v.ErrorMessage, &v.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}
