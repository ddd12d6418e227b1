package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reelworks/keepsake/internal/models"
)

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, photo_urls, style, status
		) VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.PhotoURLs, job.Style, job.Status,
	).Scan(&job.CreatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `
		SELECT
			id, photo_urls, style, status, result_url,
			error_message, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	job := &models.Job{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.PhotoURLs, &job.Style, &job.Status, &job.ResultURL,
		&job.ErrorMessage, &job.CreatedAt, &job.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListJobs returns jobs ordered by creation date (newest first).
// Supports optional status filter, limit, and offset for pagination.
func (db *DB) ListJobs(ctx context.Context, status string, limit, offset int) ([]models.Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, photo_urls, style, status, result_url,
			error_message, created_at, completed_at
		FROM jobs
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(
			&job.ID, &job.PhotoURLs, &job.Style, &job.Status, &job.ResultURL,
			&job.ErrorMessage, &job.CreatedAt, &job.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// CountJobs returns the total number of jobs, optionally filtered by status.
func (db *DB) CountJobs(ctx context.Context, status string) (int, error) {
	var (
		count int
		err   error
	)

	if status != "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = $1`, status).Scan(&count)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	return count, nil
}

// MarkProcessing moves a pending job into processing. The status guard keeps
// the transition monotonic: a terminal job is never resurrected by a retried
// delivery.
func (db *DB) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1
		WHERE id = $2 AND status NOT IN ($3, $4)
	`
	_, err := db.ExecContext(ctx, query,
		models.JobStatusProcessing, id, models.JobStatusCompleted, models.JobStatusFailed)
	return err
}

// MarkCompleted records the final film URL and completion time.
func (db *DB) MarkCompleted(ctx context.Context, id uuid.UUID, resultURL string) error {
	query := `
		UPDATE jobs
		SET status = $1, result_url = $2, completed_at = $3
		WHERE id = $4 AND status NOT IN ($1, $5)
	`
	_, err := db.ExecContext(ctx, query,
		models.JobStatusCompleted, resultURL, time.Now(), id, models.JobStatusFailed)
	return err
}

// MarkFailed records the first stage error as the job's terminal state.
func (db *DB) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, completed_at = $3
		WHERE id = $4 AND status NOT IN ($1, $5)
	`
	_, err := db.ExecContext(ctx, query,
		models.JobStatusFailed, errorMessage, time.Now(), id, models.JobStatusCompleted)
	return err
}
