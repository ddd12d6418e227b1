package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a render job through its lifecycle. Transitions are
// monotonic: pending -> processing -> {completed, failed}. Both terminal
// states are final; the store refuses to move a job out of them.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// StringSlice is a custom type for PostgreSQL JSONB columns holding a list
// of strings (the job's ordered photo URLs).
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
	return json.Unmarshal(bytes, s)
}

// Job is one photo-set-to-film render request. The ordered photo URLs and
// style are fixed at creation; the pipeline only ever writes status,
// result_url, error_message and completed_at.
type Job struct {
	ID           uuid.UUID   `json:"id"`
	PhotoURLs    StringSlice `json:"photo_urls"`
	Style        string      `json:"style"`
	Status       JobStatus   `json:"status"`
	ResultURL    *string     `json:"result_url,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// DTOs for API responses

type CreateJobRequest struct {
	PhotoURLs []string `json:"photo_urls"`
	Style     *string  `json:"style,omitempty"` // Default style applied when omitted
}

type CreateJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

type ListJobsResponse struct {
	Jobs   []Job `json:"jobs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
