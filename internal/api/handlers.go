package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reelworks/keepsake/internal/db"
	"github.com/reelworks/keepsake/internal/models"
	"github.com/reelworks/keepsake/internal/queue"
	"github.com/reelworks/keepsake/internal/styles"
)

// maxPhotos bounds the photo set per job. Ten fill the storyboard's
// reference slots exactly; above that, extra photos stop adding signal while
// upload time keeps growing.
const maxPhotos = 20

type Handler struct {
	db    *db.DB
	queue *queue.Queue
}

func NewHandler(database *db.DB, q *queue.Queue) *Handler {
	return &Handler{
		db:    database,
		queue: q,
	}
}

// CreateJob handles POST /v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Validate
	if len(req.PhotoURLs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one photo URL is required")
		return
	}
	if len(req.PhotoURLs) > maxPhotos {
		respondError(w, http.StatusBadRequest, "Too many photos (max "+strconv.Itoa(maxPhotos)+")")
		return
	}
	for _, url := range req.PhotoURLs {
		if strings.TrimSpace(url) == "" {
			respondError(w, http.StatusBadRequest, "Photo URLs must not be empty")
			return
		}
	}

	// Set defaults
	style := styles.DefaultStyle
	if req.Style != nil {
		if !styles.Known(*req.Style) {
			respondError(w, http.StatusBadRequest, "Unknown style. Allowed: "+strings.Join(styles.IDs(), ", "))
			return
		}
		style = *req.Style
	}

	job := &models.Job{
		ID:        uuid.New(),
		PhotoURLs: req.PhotoURLs,
		Style:     style,
		Status:    models.JobStatusPending,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueRenderFilm(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /v1/jobs
// Query params:
//   - status: filter by job status (pending, processing, completed, failed)
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.JobStatus(statusFilter) {
		case models.JobStatusPending, models.JobStatusProcessing,
			models.JobStatusCompleted, models.JobStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: pending, processing, completed, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountJobs(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count jobs")
		return
	}

	jobs, err := h.db.ListJobs(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	respondJSON(w, http.StatusOK, models.ListJobsResponse{
		Jobs:   jobs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ListStyles handles GET /v1/styles — the creative options for job creation.
func (h *Handler) ListStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"styles":  styles.IDs(),
		"default": styles.DefaultStyle,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
