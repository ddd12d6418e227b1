package worker

import (
	"context"
	"log"
	"time"

	"github.com/reelworks/keepsake/internal/db"
	"github.com/reelworks/keepsake/internal/models"
	"github.com/reelworks/keepsake/internal/pipeline"
	"github.com/reelworks/keepsake/internal/queue"
)

// Worker consumes render tasks from Redis and hands each one to the
// orchestrator. A task carries only the job id; photo URLs and style are
// loaded from the job record so a task redelivered after a crash still sees
// the authoritative inputs.
type Worker struct {
	db           *db.DB
	queue        *queue.Queue
	orchestrator *pipeline.Orchestrator
}

func New(database *db.DB, q *queue.Queue, orch *pipeline.Orchestrator) *Worker {
	return &Worker{
		db:           database,
		queue:        q,
		orchestrator: orch,
	}
}

// Start begins processing render tasks with the given concurrency.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			task, err := w.queue.Dequeue(ctx, queue.QueueRenderFilm, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing from %s: %v", queue.QueueRenderFilm, err)
				continue
			}

			if task == nil {
				continue // No task available, retry
			}

			w.handleRenderFilm(ctx, task)
		}
	}
}

func (w *Worker) handleRenderFilm(ctx context.Context, task *queue.Task) {
	log.Printf("Processing task %s (job: %s)", task.ID, task.JobID)

	job, err := w.db.GetJob(ctx, task.JobID)
	if err != nil {
		log.Printf("Task %s: failed to load job %s: %v", task.ID, task.JobID, err)
		return
	}

	// A redelivered task for a finished job is a no-op, not an error.
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusFailed {
		log.Printf("Task %s: job %s already %s, skipping", task.ID, job.ID, job.Status)
		return
	}

	// The orchestrator records the outcome on the job; the worker only logs.
	if _, err := w.orchestrator.Run(ctx, job.ID, job.PhotoURLs, job.Style); err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		return
	}

	log.Printf("Job %s completed successfully", job.ID)
}
