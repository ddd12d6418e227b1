package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// JobStore is the slice of the job record store the orchestrator writes to.
type JobStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, resultURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// Stages is the five-stage render pipeline. *Pipeline implements it; tests
// substitute fakes.
type Stages interface {
	UploadPhotos(ctx context.Context, photoURLs []string) ([]string, error)
	GenerateStoryboard(ctx context.Context, refs []string, styleID string) (string, error)
	SplitStoryboard(ctx context.Context, jobID, storyboardURL string) ([]string, error)
	GenerateClips(ctx context.Context, jobID string, frameURLs []string, styleID string) ([]string, error)
	ComposeFinal(ctx context.Context, jobID string, clipURLs []string, styleID string) (string, error)
}

// Orchestrator drives one job through pending -> processing -> {completed,
// failed}. Stages run in strict order; the first failure is captured on the
// job record and propagated — no stage is retried here.
type Orchestrator struct {
	jobs   JobStore
	stages Stages
}

func NewOrchestrator(jobs JobStore, stages Stages) *Orchestrator {
	return &Orchestrator{
		jobs:   jobs,
		stages: stages,
	}
}

// Run executes the full pipeline for one job and returns the final film URL.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, photoURLs []string, styleID string) (string, error) {
	log.Printf("[Orchestrator] Job %s: starting (photos=%d, style=%s)", jobID, len(photoURLs), styleID)

	if err := o.jobs.MarkProcessing(ctx, jobID); err != nil {
		log.Printf("[Orchestrator] Warning: failed to mark job %s processing: %v", jobID, err)
	}

	id := jobID.String()

	refs, err := o.stages.UploadPhotos(ctx, photoURLs)
	if err != nil {
		return "", o.fail(ctx, jobID, fmt.Errorf("upload stage: %w", err))
	}

	storyboardURL, err := o.stages.GenerateStoryboard(ctx, refs, styleID)
	if err != nil {
		return "", o.fail(ctx, jobID, fmt.Errorf("storyboard stage: %w", err))
	}

	frameURLs, err := o.stages.SplitStoryboard(ctx, id, storyboardURL)
	if err != nil {
		return "", o.fail(ctx, jobID, fmt.Errorf("split stage: %w", err))
	}

	clipURLs, err := o.stages.GenerateClips(ctx, id, frameURLs, styleID)
	if err != nil {
		return "", o.fail(ctx, jobID, fmt.Errorf("video stage: %w", err))
	}

	finalURL, err := o.stages.ComposeFinal(ctx, id, clipURLs, styleID)
	if err != nil {
		return "", o.fail(ctx, jobID, fmt.Errorf("composite stage: %w", err))
	}

	// A completed job without a recorded result is a reportable bug, so a
	// store failure on this path propagates.
	if err := o.jobs.MarkCompleted(ctx, jobID, finalURL); err != nil {
		return "", fmt.Errorf("film rendered but failed to record result for job %s: %w", jobID, err)
	}

	log.Printf("[Orchestrator] Job %s: completed (%s)", jobID, finalURL)
	return finalURL, nil
}

// fail marks the job failed with the stage error. The stage error must win:
// a store failure here is logged and swallowed so it never masks the cause.
func (o *Orchestrator) fail(ctx context.Context, jobID uuid.UUID, stageErr error) error {
	log.Printf("[Orchestrator] Job %s: %v", jobID, stageErr)

	if err := o.jobs.MarkFailed(ctx, jobID, stageErr.Error()); err != nil {
		log.Printf("[Orchestrator] Warning: failed to record failure for job %s: %v", jobID, err)
	}

	return stageErr
}
