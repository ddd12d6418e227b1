package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reelworks/keepsake/internal/services"
	"github.com/reelworks/keepsake/internal/storage"
	"github.com/reelworks/keepsake/internal/styles"
)

// Node ids of the video workflow graph: one frame in, one animated clip out.
const (
	clipImageNodeID    = "20"
	clipPromptNodeID   = "21"
	clipDurationNodeID = "30"
	clipAspectNodeID   = "31"
	clipMotionNodeID   = "32"

	clipDurationSec  = "6"
	clipAspect       = "16:9"
	clipMotionWeight = "0.7"
)

// GenerateClips animates each storyboard frame into a short clip, returning
// clip URLs in frame order. Frames are first re-uploaded to the workflow
// service, then one video task is submitted per frame with at most
// maxConcurrentSubmissions submissions in flight. Polling starts only after
// every submission has returned a task id and proceeds task-by-task in
// submission order. Any failure or timeout aborts the stage — completed
// sibling clips are discarded, never salvaged.
func (p *Pipeline) GenerateClips(ctx context.Context, jobID string, frameURLs []string, styleID string) ([]string, error) {
	if len(frameURLs) == 0 {
		return nil, fmt.Errorf("no frames to animate")
	}

	motion := styles.Lookup(styleID).Motion

	if p.clips != nil {
		return p.generateClipsWithVeo(ctx, jobID, frameURLs, motion)
	}

	// Re-upload each frame to the workflow service's storage
	frameRefs := make([]string, len(frameURLs))
	for i, url := range frameURLs {
		data, err := p.store.FetchURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to download frame %d: %w", i, err)
		}
		ref, err := p.tasks.UploadFile(ctx, data, fmt.Sprintf("frame_%d.jpg", i))
		if err != nil {
			return nil, fmt.Errorf("failed to upload frame %d: %w", i, err)
		}
		frameRefs[i] = ref
	}

	// Submit one task per frame with a bounded number of submissions in
	// flight. Each goroutine writes only its own slot, so task ids land in
	// frame order regardless of completion order.
	taskIDs := make([]string, len(frameRefs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSubmissions)

	for i := range frameRefs {
		i := i
		g.Go(func() error {
			inputs := []services.NodeInput{
				{NodeID: clipImageNodeID, FieldName: "image", FieldValue: frameRefs[i]},
				{NodeID: clipPromptNodeID, FieldName: "text", FieldValue: motion},
				{NodeID: clipDurationNodeID, FieldName: "duration", FieldValue: clipDurationSec},
				{NodeID: clipAspectNodeID, FieldName: "aspect_ratio", FieldValue: clipAspect},
				{NodeID: clipMotionNodeID, FieldName: "motion_weight", FieldValue: clipMotionWeight},
			}

			taskID, err := p.tasks.Submit(gctx, p.cfg.VideoWorkflowID, inputs)
			if err != nil {
				return fmt.Errorf("failed to submit clip %d: %w", i, err)
			}

			taskIDs[i] = taskID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("[Pipeline] Submitted %d clip tasks, polling in order", len(taskIDs))

	// Poll sequentially in submission order
	clipURLs := make([]string, len(taskIDs))
	for i, taskID := range taskIDs {
		outputs, err := p.tasks.PollUntilDone(ctx, taskID, clipPollBudget)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		if len(outputs) == 0 {
			return nil, fmt.Errorf("clip task %s produced no outputs", taskID)
		}
		clipURLs[i] = outputs[0].FileURL
	}

	return clipURLs, nil
}

// generateClipsWithVeo is the alternative video-stage backend: each frame is
// animated by Veo and the resulting clip persisted to our own storage. Same
// ordering and all-or-nothing semantics as the workflow path.
func (p *Pipeline) generateClipsWithVeo(ctx context.Context, jobID string, frameURLs []string, motion string) ([]string, error) {
	batch := time.Now().UnixMilli()

	clipURLs := make([]string, len(frameURLs))
	for i, url := range frameURLs {
		data, err := p.store.FetchURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to download frame %d: %w", i, err)
		}

		clip, err := p.clips.GenerateClip(ctx, motion, data, "image/jpeg")
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}

		path := storage.ObjectPath(jobID, batch, fmt.Sprintf("clip_%d.mp4", i))
		if err := p.store.Upload(ctx, path, clip, "video/mp4"); err != nil {
			return nil, fmt.Errorf("failed to store clip %d: %w", i, err)
		}

		clipURLs[i] = p.store.GetPublicURL(path)
	}

	return clipURLs, nil
}
