package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/reelworks/keepsake/internal/services"
	"github.com/reelworks/keepsake/internal/styles"
)

// Node ids of the storyboard workflow graph. The ten load-image nodes take
// the reference photos; the remaining nodes carry the prompts and the fixed
// output parameters.
var referenceNodeIDs = [referenceSlots]string{
	"101", "102", "103", "104", "105", "106", "107", "108", "109", "110",
}

const (
	storyboardPromptNodeID     = "120"
	storyboardQualityNodeID    = "121"
	storyboardAspectNodeID     = "130"
	storyboardResolutionNodeID = "131"
	storyboardStepsNodeID      = "132"

	storyboardAspect     = "1:1"
	storyboardResolution = "2048"
	storyboardSteps      = "30"
)

// GenerateStoryboard submits one storyboard workflow run and returns the
// generated storyboard image URL. The workflow's 10 reference slots are
// filled by cycling through the uploaded refs with modulo indexing when
// fewer than 10 photos were provided.
func (p *Pipeline) GenerateStoryboard(ctx context.Context, refs []string, styleID string) (string, error) {
	if len(refs) == 0 {
		return "", fmt.Errorf("no photo references for storyboard")
	}

	prompts := styles.Lookup(styleID)

	composition := prompts.Composition
	if p.enhancer != nil {
		enhanced, err := p.enhancer.EnhanceComposition(ctx, styleID, composition, len(refs))
		if err != nil {
			log.Printf("[Pipeline] Prompt enhancement failed, using catalog prompt: %v", err)
		} else {
			composition = enhanced
		}
	}

	inputs := make([]services.NodeInput, 0, referenceSlots+5)
	for slot := 0; slot < referenceSlots; slot++ {
		inputs = append(inputs, services.NodeInput{
			NodeID:     referenceNodeIDs[slot],
			FieldName:  "image",
			FieldValue: refs[slot%len(refs)],
		})
	}
	inputs = append(inputs,
		services.NodeInput{NodeID: storyboardPromptNodeID, FieldName: "text", FieldValue: composition},
		services.NodeInput{NodeID: storyboardQualityNodeID, FieldName: "text", FieldValue: prompts.Quality},
		services.NodeInput{NodeID: storyboardAspectNodeID, FieldName: "aspect_ratio", FieldValue: storyboardAspect},
		services.NodeInput{NodeID: storyboardResolutionNodeID, FieldName: "resolution", FieldValue: storyboardResolution},
		services.NodeInput{NodeID: storyboardStepsNodeID, FieldName: "steps", FieldValue: storyboardSteps},
	)

	taskID, err := p.tasks.Submit(ctx, p.cfg.StoryboardWorkflowID, inputs)
	if err != nil {
		return "", fmt.Errorf("failed to submit storyboard task: %w", err)
	}

	log.Printf("[Pipeline] Storyboard task %s submitted (style=%s, %d photos)", taskID, styleID, len(refs))

	outputs, err := p.tasks.PollUntilDone(ctx, taskID, storyboardPollBudget)
	if err != nil {
		return "", err
	}

	if len(outputs) == 0 {
		return "", fmt.Errorf("storyboard task %s produced no outputs", taskID)
	}

	return outputs[0].FileURL, nil
}

// SplitStoryboard cuts the storyboard into its 9 scene frames.
func (p *Pipeline) SplitStoryboard(ctx context.Context, jobID, storyboardURL string) ([]string, error) {
	frames, err := p.splitter.Split(ctx, jobID, storyboardURL)
	if err != nil {
		return nil, err
	}

	if len(frames) != 9 {
		return nil, fmt.Errorf("expected 9 frames from storyboard split, got %d", len(frames))
	}

	return frames, nil
}
