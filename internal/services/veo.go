package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Veo clip generation service
// Alternative video-stage backend: animates one storyboard frame into a short
// clip via Google's Veo model instead of the workflow service's video
// workflow. Selected by configuration; the stage contract (frame in, clip
// bytes out, all-or-nothing) is identical.
// ---------------------------------------------------------------------------

const (
	defaultVeoModel    = "veo-3.1-generate-preview"
	veoPollInterval    = 10 * time.Second
	veoMaxPollDuration = 5 * time.Minute // Max time to wait for a single clip
)

type VeoService struct {
	apiKey string
	model  string
}

// NewVeoService creates a Veo clip generation service.
// model: the Veo model to use (empty string defaults to veo-3.1-generate-preview)
func NewVeoService(apiKey, model string) *VeoService {
	if model == "" {
		model = defaultVeoModel
	}
	return &VeoService{
		apiKey: apiKey,
		model:  model,
	}
}

// buildVeoClipPrompt wraps the style's motion prompt with direction that keeps
// the generated clip faithful to the storyboard frame it animates.
func buildVeoClipPrompt(motionPrompt string) string {
	return fmt.Sprintf(`%s

The input image is one frame of a photo-memory storyboard. Bring it to life with the motion described above while preserving the frame's composition, color palette, lighting and subjects exactly. Every person must remain recognizable; do not add, remove, or restyle anyone.

Keep the movement gentle and grounded. No cuts, no camera swoops, no style changes. Ambient sound only, no dialogue.`, motionPrompt)
}

// GenerateClip animates a storyboard frame into a short clip and returns the
// raw video bytes (MP4). The async operation is polled internally with a
// fixed budget; this blocks the calling goroutine by design — the video stage
// processes frames in order.
func (s *VeoService) GenerateClip(ctx context.Context, motionPrompt string, frameData []byte, frameMimeType string) ([]byte, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	prompt := buildVeoClipPrompt(motionPrompt)

	firstFrame := &genai.Image{
		ImageBytes: frameData,
		MIMEType:   frameMimeType,
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:      "16:9",
		Resolution:       "1080p",
		PersonGeneration: "allow_adult",
		NumberOfVideos:   1,
	}

	log.Printf("[Veo] Starting clip generation (model=%s, promptLen=%d, frameSize=%d bytes)", s.model, len(prompt), len(frameData))

	operation, err := client.Models.GenerateVideos(ctx, s.model, prompt, firstFrame, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start clip generation: %w", err)
	}

	// Poll until done, cancelled, or timed out
	deadline := time.Now().Add(veoMaxPollDuration)
	pollCount := 0
	for !operation.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("clip generation timed out after %v (polled %d times)", veoMaxPollDuration, pollCount)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("clip generation cancelled: %w", ctx.Err())
		case <-time.After(veoPollInterval):
		}

		pollCount++
		operation, err = client.Operations.GetVideosOperation(ctx, operation, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to poll operation (attempt %d): %w", pollCount, err)
		}
	}

	if operation.Error != nil && len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return nil, fmt.Errorf("clip generation operation failed: %s", string(errJSON))
	}

	if operation.Response == nil {
		return nil, fmt.Errorf("no response in completed operation after %d polls (operation: %s)", pollCount, operation.Name)
	}

	if operation.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(operation.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(operation.Response.RAIMediaFilteredReasons, ", ")
		}
		return nil, fmt.Errorf("clip blocked by safety filters: %d video(s) filtered, reasons: %s", operation.Response.RAIMediaFilteredCount, reasons)
	}

	if len(operation.Response.GeneratedVideos) == 0 {
		return nil, fmt.Errorf("no videos in response after %d polls", pollCount)
	}

	video := operation.Response.GeneratedVideos[0]
	if video.Video == nil {
		return nil, fmt.Errorf("generated video object is nil")
	}

	downloadURI := genai.NewDownloadURIFromVideo(video.Video)
	videoBytes, err := client.Files.Download(ctx, downloadURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download generated clip: %w", err)
	}

	if len(videoBytes) == 0 {
		return nil, fmt.Errorf("downloaded clip is empty (0 bytes)")
	}

	log.Printf("[Veo] Clip generated (%d bytes, %d polls)", len(videoBytes), pollCount)
	return videoBytes, nil
}
