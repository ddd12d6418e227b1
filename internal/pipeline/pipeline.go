package pipeline

import (
	"context"
	"time"

	"github.com/reelworks/keepsake/internal/services"
)

// Stage budgets and bounds. Remote generation is slow; the poll budgets are
// wall-clock deadlines after which a stage fails (the remote task may keep
// running unobserved — there is no cancellation).
const (
	storyboardPollBudget = 15 * time.Minute
	clipPollBudget       = 20 * time.Minute

	// At most this many clip submissions are in flight at once. A fixed
	// bound, not admission control.
	maxConcurrentSubmissions = 3

	// The storyboard workflow exposes exactly this many reference photo
	// slots; shorter photo lists cycle via modulo.
	referenceSlots = 10
)

// TaskRunner is the submit/poll/upload contract of the workflow service.
type TaskRunner interface {
	Submit(ctx context.Context, workflowID string, inputs []services.NodeInput) (string, error)
	PollUntilDone(ctx context.Context, taskID string, budget time.Duration) ([]services.TaskOutput, error)
	UploadFile(ctx context.Context, data []byte, filename string) (string, error)
}

// ObjectStore is the slice of the storage client the pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	FetchURL(ctx context.Context, url string) ([]byte, error)
	GetPublicURL(path string) string
}

// FrameSplitter cuts a storyboard into its 9 scene frames.
type FrameSplitter interface {
	Split(ctx context.Context, jobID, storyboardURL string) ([]string, error)
}

// Composer is the local two-pass media compositor.
type Composer interface {
	ComposeClips(ctx context.Context, clipPaths []string, outputPath string) error
	MixBackgroundTrack(ctx context.Context, videoPath, trackPath, outputPath string) error
}

// PromptEnhancer optionally rewrites the storyboard composition prompt.
// Failure is non-critical; the catalog prompt is used instead.
type PromptEnhancer interface {
	EnhanceComposition(ctx context.Context, styleID, basePrompt string, photoCount int) (string, error)
}

// ClipGenerator is the optional Veo backend for the video stage.
type ClipGenerator interface {
	GenerateClip(ctx context.Context, motionPrompt string, frameData []byte, frameMimeType string) ([]byte, error)
}

type Config struct {
	StoryboardWorkflowID string
	VideoWorkflowID      string
	MusicDir             string
	TempDir              string
}

// Pipeline holds the collaborators for the five render stages. One Pipeline
// serves all jobs; per-job state lives in stage arguments and the composite
// stage's scratch workspace.
type Pipeline struct {
	tasks    TaskRunner
	store    ObjectStore
	splitter FrameSplitter
	composer Composer
	enhancer PromptEnhancer // nil = catalog prompts used as-is
	clips    ClipGenerator  // nil = video workflow on the task runner
	cfg      Config
}

func New(tasks TaskRunner, store ObjectStore, splitter FrameSplitter, composer Composer, enhancer PromptEnhancer, clips ClipGenerator, cfg Config) *Pipeline {
	return &Pipeline{
		tasks:    tasks,
		store:    store,
		splitter: splitter,
		composer: composer,
		enhancer: enhancer,
		clips:    clips,
		cfg:      cfg,
	}
}
