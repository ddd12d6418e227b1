package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeJobStore struct {
	processing  bool
	completed   string
	failed      string
	completeErr error
}

func (f *fakeJobStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	f.processing = true
	return nil
}

func (f *fakeJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, resultURL string) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = resultURL
	return nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.failed = errorMessage
	return nil
}

type fakeStages struct {
	clipsErr error
	calls    []string
}

func (f *fakeStages) UploadPhotos(ctx context.Context, photoURLs []string) ([]string, error) {
	f.calls = append(f.calls, "upload")
	return []string{"ref-0"}, nil
}

func (f *fakeStages) GenerateStoryboard(ctx context.Context, refs []string, styleID string) (string, error) {
	f.calls = append(f.calls, "storyboard")
	return "https://cdn/storyboard.png", nil
}

func (f *fakeStages) SplitStoryboard(ctx context.Context, jobID, storyboardURL string) ([]string, error) {
	f.calls = append(f.calls, "split")
	return []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8"}, nil
}

func (f *fakeStages) GenerateClips(ctx context.Context, jobID string, frameURLs []string, styleID string) ([]string, error) {
	f.calls = append(f.calls, "clips")
	if f.clipsErr != nil {
		return nil, f.clipsErr
	}
	return []string{"c0"}, nil
}

func (f *fakeStages) ComposeFinal(ctx context.Context, jobID string, clipURLs []string, styleID string) (string, error) {
	f.calls = append(f.calls, "compose")
	return "https://cdn/final.mp4", nil
}

func TestOrchestratorRunSuccess(t *testing.T) {
	jobs := &fakeJobStore{}
	stages := &fakeStages{}
	o := NewOrchestrator(jobs, stages)

	url, err := o.Run(context.Background(), uuid.New(), []string{"p0"}, "romantic")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if url != "https://cdn/final.mp4" {
		t.Errorf("final url = %q", url)
	}
	if !jobs.processing {
		t.Error("job never marked processing")
	}
	if jobs.completed != url {
		t.Errorf("recorded result = %q, want %q", jobs.completed, url)
	}
	if jobs.failed != "" {
		t.Errorf("job marked failed: %q", jobs.failed)
	}

	want := []string{"upload", "storyboard", "split", "clips", "compose"}
	if len(stages.calls) != len(want) {
		t.Fatalf("stage calls = %v, want %v", stages.calls, want)
	}
	for i := range want {
		if stages.calls[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, stages.calls[i], want[i])
		}
	}
}

func TestOrchestratorRunStageFailure(t *testing.T) {
	jobs := &fakeJobStore{}
	stages := &fakeStages{clipsErr: errors.New("provider rejected frame")}
	o := NewOrchestrator(jobs, stages)

	_, err := o.Run(context.Background(), uuid.New(), []string{"p0"}, "romantic")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "video stage") {
		t.Errorf("error %q does not name the stage", err)
	}
	if !strings.Contains(jobs.failed, "provider rejected frame") {
		t.Errorf("failure message %q missing the cause", jobs.failed)
	}
	if jobs.completed != "" {
		t.Errorf("job marked completed after failure: %q", jobs.completed)
	}
	for _, call := range stages.calls {
		if call == "compose" {
			t.Error("compose stage ran after the video stage failed")
		}
	}
}

func TestOrchestratorRunCompletionRecordFailure(t *testing.T) {
	jobs := &fakeJobStore{completeErr: errors.New("db down")}
	o := NewOrchestrator(jobs, &fakeStages{})

	_, err := o.Run(context.Background(), uuid.New(), []string{"p0"}, "romantic")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to record result") {
		t.Errorf("unexpected error: %v", err)
	}
}
