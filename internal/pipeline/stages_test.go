package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reelworks/keepsake/internal/services"
)

// fakeRunner implements TaskRunner in memory. Task ids are derived from the
// image input so tests can trace a task back to the frame it animates even
// when submissions race.
type fakeRunner struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	submitted   [][]services.NodeInput
	submitErr   error
	pollErrs    map[string]error
	polled      []string
	emptyPoll   bool
}

func (f *fakeRunner) Submit(ctx context.Context, workflowID string, inputs []services.NodeInput) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.submitted = append(f.submitted, inputs)
	f.mu.Unlock()

	// Hold the slot long enough for sibling submissions to overlap.
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "task-" + inputs[0].FieldValue, nil
}

func (f *fakeRunner) PollUntilDone(ctx context.Context, taskID string, budget time.Duration) ([]services.TaskOutput, error) {
	f.mu.Lock()
	f.polled = append(f.polled, taskID)
	f.mu.Unlock()

	if err := f.pollErrs[taskID]; err != nil {
		return nil, err
	}
	if f.emptyPoll {
		return nil, nil
	}
	return []services.TaskOutput{{FileURL: "clip-" + taskID, OutputType: "video"}}, nil
}

func (f *fakeRunner) UploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	return "ref-" + filename, nil
}

// fakeStore implements ObjectStore in memory.
type fakeStore struct {
	mu       sync.Mutex
	fetchErr map[string]error
	uploads  map[string][]byte
}

func (f *fakeStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[path] = data
	return nil
}

func (f *fakeStore) FetchURL(ctx context.Context, url string) ([]byte, error) {
	if err := f.fetchErr[url]; err != nil {
		return nil, err
	}
	return []byte(url), nil
}

func (f *fakeStore) GetPublicURL(path string) string {
	return "https://cdn.example.com/" + path
}

// fakeComposer writes a recognizable file at each output path instead of
// running ffmpeg.
type fakeComposer struct {
	composedClips []string
	mixedTrack    string
	composeErr    error
}

func (f *fakeComposer) ComposeClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if f.composeErr != nil {
		return f.composeErr
	}
	f.composedClips = clipPaths
	return os.WriteFile(outputPath, []byte("composed"), 0o644)
}

func (f *fakeComposer) MixBackgroundTrack(ctx context.Context, videoPath, trackPath, outputPath string) error {
	f.mixedTrack = trackPath
	return os.WriteFile(outputPath, []byte("mixed"), 0o644)
}

func newTestPipeline(runner *fakeRunner, store *fakeStore, composer *fakeComposer, cfg Config) *Pipeline {
	return New(runner, store, nil, composer, nil, nil, cfg)
}

func TestUploadPhotosKeepsOrder(t *testing.T) {
	p := newTestPipeline(&fakeRunner{}, &fakeStore{}, nil, Config{})

	refs, err := p.UploadPhotos(context.Background(), []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"})
	if err != nil {
		t.Fatalf("UploadPhotos: %v", err)
	}
	want := []string{"ref-photo_0.jpg", "ref-photo_1.jpg", "ref-photo_2.jpg"}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("ref %d = %q, want %q", i, refs[i], want[i])
		}
	}
}

func TestUploadPhotosAbortsOnFirstFailure(t *testing.T) {
	store := &fakeStore{fetchErr: map[string]error{"https://a/2.jpg": errors.New("gone")}}
	p := newTestPipeline(&fakeRunner{}, store, nil, Config{})

	_, err := p.UploadPhotos(context.Background(), []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "photo 1") {
		t.Errorf("error %q does not name the failing photo", err)
	}
}

func TestGenerateStoryboardCyclesReferenceSlots(t *testing.T) {
	cases := []struct {
		name string
		refs []string
	}{
		{"three photos cycle", []string{"r0", "r1", "r2"}},
		{"ten photos fill directly", []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{}
			p := newTestPipeline(runner, &fakeStore{}, nil, Config{StoryboardWorkflowID: "wf-sb"})

			url, err := p.GenerateStoryboard(context.Background(), tc.refs, "romantic")
			if err != nil {
				t.Fatalf("GenerateStoryboard: %v", err)
			}
			if url == "" {
				t.Fatal("empty storyboard url")
			}

			inputs := runner.submitted[0]
			for slot := 0; slot < referenceSlots; slot++ {
				want := tc.refs[slot%len(tc.refs)]
				if inputs[slot].FieldValue != want {
					t.Errorf("slot %d = %q, want %q", slot, inputs[slot].FieldValue, want)
				}
				if inputs[slot].FieldName != "image" {
					t.Errorf("slot %d field = %q, want image", slot, inputs[slot].FieldName)
				}
			}
		})
	}
}

func TestGenerateStoryboardNoOutputs(t *testing.T) {
	runner := &fakeRunner{emptyPoll: true}
	p := newTestPipeline(runner, &fakeStore{}, nil, Config{})

	_, err := p.GenerateStoryboard(context.Background(), []string{"r0"}, "romantic")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no outputs") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateClipsOrderAndConcurrency(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestPipeline(runner, &fakeStore{}, nil, Config{VideoWorkflowID: "wf-clip"})

	frames := make([]string, 9)
	for i := range frames {
		frames[i] = fmt.Sprintf("https://cdn/frame_%d.jpg", i)
	}

	clips, err := p.GenerateClips(context.Background(), "job-1", frames, "romantic")
	if err != nil {
		t.Fatalf("GenerateClips: %v", err)
	}

	if runner.maxInFlight > maxConcurrentSubmissions {
		t.Errorf("observed %d concurrent submissions, limit is %d", runner.maxInFlight, maxConcurrentSubmissions)
	}

	// Clip urls must follow frame order regardless of submission order.
	for i, clip := range clips {
		want := fmt.Sprintf("clip-task-ref-frame_%d.jpg", i)
		if clip != want {
			t.Errorf("clip %d = %q, want %q", i, clip, want)
		}
	}

	// Polling happens after all submissions and in frame order.
	if len(runner.polled) != 9 {
		t.Fatalf("polled %d tasks, want 9", len(runner.polled))
	}
	for i, taskID := range runner.polled {
		want := fmt.Sprintf("task-ref-frame_%d.jpg", i)
		if taskID != want {
			t.Errorf("poll %d = %q, want %q", i, taskID, want)
		}
	}
}

func TestGenerateClipsPollFailureNamesFrame(t *testing.T) {
	runner := &fakeRunner{
		pollErrs: map[string]error{"task-ref-frame_2.jpg": errors.New("generation failed")},
	}
	p := newTestPipeline(runner, &fakeStore{}, nil, Config{})

	frames := []string{"https://cdn/f0", "https://cdn/f1", "https://cdn/f2", "https://cdn/f3"}
	_, err := p.GenerateClips(context.Background(), "job-1", frames, "romantic")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "clip 2") {
		t.Errorf("error %q does not name the failing clip", err)
	}
}

func TestComposeFinalSkipsMixWithoutTrack(t *testing.T) {
	store := &fakeStore{}
	composer := &fakeComposer{}
	p := newTestPipeline(&fakeRunner{}, store, composer, Config{
		MusicDir: t.TempDir(), // empty dir, no track files
		TempDir:  t.TempDir(),
	})

	url, err := p.ComposeFinal(context.Background(), "job-1", []string{"https://cdn/c0.mp4", "https://cdn/c1.mp4"}, "romantic")
	if err != nil {
		t.Fatalf("ComposeFinal: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/jobs/job-1/") {
		t.Errorf("unexpected final url %q", url)
	}
	if composer.mixedTrack != "" {
		t.Errorf("mix pass ran without a track: %q", composer.mixedTrack)
	}
	if len(composer.composedClips) != 2 {
		t.Errorf("composed %d clips, want 2", len(composer.composedClips))
	}

	var stored []byte
	for key, data := range store.uploads {
		if strings.HasSuffix(key, "final.mp4") {
			stored = data
		}
	}
	if string(stored) != "composed" {
		t.Errorf("uploaded %q, want the composed file", stored)
	}
}

func TestComposeFinalMixesWhenTrackExists(t *testing.T) {
	musicDir := t.TempDir()
	trackPath := filepath.Join(musicDir, "romantic.mp3")
	if err := os.WriteFile(trackPath, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{}
	composer := &fakeComposer{}
	p := newTestPipeline(&fakeRunner{}, store, composer, Config{
		MusicDir: musicDir,
		TempDir:  t.TempDir(),
	})

	_, err := p.ComposeFinal(context.Background(), "job-1", []string{"https://cdn/c0.mp4"}, "romantic")
	if err != nil {
		t.Fatalf("ComposeFinal: %v", err)
	}
	if composer.mixedTrack != trackPath {
		t.Errorf("mixed track %q, want %q", composer.mixedTrack, trackPath)
	}

	var stored []byte
	for key, data := range store.uploads {
		if strings.HasSuffix(key, "final.mp4") {
			stored = data
		}
	}
	if string(stored) != "mixed" {
		t.Errorf("uploaded %q, want the mixed file", stored)
	}
}

func TestComposeFinalCleansWorkspace(t *testing.T) {
	tempDir := t.TempDir()
	p := newTestPipeline(&fakeRunner{}, &fakeStore{}, &fakeComposer{composeErr: errors.New("ffmpeg exploded")}, Config{
		TempDir: tempDir,
	})

	_, err := p.ComposeFinal(context.Background(), "job-1", []string{"https://cdn/c0.mp4"}, "romantic")
	if err == nil {
		t.Fatal("expected error")
	}

	entries, readErr := os.ReadDir(tempDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("workspace left behind: %v", entries)
	}
}
