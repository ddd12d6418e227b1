package compositor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestBuildConcatFilterThreeClips(t *testing.T) {
	filter := buildConcatFilter(3)

	// Transition i starts at i*6 - i*1: 5s and 10s
	if !strings.Contains(filter, "xfade=transition=fade:duration=1:offset=5[vx1]") {
		t.Errorf("missing first transition at offset 5: %s", filter)
	}
	if !strings.Contains(filter, "xfade=transition=fade:duration=1:offset=10[vout]") {
		t.Errorf("missing second transition at offset 10: %s", filter)
	}

	if !strings.Contains(filter, "[0:a][1:a][2:a]concat=n=3:v=0:a=1[aout]") {
		t.Errorf("missing audio concat for 3 clips: %s", filter)
	}
}

func TestBuildConcatFilterTransitionCount(t *testing.T) {
	for _, n := range []int{2, 5, 9} {
		filter := buildConcatFilter(n)
		if got := strings.Count(filter, "xfade="); got != n-1 {
			t.Errorf("n=%d: expected %d transitions, got %d", n, n-1, got)
		}
		if !strings.Contains(filter, fmt.Sprintf("concat=n=%d:v=0:a=1[aout]", n)) {
			t.Errorf("n=%d: wrong audio concat: %s", n, filter)
		}
		if !strings.Contains(filter, "[vout]") {
			t.Errorf("n=%d: final video label missing: %s", n, filter)
		}
	}
}

// Each fade overlaps consecutive clips by one second, so the composed
// duration is shorter than the naive sum by (n-1)*fadeSeconds.
func TestTransitionOffsetsShortenTotalDuration(t *testing.T) {
	n := 3
	lastOffset := (n - 1) * (clipSeconds - fadeSeconds)
	total := lastOffset + clipSeconds
	naive := n * clipSeconds

	if naive-total != (n-1)*fadeSeconds {
		t.Errorf("total duration %ds should be %ds less than naive %ds",
			total, (n-1)*fadeSeconds, naive)
	}
}

func TestComposeSingleClipCopiesVerbatim(t *testing.T) {
	dir := t.TempDir()

	clipData := []byte("fake mp4 payload for the only clip")
	clipPath := dir + "/clip_0.mp4"
	if err := os.WriteFile(clipPath, clipData, 0644); err != nil {
		t.Fatal(err)
	}

	outPath := dir + "/out.mp4"
	c := New()
	if err := c.ComposeClips(context.Background(), []string{clipPath}, outPath); err != nil {
		t.Fatalf("single-clip compose failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, clipData) {
		t.Error("single-clip output must equal the input byte-for-byte")
	}
}

func TestComposeNoClips(t *testing.T) {
	c := New()
	if err := c.ComposeClips(context.Background(), nil, "/tmp/never.mp4"); err == nil {
		t.Fatal("expected error for empty clip list")
	}
}

func TestWorkspaceCleanup(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path, err := ws.WriteFile("clip_3.mp4", []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should exist before cleanup: %v", err)
	}

	ws.Cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("workspace should be gone after cleanup")
	}

	// Cleanup twice must not panic or fail the caller
	ws.Cleanup()
}
