package styles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupKnownStyle(t *testing.T) {
	p := Lookup("vintage")
	if p.Composition == "" || p.Quality == "" || p.Motion == "" {
		t.Fatalf("vintage style has empty prompts: %+v", p)
	}
}

func TestLookupUnknownStyleFallsBack(t *testing.T) {
	def := Lookup(DefaultStyle)

	for _, id := range []string{"", "neon", "ROMANTIC", "does-not-exist"} {
		p := Lookup(id)
		if p != def {
			t.Errorf("Lookup(%q) = %+v, want default style prompts", id, p)
		}
		if p.Composition == "" || p.Quality == "" || p.Motion == "" {
			t.Errorf("Lookup(%q) returned empty prompt strings", id)
		}
	}
}

func TestResolveAudioTrack(t *testing.T) {
	dir := t.TempDir()

	trackPath := filepath.Join(dir, "romantic.mp3")
	if err := os.WriteFile(trackPath, []byte("not really mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := ResolveAudioTrack(dir, "romantic"); got != trackPath {
		t.Errorf("expected %s, got %q", trackPath, got)
	}

	// Unknown style falls back to the default style's track
	if got := ResolveAudioTrack(dir, "unknown-style"); got != trackPath {
		t.Errorf("expected fallback to default track %s, got %q", trackPath, got)
	}

	// Absent track is not an error — empty string means "skip the mix pass"
	if got := ResolveAudioTrack(dir, "vintage"); got != "" {
		t.Errorf("expected no track for vintage, got %q", got)
	}
}
