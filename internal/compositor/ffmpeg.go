package compositor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Compositor
// Two-pass local composition of generated clips:
//   1. concat pass — chain pairwise cross-fades between consecutive clips'
//      video streams and concatenate their audio streams, one invocation
//   2. mix pass — trim/fade/attenuate the style's background track and mix
//      it under the clips' original audio, video copied untouched
// ---------------------------------------------------------------------------

const (
	// Per-clip duration the video workflow is configured to produce. The
	// cross-fade offsets assume this is uniform; if the workflow ever emits
	// variable-length clips the offsets misalign and each clip's real
	// duration must be probed instead.
	clipSeconds = 6

	// Cross-fade between consecutive clips
	fadeSeconds = 1

	// Background track: fade out over the last 5s, sit under the original audio
	bgmFadeSeconds = 5
	bgmVolume      = 0.2
	originalVolume = 0.8

	concatTimeout = 5 * time.Minute
	mixTimeout    = 2 * time.Minute
)

type Compositor struct {
	ffmpegBin  string
	ffprobeBin string
}

func New() *Compositor {
	return &Compositor{
		ffmpegBin:  "ffmpeg",
		ffprobeBin: "ffprobe",
	}
}

// ComposeClips renders the cross-fade concatenation of the given clips into
// outputPath. A single clip is copied verbatim — no transition, no re-encode.
func (c *Compositor) ComposeClips(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to compose")
	}

	if len(clipPaths) == 1 {
		log.Printf("[Compositor] Single clip, copying verbatim")
		return copyFile(clipPaths[0], outputPath)
	}

	filter := buildConcatFilter(len(clipPaths))
	log.Printf("[Compositor] Composing %d clips with %d cross-fades", len(clipPaths), len(clipPaths)-1)

	args := make([]string, 0, 2*len(clipPaths)+16)
	for _, path := range clipPaths {
		args = append(args, "-i", path)
	}
	args = append(args,
		"-filter_complex", filter,
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-y",
		outputPath,
	)

	return c.runFFmpeg(ctx, args, concatTimeout, "concat")
}

// MixBackgroundTrack mixes the style's background track under the composed
// film's audio. The track is trimmed to the film's duration, faded out over
// its last seconds, and attenuated; the video stream is copied untouched.
func (c *Compositor) MixBackgroundTrack(ctx context.Context, videoPath, trackPath, outputPath string) error {
	duration, err := c.ProbeDuration(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("failed to probe composed duration: %w", err)
	}

	fadeStart := duration - bgmFadeSeconds
	if fadeStart < 0 {
		fadeStart = 0
	}

	filter := fmt.Sprintf(
		"[1:a]atrim=0:%.3f,afade=t=out:st=%.3f:d=%d,volume=%.2f[bgm];"+
			"[0:a]volume=%.2f[orig];"+
			"[orig][bgm]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		duration, fadeStart, bgmFadeSeconds, bgmVolume, originalVolume,
	)

	log.Printf("[Compositor] Mixing background track (film=%.1fs, fade from %.1fs)", duration, fadeStart)

	args := []string{
		"-i", videoPath,
		"-i", trackPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-y",
		outputPath,
	}

	return c.runFFmpeg(ctx, args, mixTimeout, "mix")
}

// ProbeDuration returns a media file's duration in seconds.
func (c *Compositor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, c.ffprobeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// runFFmpeg executes ffmpeg with a bounded wall clock. Exceeding the budget
// surfaces as an explicit timeout error rather than a bare exit status.
func (c *Compositor) runFFmpeg(ctx context.Context, args []string, timeout time.Duration, pass string) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.ffmpegBin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg %s pass timed out after %v", pass, timeout)
		}
		return fmt.Errorf("ffmpeg %s pass failed: %w", pass, err)
	}

	return nil
}

// buildConcatFilter constructs the single filter graph for n > 1 clips:
// a chain of xfade transitions between consecutive video streams, plus a
// concat of all audio streams.
//
// With uniform clipSeconds-long clips, transition i starts where the visible
// portion of the first i clips ends: i*clipSeconds - i*fadeSeconds. Total
// output duration is n*clipSeconds - (n-1)*fadeSeconds.
func buildConcatFilter(n int) string {
	var sb strings.Builder

	// Video: [0:v][1:v]xfade[vx1]; [vx1][2:v]xfade[vx2]; ... last label [vout]
	prev := "[0:v]"
	for i := 1; i < n; i++ {
		offset := i*clipSeconds - i*fadeSeconds
		out := fmt.Sprintf("[vx%d]", i)
		if i == n-1 {
			out = "[vout]"
		}
		fmt.Fprintf(&sb, "%s[%d:v]xfade=transition=fade:duration=%d:offset=%d%s;",
			prev, i, fadeSeconds, offset, out)
		prev = out
	}

	// Audio: end-to-end concatenation of every clip's audio stream
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "[%d:a]", i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=0:a=1[aout]", n)

	return sb.String()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy clip: %w", err)
	}
	return out.Close()
}
