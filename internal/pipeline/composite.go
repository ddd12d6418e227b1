package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/reelworks/keepsake/internal/compositor"
	"github.com/reelworks/keepsake/internal/storage"
	"github.com/reelworks/keepsake/internal/styles"
)

// ComposeFinal downloads the clips into a scratch workspace, runs the
// cross-fade concat pass and — when the style resolves a background track —
// the audio-mix pass, then uploads the finished film and returns its public
// URL. The workspace is removed on every exit path.
func (p *Pipeline) ComposeFinal(ctx context.Context, jobID string, clipURLs []string, styleID string) (string, error) {
	if len(clipURLs) == 0 {
		return "", fmt.Errorf("no clips to compose")
	}

	ws, err := compositor.NewWorkspace(p.cfg.TempDir)
	if err != nil {
		return "", err
	}
	defer ws.Cleanup()

	clipPaths := make([]string, len(clipURLs))
	for i, url := range clipURLs {
		data, err := p.store.FetchURL(ctx, url)
		if err != nil {
			return "", fmt.Errorf("failed to download clip %d: %w", i, err)
		}
		path, err := ws.WriteFile(fmt.Sprintf("clip_%d.mp4", i), data)
		if err != nil {
			return "", err
		}
		clipPaths[i] = path
	}

	composedPath := ws.Path("composed.mp4")
	if err := p.composer.ComposeClips(ctx, clipPaths, composedPath); err != nil {
		return "", err
	}

	// The mix pass runs only when the style has a background track; an
	// absent track promotes the composed file as-is.
	finalPath := composedPath
	if track := styles.ResolveAudioTrack(p.cfg.MusicDir, styleID); track != "" {
		mixedPath := ws.Path("final.mp4")
		if err := p.composer.MixBackgroundTrack(ctx, composedPath, track, mixedPath); err != nil {
			return "", err
		}
		finalPath = mixedPath
	} else {
		log.Printf("[Pipeline] No background track for style %s, skipping mix pass", styleID)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		return "", fmt.Errorf("failed to read composed film: %w", err)
	}

	key := storage.ObjectPath(jobID, time.Now().UnixMilli(), "final.mp4")
	if err := p.store.Upload(ctx, key, data, "video/mp4"); err != nil {
		return "", fmt.Errorf("failed to upload final film: %w", err)
	}

	return p.store.GetPublicURL(key), nil
}
