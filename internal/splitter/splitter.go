package splitter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log"
	"time"

	// Storyboards arrive as PNG or JPEG depending on the workflow's save node
	_ "image/png"

	"github.com/reelworks/keepsake/internal/storage"
)

const (
	// The storyboard is a fixed 3x3 grid of scenes
	gridCols = 3
	gridRows = 3

	// FrameCount is the number of sub-images a split always yields.
	FrameCount = gridCols * gridRows

	jpegQuality = 90
)

// ObjectStore is the slice of the storage client the splitter needs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	FetchURL(ctx context.Context, url string) ([]byte, error)
	GetPublicURL(path string) string
}

// Splitter cuts one storyboard image into its 9 scene frames and persists
// each frame to durable storage.
type Splitter struct {
	store ObjectStore
}

func New(store ObjectStore) *Splitter {
	return &Splitter{store: store}
}

// Split downloads the storyboard, cuts it on a 3x3 grid, and uploads the 9
// frames in row-major order (index = row*3+col). The call is atomic from the
// caller's perspective: it returns either all 9 frame URLs or an error.
//
// Cell width/height are floored; remainder pixels at the right and bottom
// edges are discarded.
func (s *Splitter) Split(ctx context.Context, jobID, storyboardURL string) ([]string, error) {
	data, err := s.store.FetchURL(ctx, storyboardURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download storyboard: %w", err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode storyboard image: %w", err)
	}

	bounds := src.Bounds()
	log.Printf("[Splitter] Decoded storyboard (%s, %dx%d), cutting %dx%d grid",
		format, bounds.Dx(), bounds.Dy(), gridCols, gridRows)

	rects := gridRects(bounds)
	batch := time.Now().UnixMilli()

	urls := make([]string, 0, FrameCount)
	for i, rect := range rects {
		frame := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		draw.Draw(frame, frame.Bounds(), src, rect.Min, draw.Src)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode frame %d: %w", i, err)
		}

		path := storage.ObjectPath(jobID, batch, fmt.Sprintf("frame_%d.jpg", i))
		if err := s.store.Upload(ctx, path, buf.Bytes(), "image/jpeg"); err != nil {
			return nil, fmt.Errorf("failed to upload frame %d: %w", i, err)
		}

		urls = append(urls, s.store.GetPublicURL(path))
	}

	return urls, nil
}

// gridRects returns the 9 cell rectangles in row-major order. Cell sizes are
// floor(W/3) x floor(H/3) relative to the source bounds.
func gridRects(bounds image.Rectangle) []image.Rectangle {
	cellW := bounds.Dx() / gridCols
	cellH := bounds.Dy() / gridRows

	rects := make([]image.Rectangle, 0, FrameCount)
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			x0 := bounds.Min.X + col*cellW
			y0 := bounds.Min.Y + row*cellH
			rects = append(rects, image.Rect(x0, y0, x0+cellW, y0+cellH))
		}
	}
	return rects
}
