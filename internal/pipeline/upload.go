package pipeline

import (
	"context"
	"fmt"
	"log"
)

// UploadPhotos downloads each user photo and re-uploads it to the workflow
// service's own storage, returning the service-assigned references in photo
// order. Photos are handled sequentially — lists are small (≤20) — and the
// first failure aborts the stage.
func (p *Pipeline) UploadPhotos(ctx context.Context, photoURLs []string) ([]string, error) {
	if len(photoURLs) == 0 {
		return nil, fmt.Errorf("no photos to upload")
	}

	refs := make([]string, 0, len(photoURLs))
	for i, url := range photoURLs {
		data, err := p.store.FetchURL(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to download photo %d: %w", i, err)
		}

		ref, err := p.tasks.UploadFile(ctx, data, fmt.Sprintf("photo_%d.jpg", i))
		if err != nil {
			return nil, fmt.Errorf("failed to upload photo %d: %w", i, err)
		}

		refs = append(refs, ref)
	}

	log.Printf("[Pipeline] Uploaded %d photos to workflow storage", len(refs))
	return refs, nil
}
