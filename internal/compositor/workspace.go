package compositor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory exclusively owned by one composite run.
// It is removed on every exit path; cleanup failure is logged, never
// propagated.
type Workspace struct {
	dir string
}

func NewWorkspace(baseDir string) (*Workspace, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace base dir: %w", err)
		}
	}

	dir, err := os.MkdirTemp(baseDir, "composite-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Path returns the absolute path for a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteFile persists bytes into the workspace.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes the workspace. Safe to defer unconditionally.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Printf("[Compositor] Warning: failed to remove workspace %s: %v", w.dir, err)
	}
}
