package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ffseg/internal/domain/media"
)

const workspacePrefix = "req-"

// Store manages the scratch root that request workspaces live under.
type Store struct {
	Root string
}

// NewStore creates filesystem adapter with configured scratch root.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// EnsureDirs creates the scratch root.
func (s *Store) EnsureDirs() error {
	return os.MkdirAll(s.Root, 0o700)
}

// NewWorkspace allocates an isolated directory for one request.
func (s *Store) NewWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp(s.Root, workspacePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// SweepStale removes workspaces older than maxAge, left behind by a process
// that died before it could clean up. It returns how many were removed.
func (s *Store) SweepStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspacePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Root, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Workspace is a request-scoped scratch directory. Every file it hands out
// lives inside it and is gone once Close returns.
type Workspace struct {
	dir       string
	closeOnce sync.Once
	closeErr  error
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Allocate creates an empty file named <prefix><random>.<format>.
func (w *Workspace) Allocate(prefix, format string) (media.ScratchFile, error) {
	f, err := os.CreateTemp(w.dir, prefix+"*."+format)
	if err != nil {
		return media.ScratchFile{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return media.ScratchFile{}, err
	}
	return media.ScratchFile{Path: f.Name(), Format: format}, nil
}

// Materialize streams the blob into a new scratch file tagged with its format.
func (w *Workspace) Materialize(blob media.MediaBlob) (media.ScratchFile, error) {
	f, err := os.CreateTemp(w.dir, "input_*."+blob.Format)
	if err != nil {
		return media.ScratchFile{}, err
	}
	if _, err := io.Copy(f, blob.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return media.ScratchFile{}, fmt.Errorf("write input: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return media.ScratchFile{}, err
	}
	return media.ScratchFile{Path: f.Name(), Format: blob.Format}, nil
}

// Create opens a new writable scratch file for results such as the archive.
func (w *Workspace) Create(prefix, format string) (*os.File, error) {
	return os.CreateTemp(w.dir, prefix+"*."+format)
}

// Remove deletes a single scratch file. Files outside the workspace are refused.
func (w *Workspace) Remove(file media.ScratchFile) error {
	if !isWithinDir(w.dir, file.Path) {
		return errors.New("file outside workspace")
	}
	if err := os.Remove(file.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close removes the workspace and everything in it. It is safe to call more than once.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = os.RemoveAll(w.dir)
	})
	return w.closeErr
}

func isWithinDir(basePath, targetPath string) bool {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return false
	}
	return true
}
