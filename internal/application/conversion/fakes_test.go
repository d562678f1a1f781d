package conversion

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ffseg/internal/domain/media"
	"ffseg/internal/infrastructure/filesystem"
)

// stubTranscoder writes the duration it "encoded" into the output file so the
// stub prober can measure it back. Each call covers at most step seconds.
type stubTranscoder struct {
	total  float64
	step   float64
	failAt int

	mu   sync.Mutex
	jobs []media.TranscodeJob
}

func newStubTranscoder(total, step float64) *stubTranscoder {
	return &stubTranscoder{total: total, step: step, failAt: -1}
}

func (s *stubTranscoder) Transcode(_ context.Context, job media.TranscodeJob) error {
	s.mu.Lock()
	call := len(s.jobs)
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	if call == s.failAt {
		return errors.New("exit status 1")
	}
	d := math.Min(s.step, s.total-job.Offset)
	return os.WriteFile(job.OutputPath, []byte(strconv.FormatFloat(d, 'f', -1, 64)), 0o600)
}

func (s *stubTranscoder) Jobs() []media.TranscodeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.TranscodeJob(nil), s.jobs...)
}

// stubProber reports total for the materialized input and reads back the
// duration the stub transcoder stored in every segment.
type stubProber struct {
	total     float64
	sourceErr error
}

func (p *stubProber) Duration(_ context.Context, path string) (float64, error) {
	if strings.HasPrefix(filepath.Base(path), "input_") {
		return p.total, p.sourceErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(string(data), 64)
}

// blockingTranscoder never finishes on its own.
type blockingTranscoder struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingTranscoder() *blockingTranscoder {
	return &blockingTranscoder{started: make(chan struct{})}
}

func (b *blockingTranscoder) Transcode(ctx context.Context, _ media.TranscodeJob) error {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return ctx.Err()
}

func newTestStore(t *testing.T) *filesystem.Store {
	t.Helper()
	store := filesystem.NewStore(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, store.EnsureDirs())
	return store
}

func workspaceFactory(store *filesystem.Store) WorkspaceFactory {
	return func() (Workspace, error) {
		ws, err := store.NewWorkspace()
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
}

func newRequest(target string, maxBytes int64) media.SegmentationRequest {
	return media.SegmentationRequest{
		Source:          media.MediaBlob{Body: strings.NewReader("source media"), Format: "mov"},
		TargetFormat:    target,
		MaxSegmentBytes: maxBytes,
	}
}

// treeFiles lists every regular file below dir.
func treeFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
