package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffseg/internal/domain/media"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, s.EnsureDirs())
	return s
}

func TestWorkspace_MaterializeAndClose(t *testing.T) {
	s := newTestStore(t)
	ws, err := s.NewWorkspace()
	require.NoError(t, err)

	in, err := ws.Materialize(media.MediaBlob{Body: strings.NewReader("payload"), Format: "mov"})
	require.NoError(t, err)
	assert.Equal(t, "mov", in.Format)
	assert.True(t, strings.HasSuffix(in.Path, ".mov"))

	data, err := os.ReadFile(in.Path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	out, err := ws.Allocate("00000003_", "mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(out.Path), "00000003_"))
	assert.True(t, strings.HasSuffix(out.Path, ".mp4"))

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestWorkspace_IsolatedPerRequest(t *testing.T) {
	s := newTestStore(t)
	a, err := s.NewWorkspace()
	require.NoError(t, err)
	defer a.Close()
	b, err := s.NewWorkspace()
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Dir(), b.Dir())

	f, err := a.Allocate("x_", "mp4")
	require.NoError(t, err)
	assert.Error(t, b.Remove(f), "workspace must refuse foreign files")
	assert.NoError(t, a.Remove(f))
	assert.NoError(t, a.Remove(f), "removing twice is fine")
}

func TestStore_SweepStale(t *testing.T) {
	s := newTestStore(t)
	old, err := s.NewWorkspace()
	require.NoError(t, err)
	fresh, err := s.NewWorkspace()
	require.NoError(t, err)
	defer fresh.Close()

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Dir(), past, past))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root, "keep.txt"), nil, 0o600))

	removed, err := s.SweepStale(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old.Dir())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.Dir())
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Root, "keep.txt"))
	assert.NoError(t, err)
}

func TestStore_SweepMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	removed, err := s.SweepStale(time.Minute)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
