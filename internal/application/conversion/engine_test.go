package conversion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffseg/internal/domain/media"
)

func runEngine(t *testing.T, prober Prober, transcoder Transcoder, req media.SegmentationRequest) ([]media.Segment, string, error) {
	t.Helper()
	store := newTestStore(t)
	ws, err := store.NewWorkspace()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	segments, err := NewEngine(prober, transcoder, nopLogger()).Segment(context.Background(), ws, stageJob(t, ws, req))
	return segments, ws.Dir(), err
}

func stageJob(t *testing.T, ws Workspace, req media.SegmentationRequest) media.SegmentationJob {
	t.Helper()
	input, err := ws.Materialize(req.Source)
	require.NoError(t, err)
	return media.SegmentationJob{Input: input, TargetFormat: req.TargetFormat, MaxSegmentBytes: req.MaxSegmentBytes}
}

func TestEngine_SegmentsFollowMeasuredOffsets(t *testing.T) {
	tr := newStubTranscoder(25, 10)
	segments, dir, err := runEngine(t, &stubProber{total: 25}, tr, newRequest("mp4", 4096))
	require.NoError(t, err)

	require.Len(t, segments, 3)
	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, "mp4", seg.File.Format)
		assert.True(t, strings.HasPrefix(filepath.Base(seg.File.Path), fmt.Sprintf("%08d_", i)))
	}
	assert.Equal(t, []float64{10, 10, 5}, []float64{segments[0].Duration, segments[1].Duration, segments[2].Duration})

	jobs := tr.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []float64{0, 10, 20}, []float64{jobs[0].Offset, jobs[1].Offset, jobs[2].Offset})
	for _, job := range jobs {
		assert.Equal(t, int64(4096), job.MaxBytes)
		assert.Equal(t, "mp4", job.Format)
	}

	// Only the segments remain; the materialized input is gone.
	assert.Len(t, treeFiles(t, dir), 3)
}

func TestEngine_CoversSourceAndIndicesAreGapFree(t *testing.T) {
	for _, total := range []float64{1, 7, 60, 61} {
		for _, step := range []float64{1, 3, 59, 100} {
			t.Run(fmt.Sprintf("total=%v/step=%v", total, step), func(t *testing.T) {
				segments, _, err := runEngine(t, &stubProber{total: total}, newStubTranscoder(total, step), newRequest("mkv", 0))
				require.NoError(t, err)
				require.NotEmpty(t, segments)

				for i, seg := range segments {
					require.Equal(t, i, seg.Index)
				}
				assert.GreaterOrEqual(t, media.TotalDuration(segments), total)
				if step < total {
					assert.Greater(t, len(segments), 1)
				}
			})
		}
	}
}

func TestEngine_ZeroLengthSourceYieldsNoSegments(t *testing.T) {
	tr := newStubTranscoder(0, 10)
	segments, _, err := runEngine(t, &stubProber{total: 0}, tr, newRequest("mp4", 0))
	require.NoError(t, err)
	assert.Empty(t, segments)
	assert.Empty(t, tr.Jobs())
}

func TestEngine_SourceProbeFailure(t *testing.T) {
	tr := newStubTranscoder(10, 5)
	segments, dir, err := runEngine(t, &stubProber{sourceErr: errors.New("moov atom not found")}, tr, newRequest("mp4", 0))

	require.ErrorIs(t, err, media.ErrProbeFailed)
	var segErr *media.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, media.SourceIndex, segErr.Index)

	assert.Nil(t, segments)
	assert.Empty(t, tr.Jobs())
	assert.Empty(t, treeFiles(t, dir))
}

func TestEngine_TranscodeFailureDiscardsEarlierSegments(t *testing.T) {
	tr := newStubTranscoder(50, 10)
	tr.failAt = 2
	segments, dir, err := runEngine(t, &stubProber{total: 50}, tr, newRequest("mp4", 0))

	require.ErrorIs(t, err, media.ErrTranscodeFailed)
	var segErr *media.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 2, segErr.Index)

	assert.Nil(t, segments)
	assert.Len(t, tr.Jobs(), 3)
	assert.Empty(t, treeFiles(t, dir))
}

func TestEngine_NoProgressIsFatal(t *testing.T) {
	tr := newStubTranscoder(30, 0)
	segments, dir, err := runEngine(t, &stubProber{total: 30}, tr, newRequest("mp4", 1))

	require.ErrorIs(t, err, media.ErrNoProgress)
	var segErr *media.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, 0, segErr.Index)

	assert.Nil(t, segments)
	assert.Len(t, tr.Jobs(), 1)
	assert.Empty(t, treeFiles(t, dir))
}

func TestEngine_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ws, err := store.NewWorkspace()
	require.NoError(t, err)
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newStubTranscoder(10, 5)
	segments, err := NewEngine(&stubProber{total: 10}, tr, nopLogger()).Segment(ctx, ws, stageJob(t, ws, newRequest("mp4", 0)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, segments)
	assert.Empty(t, tr.Jobs())
	assert.Empty(t, treeFiles(t, ws.Dir()))
}
