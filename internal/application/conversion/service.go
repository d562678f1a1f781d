package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"ffseg/internal/domain/media"
	applog "ffseg/internal/log"
	"ffseg/internal/metrics"
)

// Options tunes a Service.
type Options struct {
	// MaxConcurrent bounds conversions running at once. Zero means NumCPU.
	MaxConcurrent int
	// RequestTimeout bounds one conversion. Zero disables the limit.
	RequestTimeout time.Duration
}

// Service runs one segmentation and packaging per request.
type Service struct {
	workspaces WorkspaceFactory
	engine     *Engine
	packer     Packer
	logger     zerolog.Logger

	slots   *semaphore.Weighted
	timeout time.Duration
}

// NewService creates a conversion use-case service with injected ports.
func NewService(workspaces WorkspaceFactory, engine *Engine, packer Packer, logger zerolog.Logger, opts Options) *Service {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Service{
		workspaces: workspaces,
		engine:     engine,
		packer:     packer,
		logger:     logger,
		slots:      semaphore.NewWeighted(int64(limit)),
		timeout:    opts.RequestTimeout,
	}
}

// Archive is a packed result backed by a scratch file. Close releases the
// file together with the request workspace.
type Archive struct {
	Size     int64
	Segments int
	Duration float64

	file *os.File
	ws   Workspace
}

func (a *Archive) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

// Close removes every scratch resource of the request.
func (a *Archive) Close() error {
	return errors.Join(a.file.Close(), a.ws.Close())
}

// Upload is a source staged in its own workspace, waiting for ConvertUpload.
type Upload struct {
	Format string

	input media.ScratchFile
	ws    Workspace
}

// Discard releases an upload that will not be converted.
func (u *Upload) Discard() error {
	return u.ws.Close()
}

// Stage writes the source into a fresh workspace. Read failures of the
// source keep their error chain, so a client fault stays a client fault.
func (s *Service) Stage(blob media.MediaBlob) (*Upload, error) {
	if blob.Body == nil {
		return nil, media.InvalidRequest("missing source body")
	}
	from, err := media.NormalizeFormat(blob.Format)
	if err != nil {
		return nil, media.InvalidRequest("source format: %v", err)
	}
	blob.Format = from

	ws, err := s.workspaces()
	if err != nil {
		return nil, err
	}
	input, err := ws.Materialize(blob)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	return &Upload{Format: from, input: input, ws: ws}, nil
}

// Convert stages req.Source and converts it. On error nothing of the
// request's scratch storage survives.
func (s *Service) Convert(ctx context.Context, req media.SegmentationRequest) (archive *Archive, err error) {
	start := time.Now()
	defer func() { s.observe(start, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	up, err := s.Stage(req.Source)
	if err != nil {
		return nil, err
	}
	return s.convert(ctx, up, req.TargetFormat, req.MaxSegmentBytes)
}

// ConvertUpload segments a staged upload and packs the result. It takes
// ownership of up: on error its workspace is released, on success the
// returned Archive owns it.
func (s *Service) ConvertUpload(ctx context.Context, up *Upload, target string, maxBytes int64) (archive *Archive, err error) {
	start := time.Now()
	defer func() { s.observe(start, err) }()
	return s.convert(ctx, up, target, maxBytes)
}

func (s *Service) convert(ctx context.Context, up *Upload, target string, maxBytes int64) (archive *Archive, err error) {
	start := time.Now()
	logger := applog.WithContext(ctx, s.logger)
	ws := up.ws
	defer func() {
		if err == nil {
			return
		}
		if closeErr := ws.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("failed to release workspace")
		}
	}()

	job := media.SegmentationJob{Input: up.input, TargetFormat: target, MaxSegmentBytes: maxBytes}
	if err := job.ValidateTarget(); err != nil {
		return nil, err
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)
	metrics.ConversionsInFlight.Inc()
	defer metrics.ConversionsInFlight.Dec()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	segments, err := s.engine.Segment(ctx, ws, job)
	if err != nil {
		return nil, err
	}

	file, err := ws.Create("archive_", "tar.gz")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}
	archive, err = s.pack(ctx, ws, file, segments)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	metrics.SegmentsProduced.Add(float64(archive.Segments))
	metrics.ArchiveBytes.Observe(float64(archive.Size))
	logger.Info().
		Str(applog.FieldEvent, "conversion.done").
		Str(applog.FieldFormat, up.Format).
		Str(applog.FieldTargetFormat, job.TargetFormat).
		Int(applog.FieldSegments, archive.Segments).
		Int64(applog.FieldBytes, archive.Size).
		Dur(applog.FieldElapsed, time.Since(start)).
		Msg("conversion finished")
	return archive, nil
}

func (s *Service) observe(start time.Time, err error) {
	result := resultOf(err)
	metrics.ConversionsTotal.WithLabelValues(string(result)).Inc()
	metrics.ConversionDuration.WithLabelValues(string(result)).Observe(time.Since(start).Seconds())
}

func (s *Service) pack(ctx context.Context, ws Workspace, file *os.File, segments []media.Segment) (*Archive, error) {
	if err := s.packer.Pack(ctx, file, segments); err != nil {
		return nil, err
	}

	// The archive holds the segment bytes now.
	for _, seg := range segments {
		_ = ws.Remove(seg.File)
	}

	size, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}

	return &Archive{
		Size:     size,
		Segments: len(segments),
		Duration: media.TotalDuration(segments),
		file:     file,
		ws:       ws,
	}, nil
}

func resultOf(err error) media.Result {
	switch {
	case err == nil:
		return media.ResultOK
	case errors.Is(err, media.ErrInvalidRequest):
		return media.ResultClientError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return media.ResultCanceled
	default:
		return media.ResultFailed
	}
}
