package conversion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ffseg/internal/domain/media"
	applog "ffseg/internal/log"
)

// Engine splits a source into sequential segments by alternating transcode
// and probe calls. Each step starts where the measured output of the previous
// one ended, so segments are produced strictly one after another.
type Engine struct {
	prober     Prober
	transcoder Transcoder
	logger     zerolog.Logger
}

// NewEngine creates a segmentation engine over the given ports.
func NewEngine(prober Prober, transcoder Transcoder, logger zerolog.Logger) *Engine {
	return &Engine{prober: prober, transcoder: transcoder, logger: logger}
}

// Segment splits job.Input into segments indexed 0..N-1. The input file is
// consumed. On error no segments are returned and every file it created is removed.
func (e *Engine) Segment(ctx context.Context, ws Workspace, job media.SegmentationJob) (segments []media.Segment, err error) {
	logger := applog.WithContext(ctx, e.logger)

	input := job.Input
	defer func() {
		if rmErr := ws.Remove(input); rmErr != nil {
			logger.Warn().Err(rmErr).Str(applog.FieldPath, input.Path).Msg("failed to remove input")
		}
	}()
	defer func() {
		if err == nil {
			return
		}
		for _, seg := range segments {
			_ = ws.Remove(seg.File)
		}
		segments = nil
	}()

	logger.Debug().Str(applog.FieldEvent, "probe.start").Str(applog.FieldPath, input.Path).Msg("probing source")
	total, err := e.prober.Duration(ctx, input.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &media.SegmentError{Index: media.SourceIndex, Kind: media.ErrProbeFailed, Err: err}
	}
	logger.Info().
		Str(applog.FieldEvent, "probe.done").
		Str(applog.FieldFormat, input.Format).
		Float64(applog.FieldTotal, total).
		Msg("source probed")

	offset := 0.0
	for index := 0; offset < total; index++ {
		if err := ctx.Err(); err != nil {
			return segments, err
		}

		out, err := ws.Allocate(fmt.Sprintf("%08d_", index), job.TargetFormat)
		if err != nil {
			return segments, fmt.Errorf("allocate segment %d: %w", index, err)
		}
		segments = append(segments, media.Segment{Index: index, File: out})

		job := media.TranscodeJob{
			InputPath:  input.Path,
			OutputPath: out.Path,
			Offset:     offset,
			Format:     job.TargetFormat,
			MaxBytes:   job.MaxSegmentBytes,
		}
		logger.Debug().
			Str(applog.FieldEvent, "transcode.start").
			Int(applog.FieldIndex, index).
			Float64(applog.FieldOffset, offset).
			Int64(applog.FieldMaxBytes, job.MaxBytes).
			Msg("transcoding segment")
		if err := e.transcoder.Transcode(ctx, job); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return segments, ctxErr
			}
			return segments, &media.SegmentError{Index: index, Kind: media.ErrTranscodeFailed, Err: err}
		}

		duration, err := e.prober.Duration(ctx, out.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return segments, ctxErr
			}
			return segments, &media.SegmentError{Index: index, Kind: media.ErrProbeFailed, Err: err}
		}
		segments[index].Duration = duration
		logger.Debug().
			Str(applog.FieldEvent, "transcode.done").
			Int(applog.FieldIndex, index).
			Float64(applog.FieldDuration, duration).
			Msg("segment measured")

		// A non-positive measurement would leave the cursor where it is forever.
		if duration <= 0 {
			return segments, &media.SegmentError{
				Index: index,
				Kind:  media.ErrNoProgress,
				Err:   fmt.Errorf("measured %gs at offset %gs of %gs", duration, offset, total),
			}
		}
		offset += duration
	}

	logger.Info().
		Str(applog.FieldEvent, "segment.done").
		Int(applog.FieldSegments, len(segments)).
		Float64(applog.FieldOffset, offset).
		Float64(applog.FieldTotal, total).
		Msg("segmentation finished")
	return segments, nil
}
