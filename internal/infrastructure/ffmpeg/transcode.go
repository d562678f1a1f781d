package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"ffseg/internal/domain/media"
)

// Transcoder converts a slice of the input starting at an offset with ffmpeg.
type Transcoder struct {
	Binary string
	Logger zerolog.Logger
}

// NewTranscoder creates an ffmpeg adapter. An empty binary defaults to "ffmpeg".
func NewTranscoder(binary string, logger zerolog.Logger) *Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{Binary: binary, Logger: logger}
}

// Transcode writes job.OutputPath, seeking to job.Offset in the input and
// stopping at end of input or once job.MaxBytes have been written.
func (t *Transcoder) Transcode(ctx context.Context, job media.TranscodeJob) error {
	args := transcodeArgs(job)
	t.Logger.Debug().Strs("args", args).Msg("running ffmpeg")
	if _, err := run(ctx, "ffmpeg", command(ctx, t.Binary, args...)); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %w", media.ErrTranscodeFailed, err)
	}
	return nil
}

func transcodeArgs(job media.TranscodeJob) []string {
	args := []string{
		"-y",
		"-i", job.InputPath,
		"-ss", strconv.FormatFloat(job.Offset, 'f', -1, 64),
	}
	if job.MaxBytes > 0 {
		args = append(args, "-fs", strconv.FormatInt(job.MaxBytes, 10))
	}
	return append(args, "-f", job.Format, job.OutputPath)
}
