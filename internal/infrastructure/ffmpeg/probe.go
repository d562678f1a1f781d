package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ffseg/internal/domain/media"
)

// Prober measures media duration with ffprobe.
type Prober struct {
	Binary string
	Logger zerolog.Logger
}

// NewProber creates an ffprobe adapter. An empty binary defaults to "ffprobe".
func NewProber(binary string, logger zerolog.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary, Logger: logger}
}

// Duration returns the playable duration of the file at path in whole seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-i", path,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "default=noprint_wrappers=1:nokey=1",
	}

	out, err := run(ctx, "ffprobe", command(ctx, p.Binary, args...))
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", media.ErrProbeFailed, err)
	}

	duration, err := parseDuration(out)
	if err != nil {
		p.Logger.Debug().Str("path", path).Bytes("output", out).Msg("unparsable ffprobe output")
		return 0, fmt.Errorf("%w: %w", media.ErrProbeFailed, err)
	}
	return duration, nil
}

// parseDuration keeps only the text before the first '.', so sub-second
// precision is dropped: "12.87\n" parses as 12.
func parseDuration(out []byte) (float64, error) {
	if !utf8.Valid(out) {
		return 0, errors.New("invalid utf-8 output from ffprobe")
	}
	whole, _, _ := strings.Cut(string(out), ".")
	whole = strings.TrimSpace(whole)
	if whole == "" {
		return 0, errors.New("duration missing")
	}
	value, err := strconv.ParseFloat(whole, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", whole, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("duration %q is not finite", whole)
	}
	return value, nil
}
