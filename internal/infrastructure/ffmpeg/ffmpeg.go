package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ffseg/internal/infrastructure/procgroup"
	"ffseg/internal/metrics"
)

const (
	// stderrTail bounds how much diagnostic output ends up in an error.
	stderrTail = 4096
	waitDelay  = 5 * time.Second
)

// command builds an exec.Cmd whose cancellation kills the whole process group.
func command(ctx context.Context, name string, args ...string) *exec.Cmd {
	// #nosec G204 - binary comes from config, args are built here and paths are opaque
	cmd := exec.CommandContext(ctx, name, args...)
	procgroup.Bind(cmd)
	cmd.WaitDelay = waitDelay
	return cmd
}

// run executes the command and returns its stdout. A non-zero exit carries the
// stderr tail in the returned error.
func run(ctx context.Context, label string, cmd *exec.Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	metrics.ObserveCommand(label, time.Since(start).Seconds(), err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s interrupted: %w", label, ctxErr)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", label, err, tail(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}
