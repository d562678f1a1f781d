package conversion

import (
	"context"
	"io"
	"os"

	"ffseg/internal/domain/media"
)

// Prober is an application port for measuring media duration in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Transcoder is an application port for producing one segment file.
type Transcoder interface {
	Transcode(ctx context.Context, job media.TranscodeJob) error
}

// Packer is an application port for serializing ordered segments.
type Packer interface {
	Pack(ctx context.Context, w io.Writer, segments []media.Segment) error
}

// Workspace is an application port for request-scoped scratch storage.
// Close must release every file the workspace handed out.
type Workspace interface {
	Materialize(blob media.MediaBlob) (media.ScratchFile, error)
	Allocate(prefix, format string) (media.ScratchFile, error)
	Create(prefix, format string) (*os.File, error)
	Remove(file media.ScratchFile) error
	Close() error
}

// WorkspaceFactory opens a fresh workspace for one request.
type WorkspaceFactory func() (Workspace, error)
