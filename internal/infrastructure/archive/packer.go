// Package archive packs ordered segments into one gzip-compressed tar stream.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"ffseg/internal/domain/media"
)

// ContentType is the media type of packed archives.
const ContentType = "application/gzip"

// epoch is stamped on every entry so identical segments pack to identical bytes.
var epoch = time.Unix(0, 0).UTC()

// Packer writes tar entries through a single gzip stream.
type Packer struct {
	Level int
}

// NewPacker creates a packer. Out-of-range levels fall back to the default.
func NewPacker(level int) *Packer {
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		level = gzip.DefaultCompression
	}
	return &Packer{Level: level}
}

// EntryName names the archive entry for segment index in the given format.
func EntryName(index int, format string) string {
	return fmt.Sprintf("%08d_.%s", index, format)
}

// Pack writes segments to w in index order. Segments must be numbered 0..N-1.
func (p *Packer) Pack(ctx context.Context, w io.Writer, segments []media.Segment) error {
	for i, seg := range segments {
		if seg.Index != i {
			return fmt.Errorf("%w: segment at position %d has index %d", media.ErrPackFailed, i, seg.Index)
		}
	}

	gz, err := gzip.NewWriterLevel(w, p.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}
	tw := tar.NewWriter(gz)

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendFile(tw, EntryName(seg.Index, seg.File.Format), seg.File.Path); err != nil {
			return fmt.Errorf("%w: segment %d: %w", media.ErrPackFailed, seg.Index, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: %w", media.ErrPackFailed, err)
	}
	return nil
}

func appendFile(tw *tar.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     info.Size(),
		ModTime:  epoch,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return err
	}
	if n != info.Size() {
		return fmt.Errorf("%s changed size while packing", name)
	}
	return nil
}
