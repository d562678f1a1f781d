package media

import "io"

// MediaBlob is the uploaded source: its bytes and the format declared by its file name.
type MediaBlob struct {
	Body   io.Reader
	Format string
}

// SegmentationRequest describes one conversion.
type SegmentationRequest struct {
	Source       MediaBlob
	TargetFormat string
	// MaxSegmentBytes caps each produced file. Zero means no cap.
	MaxSegmentBytes int64
}

// Validate normalizes the format tokens in place and checks the size cap.
func (r *SegmentationRequest) Validate() error {
	if r.Source.Body == nil {
		return InvalidRequest("missing source body")
	}
	from, err := NormalizeFormat(r.Source.Format)
	if err != nil {
		return InvalidRequest("source format: %v", err)
	}
	to, err := NormalizeFormat(r.TargetFormat)
	if err != nil {
		return InvalidRequest("target format: %v", err)
	}
	if r.MaxSegmentBytes < 0 {
		return InvalidRequest("max segment bytes must be positive")
	}
	r.Source.Format = from
	r.TargetFormat = to
	return nil
}

// SegmentationJob is a request whose source has already been written to
// scratch storage.
type SegmentationJob struct {
	Input           ScratchFile
	TargetFormat    string
	MaxSegmentBytes int64
}

// ValidateTarget normalizes the target format in place and checks the size cap.
func (j *SegmentationJob) ValidateTarget() error {
	to, err := NormalizeFormat(j.TargetFormat)
	if err != nil {
		return InvalidRequest("target format: %v", err)
	}
	if j.MaxSegmentBytes < 0 {
		return InvalidRequest("max segment bytes must be positive")
	}
	j.TargetFormat = to
	return nil
}

// ScratchFile is a file inside a request workspace.
type ScratchFile struct {
	Path   string
	Format string
}

// Segment is one produced chunk with its measured duration in seconds.
type Segment struct {
	Index    int
	File     ScratchFile
	Duration float64
}

// TranscodeJob is a single invocation of the transcoder.
type TranscodeJob struct {
	InputPath  string
	OutputPath string
	Offset     float64
	Format     string
	MaxBytes   int64
}

// TotalDuration sums the measured durations of segments.
func TotalDuration(segments []Segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += s.Duration
	}
	return total
}
