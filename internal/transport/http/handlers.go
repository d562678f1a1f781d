package http

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ffseg/internal/application/conversion"
	"ffseg/internal/domain/media"
	applog "ffseg/internal/log"
)

const (
	// DefaultMaxUploadBytes caps POST /ffmpeg bodies at 2 GiB.
	DefaultMaxUploadBytes = 2 << 30

	// maxFieldBytes bounds the text fields of the upload form.
	maxFieldBytes = 1 << 10
)

type conversionUseCases interface {
	Stage(blob media.MediaBlob) (*conversion.Upload, error)
	ConvertUpload(ctx context.Context, up *conversion.Upload, target string, maxBytes int64) (*conversion.Archive, error)
}

type Handler struct {
	conversions    conversionUseCases
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(conversions conversionUseCases, maxUploadBytes int64, logger zerolog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{conversions: conversions, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	logger := applog.WithContext(r.Context(), h.logger)
	logger.Debug().Msg("health check")
	w.WriteHeader(http.StatusOK)
}

// Convert handles POST /ffmpeg. The body size cap is applied by LimitBody
// in the router, ahead of any ResponseWriter wrapping.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	logger := applog.WithContext(r.Context(), h.logger)

	form, err := h.readConvertForm(r)
	if err != nil {
		h.writeError(w, logger, "", err)
		return
	}

	archive, err := h.conversions.ConvertUpload(r.Context(), form.upload, form.to, form.maxBytes)
	if err != nil {
		h.writeError(w, logger, form.to, err)
		return
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release conversion resources")
		}
	}()

	streamArchive(w, r, archive)
}

func (h *Handler) writeError(w http.ResponseWriter, logger zerolog.Logger, target string, err error) {
	if errors.Is(err, media.ErrInvalidRequest) {
		logger.Warn().Err(err).Msg("rejected upload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.Error().Err(err).Str(applog.FieldTargetFormat, target).Msg("conversion failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type convertForm struct {
	upload   *conversion.Upload
	to       string
	maxBytes int64
}

// readConvertForm walks the multipart body once. The file part is staged
// into scratch storage as it arrives, so fields may come in any order.
func (h *Handler) readConvertForm(r *http.Request) (form convertForm, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return convertForm{}, media.InvalidRequest("invalid upload: %v", err)
	}
	defer func() {
		if err != nil && form.upload != nil {
			_ = form.upload.Discard()
			form.upload = nil
		}
	}()

	var rawMax string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return form, media.InvalidRequest("invalid upload: %v", err)
		}

		switch part.FormName() {
		case "file":
			if form.upload != nil {
				err = media.InvalidRequest("more than one file uploaded")
				break
			}
			form.upload, err = h.stagePart(part)
		case "to":
			form.to, err = readField(part)
		case "max_file_size":
			rawMax, err = readField(part)
		default:
			_, err = io.Copy(io.Discard, uploadReader{part})
		}
		_ = part.Close()
		if err != nil {
			return form, err
		}
	}

	if form.upload == nil {
		return form, media.InvalidRequest("missing file")
	}
	if strings.TrimSpace(form.to) == "" {
		return form, media.InvalidRequest("missing target format")
	}
	if raw := strings.TrimSpace(rawMax); raw != "" {
		form.maxBytes, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || form.maxBytes <= 0 {
			return form, media.InvalidRequest("max_file_size must be a positive integer")
		}
	}
	return form, nil
}

func (h *Handler) stagePart(part *multipart.Part) (*conversion.Upload, error) {
	name := part.FileName()
	if strings.TrimSpace(name) == "" {
		return nil, media.InvalidRequest("filename not found in the uploaded file")
	}
	from, err := media.FormatFromFileName(name)
	if err != nil {
		return nil, media.InvalidRequest("%v", err)
	}
	return h.conversions.Stage(media.MediaBlob{Body: uploadReader{part}, Format: from})
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(uploadReader{part}, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxFieldBytes {
		return "", media.InvalidRequest("field %s too long", part.FormName())
	}
	return string(data), nil
}

// uploadReader marks read failures of the request body as client faults.
type uploadReader struct {
	r io.Reader
}

func (u uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && err != io.EOF {
		return n, media.InvalidRequest("read upload: %v", err)
	}
	return n, err
}
