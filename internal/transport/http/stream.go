package http

import (
	"io"
	"net/http"
	"strconv"

	"ffseg/internal/application/conversion"
	"ffseg/internal/infrastructure/archive"
	applog "ffseg/internal/log"
)

const archiveFileName = "segments.tar.gz"

func streamArchive(w http.ResponseWriter, r *http.Request, a *conversion.Archive) {
	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+archiveFileName+`"`)
	w.Header().Set("X-Segment-Count", strconv.Itoa(a.Segments))
	w.WriteHeader(http.StatusOK)

	if _, err := io.CopyN(w, a, a.Size); err != nil {
		// Headers are gone; all that is left is to note the broken response.
		logger := applog.WithContext(r.Context(), applog.WithComponent("http"))
		logger.Warn().Err(err).Msg("archive stream interrupted")
	}
}
