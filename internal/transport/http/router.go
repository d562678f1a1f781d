package http

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "ffseg/internal/log"
	"ffseg/internal/metrics"
)

// RouterOptions toggles optional routing features.
type RouterOptions struct {
	// RateLimitPerMinute limits POST /ffmpeg per client IP. Zero disables it.
	RateLimitPerMinute int
}

// NewRouter configures HTTP routes and the middleware stack.
func NewRouter(handler *Handler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(LimitBody(handler.maxUploadBytes), Recoverer, RequestID, metrics.Middleware(), applog.Middleware())

	convert := http.Handler(http.HandlerFunc(handler.Convert))
	if opts.RateLimitPerMinute > 0 {
		convert = httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute)(convert)
	}

	r.Handle("/ffmpeg", convert).Methods("POST")
	r.HandleFunc("/health", handler.Health).Methods("GET", "HEAD")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}
