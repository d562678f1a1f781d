package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"ffseg/internal/application/conversion"
	"ffseg/internal/config"
	"ffseg/internal/infrastructure/archive"
	"ffseg/internal/infrastructure/ffmpeg"
	"ffseg/internal/infrastructure/filesystem"
	applog "ffseg/internal/log"
	httptransport "ffseg/internal/transport/http"
)

// Workspaces older than this at startup belong to a process that is gone.
const staleWorkspaceAge = 6 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := applog.Base()
		boot.Fatal().Err(err).Msg("config load failed")
	}
	applog.Configure(applog.Config{Level: cfg.LogLevel})
	logger := applog.WithComponent("server")

	server, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str(applog.FieldPath, cfg.ScratchDir).Msg("scratch init failed")
	}

	go func() {
		logger.Info().
			Str("addr", cfg.ServerAddr).
			Str(applog.FieldPath, cfg.ScratchDir).
			Int("max_concurrent", cfg.MaxConcurrent).
			Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Str("addr", cfg.ServerAddr).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return
	}
	logger.Info().Msg("server exited gracefully")
}

// newServer prepares the scratch root and wires adapters, use cases and routes.
func newServer(cfg config.Config, logger zerolog.Logger) (*http.Server, error) {
	store := filesystem.NewStore(cfg.ScratchDir)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}
	if n, err := store.SweepStale(staleWorkspaceAge); err != nil {
		logger.Warn().Err(err).Msg("stale workspace sweep failed")
	} else if n > 0 {
		logger.Info().Int("removed", n).Msg("removed stale workspaces")
	}

	prober := ffmpeg.NewProber(cfg.FFprobePath, applog.WithComponent("ffprobe"))
	transcoder := ffmpeg.NewTranscoder(cfg.FFmpegPath, applog.WithComponent("ffmpeg"))
	engine := conversion.NewEngine(prober, transcoder, applog.WithComponent("engine"))
	workspaces := func() (conversion.Workspace, error) {
		ws, err := store.NewWorkspace()
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	conversions := conversion.NewService(workspaces, engine, archive.NewPacker(cfg.GzipLevel),
		applog.WithComponent("conversion"), conversion.Options{
			MaxConcurrent:  cfg.MaxConcurrent,
			RequestTimeout: cfg.RequestTimeout,
		})

	handler := httptransport.NewHandler(conversions, cfg.MaxUploadBytes, applog.WithComponent("http"))
	router := httptransport.NewRouter(handler, httptransport.RouterOptions{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		ExposedHeaders: []string{httptransport.HeaderRequestID, "X-Segment-Count", "Content-Disposition"},
	})

	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
