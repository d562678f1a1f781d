// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversionsTotal counts finished conversions by result.
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ffseg_conversions_total",
		Help: "Total conversions by result",
	}, []string{"result"})

	// ConversionsInFlight tracks conversions currently holding a slot.
	ConversionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ffseg_conversions_in_flight",
		Help: "Conversions currently running",
	})

	// ConversionDuration tracks wall time of whole conversions.
	ConversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ffseg_conversion_duration_seconds",
		Help:    "Duration of conversions including packaging",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
	}, []string{"result"})

	// SegmentsProduced counts segments handed to the packager.
	SegmentsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ffseg_segments_produced_total",
		Help: "Total segments produced",
	})

	// ArchiveBytes tracks the size of produced archives.
	ArchiveBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ffseg_archive_size_bytes",
		Help:    "Size of produced archives",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10),
	})

	// ExternalCommandDuration tracks ffmpeg/ffprobe invocations.
	ExternalCommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ffseg_external_command_duration_seconds",
		Help:    "Duration of ffmpeg and ffprobe invocations",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"command", "outcome"})

	// ProcessKills counts process-group kills issued on cancellation.
	ProcessKills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ffseg_process_kills_total",
		Help: "Process group kills issued on cancellation",
	}, []string{"outcome"})
)

// ObserveCommand records one external command run.
func ObserveCommand(command string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ExternalCommandDuration.WithLabelValues(command, outcome).Observe(seconds)
}
