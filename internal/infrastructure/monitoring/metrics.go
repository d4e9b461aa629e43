package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, so packages can take one unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	// Grid metrics
	GridsTotal   *prometheus.CounterVec
	GridDuration *prometheus.HistogramVec

	// Tile metrics
	TilesFed     prometheus.Counter
	TilesDrained prometheus.Counter
	TilesShort   prometheus.Counter
	TilesLost    prometheus.Counter

	// Pipe metrics
	BytesWritten *prometheus.CounterVec
	BytesRead    *prometheus.CounterVec

	// Process metrics
	ProcessStarts   *prometheus.CounterVec
	ProcessFailures *prometheus.CounterVec
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Grid metrics
		GridsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridstitch_grids_total",
				Help: "Total number of grids processed by outcome",
			},
			[]string{"status"},
		),
		GridDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridstitch_grid_duration_seconds",
				Help:    "Grid decode, stitch and encode duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),

		// Tile metrics
		TilesFed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gridstitch_tiles_fed_total",
				Help: "Compressed tile samples written to the decoder",
			},
		),
		TilesDrained: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gridstitch_tiles_drained_total",
				Help: "Decoded tiles read back and stitched",
			},
		),
		TilesShort: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gridstitch_tiles_short_total",
				Help: "Decoded tiles that arrived with fewer bytes than expected",
			},
		),
		TilesLost: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gridstitch_tiles_lost_total",
				Help: "Tiles never read because decoder output ended first",
			},
		),

		// Pipe metrics
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridstitch_pipe_bytes_written_total",
				Help: "Bytes written to child process input",
			},
			[]string{"stage"},
		),
		BytesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridstitch_pipe_bytes_read_total",
				Help: "Bytes read from child process output",
			},
			[]string{"stage"},
		),

		// Process metrics
		ProcessStarts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridstitch_process_starts_total",
				Help: "Transcoder processes started",
			},
			[]string{"stage"},
		),
		ProcessFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridstitch_process_failures_total",
				Help: "Transcoder processes that failed to start or exited abnormally",
			},
			[]string{"stage"},
		),
	}
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordGrid records one finished grid
func (m *Metrics) RecordGrid(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GridsTotal.WithLabelValues(status).Inc()
	m.GridDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTileFed records one sample written to the decoder
func (m *Metrics) RecordTileFed(bytes int) {
	if m == nil {
		return
	}
	m.TilesFed.Inc()
	m.BytesWritten.WithLabelValues(StageDecode).Add(float64(bytes))
}

// RecordTileDrained records one decoded tile, short or not
func (m *Metrics) RecordTileDrained(bytes int, short bool) {
	if m == nil {
		return
	}
	m.TilesDrained.Inc()
	m.BytesRead.WithLabelValues(StageDecode).Add(float64(bytes))
	if short {
		m.TilesShort.Inc()
	}
}

// RecordTilesLost records tiles left unread when decoder output ended
func (m *Metrics) RecordTilesLost(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TilesLost.Add(float64(n))
}

// RecordEncoded records raw bytes handed to the encoder
func (m *Metrics) RecordEncoded(bytes int) {
	if m == nil {
		return
	}
	m.BytesWritten.WithLabelValues(StageEncode).Add(float64(bytes))
}

// RecordProcessStart records a transcoder launch attempt
func (m *Metrics) RecordProcessStart(stage string, err error) {
	if m == nil {
		return
	}
	m.ProcessStarts.WithLabelValues(stage).Inc()
	if err != nil {
		m.ProcessFailures.WithLabelValues(stage).Inc()
	}
}

// RecordProcessFailure records a transcoder that exited abnormally
func (m *Metrics) RecordProcessFailure(stage string) {
	if m == nil {
		return
	}
	m.ProcessFailures.WithLabelValues(stage).Inc()
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
