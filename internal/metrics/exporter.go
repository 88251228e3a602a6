package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/models"
	"handshakewatch/internal/tcpdump"
)

const namespace = "handshakewatch"

// latencyBuckets cover LAN handshakes up to congested WAN paths.
var latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// QueueDepth reports the number of measurements waiting for the consumer.
type QueueDepth func() int

// Exporter publishes ingest counters and latency observations to Prometheus.
// It is a sink so the consumer can feed latencies into the histogram.
type Exporter struct {
	registry     *prometheus.Registry
	measurements prometheus.Counter
	latency      prometheus.Histogram
	negative     prometheus.Counter
}

// NewExporter registers collectors reading counters and depth on every scrape.
func NewExporter(counters *tcpdump.IngestCounters, depth QueueDepth) *Exporter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	e := &Exporter{
		registry: registry,
		measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_total",
			Help:      "Handshake measurements written by the consumer.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_latency_seconds",
			Help:      "Time between the SYN and the final ACK of a handshake.",
			Buckets:   latencyBuckets,
		}),
		negative: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "negative_latency_total",
			Help:      "Measurements whose capture crossed midnight.",
		}),
	}
	registry.MustRegister(e.measurements, e.latency, e.negative)

	if counters != nil {
		registry.MustRegister(
			counterFunc("lines_total", "Non-empty capture lines read.", counters.Lines.Load),
			counterFunc("lines_skipped_total", "Capture lines that were not handshake events.", counters.Skipped.Load),
			counterFunc("syn_events_total", "Handshake start events.", counters.SynAcks.Load),
			counterFunc("final_ack_events_total", "Final ACK events.", counters.FinalAcks.Load),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_handshakes",
				Help:      "Handshakes waiting for their final ACK.",
			}, func() float64 { return float64(counters.Pending.Load()) }),
		)
	}

	if depth != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Measurements waiting to be written.",
		}, func() float64 { return float64(depth()) }))
	}

	return e
}

func counterFunc(name, help string, load func() int64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(load()) })
}

// Write records one measurement. Negative latencies are counted but kept out of the histogram.
func (e *Exporter) Write(m models.HandshakeMeasurement) error {
	e.measurements.Inc()
	if m.LatencySeconds < 0 {
		e.negative.Inc()
		return nil
	}
	e.latency.Observe(m.LatencySeconds)
	return nil
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the HTTP handler serving /metrics and /health.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Serve runs the metrics server until ctx is canceled.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      e.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting Prometheus metrics server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	}
}
