package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/gateship/pkg/log"
)

// Metrics exposes pipeline counters over a Prometheus endpoint. A nil
// *Metrics is valid and records nothing, so the pipeline can run without an
// exposition address configured.
type Metrics struct {
	registry *prometheus.Registry

	batchesTotal     prometheus.Counter
	recordsTotal     prometheus.Counter
	bytesTotal       prometheus.Counter
	requestsTotal    prometheus.Counter
	checkpointsTotal prometheus.Counter
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: reg,
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateship_batches_flushed_total",
			Help: "Batches handed off to all configured sinks.",
		}),
		recordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateship_messages_flushed_total",
			Help: "Messages delivered across all flushed batches.",
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateship_input_bytes_flushed_total",
			Help: "Raw input bytes covered by flushed batches.",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateship_requests_delivered_total",
			Help: "Request bodies accepted by the gate.",
		}),
		checkpointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateship_checkpoints_emitted_total",
			Help: "Checkpoint lines written to the output stream.",
		}),
	}
	reg.MustRegister(m.batchesTotal, m.recordsTotal, m.bytesTotal, m.requestsTotal, m.checkpointsTotal)
	return m
}

// ObserveFlush records one delivered batch.
func (m *Metrics) ObserveFlush(messages, bytes int) {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
	m.recordsTotal.Add(float64(messages))
	m.bytesTotal.Add(float64(bytes))
}

// ObserveRequest records one request body accepted by the gate.
func (m *Metrics) ObserveRequest() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// ObserveCheckpoint records one emitted checkpoint line.
func (m *Metrics) ObserveCheckpoint() {
	if m == nil {
		return
	}
	m.checkpointsTotal.Inc()
}

// Serve exposes /metrics on addr until ctx is canceled. Serving failures are
// logged and never affect the pipeline.
func (m *Metrics) Serve(ctx context.Context, addr string, logger log.Logger) {
	if m == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", log.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server stopped", log.Err(err))
	}
}
