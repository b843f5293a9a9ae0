// Package gateship reads a stream of Singer messages, batches them per
// stream, and delivers each batch to the Stitch import gate.
//
// Example usage:
//
//	cfg := gateship.DefaultConfig()
//	cfg.Token = "your-api-token"
//	p, err := gateship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package gateship

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/bft-labs/gateship/internal/cliconfig"
	"github.com/bft-labs/gateship/internal/gate"
	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/internal/sink"
	"github.com/bft-labs/gateship/internal/target"
	"github.com/bft-labs/gateship/internal/telemetry"
	"github.com/bft-labs/gateship/pkg/log"
)

// Config holds the configuration for the delivery pipeline.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set Token before calling Run, unless DryRun or
// OutputFile is set.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// DefaultGateURL is the default endpoint batches are delivered to.
const DefaultGateURL = cliconfig.DefaultGateURL

// Pipeline wires the batching target, its sinks, and telemetry together.
type Pipeline struct {
	cfg     Config
	logger  log.Logger
	timings *telemetry.Timings
	metrics *telemetry.Metrics
	client  *gate.Client
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by the pipeline and its components.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics attaches a Prometheus metrics collector to the pipeline.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New validates cfg and assembles a Pipeline. When cfg.Token is set and
// cfg.DryRun is not, batches are delivered to the gate named by cfg.GateURL.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		logger:  log.NewNoopLogger(),
		timings: telemetry.NewTimings(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if !cfg.DryRun && cfg.Token != "" {
		p.client = gate.NewClient(gate.UseBatchURL(cfg.GateURL), cfg.Token, p.logger,
			gate.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	}
	return p, nil
}

// SetToken replaces the API token used for subsequent deliveries. It is safe
// to call while Run is in progress.
func (p *Pipeline) SetToken(token string) {
	if p.client != nil {
		p.client.SetToken(token)
	}
}

// Run reads Singer messages from in until EOF and writes checkpointed state
// values to out, one JSON value per line. A state value is written only after
// every record preceding it has been handed off to all configured sinks.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	var sinks []sink.Sink

	if p.cfg.OutputFile != "" {
		f, err := os.Create(p.cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		defer f.Close()
		sinks = append(sinks, sink.NewFileSink(f, p.cfg.OutputFile, p.cfg.MaxBatchBytes, p.logger))
	}

	if p.cfg.DryRun {
		sinks = append(sinks, sink.NewValidatingSink(p.logger))
	} else if p.client != nil {
		sinks = append(sinks, sink.NewRemoteSink(p.client, p.cfg.MaxBatchBytes, p.timings, p.metrics, p.logger))
	}

	tgt := target.New(sinks, bufio.NewWriter(out), target.Config{
		MaxBatchBytes:   p.cfg.MaxBatchBytes,
		MaxBatchRecords: p.cfg.MaxBatchRecords,
		BatchDelay:      p.cfg.BatchDelay,
	},
		target.WithLogger(p.logger),
		target.WithTimings(p.timings),
		target.WithMetrics(p.metrics),
	)

	return tgt.Run(ctx, singer.NewReader(in))
}
