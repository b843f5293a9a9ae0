// Package target implements the buffering, flush-triggering, and
// checkpoint-emission engine at the core of gateship.
package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/internal/sink"
	"github.com/bft-labs/gateship/internal/telemetry"
	"github.com/bft-labs/gateship/pkg/log"
)

// Default flush trigger thresholds.
const (
	DefaultMaxBatchBytes   = 4000000
	DefaultMaxBatchRecords = 20000
	DefaultBatchDelay      = 300 * time.Second
)

// StateWriter receives emitted checkpoint lines. A *bufio.Writer satisfies
// this interface; Flush must push the line through any transport buffering
// immediately.
type StateWriter interface {
	io.Writer
	Flush() error
}

// Config holds the flush trigger thresholds. The triggers are OR'd: any one
// is sufficient to flush.
type Config struct {
	MaxBatchBytes   int
	MaxBatchRecords int
	BatchDelay      time.Duration
}

// Target consumes parsed messages, buffers them per (stream, version), fans
// finished batches out to every configured sink in order, and emits the most
// recent checkpoint only after its preceding batch has been fully handed off.
//
// Target is not safe for concurrent use: messages are handled one at a time
// and Flush runs to completion before the next message.
type Target struct {
	sinks       []sink.Sink
	stateWriter StateWriter
	cfg         Config

	streamMeta   map[string]domain.StreamMeta
	buffer       *domain.Buffer
	pendingState json.RawMessage
	lastFlush    time.Time

	timings *telemetry.Timings
	metrics *telemetry.Metrics
	logger  log.Logger
	now     func() time.Time
}

// Option customizes a Target.
type Option func(*Target)

// WithLogger replaces the default no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(t *Target) { t.logger = logger }
}

// WithTimings attaches the timing accumulator logged at checkpoint emission.
func WithTimings(timings *telemetry.Timings) Option {
	return func(t *Target) { t.timings = timings }
}

// WithMetrics attaches pipeline counters.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(t *Target) { t.metrics = metrics }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Target) { t.now = now }
}

// New creates a Target delivering to sinks in the given order and writing
// checkpoints to stateWriter.
func New(sinks []sink.Sink, stateWriter StateWriter, cfg Config, opts ...Option) *Target {
	if cfg.MaxBatchBytes <= 0 {
		cfg.MaxBatchBytes = DefaultMaxBatchBytes
	}
	if cfg.MaxBatchRecords <= 0 {
		cfg.MaxBatchRecords = DefaultMaxBatchRecords
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	t := &Target{
		sinks:       sinks,
		stateWriter: stateWriter,
		cfg:         cfg,
		streamMeta:  make(map[string]domain.StreamMeta),
		buffer:      domain.NewBuffer(),
		logger:      log.NewNoopLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastFlush = t.now()
	return t
}

// HandleMessage consumes one parsed message. rawLen is the byte length of the
// raw input line, which feeds the byte-based flush trigger.
func (t *Target) HandleMessage(ctx context.Context, msg singer.Message, rawLen int) error {
	switch m := msg.(type) {
	case singer.SchemaMessage:
		// A schema boundary always ends the current batch: mixing schemas
		// in one batch is unsafe.
		if err := t.Flush(ctx); err != nil {
			return err
		}
		t.streamMeta[m.Stream] = domain.StreamMeta{Schema: m.Schema, KeyProperties: m.KeyProperties}
		return nil

	case singer.RecordMessage:
		return t.bufferMessage(ctx, m, rawLen)

	case singer.ActivateVersionMessage:
		return t.bufferMessage(ctx, m, rawLen)

	case singer.StateMessage:
		// Later checkpoints replace earlier ones; only the most recent value
		// survives to the next flush boundary.
		t.pendingState = m.Value
		return nil

	default:
		return fmt.Errorf("unhandled message type %T", msg)
	}
}

func (t *Target) bufferMessage(ctx context.Context, m singer.BatchMessage, rawLen int) error {
	if !t.buffer.Accepts(m) {
		if err := t.Flush(ctx); err != nil {
			return err
		}
	}
	t.buffer.Append(m, rawLen)

	numBytes := t.buffer.Bytes()
	numMessages := t.buffer.Len()
	elapsed := t.now().Sub(t.lastFlush)

	enoughBytes := numBytes >= t.cfg.MaxBatchBytes
	enoughMessages := numMessages >= t.cfg.MaxBatchRecords
	enoughTime := elapsed >= t.cfg.BatchDelay
	if enoughBytes || enoughMessages || enoughTime {
		t.logger.Info("flushing batch",
			log.Int("bytes", numBytes),
			log.Int("messages", numMessages),
			log.Duration("since_last_flush", elapsed))
		return t.Flush(ctx)
	}
	return nil
}

// Flush delivers anything buffered to every sink in configured order, then
// emits the pending checkpoint, if any. A sink error propagates immediately
// and suppresses checkpoint emission, so a checkpoint is only ever emitted
// after the batch preceding it has been fully handed off.
func (t *Target) Flush(ctx context.Context) error {
	if !t.buffer.Empty() {
		stream := t.buffer.Stream()
		meta, ok := t.streamMeta[stream]
		if !ok {
			return fmt.Errorf("no SCHEMA message received for stream %q", stream)
		}

		messages := t.buffer.Messages()
		for _, s := range t.sinks {
			if err := s.HandleBatch(ctx, messages, meta.Schema, meta.KeyProperties); err != nil {
				return err
			}
		}
		t.metrics.ObserveFlush(t.buffer.Len(), t.buffer.Bytes())
		t.lastFlush = t.now()
		t.buffer.Reset()
	}

	if t.pendingState != nil {
		t.logger.Debug("emitting state", log.String("value", string(t.pendingState)))
		if _, err := t.stateWriter.Write(append(t.pendingState, '\n')); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
		if err := t.stateWriter.Flush(); err != nil {
			return fmt.Errorf("flush state writer: %w", err)
		}
		t.pendingState = nil
		t.metrics.ObserveCheckpoint()
		t.timings.Log(t.logger)
	}
	return nil
}

// Run consumes messages from r until end of input, then performs a final
// Flush. Any parse error or sink error aborts the run.
func (t *Target) Run(ctx context.Context, r *singer.Reader) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		msg, err := singer.ParseMessage(line)
		if err != nil {
			return err
		}
		if err := t.HandleMessage(ctx, msg, len(line)); err != nil {
			return err
		}
	}
	return t.Flush(ctx)
}
