package sink

import (
	"context"

	"github.com/bft-labs/gateship/internal/gate"
	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/internal/telemetry"
	"github.com/bft-labs/gateship/pkg/log"
)

// RemoteSink delivers batches to the gate. Bodies are sent strictly in the
// order the serializer produced them; the first delivery error aborts the
// batch.
type RemoteSink struct {
	client        *gate.Client
	maxBatchBytes int
	timings       *telemetry.Timings
	metrics       *telemetry.Metrics
	logger        log.Logger
}

// NewRemoteSink creates a sink delivering through client. timings and metrics
// may be nil.
func NewRemoteSink(client *gate.Client, maxBatchBytes int, timings *telemetry.Timings, metrics *telemetry.Metrics, logger log.Logger) *RemoteSink {
	return &RemoteSink{
		client:        client,
		maxBatchBytes: maxBatchBytes,
		timings:       timings,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandleBatch serializes the batch and posts every body in order.
func (s *RemoteSink) HandleBatch(ctx context.Context, messages []singer.BatchMessage, schema singer.Schema, keyNames []string) error {
	s.logger.Info("sending batch to the gate",
		log.Int("messages", len(messages)),
		log.String("table", messages[0].StreamName()),
		log.String("url", s.client.URL()))

	done := s.timings.Mode(telemetry.ModeSerializing)
	bodies, err := gate.Serialize(messages, schema, keyNames, s.maxBatchBytes)
	done()
	if err != nil {
		return err
	}

	s.logger.Info("split batch into requests", log.Int("requests", len(bodies)))
	for i, body := range bodies {
		s.logger.Debug("posting request",
			log.Int("request", i+1),
			log.Int("of", len(bodies)),
			log.Int("bytes", len(body)))
		done := s.timings.Mode(telemetry.ModePosting)
		err := s.client.Send(ctx, body)
		done()
		if err != nil {
			return err
		}
		s.metrics.ObserveRequest()
	}
	return nil
}
