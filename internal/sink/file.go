package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/bft-labs/gateship/internal/gate"
	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/pkg/log"
)

// FileSink appends every request body the remote path would have sent as one
// line to a local target, for offline inspection.
type FileSink struct {
	w             io.Writer
	name          string
	maxBatchBytes int
	logger        log.Logger
}

// NewFileSink creates a sink writing to w. name is used for logging only.
func NewFileSink(w io.Writer, name string, maxBatchBytes int, logger log.Logger) *FileSink {
	return &FileSink{
		w:             w,
		name:          name,
		maxBatchBytes: maxBatchBytes,
		logger:        logger,
	}
}

// HandleBatch serializes the batch exactly as the remote sink does and writes
// each body followed by a newline.
func (s *FileSink) HandleBatch(ctx context.Context, messages []singer.BatchMessage, schema singer.Schema, keyNames []string) error {
	s.logger.Info("saving batch",
		log.Int("messages", len(messages)),
		log.String("table", messages[0].StreamName()),
		log.String("file", s.name))

	bodies, err := gate.Serialize(messages, schema, keyNames, s.maxBatchBytes)
	if err != nil {
		return err
	}
	for i, body := range bodies {
		s.logger.Debug("writing request body", log.Int("request", i+1), log.Int("bytes", len(body)))
		if _, err := s.w.Write(body); err != nil {
			return fmt.Errorf("write request body to %s: %w", s.name, err)
		}
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return fmt.Errorf("write request body to %s: %w", s.name, err)
		}
	}
	return nil
}
