package sink

import (
	"context"

	"github.com/bft-labs/gateship/internal/singer"
)

// Sink consumes one finished batch. Implementations either deliver the batch
// remotely, capture it locally, or validate it; the flush engine holds an
// ordered list of Sinks and is oblivious to which variants are present.
type Sink interface {
	// HandleBatch processes the full buffered message list for one
	// (stream, version) batch together with the stream's schema and key
	// properties. It either completes the whole batch or returns an error;
	// there is no partial acceptance.
	HandleBatch(ctx context.Context, messages []singer.BatchMessage, schema singer.Schema, keyNames []string) error
}
