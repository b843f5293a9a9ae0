package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/pkg/log"
)

func TestFileSink_WritesOneBodyPerLine(t *testing.T) {
	msgs := []singer.BatchMessage{
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{"id": 1}},
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{"id": 2}},
	}
	schema := singer.Schema{"type": "object"}

	var out bytes.Buffer
	s := NewFileSink(&out, "requests.json", 4000000, log.NewNoopLogger())
	require.NoError(t, s.HandleBatch(context.Background(), msgs, schema, []string{"id"}))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1, "one request body expected under a large limit")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "users", doc["table_name"])
	assert.Len(t, doc["messages"], 2)
}

func TestFileSink_SplitBatchesWriteMultipleLines(t *testing.T) {
	msgs := make([]singer.BatchMessage, 0, 8)
	for i := 0; i < 8; i++ {
		msgs = append(msgs, singer.RecordMessage{
			Stream: "users",
			Record: map[string]interface{}{"id": i, "padding": strings.Repeat("x", 50)},
		})
	}

	var out bytes.Buffer
	s := NewFileSink(&out, "requests.json", 400, log.NewNoopLogger())
	require.NoError(t, s.HandleBatch(context.Background(), msgs, singer.Schema{"type": "object"}, []string{"id"}))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Greater(t, len(lines), 1)

	total := 0
	for _, line := range lines {
		assert.Less(t, len(line), 400)
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &doc))
		total += len(doc["messages"].([]interface{}))
	}
	assert.Equal(t, len(msgs), total)
}
