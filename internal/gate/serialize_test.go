package gate

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/internal/singer"
)

func fixedNow(t *testing.T) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { timeNow = prev })
}

func records(n int) []singer.BatchMessage {
	msgs := make([]singer.BatchMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, singer.RecordMessage{
			Stream: "users",
			Record: map[string]interface{}{"id": i, "name": fmt.Sprintf("user-%d", i)},
		})
	}
	return msgs
}

func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc
}

func TestSerialize_SingleBody(t *testing.T) {
	fixedNow(t)

	msgs := []singer.BatchMessage{
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{"id": 1, "name": "mike"}},
	}
	schema := singer.Schema{"type": "object"}

	bodies, err := Serialize(msgs, schema, []string{"id"}, 4000000)
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	doc := decodeBody(t, bodies[0])
	assert.Equal(t, "users", doc["table_name"])
	assert.Equal(t, []interface{}{"id"}, doc["key_names"])
	assert.NotContains(t, doc, "table_version")

	entries := doc["messages"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "upsert", entry["action"])
	assert.Equal(t, map[string]interface{}{"id": float64(1), "name": "mike"}, entry["data"])
	assert.NotEmpty(t, entry["vintage"])
	assert.NotZero(t, entry["sequence"])
}

func TestSerialize_EmptyRecordKeepsDataField(t *testing.T) {
	fixedNow(t)

	msgs := []singer.BatchMessage{
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{}},
	}

	bodies, err := Serialize(msgs, singer.Schema{"type": "object"}, []string{"id"}, 4000000)
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	entries := decodeBody(t, bodies[0])["messages"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	require.Contains(t, entry, "data")
	assert.Equal(t, map[string]interface{}{}, entry["data"])
}

func TestSerialize_TableVersionAndActivate(t *testing.T) {
	fixedNow(t)

	version := int64(5)
	msgs := []singer.BatchMessage{
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{"id": 1}, Version: &version},
		singer.ActivateVersionMessage{Stream: "users", Version: 5},
	}

	bodies, err := Serialize(msgs, singer.Schema{"type": "object"}, []string{"id"}, 4000000)
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	doc := decodeBody(t, bodies[0])
	assert.Equal(t, float64(5), doc["table_version"])

	entries := doc["messages"].([]interface{})
	require.Len(t, entries, 2)
	activate := entries[1].(map[string]interface{})
	assert.Equal(t, "activate_version", activate["action"])
	assert.NotContains(t, activate, "data")
	assert.NotContains(t, activate, "vintage")
}

func TestSerialize_SplitPreservesOrderAndCompleteness(t *testing.T) {
	fixedNow(t)

	msgs := records(20)
	schema := singer.Schema{"type": "object"}

	// Whole batch in one body at this limit.
	whole, err := Serialize(msgs, schema, []string{"id"}, 1<<20)
	require.NoError(t, err)
	require.Len(t, whole, 1)

	// Force splitting with a limit a bit above a single-record body.
	limit := 400
	bodies, err := Serialize(msgs, schema, []string{"id"}, limit)
	require.NoError(t, err)
	assert.Greater(t, len(bodies), 1)

	var ids []int
	for _, body := range bodies {
		assert.Less(t, len(body), limit, "body exceeds the size limit")
		doc := decodeBody(t, body)
		for _, e := range doc["messages"].([]interface{}) {
			entry := e.(map[string]interface{})
			data := entry["data"].(map[string]interface{})
			ids = append(ids, int(data["id"].(float64)))
		}
	}

	require.Len(t, ids, len(msgs), "messages dropped or duplicated across bodies")
	for i, id := range ids {
		assert.Equal(t, i, id, "messages reordered across bodies")
	}
}

func TestSerialize_SingleMessageTooLarge(t *testing.T) {
	fixedNow(t)

	msgs := []singer.BatchMessage{
		singer.RecordMessage{Stream: "users", Record: map[string]interface{}{"id": 1, "name": "mike"}},
	}

	_, err := Serialize(msgs, singer.Schema{"type": "object"}, []string{"id"}, 10)
	require.Error(t, err)

	var tooLarge *domain.BatchTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 10, tooLarge.Limit)
	assert.True(t, domain.IsKnown(err))
}

func TestSerialize_EmptyBatch(t *testing.T) {
	_, err := Serialize(nil, singer.Schema{}, nil, 100)
	assert.Error(t, err)
}
