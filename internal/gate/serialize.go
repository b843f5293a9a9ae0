package gate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/internal/singer"
)

// Actions recognized by the gate's batch endpoint.
const (
	actionUpsert          = "upsert"
	actionActivateVersion = "activate_version"
)

// timeNow is swapped out in tests to make vintage/sequence deterministic.
var timeNow = time.Now

// bodyMessage is one entry of a request body's messages list. Data is a
// pointer so an upsert of an empty record still serializes as "data": {};
// only activate_version entries omit the field.
type bodyMessage struct {
	Action   string                  `json:"action"`
	Data     *map[string]interface{} `json:"data,omitempty"`
	Vintage  string                  `json:"vintage,omitempty"`
	Sequence int64                   `json:"sequence"`
}

// requestBody is the JSON document POSTed to the gate for one batch slice.
type requestBody struct {
	TableName    string        `json:"table_name"`
	Schema       singer.Schema `json:"schema"`
	KeyNames     []string      `json:"key_names"`
	Messages     []bodyMessage `json:"messages"`
	TableVersion *int64        `json:"table_version,omitempty"`
}

// Serialize turns a non-empty batch of same-stream/version messages into one
// or more request bodies, each strictly under maxBytes.
//
// When the whole batch serializes above the limit, the message list is split
// at its midpoint and both halves are serialized recursively, so the
// concatenation of the returned bodies carries every input message exactly
// once and in order. A single message that cannot fit yields
// domain.BatchTooLargeError.
func Serialize(messages []singer.BatchMessage, schema singer.Schema, keyNames []string, maxBytes int) ([][]byte, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("serialize called with no messages")
	}

	entries := make([]bodyMessage, 0, len(messages))
	for _, m := range messages {
		switch msg := m.(type) {
		case singer.RecordMessage:
			entries = append(entries, bodyMessage{
				Action:   actionUpsert,
				Data:     &msg.Record,
				Vintage:  timeNow().UTC().Format(time.RFC3339Nano),
				Sequence: timeNow().UnixMilli(),
			})
		case singer.ActivateVersionMessage:
			entries = append(entries, bodyMessage{
				Action:   actionActivateVersion,
				Sequence: timeNow().UnixMilli(),
			})
		}
	}

	body := requestBody{
		TableName: messages[0].StreamName(),
		Schema:    schema,
		KeyNames:  keyNames,
		Messages:  entries,
	}
	if v, ok := messages[0].StreamVersion(); ok {
		body.TableVersion = &v
	}

	serialized, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	if len(serialized) < maxBytes {
		return [][]byte{serialized}, nil
	}

	if len(messages) <= 1 {
		return nil, &domain.BatchTooLargeError{Limit: maxBytes}
	}

	pivot := len(messages) / 2
	left, err := Serialize(messages[:pivot], schema, keyNames, maxBytes)
	if err != nil {
		return nil, err
	}
	right, err := Serialize(messages[pivot:], schema, keyNames, maxBytes)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
