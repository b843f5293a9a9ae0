package singer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message type tags on the wire.
const (
	typeSchema          = "SCHEMA"
	typeRecord          = "RECORD"
	typeActivateVersion = "ACTIVATE_VERSION"
	typeState           = "STATE"
)

// rawMessage is the superset of fields any message kind may carry.
type rawMessage struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	Schema        Schema                 `json:"schema"`
	KeyProperties []string               `json:"key_properties"`
	Version       *int64                 `json:"version"`
	Value         json.RawMessage        `json:"value"`
}

// ParseMessage parses one input line into a typed Message. Numbers inside
// records and schemas are preserved as json.Number so that values survive
// serialization and validation without floating-point drift.
//
// A malformed line is a fatal condition for the pipeline; the returned error
// carries the parse failure and the caller is expected to abort.
func ParseMessage(line []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw rawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unable to parse message: %w", err)
	}

	switch raw.Type {
	case typeSchema:
		if raw.Stream == "" {
			return nil, fmt.Errorf("%s message is missing required field stream", raw.Type)
		}
		if raw.Schema == nil {
			return nil, fmt.Errorf("%s message is missing required field schema", raw.Type)
		}
		keys := raw.KeyProperties
		if keys == nil {
			keys = []string{}
		}
		return SchemaMessage{Stream: raw.Stream, Schema: raw.Schema, KeyProperties: keys}, nil

	case typeRecord:
		if raw.Stream == "" {
			return nil, fmt.Errorf("%s message is missing required field stream", raw.Type)
		}
		if raw.Record == nil {
			return nil, fmt.Errorf("%s message is missing required field record", raw.Type)
		}
		return RecordMessage{Stream: raw.Stream, Record: raw.Record, Version: raw.Version}, nil

	case typeActivateVersion:
		if raw.Stream == "" {
			return nil, fmt.Errorf("%s message is missing required field stream", raw.Type)
		}
		if raw.Version == nil {
			return nil, fmt.Errorf("%s message is missing required field version", raw.Type)
		}
		return ActivateVersionMessage{Stream: raw.Stream, Version: *raw.Version}, nil

	case typeState:
		if raw.Value == nil {
			return nil, fmt.Errorf("%s message is missing required field value", raw.Type)
		}
		return StateMessage{Value: raw.Value}, nil

	case "":
		return nil, fmt.Errorf("message is missing required field type: %s", truncateLine(line))

	default:
		return nil, fmt.Errorf("unknown message type %q: %s", raw.Type, truncateLine(line))
	}
}

// truncateLine keeps error messages readable when the offending line is huge.
func truncateLine(line []byte) string {
	const max = 256
	if len(line) <= max {
		return string(line)
	}
	return string(line[:max]) + "..."
}
