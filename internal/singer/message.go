package singer

import "encoding/json"

// Schema is a JSON Schema document for a stream, as received on a SCHEMA line.
type Schema map[string]interface{}

// Message is one parsed line of Singer input. The set of implementations is
// closed: SchemaMessage, RecordMessage, ActivateVersionMessage, StateMessage.
type Message interface {
	message()
}

// BatchMessage is a Message that belongs to a stream batch. The engine buffers
// batch messages together only while they share the same (stream, version)
// identity.
type BatchMessage interface {
	Message

	// StreamName returns the logical table name the message belongs to.
	StreamName() string

	// StreamVersion returns the table version carried by the message.
	// ok is false when the message carries no version; an absent version is
	// distinct from every integer version.
	StreamVersion() (version int64, ok bool)
}

// SchemaMessage declares the schema and key properties for a stream.
type SchemaMessage struct {
	Stream        string
	Schema        Schema
	KeyProperties []string
}

func (SchemaMessage) message() {}

// RecordMessage is a single row upsert for a stream.
type RecordMessage struct {
	Stream  string
	Record  map[string]interface{}
	Version *int64
}

func (RecordMessage) message() {}

// StreamName implements BatchMessage.
func (m RecordMessage) StreamName() string { return m.Stream }

// StreamVersion implements BatchMessage.
func (m RecordMessage) StreamVersion() (int64, bool) {
	if m.Version == nil {
		return 0, false
	}
	return *m.Version, true
}

// ActivateVersionMessage switches a stream to the given table version.
type ActivateVersionMessage struct {
	Stream  string
	Version int64
}

func (ActivateVersionMessage) message() {}

// StreamName implements BatchMessage.
func (m ActivateVersionMessage) StreamName() string { return m.Stream }

// StreamVersion implements BatchMessage.
func (m ActivateVersionMessage) StreamVersion() (int64, bool) { return m.Version, true }

// StateMessage carries an opaque resume-state value. The engine emits the most
// recently received value at the next flush boundary.
type StateMessage struct {
	Value json.RawMessage
}

func (StateMessage) message() {}
