package singer

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_Record(t *testing.T) {
	line := []byte(`{"type": "RECORD", "stream": "users", "record": {"id": 1, "name": "mike"}}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	rec, ok := msg.(RecordMessage)
	require.True(t, ok, "expected RecordMessage, got %T", msg)
	assert.Equal(t, "users", rec.Stream)
	assert.Equal(t, json.Number("1"), rec.Record["id"])
	assert.Equal(t, "mike", rec.Record["name"])
	assert.Nil(t, rec.Version)

	_, ok = rec.StreamVersion()
	assert.False(t, ok)
}

func TestParseMessage_RecordWithVersion(t *testing.T) {
	line := []byte(`{"type": "RECORD", "stream": "users", "record": {"id": 2}, "version": 7}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	rec := msg.(RecordMessage)
	v, ok := rec.StreamVersion()
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestParseMessage_PreservesNumberPrecision(t *testing.T) {
	line := []byte(`{"type": "RECORD", "stream": "t", "record": {"n": 1.3, "big": 9007199254740993}}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	rec := msg.(RecordMessage)
	assert.Equal(t, json.Number("1.3"), rec.Record["n"])
	assert.Equal(t, json.Number("9007199254740993"), rec.Record["big"])
}

func TestParseMessage_Schema(t *testing.T) {
	line := []byte(`{"type": "SCHEMA", "stream": "users", "schema": {"type": "object"}, "key_properties": ["id"]}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	sch, ok := msg.(SchemaMessage)
	require.True(t, ok)
	assert.Equal(t, "users", sch.Stream)
	assert.Equal(t, []string{"id"}, sch.KeyProperties)
	assert.Equal(t, "object", sch.Schema["type"])
}

func TestParseMessage_SchemaWithoutKeyProperties(t *testing.T) {
	line := []byte(`{"type": "SCHEMA", "stream": "users", "schema": {"type": "object"}}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	sch := msg.(SchemaMessage)
	require.NotNil(t, sch.KeyProperties)
	assert.Empty(t, sch.KeyProperties)
}

func TestParseMessage_ActivateVersion(t *testing.T) {
	line := []byte(`{"type": "ACTIVATE_VERSION", "stream": "users", "version": 3}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	av, ok := msg.(ActivateVersionMessage)
	require.True(t, ok)
	assert.Equal(t, "users", av.Stream)
	assert.Equal(t, int64(3), av.Version)
}

func TestParseMessage_State(t *testing.T) {
	line := []byte(`{"type": "STATE", "value": {"bookmarks": {"users": 42}}}`)

	msg, err := ParseMessage(line)
	require.NoError(t, err)

	st, ok := msg.(StateMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"bookmarks": {"users": 42}}`, string(st.Value))
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `not json at all`},
		{"missing type", `{"stream": "users"}`},
		{"unknown type", `{"type": "BOGUS"}`},
		{"record without stream", `{"type": "RECORD", "record": {"id": 1}}`},
		{"record without record", `{"type": "RECORD", "stream": "users"}`},
		{"schema without schema", `{"type": "SCHEMA", "stream": "users"}`},
		{"activate without version", `{"type": "ACTIVATE_VERSION", "stream": "users"}`},
		{"state without value", `{"type": "STATE"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.line))
			assert.Error(t, err)
		})
	}
}

func TestReader_SkipsBlankLines(t *testing.T) {
	input := "{\"type\": \"STATE\", \"value\": 1}\n\n   \n{\"type\": \"STATE\", \"value\": 2}\n"
	r := NewReader(strings.NewReader(input))

	line, err := r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "STATE", "value": 1}`, string(line))

	line, err = r.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "STATE", "value": 2}`, string(line))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}
