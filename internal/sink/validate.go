package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/internal/singer"
	"github.com/bft-labs/gateship/pkg/log"
)

// ValidatingSink checks every record against the stream's schema and confirms
// the declared key properties are present. It performs no delivery; a
// validation failure aborts the batch immediately.
type ValidatingSink struct {
	logger log.Logger
}

// NewValidatingSink creates a validation-only sink.
func NewValidatingSink(logger log.Logger) *ValidatingSink {
	return &ValidatingSink{logger: logger}
}

// HandleBatch validates each RecordMessage in the batch. Schema and record
// numbers are converted to exact decimals first so constraints like
// multipleOf are not tripped by binary floating-point representation error.
func (s *ValidatingSink) HandleBatch(ctx context.Context, messages []singer.BatchMessage, schema singer.Schema, keyNames []string) error {
	schemaDoc := floatToDecimal(map[string]interface{}(schema))
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
	if err != nil {
		return fmt.Errorf("compile schema for stream %s: %w", messages[0].StreamName(), err)
	}

	for i, m := range messages {
		rec, ok := m.(singer.RecordMessage)
		if !ok {
			continue
		}
		data := floatToDecimal(rec.Record).(map[string]interface{})

		result, err := compiled.Validate(gojsonschema.NewGoLoader(data))
		if err != nil {
			return fmt.Errorf("validate record %d: %w", i, err)
		}
		if !result.Valid() {
			return domain.Knownf("record %d failed schema validation: %s", i, describeFailures(result))
		}

		for _, k := range keyNames {
			if _, ok := data[k]; !ok {
				return domain.Knownf("message %d is missing key property %s", i, k)
			}
		}
	}

	s.logger.Info("batch is valid",
		log.Int("messages", len(messages)),
		log.String("table", messages[0].StreamName()))
	return nil
}

func describeFailures(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		parts = append(parts, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return strings.Join(parts, "; ")
}

// floatToDecimal walks v and replaces every float64 leaf with a json.Number
// holding its shortest exact decimal form. json.Number values produced by the
// parser pass through untouched.
func floatToDecimal(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		return json.Number(decimal.NewFromFloat(x).String())
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, child := range x {
			out[i] = floatToDecimal(child)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, child := range x {
			out[k] = floatToDecimal(child)
		}
		return out
	default:
		return v
	}
}
