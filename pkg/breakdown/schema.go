package breakdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPayload indicates a payload that does not match the breakdown schema.
var ErrInvalidPayload = errors.New("invalid breakdown payload")

// payloadSchema describes the heatmap payload. Counts must be numbers; the
// metric block is optional.
const payloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["current", "baseline"],
  "definitions": {
    "window": {
      "type": "object",
      "required": ["breakdown"],
      "properties": {
        "breakdown": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "additionalProperties": {"type": "number"}
          }
        }
      }
    }
  },
  "properties": {
    "metric": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "dataset": {
          "type": "object",
          "properties": {"name": {"type": "string"}}
        }
      }
    },
    "current": {"$ref": "#/definitions/window"},
    "baseline": {"$ref": "#/definitions/window"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(payloadSchema)

// ValidateJSON checks raw JSON against the payload schema.
// Schema violations are reported as ErrInvalidPayload with every violation listed.
func ValidateJSON(data []byte) error {
	return validate(gojsonschema.NewBytesLoader(data))
}

// ValidateBytes validates data in the given format. YAML documents are
// converted to their JSON equivalent before validation, so unquoted numeric
// dimension values such as HTTP status codes are treated as string keys.
func ValidateBytes(data []byte, format Format) error {
	if format != FormatYAML {
		return ValidateJSON(data)
	}

	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return validate(gojsonschema.NewGoLoader(jsonCompatible(doc)))
}

// jsonCompatible rewrites the maps yaml.v3 produces for non-string keys into
// string-keyed maps, recursively.
func jsonCompatible(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = jsonCompatible(value)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[fmt.Sprint(key)] = jsonCompatible(value)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = jsonCompatible(value)
		}

		return out
	default:
		return v
	}
}

func validate(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, document)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))

	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(violations, "; "))
}
