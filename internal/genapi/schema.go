package genapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// generateResponseSchema pins down the shape of a generation response before
// we decode it. The backend is remote and versioned independently; a drifted
// payload should fail loudly here rather than decode into zero values.
const generateResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["response", "is_valid", "valid_topic"],
      "properties": {
        "is_valid": {"type": "boolean"},
        "valid_topic": {"type": "string"},
        "response": {
          "type": "object",
          "properties": {
            "lesson": {
              "type": "object",
              "properties": {
                "title": {"type": "string"},
                "sections": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["heading", "body"],
                    "properties": {
                      "heading": {"type": "string"},
                      "body": {"type": "string"}
                    }
                  }
                }
              }
            },
            "quiz": {
              "type": "object",
              "properties": {
                "multiple_choice": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["question", "options", "answer"],
                    "properties": {
                      "question": {"type": "string"},
                      "options": {"type": "array", "items": {"type": "string"}, "minItems": 2},
                      "answer": {"type": "integer", "minimum": 0},
                      "rationale": {"type": "string"}
                    }
                  }
                },
                "true_false": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["statement", "answer"],
                    "properties": {
                      "statement": {"type": "string"},
                      "answer": {"type": "boolean"},
                      "rationale": {"type": "string"}
                    }
                  }
                }
              }
            },
            "reflection": {
              "type": "object",
              "properties": {
                "prompt": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var generateSchema = gojsonschema.NewStringLoader(generateResponseSchema)

// validateGenerateResponse checks a raw generate response body against the
// schema and returns a single error describing every violation.
func validateGenerateResponse(raw []byte) error {
	result, err := gojsonschema.Validate(generateSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(desc.String())
	}
	return fmt.Errorf("response violates schema: %s", b.String())
}
