package game

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Per-type JSON Schemas for the advanced raw-JSON payload editor. The
// schemas encode the same cardinality rules Validate enforces, so a
// payload that passes here also survives a later commit.
var payloadSchemas = map[GameType]string{
	TypeQuiz: `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array", "minItems": 1, "maxItems": 1,
				"items": {
					"type": "object",
					"required": ["question", "options", "correctAnswer"],
					"properties": {
						"question": {"type": "string", "minLength": 1},
						"options": {"type": "array", "minItems": 2, "maxItems": 8, "items": {"type": "string", "minLength": 1}},
						"correctAnswer": {"type": "string"}
					}
				}
			}
		}
	}`,
	TypeMatching: `{
		"type": "object",
		"required": ["pairs"],
		"properties": {
			"pairs": {
				"type": "array", "minItems": 1, "maxItems": 5,
				"items": {
					"type": "object",
					"required": ["itemA", "itemB"],
					"properties": {
						"itemA": {"type": "string", "minLength": 1},
						"itemB": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}`,
	TypeTrueFalse: `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array", "minItems": 1, "maxItems": 5,
				"items": {
					"type": "object",
					"required": ["statement", "isTrue"],
					"properties": {
						"statement": {"type": "string", "minLength": 1},
						"isTrue": {"type": "boolean"}
					}
				}
			}
		}
	}`,
	TypeFlashcard: `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array", "minItems": 1, "maxItems": 5,
				"items": {
					"type": "object",
					"required": ["front", "back"],
					"properties": {
						"front": {"type": "string", "minLength": 1},
						"back": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}`,
	TypeScramble: `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array", "minItems": 1, "maxItems": 5,
				"items": {
					"type": "object",
					"required": ["word"],
					"properties": {
						"word": {"type": "string", "minLength": 1},
						"hint": {"type": "string"}
					}
				}
			}
		}
	}`,
	TypeSequence: `{
		"type": "object",
		"required": ["items"],
		"properties": {
			"items": {
				"type": "array", "minItems": 2,
				"items": {
					"type": "object",
					"required": ["text", "order"],
					"properties": {
						"text": {"type": "string", "minLength": 1},
						"order": {"type": "integer", "minimum": 0}
					}
				}
			},
			"question": {"type": "string"}
		}
	}`,
	TypeCloze: `{
		"type": "object",
		"required": ["textParts", "answers"],
		"properties": {
			"textParts": {"type": "array", "minItems": 2, "items": {"type": "string"}},
			"answers": {"type": "array", "minItems": 1, "items": {"type": "string"}}
		}
	}`,
}

// ValidateRawPayload checks raw payload JSON against the schema for the
// given stage type. Schema violations come back as a ValidationError.
func ValidateRawPayload(t GameType, raw []byte) error {
	schema, ok := payloadSchemas[t]
	if !ok {
		return validationErr(t, "unknown stage type")
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return validationErr(t, "invalid JSON: %v", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return validationErr(t, "%s", strings.Join(reasons, "; "))
	}
	return nil
}

// ImportRawPayload validates and decodes raw payload JSON. Cross-field
// rules the schema cannot express are checked after decoding.
func ImportRawPayload(t GameType, raw []byte) (Payload, error) {
	if err := ValidateRawPayload(t, raw); err != nil {
		return nil, err
	}
	p, err := UnmarshalPayload(t, raw)
	if err != nil {
		return nil, err
	}
	if c, ok := p.(*ClozePayload); ok {
		if len(c.TextParts) != len(c.Answers)+1 {
			return nil, validationErr(t, "textParts must hold exactly one more entry than answers")
		}
	}
	return p, nil
}

// LoadRaw replaces the active session's edit state with a schema-validated
// raw payload, the advanced JSON editing path.
func (s *Session) LoadRaw(raw []byte) error {
	if !s.active {
		return fmt.Errorf("no editing session active")
	}
	p, err := ImportRawPayload(s.stageType, raw)
	if err != nil {
		return err
	}
	st, err := Decode(s.stageType, p)
	if err != nil {
		return err
	}
	s.state = st
	return nil
}
