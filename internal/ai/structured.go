package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

var (
	ErrEmptyResponse      = errors.New("empty response from AI provider")
	ErrNoStructuredOutput = errors.New("AI response carried neither a tool call nor a JSON object")
)

// DecodeStructured validates the model's structured answer against schema and
// unmarshals it into v. Tool-call arguments are preferred; a free-text JSON
// answer is accepted as a fallback. Null members are dropped before
// validation so optional fields may be sent as null.
func DecodeStructured(schema jsonschema.Definition, resp *Response, v any) error {
	if resp == nil {
		return ErrEmptyResponse
	}
	var raw []byte
	switch {
	case resp.ToolCall != nil && len(resp.ToolCall.Arguments) > 0:
		raw = resp.ToolCall.Arguments
	case strings.TrimSpace(resp.Text) != "":
		raw = []byte(cleanJSONString(resp.Text))
	default:
		return ErrNoStructuredOutput
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %w", ErrNoStructuredOutput, err)
	}
	cleaned, err := json.Marshal(dropNulls(data))
	if err != nil {
		return err
	}
	if err := jsonschema.VerifySchemaAndUnmarshal(schema, cleaned, v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = dropNulls(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val != nil {
				out = append(out, dropNulls(val))
			}
		}
		return out
	default:
		return v
	}
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

// toGenaiSchema converts a JSON schema definition into Gemini's schema type.
func toGenaiSchema(d jsonschema.Definition) *genai.Schema {
	s := &genai.Schema{
		Description: d.Description,
		Enum:        d.Enum,
		Nullable:    d.Nullable,
		Required:    d.Required,
	}
	switch d.Type {
	case jsonschema.String:
		s.Type = genai.TypeString
	case jsonschema.Number:
		s.Type = genai.TypeNumber
	case jsonschema.Integer:
		s.Type = genai.TypeInteger
	case jsonschema.Boolean:
		s.Type = genai.TypeBoolean
	case jsonschema.Array:
		s.Type = genai.TypeArray
	case jsonschema.Object:
		s.Type = genai.TypeObject
	}
	if len(d.Enum) > 0 {
		s.Format = "enum"
	}
	if d.Items != nil {
		s.Items = toGenaiSchema(*d.Items)
	}
	if len(d.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(d.Properties))
		for name, prop := range d.Properties {
			s.Properties[name] = toGenaiSchema(prop)
		}
	}
	return s
}
