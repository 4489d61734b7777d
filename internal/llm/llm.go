// Package llm defines the completion port used by keyword extraction,
// scoring and outreach, plus helpers for structured responses.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Request struct {
	System      string
	Prompt      string
	JSON        bool
	Temperature float64
	MaxTokens   int
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// reply, returning the outermost JSON object.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// DecodeValidated extracts the JSON object from text, validates it against
// schema and unmarshals it into v.
func DecodeValidated(text string, schema map[string]any, v any) error {
	raw := []byte(ExtractJSON(text))
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
