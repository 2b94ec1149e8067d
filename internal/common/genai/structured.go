// internal/common/genai/structured.go
package genai

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractJSON pulls the first JSON object out of a completion. Models wrap
// structured output in prose or markdown fences often enough that callers
// cannot unmarshal the raw text directly.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// ValidateSchema checks a JSON document against a JSON-schema definition and
// returns the collected violations.
func ValidateSchema(schema, document string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return fmt.Errorf("schema violations: %s", strings.Join(issues, "; "))
	}
	return nil
}
