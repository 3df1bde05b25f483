// internal/evaluator/parse.go
package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"

	"social-evaluation/internal/common/validation"
)

// normalizeJSONBlock strips markdown fences and keeps the outermost object.
func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

// parseVerdictFields decodes the engine reply and checks it against schema.
func parseVerdictFields(raw string, schema *validation.Schema) (map[string]interface{}, error) {
	block := normalizeJSONBlock(raw)
	if block == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}

	result := schema.Validate(fields)
	if !result.Valid {
		return nil, fmt.Errorf("reply does not match schema: %s", strings.Join(result.GetErrorMessages(), "; "))
	}
	return fields, nil
}
