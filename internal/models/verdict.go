// internal/models/verdict.go
package models

import (
	"encoding/json"
)

// EvaluatorKind identifies one evaluator definition.
type EvaluatorKind string

const (
	KindCareerReadiness   EvaluatorKind = "career-readiness"
	KindUpskillingMatch   EvaluatorKind = "upskilling-match"
	KindCreditRisk        EvaluatorKind = "credit-risk"
	KindFinancialHardship EvaluatorKind = "financial-hardship"
)

// Verdict is the schema-checked output of one evaluator run.
type Verdict struct {
	Kind    EvaluatorKind          `json:"kind"`
	Fields  map[string]interface{} `json:"fields"`
	RawText string                 `json:"raw_text,omitempty"`
}

// NewVerdict normalizes fields to their JSON-decoded shapes: numbers become
// float64 and lists of strings become []string.
func NewVerdict(kind EvaluatorKind, fields map[string]interface{}, rawText string) Verdict {
	return Verdict{Kind: kind, Fields: normalizeFields(fields), RawText: rawText}
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	type plain Verdict
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Verdict(p)
	v.Fields = normalizeFields(v.Fields)
	return nil
}

func (v Verdict) String(key string) (string, bool) {
	s, ok := v.Fields[key].(string)
	return s, ok
}

func (v Verdict) Float(key string) (float64, bool) {
	f, ok := v.Fields[key].(float64)
	return f, ok
}

func (v Verdict) Bool(key string) (bool, bool) {
	b, ok := v.Fields[key].(bool)
	return b, ok
}

func (v Verdict) Strings(key string) ([]string, bool) {
	s, ok := v.Fields[key].([]string)
	return s, ok
}

func normalizeFields(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []interface{}:
		strs := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				out := make([]interface{}, len(t))
				for i := range t {
					out[i] = normalizeValue(t[i])
				}
				return out
			}
			strs = append(strs, s)
		}
		return strs
	case map[string]interface{}:
		return normalizeFields(t)
	default:
		return v
	}
}
