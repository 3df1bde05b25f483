package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const creditSchema = `{
  "type": "object",
  "required": ["credit_risk", "policy_matches", "compliance_flag"],
  "properties": {
    "credit_risk": {"type": "string", "enum": ["High", "Low"]},
    "policy_matches": {"type": "array", "items": {"type": "string"}},
    "compliance_flag": {"type": "boolean"}
  }
}`

func TestSchemaValidate(t *testing.T) {
	schema, err := CompileSchema(creditSchema)
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		badField  string
	}{
		{
			name: "valid",
			doc: map[string]interface{}{
				"credit_risk":     "Low",
				"policy_matches":  []interface{}{"DTI >= 0.4"},
				"compliance_flag": true,
			},
			wantValid: true,
		},
		{
			name: "missing flag",
			doc: map[string]interface{}{
				"credit_risk":    "Low",
				"policy_matches": []interface{}{},
			},
			badField: "(root)",
		},
		{
			name: "bad enum",
			doc: map[string]interface{}{
				"credit_risk":     "Medium",
				"policy_matches":  []interface{}{},
				"compliance_flag": false,
			},
			badField: "credit_risk",
		},
		{
			name: "flag as string",
			doc: map[string]interface{}{
				"credit_risk":     "High",
				"policy_matches":  []interface{}{},
				"compliance_flag": "true",
			},
			badField: "compliance_flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.wantValid, result.Valid, result.GetErrorMessages())
			if tt.badField != "" {
				assert.Contains(t, fieldsOf(result), tt.badField, result.GetErrorMessages())
			}
		})
	}
}

func fieldsOf(vr *ValidationResult) []string {
	fields := make([]string, len(vr.Errors))
	for i, e := range vr.Errors {
		fields[i] = e.Field
	}
	return fields
}

func TestCompileSchemaRejectsGarbage(t *testing.T) {
	_, err := CompileSchema(`{"type": `)
	assert.Error(t, err)
}

func TestValidationResultAdd(t *testing.T) {
	vr := &ValidationResult{Valid: true}
	vr.Add("emirates_id", "REQUIRED_FIELD_MISSING", "required field missing")

	assert.False(t, vr.Valid)
	assert.Equal(t, []string{"emirates_id: required field missing"}, vr.GetErrorMessages())
}
