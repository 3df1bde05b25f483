package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	reg := Defaults()

	tests := []struct {
		kind       string
		role       string
		collection string
		k, fetchK  int
	}{
		{"career-readiness", "resume", "career_trends", 1, 2},
		{"upskilling-match", "resume", "upskilling_training", 2, 4},
		{"credit-risk", "credit_report", "credit_policy_collection", 1, 2},
		{"financial-hardship", "bank_statement", "hardship_guidelines", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			def, ok := reg.Get(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.role, def.DocumentRole)
			assert.Equal(t, tt.collection, def.Collection)
			assert.Equal(t, tt.k, def.K)
			assert.Equal(t, tt.fetchK, def.FetchK)
			assert.Equal(t, 0.5, def.DiversityOrDefault())
			assert.NoError(t, def.Validate())
		})
	}
}

func TestLoadRegistry_OverridesByKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluators.yaml")
	body := `
version: "2024-06"
evaluators:
  - kind: credit-risk
    collection: credit_policy_v2
    k: 2
    fetchK: 6
    diversity: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	def, ok := reg.Get("credit-risk")
	require.True(t, ok)
	assert.Equal(t, "2024-06", reg.Version)
	assert.Equal(t, "credit_policy_v2", def.Collection)
	assert.Equal(t, 2, def.K)
	assert.Equal(t, 6, def.FetchK)
	assert.Equal(t, 0.3, def.DiversityOrDefault())
	assert.Equal(t, "credit_report", def.DocumentRole)
	assert.NotEmpty(t, def.OutputSchema)
}

func TestLoadRegistry_RejectsInvalidOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evaluators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evaluators:\n  - kind: credit-risk\n    k: 5\n    fetchK: 2\n"), 0o600))

	_, err := LoadRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetchK")
}

func TestLoadRegistry_EmptyPathReturnsDefaults(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Len(t, reg.Evaluators, 4)
}
