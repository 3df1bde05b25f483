package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullSeed = `collections:
  credit_policy_collection:
    - id: a
      content: DTI >= 0.4 is not eligible
  hardship_guidelines:
    - content: burden above 0.8 is severe
  career_trends:
    - content: data analysts are in demand
  upskilling_training:
    - content: SQL bootcamp
`

func TestValidate_CoversBuiltinDefinitions(t *testing.T) {
	seed := writeFile(t, "seed.yaml", fullSeed)
	assert.NoError(t, validate(seed, ""))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{"no collections", "collections: {}\n"},
		{"missing collection", "collections:\n  career_trends:\n    - content: x\n"},
		{"empty content", fullSeed + "  extra:\n    - id: b\n      content: \"\"\n"},
		{"duplicate id", fullSeed + "  extra:\n    - id: b\n      content: x\n    - id: b\n      content: y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validate(writeFile(t, "seed.yaml", tt.seed), ""))
		})
	}
}

func TestSortedCollections(t *testing.T) {
	sf, err := loadSeed(writeFile(t, "seed.yaml", fullSeed))
	require.NoError(t, err)
	assert.Equal(t, []string{"career_trends", "credit_policy_collection", "hardship_guidelines", "upskilling_training"}, sortedCollections(sf))
}
