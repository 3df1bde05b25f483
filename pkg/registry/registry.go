// pkg/registry/registry.go
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EvaluatorRegistry is the set of evaluator definitions known to a deployment.
type EvaluatorRegistry struct {
	Version    string       `yaml:"version" json:"version"`
	Evaluators []Definition `yaml:"evaluators" json:"evaluators"`
}

// Definition fixes everything about one evaluator kind: which document it
// reads, which corpus collection grounds it and what its verdict looks like.
type Definition struct {
	Kind              string                 `yaml:"kind" json:"kind"`
	DisplayName       string                 `yaml:"displayName" json:"displayName"`
	DocumentRole      string                 `yaml:"documentRole" json:"documentRole"`
	Collection        string                 `yaml:"collection" json:"collection"`
	K                 int                    `yaml:"k" json:"k"`
	FetchK            int                    `yaml:"fetchK" json:"fetchK"`
	Diversity         *float64               `yaml:"diversity" json:"diversity"`
	SystemInstruction string                 `yaml:"systemInstruction" json:"systemInstruction"`
	QueryInstruction  string                 `yaml:"queryInstruction" json:"queryInstruction"`
	OutputSchema      map[string]interface{} `yaml:"outputSchema" json:"outputSchema"`
	Tags              []string               `yaml:"tags" json:"tags"`
}

// DiversityOrDefault returns the retrieval diversity, 0.5 when unset.
// Higher values favour novel passages over relevant ones.
func (d Definition) DiversityOrDefault() float64 {
	if d.Diversity == nil {
		return 0.5
	}
	return *d.Diversity
}

// Validate checks a definition is usable.
func (d Definition) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("evaluator definition without kind")
	}
	if d.Collection == "" {
		return fmt.Errorf("%s: collection is required", d.Kind)
	}
	if d.K < 1 || d.FetchK < d.K {
		return fmt.Errorf("%s: need 1 <= k <= fetchK, got k=%d fetchK=%d", d.Kind, d.K, d.FetchK)
	}
	if div := d.DiversityOrDefault(); div < 0 || div > 1 {
		return fmt.Errorf("%s: diversity must be within [0,1], got %v", d.Kind, div)
	}
	if d.SystemInstruction == "" {
		return fmt.Errorf("%s: systemInstruction is required", d.Kind)
	}
	if len(d.OutputSchema) == 0 {
		return fmt.Errorf("%s: outputSchema is required", d.Kind)
	}
	return nil
}

// Defaults returns the built-in definitions.
func Defaults() *EvaluatorRegistry {
	defs := defaultDefinitions()
	half := 0.5
	for i := range defs {
		if defs[i].Diversity == nil {
			defs[i].Diversity = &half
		}
	}
	return &EvaluatorRegistry{Version: "builtin", Evaluators: defs}
}

// LoadRegistry reads a YAML (or JSON) definitions file and lays it over the
// built-in definitions. An empty path returns the defaults.
func LoadRegistry(path string) (*EvaluatorRegistry, error) {
	reg := Defaults()
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay EvaluatorRegistry
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if overlay.Version != "" {
		reg.Version = overlay.Version
	}
	for _, def := range overlay.Evaluators {
		reg.merge(def)
	}
	for _, def := range reg.Evaluators {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Get returns the definition of kind.
func (r *EvaluatorRegistry) Get(kind string) (Definition, bool) {
	for _, def := range r.Evaluators {
		if def.Kind == kind {
			return def, true
		}
	}
	return Definition{}, false
}

func (r *EvaluatorRegistry) merge(def Definition) {
	for i, cur := range r.Evaluators {
		if cur.Kind != def.Kind {
			continue
		}
		if def.DisplayName != "" {
			cur.DisplayName = def.DisplayName
		}
		if def.DocumentRole != "" {
			cur.DocumentRole = def.DocumentRole
		}
		if def.Collection != "" {
			cur.Collection = def.Collection
		}
		if def.K != 0 {
			cur.K = def.K
		}
		if def.FetchK != 0 {
			cur.FetchK = def.FetchK
		}
		if def.Diversity != nil {
			cur.Diversity = def.Diversity
		}
		if def.SystemInstruction != "" {
			cur.SystemInstruction = def.SystemInstruction
		}
		if def.QueryInstruction != "" {
			cur.QueryInstruction = def.QueryInstruction
		}
		if len(def.OutputSchema) > 0 {
			cur.OutputSchema = def.OutputSchema
		}
		if len(def.Tags) > 0 {
			cur.Tags = def.Tags
		}
		r.Evaluators[i] = cur
		return
	}
	r.Evaluators = append(r.Evaluators, def)
}
