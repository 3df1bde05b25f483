// cmd/tools/corpus-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"social-evaluation/internal/common/config"
	"social-evaluation/internal/common/database"
	apphttp "social-evaluation/internal/common/http"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/engine/corpus"
	"social-evaluation/pkg/registry"

	"gopkg.in/yaml.v3"
)

// seedFile maps a collection name to the passages written into it.
type seedFile struct {
	Collections map[string][]corpus.SeedPassage `yaml:"collections"`
}

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	seedPath := seedCmd.String("file", "configs/corpus-seed.yaml", "Path to the seed file")
	configPath := seedCmd.String("config", "", "Config file (defaults to configs/config.yaml)")
	only := seedCmd.String("collection", "", "Seed a single collection")

	validatePath := validateCmd.String("file", "configs/corpus-seed.yaml", "Path to the seed file")
	definitions := validateCmd.String("definitions", "configs/evaluators.yaml", "Evaluator definitions the seed must cover")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		seedCmd.Parse(os.Args[2:])
		if err := seed(*configPath, *seedPath, *only); err != nil {
			fmt.Printf("Seeding failed: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validate(*validatePath, *definitions); err != nil {
			fmt.Printf("Seed validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Seed validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &sf, nil
}

func seed(configPath, seedPath, only string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sf, err := loadSeed(seedPath)
	if err != nil {
		return err
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return err
	}
	store := corpus.NewElasticCorpus(es.Client, es.IndexPrefix, apphttp.DefaultRetryPolicy, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, name := range sortedCollections(sf) {
		if only != "" && name != only {
			continue
		}
		if err := store.EnsureCollection(ctx, name); err != nil {
			return err
		}
		n, err := store.IndexPassages(ctx, name, sf.Collections[name])
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d passages into %s\n", n, es.Index(name))
	}
	return nil
}

// validate checks that every passage has content and that each collection
// named by an evaluator definition has at least one passage.
func validate(seedPath, definitionsPath string) error {
	sf, err := loadSeed(seedPath)
	if err != nil {
		return err
	}
	if len(sf.Collections) == 0 {
		return fmt.Errorf("seed file contains no collections")
	}

	for name, passages := range sf.Collections {
		ids := make(map[string]bool)
		for i, p := range passages {
			if p.Content == "" {
				return fmt.Errorf("%s[%d]: empty content", name, i)
			}
			if p.ID == "" {
				continue
			}
			if ids[p.ID] {
				return fmt.Errorf("%s: duplicate passage id %s", name, p.ID)
			}
			ids[p.ID] = true
		}
	}

	reg, err := registry.LoadRegistry(definitionsPath)
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	for _, def := range reg.Evaluators {
		if len(sf.Collections[def.Collection]) == 0 {
			return fmt.Errorf("evaluator %s reads collection %s which has no passages", def.Kind, def.Collection)
		}
	}
	return nil
}

func sortedCollections(sf *seedFile) []string {
	names := make([]string, 0, len(sf.Collections))
	for name := range sf.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func help() {
	fmt.Println("Usage: corpus-seeder <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  seed      Create collections and index passages into Elasticsearch")
	fmt.Println("            -file <path> -config <path> -collection <name>")
	fmt.Println("  validate  Check the seed file against the evaluator definitions")
	fmt.Println("            -file <path> -definitions <path>")
	fmt.Println("  help      Show this help message")
}
