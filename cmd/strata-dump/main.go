// Package main implements the strata-dump tool.
// It prints the hierarchical structure, attributes, and optionally the
// contents of a dataset container for inspection.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/dataset"
	"github.com/stratadb/strata/internal/schema"
)

func main() {
	var (
		configFile string
		dataDir    string
		schemaFile string
		withData   bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&schemaFile, "schema", "", "Path to dataset schema file (YAML or JSON)")
	flag.BoolVar(&withData, "data", false, "Include extent contents in the listing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "strata-dump - inspect a dataset container\n\n")
		fmt.Fprintf(os.Stderr, "Usage: strata-dump -schema <file> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if schemaFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configFile, dataDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	raw, err := schema.LoadFromFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}
	compiled, err := schema.Compile(raw)
	if err != nil {
		log.Fatalf("Invalid schema: %v", err)
	}

	engine := dataset.New(cfg, compiled)
	if err := engine.Dump(os.Stdout, withData); err != nil {
		log.Fatalf("Dump failed: %v", err)
	}
}

func loadConfig(configFile, dataDir string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
