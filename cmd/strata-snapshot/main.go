// Package main implements the strata-snapshot tool.
// It exports a consistent copy of a dataset container to the configured
// object storage backend (local directory or S3).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/dataset"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/internal/storage"
)

func main() {
	var (
		configFile string
		dataDir    string
		schemaFile string
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&schemaFile, "schema", "", "Path to dataset schema file (YAML or JSON)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "strata-snapshot - export a dataset container to object storage\n\n")
		fmt.Fprintf(os.Stderr, "Usage: strata-snapshot -schema <file> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe storage backend comes from the configuration (storage.type).\n")
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

	ctx := context.Background()

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	engine := dataset.New(cfg, compiled)
	objectPath, err := engine.Snapshot(ctx, store)
	if err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}

	fmt.Println(objectPath)
}

// buildStorage constructs the snapshot backend selected by the configuration.
func buildStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
		})
	default:
		return storage.NewLocalStorage(cfg.Storage.Path)
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
