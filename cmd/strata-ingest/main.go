// Package main implements the strata-ingest tool.
// It appends ingestion packets from a JSON file (or stdin) to a dataset
// container, creating the container on first use and registering the
// dataset in the catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/stratadb/strata/internal/catalog"
	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/dataset"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/pkg/types"
)

func main() {
	var (
		configFile string
		dataDir    string
		schemaFile string
		inputFile  string
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&schemaFile, "schema", "", "Path to dataset schema file (YAML or JSON)")
	flag.StringVar(&inputFile, "input", "-", "Path to ingestion packet JSON file (- for stdin)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "strata-ingest - append packets to a dataset container\n\n")
		fmt.Fprintf(os.Stderr, "Usage: strata-ingest -schema <file> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nPacket input is a JSON object or array of objects of the form\n")
		fmt.Fprintf(os.Stderr, "  {\"cols\": [\"time\", \"temperature\"], \"rows\": [[...], ...]}\n")
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
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	raw, err := schema.LoadFromFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}
	compiled, err := schema.Compile(raw)
	if err != nil {
		log.Fatalf("Invalid schema: %v", err)
	}

	packets, err := readPackets(inputFile)
	if err != nil {
		log.Fatalf("Failed to read packets: %v", err)
	}

	engine := dataset.New(cfg, compiled)

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	ctx := context.Background()
	if err := cat.Register(ctx, raw, compiled.Layout, engine.FilePath()); err != nil {
		log.Fatalf("Failed to register dataset: %v", err)
	}

	var total int64
	for i, packet := range packets {
		if err := engine.Extend(packet); err != nil {
			log.Fatalf("Failed to append packet %d: %v", i, err)
		}
		total += packet.NumRows()
	}

	log.Printf("Appended %d rows in %d packets to dataset %s", total, len(packets), compiled.DatasetID)
}

// loadConfig layers configuration: defaults, optional file, environment,
// then command line flags.
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

// readPackets decodes one packet object or an array of packet objects.
func readPackets(path string) ([]*types.IngestionPacket, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var packets []*types.IngestionPacket
	if err := json.Unmarshal(data, &packets); err == nil {
		return packets, nil
	}

	packet := &types.IngestionPacket{}
	if err := json.Unmarshal(data, packet); err != nil {
		return nil, fmt.Errorf("input is neither a packet nor an array of packets: %w", err)
	}
	return []*types.IngestionPacket{packet}, nil
}
