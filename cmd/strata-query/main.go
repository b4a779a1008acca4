// Package main implements the strata-query tool.
// It reads a trailing window of a dataset container and prints the result
// as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

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
		varList    string
		maxRows    int64
		timeFormat string
		transpose  bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&schemaFile, "schema", "", "Path to dataset schema file (YAML or JSON)")
	flag.StringVar(&varList, "vars", "", "Comma-separated variable names (default: all)")
	flag.Int64Var(&maxRows, "max-rows", 0, "Maximum trailing rows to return (default: unbounded)")
	flag.StringVar(&timeFormat, "time-format", types.TimeFormatUnixMillis, "Time format for the time variable")
	flag.BoolVar(&transpose, "transpose", false, "Pair every series with the time series")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "strata-query - read a trailing window of a dataset container\n\n")
		fmt.Fprintf(os.Stderr, "Usage: strata-query -schema <file> [options]\n\n")
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

	filter := &types.QueryFilter{
		TimeFormat:    timeFormat,
		MaxRows:       maxRows,
		TransposeTime: transpose,
	}
	if varList != "" {
		filter.Variables = strings.Split(varList, ",")
	}

	engine := dataset.New(cfg, compiled)
	result, err := engine.Query(filter)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
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
