package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratadb/strata/pkg/types"
)

// LoadFromFile reads a raw dataset schema from a YAML or JSON file.
// The result still needs Compile before use.
func LoadFromFile(path string) (*types.DatasetSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	raw := &types.DatasetSchema{}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML schema: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported schema file format: %s", ext)
	}

	return raw, nil
}
