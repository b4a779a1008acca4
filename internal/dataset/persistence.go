// Package dataset implements the persistence engine for columnar scientific
// time-series data: container creation, incremental append from ingestion
// packets, and windowed unit-converted reads.
package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/lockfile"
	"github.com/stratadb/strata/internal/schema"
)

const (
	// FilePrefix and FileExt form the container file name for a dataset id.
	FilePrefix = "ds_"
	FileExt    = ".sdc"

	// varsGroupName is the container group holding variable extents.
	varsGroupName = "vars"

	// combinedExtentName is the single record extent of combined layout.
	combinedExtentName = "data"

	// Attribute keys on container entries.
	attrDatasetID   = "dataset_id"
	attrLayout      = "layout"
	attrBaseType    = "base_type"
	attrPosition    = "position"
	attrDescription = "description"
	attrUnit        = "unit"
	attrLastRow     = "last_row"
	attrDTypeRepr   = "dtype_repr"
)

// Persistence is the storage engine for one dataset schema. It is an
// explicitly constructed object; every public operation opens the
// container, does its work under the file lock, and closes it before
// returning. No handle or lock outlives an operation.
type Persistence struct {
	schema  *schema.Compiled
	baseDir string

	writeLock lockfile.Options
	readLock  lockfile.Options
}

// New creates a persistence engine for a compiled dataset schema.
func New(cfg *config.Config, compiled *schema.Compiled) *Persistence {
	return &Persistence{
		schema:  compiled,
		baseDir: cfg.DatasetDir(),
		writeLock: lockfile.Options{
			RetryCount: cfg.Lock.RetryCount,
			RetryWait:  cfg.Lock.WriteRetryWait,
		},
		readLock: lockfile.Options{
			RetryCount: cfg.Lock.RetryCount,
			RetryWait:  cfg.Lock.ReadRetryWait,
		},
	}
}

// Schema returns the compiled schema the engine was constructed with.
func (p *Persistence) Schema() *schema.Compiled {
	return p.schema
}

// FilePath returns the deterministic container path for the dataset id.
func (p *Persistence) FilePath() string {
	return filepath.Join(p.baseDir, fmt.Sprintf("%s%s%s", FilePrefix, p.schema.DatasetID, FileExt))
}
