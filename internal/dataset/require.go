package dataset

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratadb/strata/internal/container"
	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/internal/lockfile"
	"github.com/stratadb/strata/pkg/types"
)

// Require creates the dataset container if it does not exist yet and
// returns its path. Reopening an existing container returns it unchanged;
// no metadata is re-validated against the current schema.
//
// Creation runs under the exclusive lock with an exclusive-create flag, so
// concurrent first appends race safely: exactly one caller creates, the
// others observe the existing container.
func (p *Persistence) Require() (string, bool, error) {
	path := p.FilePath()
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", false, strataerrors.NewStorageError(strataerrors.CodeWriteFailed,
			fmt.Sprintf("create dataset directory for %s", p.schema.DatasetID), err)
	}

	lock, err := lockfile.AcquireExclusive(lockfile.SidecarPath(path), p.writeLock)
	if err != nil {
		return "", false, err
	}
	defer lock.Release()

	c, err := container.Create(path)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Lost the creation race; the winner's container is authoritative.
			return path, false, nil
		}
		return "", false, err
	}

	log.Printf("dataset: creating new container for dataset_id=%s, file=%s", p.schema.DatasetID, path)

	if err := p.initContainer(c); err != nil {
		c.Close()
		os.Remove(path)
		return "", false, err
	}
	if err := c.Close(); err != nil {
		os.Remove(path)
		return "", false, err
	}
	return path, true, nil
}

// initContainer writes the layout-appropriate initial extents: capacity of
// one row increment, all per-variable attributes, last_row zero everywhere.
func (p *Persistence) initContainer(c *container.File) error {
	root := c.Root()
	root.SetAttr(attrDatasetID, p.schema.DatasetID)
	root.SetAttr(attrLayout, p.schema.Layout)

	vars, err := root.CreateGroup(varsGroupName)
	if err != nil {
		return err
	}
	increment := p.schema.RowIncrement

	switch p.schema.Layout {
	case types.LayoutIndividual:
		for position, vi := range p.schema.Variables {
			ext, err := vars.CreateExtent(vi.Name, vi.StorageDType, increment, increment)
			if err != nil {
				return err
			}
			ext.SetAttr(attrBaseType, vi.BaseType)
			ext.SetAttr(attrPosition, position)
			ext.SetAttr(attrDescription, vi.Description)
			ext.SetAttr(attrUnit, vi.Unit)
			ext.SetAttr(attrLastRow, int64(0))
		}

	case types.LayoutCombined:
		fields := make([]container.RecordField, len(p.schema.Variables))
		reprParts := make([]string, len(p.schema.Variables))
		for i, vi := range p.schema.Variables {
			fields[i] = container.RecordField{Name: vi.Name, DType: vi.StorageDType}
			reprParts[i] = fmt.Sprintf("%s:%s", vi.Name, vi.StorageDType)
		}
		ext, err := vars.CreateRecordExtent(combinedExtentName, fields, increment, increment)
		if err != nil {
			return err
		}
		ext.SetAttr(attrDTypeRepr, strings.Join(reprParts, ","))
		ext.SetAttr(attrLastRow, int64(0))

	default:
		return strataerrors.NewInternalError(
			fmt.Sprintf("compiled schema has impossible layout %q", p.schema.Layout), nil)
	}
	return nil
}

// lastRow reads the committed high-water mark of an extent.
func lastRow(ext *container.Extent) int64 {
	v, ok := ext.Attr(attrLastRow)
	if !ok {
		return 0
	}
	n, _ := container.AttrInt64(v)
	return n
}
