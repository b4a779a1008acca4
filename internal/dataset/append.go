package dataset

import (
	"fmt"
	"log"

	"github.com/stratadb/strata/internal/container"
	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/internal/lockfile"
	"github.com/stratadb/strata/pkg/types"
)

// nextCapacity implements the shared resize policy: growth always leaves at
// least one full increment of headroom beyond the immediate need, amortizing
// growth cost across many small appends.
func nextCapacity(current, numRows, increment int64) int64 {
	return current + (numRows/increment+1)*increment
}

// Extend appends the packet's rows to the dataset container, creating the
// container on first append. The batch occupies exactly
// [last_row, last_row+n) in every extent it touches; last_row is advanced
// only after the rows are written, so a mid-batch failure never loses
// committed rows.
//
// In individual layout each packet column advances its own extent's
// last_row; schema variables absent from the packet are left untouched.
// A partial failure may therefore leave some variables advanced and others
// not, which is an accepted property of the layout.
func (p *Persistence) Extend(packet *types.IngestionPacket) error {
	numRows := packet.NumRows()
	if numRows == 0 {
		return nil
	}

	path, _, err := p.Require()
	if err != nil {
		return err
	}

	lock, err := lockfile.AcquireExclusive(lockfile.SidecarPath(path), p.writeLock)
	if err != nil {
		return err
	}
	defer lock.Release()

	c, err := container.Open(path, false)
	if err != nil {
		return err
	}
	defer c.Close()

	vars, ok := c.Root().Group(varsGroupName)
	if !ok {
		return strataerrors.NewStorageError(strataerrors.CodeCorruptedFile,
			fmt.Sprintf("container %s has no variables group", path), nil)
	}

	switch p.schema.Layout {
	case types.LayoutIndividual:
		if err := p.extendIndividual(vars, packet, numRows); err != nil {
			return err
		}
	case types.LayoutCombined:
		if err := p.extendCombined(vars, packet, numRows); err != nil {
			return err
		}
	}

	// Close commits the metadata; the returned error surfaces commit failures.
	return c.Close()
}

func (p *Persistence) extendIndividual(vars *container.Group, packet *types.IngestionPacket, numRows int64) error {
	for _, varName := range packet.Cols {
		ext, ok := vars.Extent(varName)
		if !ok {
			log.Printf("dataset: variable %q not in dataset - ignored", varName)
			continue
		}

		curIdx := lastRow(ext)
		if curIdx+numRows > ext.Capacity() {
			newCap := nextCapacity(ext.Capacity(), numRows, p.schema.RowIncrement)
			log.Printf("dataset: resizing extent %s from %d to %d rows", ext.Path(), ext.Capacity(), newCap)
			if err := ext.Grow(newCap); err != nil {
				return err
			}
		}

		if err := ext.WriteValues(curIdx, packet.Column(varName)); err != nil {
			return err
		}
		ext.SetAttr(attrLastRow, curIdx+numRows)
	}
	return nil
}

func (p *Persistence) extendCombined(vars *container.Group, packet *types.IngestionPacket, numRows int64) error {
	ext, ok := vars.Extent(combinedExtentName)
	if !ok {
		return strataerrors.NewStorageError(strataerrors.CodeCorruptedFile,
			"cannot find combined record extent", nil)
	}

	curIdx := lastRow(ext)
	if curIdx+numRows > ext.Capacity() {
		newCap := nextCapacity(ext.Capacity(), numRows, p.schema.RowIncrement)
		log.Printf("dataset: resizing extent %s from %d to %d rows", ext.Path(), ext.Capacity(), newCap)
		if err := ext.Grow(newCap); err != nil {
			return err
		}
	}

	// Column index within the packet for every schema field present in it.
	colIdx := make(map[string]int, len(packet.Cols))
	for i, col := range packet.Cols {
		if p.schema.HasVariable(col) {
			colIdx[col] = i
		} else {
			log.Printf("dataset: variable %q not in dataset - ignored", col)
		}
	}

	records := make([][]interface{}, numRows)
	for rowIdx := int64(0); rowIdx < numRows; rowIdx++ {
		row := packet.Rows[rowIdx]
		record := make([]interface{}, len(p.schema.Variables))
		for fieldIdx, vi := range p.schema.Variables {
			if i, present := colIdx[vi.Name]; present && i < len(row) {
				record[fieldIdx] = row[i]
			}
			// Absent fields stay nil and store the null sentinel.
		}
		records[rowIdx] = record
	}

	if err := ext.WriteRecords(curIdx, records); err != nil {
		return err
	}
	ext.SetAttr(attrLastRow, curIdx+numRows)
	return nil
}
