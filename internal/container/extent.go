package container

import (
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/stratadb/strata/internal/errors"
)

// Extent is a growable, typed storage region holding one variable's
// values, or one composite record per row when created with fields.
type Extent struct {
	f    *File
	meta *extentMeta
	path string
}

// Path returns the hierarchical path of the extent.
func (e *Extent) Path() string {
	return e.path
}

// Capacity returns the allocated capacity in rows.
func (e *Extent) Capacity() int64 {
	return e.meta.Capacity
}

// ChunkRows returns the number of rows per chunk.
func (e *Extent) ChunkRows() int64 {
	return e.meta.ChunkRows
}

// DType returns the cell dtype of a scalar extent, or "" for record extents.
func (e *Extent) DType() string {
	return e.meta.DType
}

// Fields returns the record fields of a composite extent, or nil for
// scalar extents.
func (e *Extent) Fields() []RecordField {
	return e.meta.Fields
}

// IsRecord reports whether the extent stores composite records.
func (e *Extent) IsRecord() bool {
	return len(e.meta.Fields) > 0
}

// SetAttr sets an extent attribute. Attribute values must be JSON-encodable.
func (e *Extent) SetAttr(key string, value interface{}) {
	if e.meta.Attrs == nil {
		e.meta.Attrs = make(map[string]interface{})
	}
	e.meta.Attrs[key] = value
	e.f.markDirty()
}

// Attr returns an extent attribute.
func (e *Extent) Attr(key string) (interface{}, bool) {
	v, ok := e.meta.Attrs[key]
	return v, ok
}

// Attrs returns the extent's attribute map. Callers must not mutate it.
func (e *Extent) Attrs() map[string]interface{} {
	return e.meta.Attrs
}

// cellSize returns the width of one row in bytes.
func (e *Extent) cellSize() int64 {
	if n := len(e.meta.Fields); n > 0 {
		return 8 * int64(n)
	}
	return 8
}

func (e *Extent) chunkBytes() int64 {
	return e.meta.ChunkRows * e.cellSize()
}

// Grow extends the extent to hold at least newCapacity rows by appending
// zero-filled chunks. Capacity never shrinks and is always a whole number
// of chunks.
func (e *Extent) Grow(newCapacity int64) error {
	if newCapacity <= e.meta.Capacity {
		return nil
	}
	chunkRows := e.meta.ChunkRows
	needChunks := (newCapacity + chunkRows - 1) / chunkRows

	zero := make([]byte, e.chunkBytes())
	zeroSum := murmur3.Sum64(zero)
	for int64(len(e.meta.Chunks)) < needChunks {
		offset, err := e.f.appendBlock(zero)
		if err != nil {
			return errors.NewStorageError(errors.CodeResizeFailed,
				fmt.Sprintf("grow extent %s", e.path), err)
		}
		e.meta.Chunks = append(e.meta.Chunks, chunkRef{Offset: offset, Sum: zeroSum})
	}
	e.meta.Capacity = int64(len(e.meta.Chunks)) * chunkRows
	e.f.markDirty()
	return nil
}

// loadChunk reads chunk ci and verifies its content hash.
func (e *Extent) loadChunk(ci int64) ([]byte, error) {
	ref := e.meta.Chunks[ci]
	buf, err := e.f.readBlock(ref.Offset, e.chunkBytes())
	if err != nil {
		return nil, err
	}
	if murmur3.Sum64(buf) != ref.Sum {
		return nil, errors.New(errors.ErrCategoryStorage, errors.CodeCorruptedFile,
			fmt.Sprintf("chunk %d of extent %s failed checksum verification", ci, e.path))
	}
	return buf, nil
}

func (e *Extent) storeChunk(ci int64, buf []byte) error {
	ref := &e.meta.Chunks[ci]
	if err := e.f.writeBlock(ref.Offset, buf); err != nil {
		return err
	}
	ref.Sum = murmur3.Sum64(buf)
	e.f.markDirty()
	return nil
}

// WriteValues writes vals contiguously starting at row start. The extent
// must be scalar. A nil value writes the dtype's null sentinel.
func (e *Extent) WriteValues(start int64, vals []interface{}) error {
	if e.IsRecord() {
		return errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("extent %s stores records, not scalar values", e.path), nil)
	}
	return e.writeRows(start, int64(len(vals)), func(row int64, cell []byte) error {
		return encodeCell(e.meta.DType, vals[row-start], cell)
	})
}

// WriteRecords writes composite records contiguously starting at row
// start. Each record must have one value per field, in field order; nil
// values write the field dtype's null sentinel.
func (e *Extent) WriteRecords(start int64, records [][]interface{}) error {
	if !e.IsRecord() {
		return errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("extent %s stores scalar values, not records", e.path), nil)
	}
	fields := e.meta.Fields
	return e.writeRows(start, int64(len(records)), func(row int64, cell []byte) error {
		record := records[row-start]
		if len(record) != len(fields) {
			return errors.NewStorageError(errors.CodeWriteFailed,
				fmt.Sprintf("record has %d values, extent %s has %d fields",
					len(record), e.path, len(fields)), nil)
		}
		for j, field := range fields {
			if err := encodeCell(field.DType, record[j], cell[j*8:(j+1)*8]); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRows encodes rows [start, start+count) chunk by chunk. encode fills
// the cell bytes of one row.
func (e *Extent) writeRows(start, count int64, encode func(row int64, cell []byte) error) error {
	if count == 0 {
		return nil
	}
	end := start + count
	if start < 0 || end > e.meta.Capacity {
		return errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("write rows [%d,%d) out of extent %s capacity %d",
				start, end, e.path, e.meta.Capacity), nil)
	}

	cellSize := e.cellSize()
	chunkRows := e.meta.ChunkRows
	for ci := start / chunkRows; ci*chunkRows < end; ci++ {
		buf, err := e.loadChunk(ci)
		if err != nil {
			return err
		}
		lo := max64(start, ci*chunkRows)
		hi := min64(end, (ci+1)*chunkRows)
		for row := lo; row < hi; row++ {
			cell := buf[(row-ci*chunkRows)*cellSize : (row-ci*chunkRows+1)*cellSize]
			if err := encode(row, cell); err != nil {
				return err
			}
		}
		if err := e.storeChunk(ci, buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadValues reads rows [start, end) of a scalar extent.
func (e *Extent) ReadValues(start, end int64) ([]interface{}, error) {
	if e.IsRecord() {
		return nil, errors.NewQueryError(errors.CodeReadFailed,
			fmt.Sprintf("extent %s stores records, not scalar values", e.path))
	}
	vals := make([]interface{}, 0, max64(end-start, 0))
	err := e.readRows(start, end, func(cell []byte) {
		vals = append(vals, decodeCell(e.meta.DType, cell))
	})
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// ReadRecords reads rows [start, end) of a composite record extent.
func (e *Extent) ReadRecords(start, end int64) ([][]interface{}, error) {
	if !e.IsRecord() {
		return nil, errors.NewQueryError(errors.CodeReadFailed,
			fmt.Sprintf("extent %s stores scalar values, not records", e.path))
	}
	fields := e.meta.Fields
	records := make([][]interface{}, 0, max64(end-start, 0))
	err := e.readRows(start, end, func(cell []byte) {
		record := make([]interface{}, len(fields))
		for j, field := range fields {
			record[j] = decodeCell(field.DType, cell[j*8:(j+1)*8])
		}
		records = append(records, record)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Extent) readRows(start, end int64, visit func(cell []byte)) error {
	if start < 0 || end > e.meta.Capacity || start > end {
		return errors.NewStorageError(errors.CodeReadFailed,
			fmt.Sprintf("read rows [%d,%d) out of extent %s capacity %d",
				start, end, e.path, e.meta.Capacity), nil)
	}
	if start == end {
		return nil
	}

	cellSize := e.cellSize()
	chunkRows := e.meta.ChunkRows
	for ci := start / chunkRows; ci*chunkRows < end; ci++ {
		buf, err := e.loadChunk(ci)
		if err != nil {
			return err
		}
		lo := max64(start, ci*chunkRows)
		hi := min64(end, (ci+1)*chunkRows)
		for row := lo; row < hi; row++ {
			visit(buf[(row-ci*chunkRows)*cellSize : (row-ci*chunkRows+1)*cellSize])
		}
	}
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
