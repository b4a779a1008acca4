// Package container implements the SDC (Strata Dataset Container) file
// format: a single self-describing binary file holding hierarchical named
// extents with attached metadata.
//
// Layout on disk:
//
//	superblock (32 bytes, fixed at offset 0)
//	  magic "SDC1", format version, offset/length/CRC32 of the current
//	  metadata block
//	body
//	  data chunks and metadata blocks, appended at end of file
//
// Data is stored in fixed-size chunks of chunk_rows rows each; every chunk
// carries a murmur3 content hash in the extent's chunk table, refreshed on
// write and verified on read. Metadata (the group tree, extent attributes,
// chunk tables, high-water marks) is snappy-compressed JSON protected by a
// CRC32. A commit appends the new metadata block, then swings the
// superblock to it; a torn write leaves the previously committed state
// reachable.
package container

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/stratadb/strata/internal/errors"
)

const (
	magic   = "SDC1"
	version = 1

	superblockSize = 32
)

// RecordField is one named field of a composite record extent.
type RecordField struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

type chunkRef struct {
	Offset int64  `json:"offset"`
	Sum    uint64 `json:"sum"`
}

type extentMeta struct {
	DType     string                 `json:"dtype,omitempty"`
	Fields    []RecordField          `json:"fields,omitempty"`
	Attrs     map[string]interface{} `json:"attrs"`
	Capacity  int64                  `json:"capacity"`
	ChunkRows int64                  `json:"chunk_rows"`
	Chunks    []chunkRef             `json:"chunks"`
}

type groupMeta struct {
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Groups  map[string]*groupMeta  `json:"groups,omitempty"`
	Extents map[string]*extentMeta `json:"extents,omitempty"`
}

type fileMeta struct {
	Root *groupMeta `json:"root"`
}

// File is an open SDC container. A File is scoped to a single operation:
// open, mutate, close. It is not safe for concurrent use; cross-process
// sharing is mediated by the caller's file lock.
type File struct {
	f        *os.File
	path     string
	readonly bool
	meta     *fileMeta
	eof      int64
	dirty    bool
}

// Create creates a new container file at path with an exclusive-create
// flag, failing if the file already exists. The empty group tree is
// committed before Create returns.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("create container %s", path), err)
	}

	c := &File{
		f:     f,
		path:  path,
		meta:  &fileMeta{Root: &groupMeta{}},
		eof:   superblockSize,
		dirty: true,
	}

	// Reserve the superblock region before the first commit fills it in.
	if _, err := f.WriteAt(make([]byte, superblockSize), 0); err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.NewStorageError(errors.CodeWriteFailed, "write superblock", err)
	}
	if err := c.Commit(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return c, nil
}

// Open opens an existing container file. With readonly set, mutations are
// rejected and Close never writes.
func Open(path string, readonly bool) (*File, error) {
	mode := os.O_RDWR
	if readonly {
		mode = os.O_RDONLY
	}
	f, err := os.OpenFile(path, mode, 0644)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeReadFailed,
			fmt.Sprintf("open container %s", path), err)
	}

	c := &File{f: f, path: path, readonly: readonly}
	if err := c.readMeta(); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *File) readMeta() error {
	buf := make([]byte, superblockSize)
	if _, err := c.f.ReadAt(buf, 0); err != nil {
		return errors.NewStorageError(errors.CodeReadFailed, "read superblock", err)
	}
	if string(buf[:4]) != magic {
		return errors.New(errors.ErrCategoryStorage, errors.CodeNotContainer,
			fmt.Sprintf("%s is not an SDC container", c.path))
	}
	ver := binary.LittleEndian.Uint32(buf[4:8])
	if ver != version {
		return errors.New(errors.ErrCategoryStorage, errors.CodeNotContainer,
			fmt.Sprintf("unsupported container format version %d", ver))
	}
	metaOffset := int64(binary.LittleEndian.Uint64(buf[8:16]))
	metaLen := int64(binary.LittleEndian.Uint64(buf[16:24]))
	metaCRC := binary.LittleEndian.Uint32(buf[24:28])

	compressed := make([]byte, metaLen)
	if _, err := c.f.ReadAt(compressed, metaOffset); err != nil {
		return errors.NewStorageError(errors.CodeReadFailed, "read metadata block", err)
	}
	if crc32.ChecksumIEEE(compressed) != metaCRC {
		return errors.New(errors.ErrCategoryStorage, errors.CodeCorruptedFile,
			fmt.Sprintf("metadata checksum mismatch in %s", c.path))
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return errors.NewStorageError(errors.CodeCorruptedFile, "decompress metadata", err)
	}
	meta := &fileMeta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return errors.NewStorageError(errors.CodeCorruptedFile, "decode metadata", err)
	}
	if meta.Root == nil {
		meta.Root = &groupMeta{}
	}
	c.meta = meta

	stat, err := c.f.Stat()
	if err != nil {
		return errors.NewStorageError(errors.CodeReadFailed, "stat container", err)
	}
	c.eof = stat.Size()
	return nil
}

// Commit persists the current metadata state: the metadata block is
// appended, synced, and then the superblock is swung to it. The superblock
// rewrite is the commit point.
func (c *File) Commit() error {
	if c.readonly {
		return errors.NewStorageError(errors.CodeWriteFailed, "container opened read-only", nil)
	}

	raw, err := json.Marshal(c.meta)
	if err != nil {
		return errors.NewInternalError("encode metadata", err)
	}
	compressed := snappy.Encode(nil, raw)

	metaOffset := c.eof
	if _, err := c.f.WriteAt(compressed, metaOffset); err != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "write metadata block", err)
	}
	if err := c.f.Sync(); err != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "sync metadata block", err)
	}
	c.eof = metaOffset + int64(len(compressed))

	var sb bytes.Buffer
	sb.WriteString(magic)
	binary.Write(&sb, binary.LittleEndian, uint32(version))
	binary.Write(&sb, binary.LittleEndian, uint64(metaOffset))
	binary.Write(&sb, binary.LittleEndian, uint64(len(compressed)))
	binary.Write(&sb, binary.LittleEndian, crc32.ChecksumIEEE(compressed))
	binary.Write(&sb, binary.LittleEndian, uint32(0))

	if _, err := c.f.WriteAt(sb.Bytes(), 0); err != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "write superblock", err)
	}
	if err := c.f.Sync(); err != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "sync superblock", err)
	}
	c.dirty = false
	return nil
}

// Close commits pending metadata (unless read-only) and closes the file.
func (c *File) Close() error {
	if c.f == nil {
		return nil
	}
	var commitErr error
	if c.dirty && !c.readonly {
		commitErr = c.Commit()
	}
	closeErr := c.f.Close()
	c.f = nil
	if commitErr != nil {
		return commitErr
	}
	if closeErr != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "close container", closeErr)
	}
	return nil
}

// Path returns the container file path.
func (c *File) Path() string {
	return c.path
}

// Root returns the root group of the container hierarchy.
func (c *File) Root() *Group {
	return &Group{f: c, meta: c.meta.Root, path: "/"}
}

func (c *File) markDirty() {
	c.dirty = true
}

// appendBlock reserves space at end of file and writes buf there,
// returning the block offset.
func (c *File) appendBlock(buf []byte) (int64, error) {
	offset := c.eof
	if _, err := c.f.WriteAt(buf, offset); err != nil {
		return 0, errors.NewStorageError(errors.CodeWriteFailed, "append block", err)
	}
	c.eof = offset + int64(len(buf))
	return offset, nil
}

func (c *File) readBlock(offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := c.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, errors.NewStorageError(errors.CodeReadFailed, "read block", err)
	}
	return buf, nil
}

func (c *File) writeBlock(offset int64, buf []byte) error {
	if c.readonly {
		return errors.NewStorageError(errors.CodeWriteFailed, "container opened read-only", nil)
	}
	if _, err := c.f.WriteAt(buf, offset); err != nil {
		return errors.NewStorageError(errors.CodeWriteFailed, "write block", err)
	}
	return nil
}
