package container

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/pkg/types"
)

func tempContainerPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "strata-container-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "ds_test.sdc")
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	root := c.Root()
	root.SetAttr("dataset_id", "ds-1")
	root.SetAttr("layout", types.LayoutIndividual)

	vars, err := root.CreateGroup("vars")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	ext, err := vars.CreateExtent("temperature", types.DTypeFloat64, 10, 10)
	if err != nil {
		t.Fatalf("CreateExtent failed: %v", err)
	}
	ext.SetAttr("unit", "deg_C")
	ext.SetAttr("last_row", int64(0))

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()

	if v, _ := ro.Root().Attr("dataset_id"); v != "ds-1" {
		t.Errorf("dataset_id attr = %v", v)
	}
	vars2, ok := ro.Root().Group("vars")
	if !ok {
		t.Fatal("vars group missing after reopen")
	}
	ext2, ok := vars2.Extent("temperature")
	if !ok {
		t.Fatal("temperature extent missing after reopen")
	}
	if ext2.Capacity() != 10 {
		t.Errorf("capacity = %d, want 10", ext2.Capacity())
	}
	if v, _ := ext2.Attr("unit"); v != "deg_C" {
		t.Errorf("unit attr = %v", v)
	}
}

func TestCreateFailsIfExists(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c.Close()

	if _, err := Create(path); err == nil {
		t.Fatal("second Create must fail with exclusive-create semantics")
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := tempContainerPath(t)
	if err := os.WriteFile(path, []byte("definitely not a container, but long enough to read"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := Open(path, true)
	if err == nil {
		t.Fatal("expected error opening a non-container file")
	}
	if strataerrors.GetCode(err) != strataerrors.CodeNotContainer {
		t.Errorf("code = %q, want %q", strataerrors.GetCode(err), strataerrors.CodeNotContainer)
	}
}

func TestScalarWriteReadRoundTrip(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	vars, _ := c.Root().CreateGroup("vars")
	ext, err := vars.CreateExtent("v", types.DTypeFloat64, 5, 5)
	if err != nil {
		t.Fatalf("CreateExtent failed: %v", err)
	}

	want := []interface{}{1.5, -2.25, 0.0, 1e12, -0.001}
	if err := ext.WriteValues(0, want); err != nil {
		t.Fatalf("WriteValues failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()
	vars2, _ := ro.Root().Group("vars")
	ext2, _ := vars2.Extent("v")

	got, err := ext2.ReadValues(0, 5)
	if err != nil {
		t.Fatalf("ReadValues failed: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGrowAppendsWholeChunks(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	ext, err := c.Root().CreateExtent("v", types.DTypeInt64, 10, 10)
	if err != nil {
		t.Fatalf("CreateExtent failed: %v", err)
	}

	if err := ext.Grow(13); err != nil {
		t.Fatalf("Grow failed: %v", err)
	}
	if ext.Capacity() != 20 {
		t.Errorf("capacity = %d, want 20 (whole chunks only)", ext.Capacity())
	}

	// Growth never shrinks.
	if err := ext.Grow(5); err != nil {
		t.Fatalf("Grow failed: %v", err)
	}
	if ext.Capacity() != 20 {
		t.Errorf("capacity shrank to %d", ext.Capacity())
	}
}

func TestWritesAcrossChunkBoundary(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	ext, err := c.Root().CreateExtent("v", types.DTypeInt64, 4, 4)
	if err != nil {
		t.Fatalf("CreateExtent failed: %v", err)
	}
	if err := ext.Grow(12); err != nil {
		t.Fatalf("Grow failed: %v", err)
	}

	vals := make([]interface{}, 7)
	for i := range vals {
		vals[i] = int64(100 + i)
	}
	// Rows [2,9) span three chunks of four rows.
	if err := ext.WriteValues(2, vals); err != nil {
		t.Fatalf("WriteValues failed: %v", err)
	}

	got, err := ext.ReadValues(2, 9)
	if err != nil {
		t.Fatalf("ReadValues failed: %v", err)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("row %d = %v, want %v", i+2, got[i], vals[i])
		}
	}
}

func TestWriteBeyondCapacityFails(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	ext, _ := c.Root().CreateExtent("v", types.DTypeFloat64, 4, 4)
	err = ext.WriteValues(2, []interface{}{1.0, 2.0, 3.0})
	if err == nil {
		t.Fatal("write past capacity must fail")
	}
}

func TestRecordExtentWithSentinels(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	fields := []RecordField{
		{Name: "time", DType: types.DTypeUint64},
		{Name: "temperature", DType: types.DTypeFloat64},
		{Name: "count", DType: types.DTypeInt64},
	}
	ext, err := c.Root().CreateRecordExtent("data", fields, 4, 4)
	if err != nil {
		t.Fatalf("CreateRecordExtent failed: %v", err)
	}

	records := [][]interface{}{
		{uint64(42), 21.5, int64(7)},
		{uint64(43), nil, nil},
	}
	if err := ext.WriteRecords(0, records); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	got, err := ext.ReadRecords(0, 2)
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	if got[0][0] != uint64(42) || got[0][1] != 21.5 || got[0][2] != int64(7) {
		t.Errorf("record 0 = %v", got[0])
	}
	if !math.IsNaN(got[1][1].(float64)) {
		t.Errorf("absent float field should read back NaN, got %v", got[1][1])
	}
	if !IsNull(types.DTypeInt64, got[1][2]) {
		t.Errorf("absent int field should read back the null sentinel, got %v", got[1][2])
	}
	if IsNull(types.DTypeUint64, got[1][0]) {
		t.Error("present field must not be null")
	}
}

func TestChunkChecksumDetectsCorruption(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ext, _ := c.Root().CreateExtent("v", types.DTypeFloat64, 4, 4)
	if err := ext.WriteValues(0, []interface{}{1.0, 2.0, 3.0, 4.0}); err != nil {
		t.Fatalf("WriteValues failed: %v", err)
	}
	chunkOffset := ext.meta.Chunks[0].Offset
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Flip a byte inside the data chunk.
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF}, chunkOffset+3); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}
	f.Close()

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()
	ext2, _ := ro.Root().Extent("v")
	_, err = ext2.ReadValues(0, 4)
	if err == nil {
		t.Fatal("corrupted chunk must fail checksum verification")
	}
	if strataerrors.GetCode(err) != strataerrors.CodeCorruptedFile {
		t.Errorf("code = %q, want %q", strataerrors.GetCode(err), strataerrors.CodeCorruptedFile)
	}
}

func TestWalkVisitsEverythingInOrder(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer c.Close()

	vars, _ := c.Root().CreateGroup("vars")
	vars.CreateExtent("b_var", types.DTypeFloat64, 2, 2)
	vars.CreateExtent("a_var", types.DTypeFloat64, 2, 2)

	var visited []string
	err = c.Root().Walk(func(entry Entry) error {
		visited = append(visited, entry.Path())
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []string{"/", "/vars", "/vars/a_var", "/vars/b_var"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestReadonlyRejectsMutation(t *testing.T) {
	path := tempContainerPath(t)

	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c.Root().CreateExtent("v", types.DTypeFloat64, 2, 2)
	c.Close()

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()

	ext, _ := ro.Root().Extent("v")
	err = ext.WriteValues(0, []interface{}{1.0})
	if err == nil {
		t.Fatal("write on read-only container must fail")
	}
	var se *strataerrors.StrataError
	if !errors.As(err, &se) || se.Category != strataerrors.ErrCategoryStorage {
		t.Errorf("expected storage error, got %v", err)
	}
}
