// Package integration provides end-to-end integration tests for Strata.
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stratadb/strata/internal/catalog"
	"github.com/stratadb/strata/internal/config"
	"github.com/stratadb/strata/internal/dataset"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/internal/storage"
	"github.com/stratadb/strata/pkg/ntptime"
	"github.com/stratadb/strata/pkg/types"
)

func newEnv(t *testing.T) *config.Config {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "strata-integration-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	cfg := config.DefaultConfig()
	cfg.DataDir = tempDir
	cfg.Lock.WriteRetryWait = 10 * time.Millisecond
	cfg.Lock.ReadRetryWait = 10 * time.Millisecond
	cfg.Resolve()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	return cfg
}

func rawSchema() *types.DatasetSchema {
	return &types.DatasetSchema{
		DatasetID: "ctd-profiler-17",
		Variables: []types.VariableDef{
			{Name: "time", BaseType: types.BaseTypeNTPTime, StorageDType: types.DTypeUint64,
				Description: "sample timestamp", Unit: "seconds since 1900-01-01"},
			{Name: "temperature", BaseType: types.BaseTypeFloat, StorageDType: types.DTypeFloat64,
				Description: "water temperature", Unit: "deg_C"},
			{Name: "conductivity", BaseType: types.BaseTypeFloat, StorageDType: types.DTypeFloat64,
				Description: "conductivity", Unit: "S m-1"},
		},
		Persistence: types.PersistenceAttrs{
			Layout:       types.LayoutIndividual,
			RowIncrement: 10,
		},
	}
}

func packet(startMillis int64, n int) *types.IngestionPacket {
	rows := make([][]interface{}, n)
	for i := 0; i < n; i++ {
		rows[i] = []interface{}{
			uint64(ntptime.FromUnixMillis(startMillis + int64(i)*1000)),
			10.0 + float64(i)*0.25,
			3.5 + float64(i)*0.01,
		}
	}
	return &types.IngestionPacket{
		Cols: []string{"time", "temperature", "conductivity"},
		Rows: rows,
	}
}

// TestDatasetLifecycle drives the full flow: schema compilation, catalog
// registration, lazy container creation on first append, capacity growth on
// the second append, windowed queries with time conversion, and a snapshot
// export to object storage.
func TestDatasetLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := newEnv(t)

	raw := rawSchema()
	compiled, err := schema.Compile(raw)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}

	engine := dataset.New(cfg, compiled)

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	if err := cat.Register(ctx, raw, compiled.Layout, engine.FilePath()); err != nil {
		t.Fatalf("failed to register dataset: %v", err)
	}

	// No container on disk yet: registration alone creates nothing.
	if _, err := os.Stat(engine.FilePath()); err == nil {
		t.Fatal("container should not exist before the first append")
	}

	const t0 = int64(1756500000000)

	// First append creates the container and fits within one increment.
	if err := engine.Extend(packet(t0, 5)); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if _, err := os.Stat(engine.FilePath()); err != nil {
		t.Fatalf("container missing after first append: %v", err)
	}

	// Second append overflows capacity 10 and forces growth.
	if err := engine.Extend(packet(t0+5000, 8)); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	// Full read returns all 13 rows in append order.
	all, err := engine.Query(&types.QueryFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(all["temperature"]) != 13 {
		t.Fatalf("temperature rows = %d, want 13", len(all["temperature"]))
	}
	if len(all["conductivity"]) != 13 {
		t.Fatalf("conductivity rows = %d, want 13", len(all["conductivity"]))
	}

	// Bounded read returns the 3 newest rows with converted timestamps.
	window, err := engine.Query(&types.QueryFilter{
		MaxRows:    3,
		TimeFormat: types.TimeFormatUnixMillis,
	})
	if err != nil {
		t.Fatalf("windowed query failed: %v", err)
	}
	times := window["time"]
	if len(times) != 3 {
		t.Fatalf("window rows = %d, want 3", len(times))
	}
	for i := 0; i < 3; i++ {
		want := t0 + 5000 + int64(5+i)*1000
		if times[i] != want {
			t.Errorf("time[%d] = %v, want %d", i, times[i], want)
		}
	}

	// Transposed read pairs values with timestamps and drops the time series.
	paired, err := engine.Query(&types.QueryFilter{
		Variables:     []string{"time", "temperature"},
		MaxRows:       2,
		TransposeTime: true,
	})
	if err != nil {
		t.Fatalf("transposed query failed: %v", err)
	}
	if _, ok := paired["time"]; ok {
		t.Error("time series should be folded into the value series")
	}
	pairs := paired["temperature"]
	if len(pairs) != 2 {
		t.Fatalf("paired rows = %d, want 2", len(pairs))
	}
	if _, ok := pairs[0].(types.TimedValue); !ok {
		t.Fatalf("paired element is %T, want TimedValue", pairs[0])
	}

	// Snapshot copies the container into object storage.
	store, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	objectPath, err := engine.Snapshot(ctx, store)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	exists, err := store.Exists(ctx, objectPath)
	if err != nil || !exists {
		t.Fatalf("snapshot object missing: exists=%v err=%v", exists, err)
	}

	// The catalog still resolves the dataset to its container path.
	rec, err := cat.Get(ctx, raw.DatasetID)
	if err != nil {
		t.Fatalf("catalog lookup failed: %v", err)
	}
	if rec == nil {
		t.Fatal("registered dataset missing from catalog")
	}
	if rec.ContainerPath != engine.FilePath() {
		t.Errorf("catalog path = %q, want %q", rec.ContainerPath, engine.FilePath())
	}
	if rec.Layout != types.LayoutIndividual {
		t.Errorf("catalog layout = %q", rec.Layout)
	}
}

// TestCatalogRegistrationIsIdempotent re-registers an existing dataset and
// checks the original record is preserved.
func TestCatalogRegistrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := newEnv(t)

	raw := rawSchema()
	compiled, err := schema.Compile(raw)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	engine := dataset.New(cfg, compiled)

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	if err := cat.Register(ctx, raw, compiled.Layout, engine.FilePath()); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := cat.Register(ctx, raw, types.LayoutCombined, "/elsewhere.sdc"); err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	rec, err := cat.Get(ctx, raw.DatasetID)
	if err != nil {
		t.Fatalf("catalog lookup failed: %v", err)
	}
	if rec.ContainerPath != engine.FilePath() || rec.Layout != types.LayoutIndividual {
		t.Errorf("re-registration must not overwrite: got %q/%q", rec.ContainerPath, rec.Layout)
	}

	records, err := cat.List(ctx)
	if err != nil {
		t.Fatalf("catalog list failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("catalog records = %d, want 1", len(records))
	}
}

// TestConcurrentAppends runs appenders against one container and checks no
// rows are lost or overwritten under lock contention.
func TestConcurrentAppends(t *testing.T) {
	cfg := newEnv(t)

	raw := rawSchema()
	compiled, err := schema.Compile(raw)
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}

	const (
		writers       = 4
		rowsPerWriter = 7
	)

	errCh := make(chan error, writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			engine := dataset.New(cfg, compiled)
			errCh <- engine.Extend(packet(int64(1756500000000+w*100000), rowsPerWriter))
		}(w)
	}
	for w := 0; w < writers; w++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	engine := dataset.New(cfg, compiled)
	result, err := engine.Query(&types.QueryFilter{TimeFormat: "raw"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got := len(result["temperature"]); got != writers*rowsPerWriter {
		t.Errorf("total rows = %d, want %d", got, writers*rowsPerWriter)
	}

	// Every writer's timestamps must all be present exactly once.
	seen := make(map[uint64]int)
	for _, v := range result["time"] {
		seen[v.(uint64)]++
	}
	for w := 0; w < writers; w++ {
		p := packet(int64(1756500000000+w*100000), rowsPerWriter)
		for _, row := range p.Rows {
			ts := row[0].(uint64)
			if seen[ts] != 1 {
				t.Fatalf("timestamp %d appears %d times, want 1", ts, seen[ts])
			}
		}
	}
}
