// Package catalog maintains the SQLite-backed registry of datasets known
// to this data directory: their schemas, container paths and creation time.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	strataerrors "github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/pkg/types"
)

// Record is one registered dataset.
type Record struct {
	DatasetID     string
	ContainerPath string
	Layout        string
	Schema        *types.DatasetSchema
	CreatedAt     time.Time
}

// Catalog is the dataset registry.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Open opens (and if needed initializes) the catalog database.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, strataerrors.NewCatalogError("open catalog database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Catalog{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS datasets (
	dataset_id     TEXT PRIMARY KEY,
	container_path TEXT NOT NULL,
	layout         TEXT NOT NULL,
	schema_json    TEXT NOT NULL,
	created_at     INTEGER NOT NULL
);`
	if _, err := c.db.Exec(ddl); err != nil {
		return strataerrors.NewCatalogError("initialize catalog schema", err)
	}
	return nil
}

// Register records a dataset. Registering an already known dataset id is
// idempotent: the original record wins, matching the container's
// create-once semantics.
func (c *Catalog) Register(ctx context.Context, raw *types.DatasetSchema, layout, containerPath string) error {
	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return strataerrors.NewCatalogError("encode dataset schema", err)
	}

	const stmt = `
INSERT INTO datasets (dataset_id, container_path, layout, schema_json, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(dataset_id) DO NOTHING;`
	_, err = c.db.ExecContext(ctx, stmt,
		raw.DatasetID, containerPath, layout, string(schemaJSON), time.Now().Unix())
	if err != nil {
		return strataerrors.NewCatalogError("register dataset", err)
	}
	return nil
}

// Get returns the record for a dataset id, or nil if unknown.
func (c *Catalog) Get(ctx context.Context, datasetID string) (*Record, error) {
	const stmt = `
SELECT dataset_id, container_path, layout, schema_json, created_at
FROM datasets WHERE dataset_id = ?;`
	row := c.db.QueryRowContext(ctx, stmt, datasetID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, strataerrors.NewCatalogError("load dataset record", err)
	}
	return rec, nil
}

// List returns all registered datasets ordered by id.
func (c *Catalog) List(ctx context.Context) ([]*Record, error) {
	const stmt = `
SELECT dataset_id, container_path, layout, schema_json, created_at
FROM datasets ORDER BY dataset_id;`
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, strataerrors.NewCatalogError("list datasets", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, strataerrors.NewCatalogError("scan dataset record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, strataerrors.NewCatalogError("iterate dataset records", err)
	}
	return records, nil
}

// Close closes the catalog database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var schemaJSON string
	var createdAt int64
	if err := s.Scan(&rec.DatasetID, &rec.ContainerPath, &rec.Layout, &schemaJSON, &createdAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.Schema = &types.DatasetSchema{}
	if err := json.Unmarshal([]byte(schemaJSON), rec.Schema); err != nil {
		return nil, err
	}
	return &rec, nil
}
