// Package types provides core data types for the Strata engine.
package types

// Layout names the physical arrangement of variables inside a container.
const (
	// LayoutIndividual stores one independently growable extent per variable.
	LayoutIndividual = "vars_individual"

	// LayoutCombined stores one growable extent of composite records.
	LayoutCombined = "vars_combined"
)

// Storage dtypes for extent cells. All cells are 8 bytes wide.
const (
	DTypeFloat64 = "f8"
	DTypeInt64   = "i8"
	DTypeUint64  = "u8"
)

// Base semantic types carried in variable attributes.
const (
	BaseTypeFloat   = "float"
	BaseTypeInt     = "int"
	BaseTypeNTPTime = "ntp_time"
)

// DefaultRowIncrement is the capacity growth unit when the schema does not set one.
const DefaultRowIncrement = 1000

// DefaultTimeVariable is the designated time variable name when the schema does not set one.
const DefaultTimeVariable = "time"

// VariableDef defines a single sensor variable in a dataset schema.
type VariableDef struct {
	// Name is the variable name, unique within the dataset
	Name string `json:"name" yaml:"name"`

	// BaseType is the semantic type: float, int, ntp_time
	BaseType string `json:"base_type" yaml:"base_type"`

	// StorageDType is the on-disk cell type: f8, i8, u8
	StorageDType string `json:"storage_dtype" yaml:"storage_dtype"`

	// Description is free text describing the variable
	Description string `json:"description" yaml:"description"`

	// Unit is the measurement unit (e.g. "deg_C", "m/s")
	Unit string `json:"unit" yaml:"unit"`
}

// PersistenceAttrs holds the persistence attributes of a dataset schema.
type PersistenceAttrs struct {
	// Layout is the physical layout: vars_individual or vars_combined
	Layout string `json:"layout" yaml:"layout"`

	// RowIncrement is the unit of capacity growth in rows
	RowIncrement int64 `json:"row_increment" yaml:"row_increment"`

	// TimeVariable names the designated time variable
	TimeVariable string `json:"time_variable" yaml:"time_variable"`
}

// DatasetSchema is the raw, externally supplied description of a dataset.
type DatasetSchema struct {
	// DatasetID identifies the dataset
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`

	// Variables lists the dataset variables in declaration order.
	// Declaration order fixes each variable's position for the
	// dataset's lifetime.
	Variables []VariableDef `json:"variables" yaml:"variables"`

	// Persistence holds layout, row increment and time variable settings
	Persistence PersistenceAttrs `json:"persistence" yaml:"persistence"`
}
