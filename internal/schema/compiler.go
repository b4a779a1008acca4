// Package schema compiles raw dataset descriptions into validated internal form.
package schema

import (
	"fmt"
	"log"

	"github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/pkg/types"
)

// Compiled is a validated dataset schema with resolved defaults and the
// immutable name-to-position index.
type Compiled struct {
	DatasetID    string
	Variables    []types.VariableDef
	Layout       string
	RowIncrement int64
	TimeVariable string

	// VarIndex maps variable name to its fixed column position,
	// assigned from declaration order at compile time.
	VarIndex map[string]int

	varsByName map[string]*types.VariableDef
}

// Compile validates a raw dataset schema and resolves its defaults.
// An empty variable list or a duplicate variable name is a configuration
// error. An unknown layout degrades to individual with a warning.
func Compile(raw *types.DatasetSchema) (*Compiled, error) {
	if raw == nil || len(raw.Variables) == 0 {
		return nil, errors.NewConfigurationError(errors.CodeEmptySchema,
			"dataset schema has no variables")
	}

	layout := raw.Persistence.Layout
	switch layout {
	case types.LayoutIndividual, types.LayoutCombined:
	default:
		if layout != "" {
			log.Printf("schema: illegal dataset persistence layout %q - using %s", layout, types.LayoutIndividual)
		}
		layout = types.LayoutIndividual
	}

	increment := raw.Persistence.RowIncrement
	if increment <= 0 {
		increment = types.DefaultRowIncrement
	}

	timeVar := raw.Persistence.TimeVariable
	if timeVar == "" {
		timeVar = types.DefaultTimeVariable
	}

	c := &Compiled{
		DatasetID:    raw.DatasetID,
		Variables:    make([]types.VariableDef, len(raw.Variables)),
		Layout:       layout,
		RowIncrement: increment,
		TimeVariable: timeVar,
		VarIndex:     make(map[string]int, len(raw.Variables)),
		varsByName:   make(map[string]*types.VariableDef, len(raw.Variables)),
	}

	for position, vi := range raw.Variables {
		if _, ok := c.VarIndex[vi.Name]; ok {
			return nil, errors.NewConfigurationError(errors.CodeDuplicateVariable,
				fmt.Sprintf("variable %q declared more than once", vi.Name))
		}
		if vi.BaseType == "" {
			vi.BaseType = types.BaseTypeFloat
		}
		if vi.StorageDType == "" {
			vi.StorageDType = types.DTypeFloat64
		}
		switch vi.StorageDType {
		case types.DTypeFloat64, types.DTypeInt64, types.DTypeUint64:
		default:
			return nil, errors.NewConfigurationError(errors.CodeBadVariableType,
				fmt.Sprintf("variable %q has unsupported storage dtype %q", vi.Name, vi.StorageDType))
		}
		c.Variables[position] = vi
		c.VarIndex[vi.Name] = position
		c.varsByName[vi.Name] = &c.Variables[position]
	}

	return c, nil
}

// Variable returns the definition of a named variable, or nil if the
// schema does not declare it.
func (c *Compiled) Variable(name string) *types.VariableDef {
	return c.varsByName[name]
}

// HasVariable reports whether the schema declares the named variable.
func (c *Compiled) HasVariable(name string) bool {
	_, ok := c.varsByName[name]
	return ok
}

// VariableNames returns all variable names in declaration order.
func (c *Compiled) VariableNames() []string {
	names := make([]string, len(c.Variables))
	for i, vi := range c.Variables {
		names[i] = vi.Name
	}
	return names
}
