package container

import (
	"fmt"
	"sort"

	"github.com/stratadb/strata/internal/errors"
)

// Group is a named node in the container hierarchy. Groups carry
// attributes and contain child groups and extents.
type Group struct {
	f    *File
	meta *groupMeta
	path string
}

// Path returns the hierarchical path of the group.
func (g *Group) Path() string {
	return g.path
}

// SetAttr sets a group attribute. Attribute values must be JSON-encodable.
func (g *Group) SetAttr(key string, value interface{}) {
	if g.meta.Attrs == nil {
		g.meta.Attrs = make(map[string]interface{})
	}
	g.meta.Attrs[key] = value
	g.f.markDirty()
}

// Attr returns a group attribute.
func (g *Group) Attr(key string) (interface{}, bool) {
	v, ok := g.meta.Attrs[key]
	return v, ok
}

// Attrs returns the group's attribute map. Callers must not mutate it.
func (g *Group) Attrs() map[string]interface{} {
	return g.meta.Attrs
}

// CreateGroup creates a named child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if g.meta.Groups == nil {
		g.meta.Groups = make(map[string]*groupMeta)
	}
	if _, exists := g.meta.Groups[name]; exists {
		return nil, errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("group %q already exists under %s", name, g.path), nil)
	}
	child := &groupMeta{}
	g.meta.Groups[name] = child
	g.f.markDirty()
	return &Group{f: g.f, meta: child, path: childPath(g.path, name)}, nil
}

// Group returns a named child group.
func (g *Group) Group(name string) (*Group, bool) {
	child, ok := g.meta.Groups[name]
	if !ok {
		return nil, false
	}
	return &Group{f: g.f, meta: child, path: childPath(g.path, name)}, true
}

// CreateExtent creates a scalar extent of the given dtype with an initial
// capacity. Capacity is rounded up to a whole number of chunks; chunkRows
// fixes the chunk size for the extent's lifetime.
func (g *Group) CreateExtent(name, dtype string, capacity, chunkRows int64) (*Extent, error) {
	return g.createExtent(name, &extentMeta{DType: dtype}, capacity, chunkRows)
}

// CreateRecordExtent creates a composite record extent with one cell per
// field per row, in the given field order.
func (g *Group) CreateRecordExtent(name string, fields []RecordField, capacity, chunkRows int64) (*Extent, error) {
	if len(fields) == 0 {
		return nil, errors.NewStorageError(errors.CodeWriteFailed,
			"record extent needs at least one field", nil)
	}
	return g.createExtent(name, &extentMeta{Fields: fields}, capacity, chunkRows)
}

func (g *Group) createExtent(name string, meta *extentMeta, capacity, chunkRows int64) (*Extent, error) {
	if chunkRows <= 0 {
		return nil, errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("extent %q: chunk rows must be positive", name), nil)
	}
	if g.meta.Extents == nil {
		g.meta.Extents = make(map[string]*extentMeta)
	}
	if _, exists := g.meta.Extents[name]; exists {
		return nil, errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("extent %q already exists under %s", name, g.path), nil)
	}

	meta.ChunkRows = chunkRows
	meta.Attrs = make(map[string]interface{})
	ext := &Extent{f: g.f, meta: meta, path: childPath(g.path, name)}
	if capacity > 0 {
		if err := ext.Grow(capacity); err != nil {
			return nil, err
		}
	}
	g.meta.Extents[name] = meta
	g.f.markDirty()
	return ext, nil
}

// Extent returns a named extent in this group.
func (g *Group) Extent(name string) (*Extent, bool) {
	meta, ok := g.meta.Extents[name]
	if !ok {
		return nil, false
	}
	return &Extent{f: g.f, meta: meta, path: childPath(g.path, name)}, true
}

// Entry is a visited node of the container hierarchy: a group or an extent.
type Entry interface {
	Path() string
	Attrs() map[string]interface{}
}

// Walk visits this group and every entry below it in depth-first order,
// child names sorted. It never mutates the container.
func (g *Group) Walk(fn func(entry Entry) error) error {
	if err := fn(g); err != nil {
		return err
	}

	extNames := make([]string, 0, len(g.meta.Extents))
	for name := range g.meta.Extents {
		extNames = append(extNames, name)
	}
	sort.Strings(extNames)
	for _, name := range extNames {
		ext, _ := g.Extent(name)
		if err := fn(ext); err != nil {
			return err
		}
	}

	groupNames := make([]string, 0, len(g.meta.Groups))
	for name := range g.meta.Groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		child, _ := g.Group(name)
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
