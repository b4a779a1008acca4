package dataset

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/stratadb/strata/internal/container"
	"github.com/stratadb/strata/internal/lockfile"
)

// Dump writes a human-readable listing of every entry in the dataset
// container to w: hierarchical path, attributes, and with withData set,
// the raw extent contents. It opens the container read-only under a
// shared lock and never mutates it.
func (p *Persistence) Dump(w io.Writer, withData bool) error {
	path := p.FilePath()
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "container %s does not exist\n", path)
		return nil
	}

	lock, err := lockfile.AcquireShared(lockfile.SidecarPath(path), p.readLock)
	if err != nil {
		return err
	}
	defer lock.Release()

	c, err := container.Open(path, true)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(w, "SDC %s\n", path)
	return c.Root().Walk(func(entry container.Entry) error {
		depth := strings.Count(entry.Path(), "/")
		if entry.Path() == "/" {
			depth = 0
		}
		indent := strings.Repeat("  ", depth+1)

		name := entry.Path()[strings.LastIndex(entry.Path(), "/")+1:]
		if name == "" {
			name = "/"
		}

		switch e := entry.(type) {
		case *container.Extent:
			fmt.Fprintf(w, "%s%s (extent, capacity=%d)\n", indent, name, e.Capacity())
			dumpAttrs(w, indent, e.Attrs())
			if withData {
				if err := dumpData(w, indent, e); err != nil {
					return err
				}
			}
		default:
			fmt.Fprintf(w, "%s%s (group)\n", indent, name)
			dumpAttrs(w, indent, entry.Attrs())
		}
		return nil
	})
}

func dumpAttrs(w io.Writer, indent string, attrs map[string]interface{}) {
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	fmt.Fprintf(w, "%s  [%s]\n", indent, strings.Join(parts, ", "))
}

func dumpData(w io.Writer, indent string, e *container.Extent) error {
	end := lastRow(e)
	if e.IsRecord() {
		records, err := e.ReadRecords(0, end)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %v\n", indent, records)
		return nil
	}
	values, err := e.ReadValues(0, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s  %v\n", indent, values)
	return nil
}
