package catalog

import (
	"fmt"
	"strings"
)

// Record is a single galaxy entry read from a catalog.
type Record struct {
	// Index is the 0-based position of the row in the catalog file
	Index int
	Name  string
	RA    float64 // degrees
	Dec   float64 // degrees

	// Values holds the raw text of every catalog column, in catalog column order
	Values []string
}

// Column aliases accepted for the required roles. Matching is case-insensitive.
var (
	nameAliases = []string{"name", "objname", "galaxy"}
	raAliases   = []string{"ra", "objra", "ra_deg"}
	decAliases  = []string{"dec", "objdec", "dec_deg"}
)

// SchemaError is returned when a catalog lacks one of the required columns.
type SchemaError struct {
	Path    string
	Missing []string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog %s is missing required columns %v (found: %s)",
		e.Path, e.Missing, strings.Join(e.Columns, ", "))
}

type columnIndex struct {
	name, ra, dec int
}

func resolveColumns(path string, columns []string) (columnIndex, error) {
	idx := columnIndex{
		name: findColumn(columns, nameAliases),
		ra:   findColumn(columns, raAliases),
		dec:  findColumn(columns, decAliases),
	}

	var missing []string
	if idx.name < 0 {
		missing = append(missing, "name")
	}
	if idx.ra < 0 {
		missing = append(missing, "ra")
	}
	if idx.dec < 0 {
		missing = append(missing, "dec")
	}
	if len(missing) > 0 {
		return idx, &SchemaError{Path: path, Missing: missing, Columns: columns}
	}

	return idx, nil
}

// findColumn returns the index of the first column matching an alias, in alias priority order
func findColumn(columns []string, aliases []string) int {
	for _, alias := range aliases {
		for i, col := range columns {
			if strings.EqualFold(strings.TrimSpace(col), alias) {
				return i
			}
		}
	}
	return -1
}
