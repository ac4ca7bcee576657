package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Catalog is an opened galaxy catalog. Records can be iterated any number of
// times and always come back in file order.
type Catalog struct {
	Path    string
	Columns []string

	cols columnIndex

	// delimited files are streamed from disk on every iteration
	comma rune
	// binary tables are decoded once at Open
	rows [][]string
}

// Open detects the catalog format from the file extension and validates that
// the required columns are present.
func Open(path string) (*Catalog, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		c   *Catalog
		err error
	)
	switch ext {
	case ".csv":
		c, err = openDelimited(path, ',')
	case ".tsv", ".tab":
		c, err = openDelimited(path, '\t')
	case ".fits", ".fit", ".fts":
		c, err = openFITS(path)
	case ".parquet":
		c, err = openParquet(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s (supported: .csv, .tsv, .fits, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	cols, err := resolveColumns(path, c.Columns)
	if err != nil {
		return nil, err
	}
	c.cols = cols

	slog.Debug("Opened catalog", "path", path, "format", ext, "columns", len(c.Columns))
	return c, nil
}

func openDelimited(path string, comma rune) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = comma
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &Catalog{Path: path, Columns: header, comma: comma}, nil
}

// scan feeds raw rows to yield until the file ends or yield returns false
func (c *Catalog) scan(yield func(row []string) bool) error {
	if c.comma == 0 {
		for _, row := range c.rows {
			if !yield(row) {
				return nil
			}
		}
		return nil
	}

	file, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = c.comma
	if _, err := r.Read(); err != nil {
		return fmt.Errorf("failed to read catalog header: %w", err)
	}

	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read catalog row %d: %w", line, err)
		}
		if !yield(row) {
			return nil
		}
	}
}

// Records returns the records inside w, lazily.
func (c *Catalog) Records(w Window) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		i := 0
		stopped := false
		err := c.scan(func(row []string) bool {
			pos := i
			i++
			if w.past(pos) {
				stopped = true
				return false
			}
			if !w.Contains(pos) {
				return true
			}
			if !yield(c.record(pos, row), nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Record{}, err)
		}
	}
}

// Len returns the number of data rows in the catalog.
func (c *Catalog) Len() (int, error) {
	n := 0
	err := c.scan(func([]string) bool {
		n++
		return true
	})
	return n, err
}

func (c *Catalog) record(index int, row []string) Record {
	values := make([]string, len(c.Columns))
	copy(values, row)

	return Record{
		Index:  index,
		Name:   strings.TrimSpace(values[c.cols.name]),
		RA:     parseCoordinate(values[c.cols.ra]),
		Dec:    parseCoordinate(values[c.cols.dec]),
		Values: values,
	}
}

// parseCoordinate returns NaN for cells that are not numbers; the acquirer
// rejects such records individually.
func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
