package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ludanortmun/bargal/internal/pipeline"
)

// Columns appended after the catalog's own.
const (
	ColumnPrediction = "is_barred_pred"
	ColumnImage      = "img"
	ColumnError      = "error"
)

// Report is the catalog page augmented with predictions, in catalog order.
type Report struct {
	Columns []string
	Rows    [][]string
}

// Build creates the report from run results. The img column is only added
// when includeImage is set.
func Build(columns []string, results []pipeline.Result, includeImage bool) *Report {
	rep := &Report{Columns: append([]string{}, columns...)}
	rep.Columns = append(rep.Columns, ColumnPrediction)
	if includeImage {
		rep.Columns = append(rep.Columns, ColumnImage)
	}
	rep.Columns = append(rep.Columns, ColumnError)

	for _, res := range results {
		row := make([]string, len(columns), len(rep.Columns))
		copy(row, res.Record.Values)

		pred := ""
		if res.Label != nil {
			pred = strconv.Itoa(*res.Label)
		}
		row = append(row, pred)
		if includeImage {
			row = append(row, res.ImagePath)
		}
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		row = append(row, msg)
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

// DefaultPath returns report_YYYYMMDDHHMMSS.csv inside dir.
func DefaultPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("report_%s.csv", t.Format("20060102150405")))
}

// WriteCSV writes the report to path through a temporary file in the same
// directory, so an interrupted write never leaves a partial report behind.
func (r *Report) WriteCSV(path string) error {
	return writeAtomic(path, func(out io.Writer) error {
		w := csv.NewWriter(out)
		if err := w.Write(r.Columns); err != nil {
			return fmt.Errorf("failed to write report header: %w", err)
		}
		if err := w.WriteAll(r.Rows); err != nil {
			return fmt.Errorf("failed to write report rows: %w", err)
		}
		return nil
	})
}

// writeAtomic creates path's directory, lets write fill a temporary file
// beside path and renames it into place once write succeeds.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// WriteMarkdown renders the report as a markdown table.
func (r *Report) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(escapeCell(c))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(r.Columns)
	b.WriteString("|")
	for range r.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range r.Rows {
		writeRow(row)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
