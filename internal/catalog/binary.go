package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/parquet-go/parquet-go"
)

// openFITS reads the first binary or ASCII table HDU of a FITS file
func openFITS(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	f, err := fitsio.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS catalog: %w", err)
	}
	defer f.Close()

	var table *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok {
			table = t
			break
		}
	}
	if table == nil {
		return nil, fmt.Errorf("FITS catalog %s has no table HDU", path)
	}

	columns := make([]string, 0, len(table.Cols()))
	for _, col := range table.Cols() {
		columns = append(columns, col.Name)
	}

	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, fmt.Errorf("failed to read FITS table: %w", err)
	}
	defer rows.Close()

	data := make([][]string, 0, table.NumRows())
	for rows.Next() {
		cells := make(map[string]interface{}, len(columns))
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("failed to scan FITS row %d: %w", len(data)+1, err)
		}
		row := make([]string, len(columns))
		for i, name := range columns {
			row[i] = formatCell(cells[name])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read FITS table: %w", err)
	}

	slog.Debug("Read FITS catalog", "path", path, "rows", len(data))
	return &Catalog{Path: path, Columns: columns, rows: data}, nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimRight(x, " \x00")
	case []byte:
		return strings.TrimRight(string(x), " \x00")
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// openParquet reads a flat parquet file; nested columns are named by their dotted path
func openParquet(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	var columns []string
	for _, leaf := range pf.Schema().Columns() {
		columns = append(columns, strings.Join(leaf, "."))
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	data := make([][]string, 0, pf.NumRows())
	batch := make([]parquet.Row, 128)
	for {
		n, err := reader.ReadRows(batch)
		for _, row := range batch[:n] {
			cells := make([]string, len(columns))
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(cells) {
					cells[c] = formatValue(v)
				}
			}
			data = append(data, cells)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(data))
	return &Catalog{Path: path, Columns: columns, rows: data}, nil
}

func formatValue(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
