package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/parquet-go/parquet-go"
)

const sampleCSV = `name,objra,objdec,Bars
A,10.5,-1.25,0.0
B,11.0,2.5,0.75
C,12.25,3.0,1.0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func collect(t *testing.T, c *Catalog, w Window) []Record {
	t.Helper()
	var records []Record
	for rec, err := range c.Records(w) {
		if err != nil {
			t.Fatalf("Records failed: %v", err)
		}
		records = append(records, rec)
	}
	return records
}

func TestOpenCSV(t *testing.T) {
	c, err := Open(writeFile(t, "galaxies.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	records := collect(t, c, Window{})
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	b := records[1]
	if b.Name != "B" || b.RA != 11.0 || b.Dec != 2.5 || b.Index != 1 {
		t.Errorf("Unexpected record: %+v", b)
	}
	if b.Values[3] != "0.75" {
		t.Errorf("Expected passthrough Bars=0.75, got %q", b.Values[3])
	}
}

func TestRecordsRestartable(t *testing.T) {
	c, err := Open(writeFile(t, "galaxies.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	first := collect(t, c, Window{})
	second := collect(t, c, Window{})
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("Iteration order changed at %d: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}

func TestRecordsWindow(t *testing.T) {
	c, err := Open(writeFile(t, "galaxies.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	tests := []struct {
		name     string
		window   Window
		expected []string
	}{
		{name: "no window", window: Window{}, expected: []string{"A", "B", "C"}},
		{name: "skip one top one", window: Window{Skip: 1, Top: 1}, expected: []string{"B"}},
		{name: "skip only", window: Window{Skip: 2}, expected: []string{"C"}},
		{name: "top only", window: Window{Top: 2}, expected: []string{"A", "B"}},
		{name: "top past end", window: Window{Skip: 1, Top: 10}, expected: []string{"B", "C"}},
		{name: "skip past end", window: Window{Skip: 5}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := collect(t, c, tt.window)
			if len(records) != len(tt.expected) {
				t.Fatalf("Expected %d records, got %d", len(tt.expected), len(records))
			}
			for i, rec := range records {
				if rec.Name != tt.expected[i] {
					t.Errorf("Expected %s at %d, got %s", tt.expected[i], i, rec.Name)
				}
			}
		})
	}
}

func TestWindowBounds(t *testing.T) {
	tests := []struct {
		window     Window
		n          int
		start, end int
	}{
		{Window{}, 3, 0, 3},
		{Window{Skip: 1, Top: 1}, 3, 1, 2},
		{Window{Skip: 4}, 3, 3, 3},
		{Window{Top: 5}, 3, 0, 3},
		{Window{Skip: -2, Top: 2}, 3, 0, 2},
	}

	for _, tt := range tests {
		start, end := tt.window.Bounds(tt.n)
		if start != tt.start || end != tt.end {
			t.Errorf("%+v.Bounds(%d) = [%d,%d), want [%d,%d)", tt.window, tt.n, start, end, tt.start, tt.end)
		}
	}
}

func TestSchemaAliases(t *testing.T) {
	c, err := Open(writeFile(t, "aliases.tsv", "Galaxy\tRA\tDEC\nNGC1300\t49.92\t-19.41\n"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	records := collect(t, c, Window{})
	if len(records) != 1 || records[0].Name != "NGC1300" || records[0].RA != 49.92 {
		t.Errorf("Unexpected records: %+v", records)
	}
}

func TestSchemaError(t *testing.T) {
	_, err := Open(writeFile(t, "bad.csv", "name,objra\nA,1.0\n"))
	if err == nil {
		t.Fatal("Expected schema error, got nil")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected *SchemaError, got %T", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "dec" {
		t.Errorf("Expected missing [dec], got %v", schemaErr.Missing)
	}
}

func TestInvalidCoordinatesAreNaN(t *testing.T) {
	c, err := Open(writeFile(t, "nan.csv", "name,ra,dec\nX,abc,1.0\n"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	records := collect(t, c, Window{})
	if !math.IsNaN(records[0].RA) {
		t.Errorf("Expected NaN RA, got %v", records[0].RA)
	}
}

func TestLen(t *testing.T) {
	c, err := Open(writeFile(t, "galaxies.csv", sampleCSV))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3, got %d", n)
	}
}

func TestOpenParquet(t *testing.T) {
	type row struct {
		Name   string  `parquet:"name"`
		ObjRA  float64 `parquet:"objra"`
		ObjDec float64 `parquet:"objdec"`
		Bars   float64 `parquet:"Bars"`
	}

	path := filepath.Join(t.TempDir(), "galaxies.parquet")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create parquet file: %v", err)
	}
	w := parquet.NewGenericWriter[row](file)
	if _, err := w.Write([]row{{"A", 1.5, -2.0, 0}, {"B", 3.0, 4.0, 1}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	file.Close()

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	records := collect(t, c, Window{Skip: 1})
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Name != "B" || records[0].RA != 3.0 || records[0].Dec != 4.0 {
		t.Errorf("Unexpected record: %+v", records[0])
	}
}

func TestOpenFITSTable(t *testing.T) {
	type row struct {
		Name   string  `fits:"name"`
		ObjRA  float64 `fits:"objra"`
		ObjDec float32 `fits:"objdec"`
		Bars   int32   `fits:"Bars"`
	}

	path := filepath.Join(t.TempDir(), "galaxies.fits")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create FITS file: %v", err)
	}
	f, err := fitsio.Create(file)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		t.Fatalf("NewPrimaryHDU failed: %v", err)
	}
	if err := f.Write(phdu); err != nil {
		t.Fatalf("Writing primary HDU failed: %v", err)
	}

	table, err := fitsio.NewTable("GALAXIES", []fitsio.Column{
		{Name: "name", Format: "8A"},
		{Name: "objra", Format: "D"},
		{Name: "objdec", Format: "E"},
		{Name: "Bars", Format: "J"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	defer table.Close()
	for _, r := range []row{{"A", 10.5, -1.25, 0}, {"B", 11, -2.5, 1}, {"C", 12.25, 3, 0}} {
		if err := table.Write(&r); err != nil {
			t.Fatalf("Writing row failed: %v", err)
		}
	}
	if err := f.Write(table); err != nil {
		t.Fatalf("Writing table failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	file.Close()

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !reflect.DeepEqual(c.Columns, []string{"name", "objra", "objdec", "Bars"}) {
		t.Errorf("Unexpected columns: %v", c.Columns)
	}

	records := collect(t, c, Window{Skip: 1, Top: 1})
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	want := Record{Index: 1, Name: "B", RA: 11, Dec: -2.5, Values: []string{"B", "11", "-2.5", "1"}}
	if !reflect.DeepEqual(records[0], want) {
		t.Errorf("Expected %+v, got %+v", want, records[0])
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	if _, err := Open("galaxies.txt"); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}

func TestOpenNonExistentFile(t *testing.T) {
	if _, err := Open("/nonexistent/path/file.csv"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}
