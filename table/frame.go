// Package table holds the column-ordered grid used between extraction and
// transformation, and the HTML table extractor that fills it.
package table

import (
	"fmt"

	"github.com/aluiziolira/go-vitibrasil/parser"
)

// Frame is a rectangular grid of string cells with named columns.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// NewFrame returns an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of the named column, or -1. An exact match wins;
// otherwise names are compared after accent and case folding.
func (f *Frame) Index(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	folded := parser.FoldHeader(name)
	for i, col := range f.Columns {
		if parser.FoldHeader(col) == folded {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Append adds a row; its length must match the column count.
func (f *Frame) Append(row []string) error {
	if len(row) != len(f.Columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Get returns the cell at row i in the named column, or "" when absent.
func (f *Frame) Get(i int, name string) string {
	idx := f.Index(name)
	if idx < 0 || i < 0 || i >= len(f.Rows) || idx >= len(f.Rows[i]) {
		return ""
	}
	return f.Rows[i][idx]
}

// Set writes the cell at row i in the named column, adding the column if needed.
func (f *Frame) Set(i int, name, value string) {
	idx := f.Index(name)
	if idx < 0 {
		f.AddColumn(name, "")
		idx = len(f.Columns) - 1
	}
	f.Rows[i][idx] = value
}

// AddColumn appends a column holding value in every row.
func (f *Frame) AddColumn(name, value string) {
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], value)
	}
}

// Rename changes a column name in place.
func (f *Frame) Rename(from, to string) bool {
	idx := f.Index(from)
	if idx < 0 {
		return false
	}
	f.Columns[idx] = to
	return true
}

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	for _, name := range names {
		idx := f.Index(name)
		if idx < 0 {
			continue
		}
		f.Columns = append(f.Columns[:idx:idx], f.Columns[idx+1:]...)
		for i, row := range f.Rows {
			f.Rows[i] = append(row[:idx:idx], row[idx+1:]...)
		}
	}
}

// Map replaces every cell with fn(cell).
func (f *Frame) Map(fn func(string) string) {
	for _, row := range f.Rows {
		for j, cell := range row {
			row[j] = fn(cell)
		}
	}
}

// MapColumn replaces every cell of the named column with fn(cell).
func (f *Frame) MapColumn(name string, fn func(string) string) {
	idx := f.Index(name)
	if idx < 0 {
		return
	}
	for _, row := range f.Rows {
		row[idx] = fn(row[idx])
	}
}

// Concat appends other's rows. Columns are matched the way Index matches
// them, so "Pais" lines up with "País"; unmatched columns are appended in
// first-seen order and cells missing on either side are left empty.
func (f *Frame) Concat(other *Frame) {
	if other == nil {
		return
	}
	taken := make(map[int]bool, len(other.Columns))
	positions := make([]int, len(other.Columns))
	for j, col := range other.Columns {
		idx := f.Index(col)
		if idx < 0 || taken[idx] {
			f.AddColumn(col, "")
			idx = len(f.Columns) - 1
		}
		taken[idx] = true
		positions[j] = idx
	}
	for _, src := range other.Rows {
		row := make([]string, len(f.Columns))
		for j, cell := range src {
			if j < len(positions) {
				row[positions[j]] = cell
			}
		}
		f.Rows = append(f.Rows, row)
	}
}
