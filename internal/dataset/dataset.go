// Package dataset holds the persisted historical table for one trigger
// category and its file codecs.
package dataset

import "sort"

// Dataset is an ordered table of string-valued rows. Rows are append-only:
// one accepted webhook adds exactly one row and never touches earlier ones.
type Dataset struct {
	Columns []string
	Rows    []map[string]string
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether the dataset schema contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Last returns the most recent row by insertion order.
func (d *Dataset) Last() (map[string]string, bool) {
	if len(d.Rows) == 0 {
		return nil, false
	}
	return d.Rows[len(d.Rows)-1], true
}

// Append adds a row. Columns not seen before are added to the schema in
// sorted order so file output stays deterministic; earlier rows read them as
// empty cells.
func (d *Dataset) Append(row map[string]string) {
	var added []string
	for col := range row {
		if !d.HasColumn(col) {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	d.Columns = append(d.Columns, added...)
	d.Rows = append(d.Rows, row)
}

// Cell returns the value at (row, column), empty when the column was added
// after the row was written.
func (d *Dataset) Cell(row int, column string) string {
	if row < 0 || row >= len(d.Rows) {
		return ""
	}
	return d.Rows[row][column]
}
