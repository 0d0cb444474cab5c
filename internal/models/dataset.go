package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingColumn is returned when a sheet or stage lacks a column it needs.
var ErrMissingColumn = errors.New("missing required column")

// Table is one raw sheet: a header row and string cells.
type Table struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Index maps trimmed header names to column positions. The first
// occurrence of a repeated header wins.
func (t *Table) Index() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}

	return idx
}

// Require checks that every column exists in the header.
func (t *Table) Require(cols ...string) error {
	idx := t.Index()
	for _, c := range cols {
		if _, ok := idx[c]; !ok {
			return fmt.Errorf("%w: sheet %q has no column %q", ErrMissingColumn, t.Name, c)
		}
	}

	return nil
}

// Cell returns the value at row, col, or "" for short rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}

	return t.Rows[row][col]
}

// Dataset is the single in-memory batch handed from stage to stage.
type Dataset struct {
	Orders       []*Order
	Products     []Product
	ProductTable *Table

	columns map[string]bool
}

// NewDataset wraps orders whose raw columns are materialized.
func NewDataset(orders []*Order) *Dataset {
	d := &Dataset{Orders: orders, columns: make(map[string]bool)}
	d.Provide(RequiredOrderColumns...)

	return d
}

// Provide marks columns as materialized.
func (d *Dataset) Provide(cols ...string) {
	if d.columns == nil {
		d.columns = make(map[string]bool)
	}

	for _, c := range cols {
		d.columns[c] = true
	}
}

// Has reports whether a column is materialized.
func (d *Dataset) Has(col string) bool {
	return d.columns[col]
}

// Require fails with ErrMissingColumn naming the stage and the first
// column that is not materialized yet.
func (d *Dataset) Require(stage string, cols ...string) error {
	for _, c := range cols {
		if !d.columns[c] {
			return fmt.Errorf("%w: stage %q requires %q", ErrMissingColumn, stage, c)
		}
	}

	return nil
}

// Columns lists the materialized columns in sorted order.
func (d *Dataset) Columns() []string {
	out := make([]string, 0, len(d.columns))
	for c := range d.columns {
		out = append(out, c)
	}

	sort.Strings(out)

	return out
}

// Len is the number of order rows.
func (d *Dataset) Len() int {
	return len(d.Orders)
}
