// Package source loads the raw extract from a workbook or a directory of
// CSV files and turns the orders sheet into order records.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"egretail/internal/config"
	"egretail/internal/models"
)

// Source errors.
var (
	ErrMissingColumn = models.ErrMissingColumn
	ErrMissingSheet  = errors.New("sheet not found")
	ErrNoInput       = errors.New("no workbook or csv directory configured")
)

// Extract holds the four raw tables. A table whose sheet name is not
// configured is nil.
type Extract struct {
	Orders       *models.Table
	Products     *models.Table
	Governorates *models.Table
	Customers    *models.Table
}

// Tables lists the loaded tables in sheet order.
func (e *Extract) Tables() []*models.Table {
	var out []*models.Table
	for _, t := range []*models.Table{e.Orders, e.Products, e.Governorates, e.Customers} {
		if t != nil {
			out = append(out, t)
		}
	}

	return out
}

// Load reads the extract described by cfg. Every configured sheet must
// exist; the governorate and customer sheets are skipped only when their
// name is left empty.
func Load(cfg config.InputConfig) (*Extract, error) {
	var read func(sheet string) (*models.Table, error)

	switch {
	case cfg.Workbook != "":
		f, err := excelize.OpenFile(cfg.Workbook)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()

		read = func(sheet string) (*models.Table, error) { return readSheet(f, sheet) }
	case cfg.CSVDir != "":
		read = func(sheet string) (*models.Table, error) {
			return ReadCSV(filepath.Join(cfg.CSVDir, sheet+".csv"), sheet)
		}
	default:
		return nil, ErrNoInput
	}

	ex := &Extract{}

	for _, sheet := range []struct {
		name string
		dst  **models.Table
	}{
		{cfg.Sheets.Orders, &ex.Orders},
		{cfg.Sheets.Products, &ex.Products},
		{cfg.Sheets.Governorates, &ex.Governorates},
		{cfg.Sheets.Customers, &ex.Customers},
	} {
		if sheet.name == "" {
			continue
		}

		t, err := read(sheet.name)
		if err != nil {
			return nil, err
		}

		*sheet.dst = t
	}

	if ex.Orders == nil || ex.Products == nil {
		return nil, fmt.Errorf("%w: orders and products sheets must be named", ErrMissingSheet)
	}

	if err := ex.Orders.Require(models.RequiredOrderColumns...); err != nil {
		return nil, err
	}

	if err := ex.Products.Require(models.RequiredProductColumns...); err != nil {
		return nil, err
	}

	return ex, nil
}

// readSheet reads every row of sheet with raw cell values so date serials
// and numbers reach the normalizers unformatted.
func readSheet(f *excelize.File, sheet string) (*models.Table, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return tableOf(sheet, rows), nil
}

// ReadCSV reads one table from a CSV file. Rows may have varying widths.
func ReadCSV(path, name string) (*models.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrMissingSheet, name)
		}

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return ParseCSV(file, name)
}

// ParseCSV reads a table from r. A UTF-8 byte order mark is dropped.
func ParseCSV(r io.Reader, name string) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return tableOf(name, rows), nil
}

func tableOf(name string, rows [][]string) *models.Table {
	t := &models.Table{Name: name}
	if len(rows) == 0 {
		return t
	}

	t.Header = rows[0]
	t.Rows = rows[1:]

	return t
}

// Orders builds one order per row of the orders table. Optional columns
// that are absent stay empty.
func Orders(t *models.Table) ([]*models.Order, error) {
	if err := t.Require(models.RequiredOrderColumns...); err != nil {
		return nil, err
	}

	idx := t.Index()
	orders := make([]*models.Order, len(t.Rows))

	for i := range t.Rows {
		o := &models.Order{Row: i}
		for col, dst := range o.Raw.Fields() {
			if c, ok := idx[col]; ok {
				*dst = t.Cell(i, c)
			}
		}

		orders[i] = o
	}

	return orders, nil
}

// Dataset loads orders and attaches the reference tables.
func Dataset(ex *Extract) (*models.Dataset, error) {
	orders, err := Orders(ex.Orders)
	if err != nil {
		return nil, err
	}

	ds := models.NewDataset(orders)
	ds.ProductTable = ex.Products

	for _, col := range models.OptionalOrderColumns {
		if _, ok := ex.Orders.Index()[col]; ok {
			ds.Provide(col)
		}
	}

	return ds, nil
}
