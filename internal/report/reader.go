// Package report computes sales KPIs from the BI projection and renders
// them as a workbook, a signed markdown report and an SVG chart.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"egretail/internal/models"
	"egretail/internal/source"
)

// Reader errors.
var (
	ErrMissingColumn     = errors.New("BI projection is missing a declared column")
	ErrUnsupportedFormat = errors.New("unsupported BI file format")
)

// Columns are the BI columns the dashboard reads.
var Columns = []string{
	models.ColOrderID, models.ColOrderYear, models.ColOrderQuarter, models.ColOrderYearMonth,
	models.ColCustomerName, models.ColGovernorate, models.ColProductName, models.ColCategory,
	models.ColQuantity, models.ColTotal, models.ColDeliveryTimeDays, models.ColDeliveryDelayed,
	models.ColPaymentStatus,
}

// Row is one BI record as the dashboard sees it. Absent measures are nil.
type Row struct {
	OrderID       string
	Year          int
	Quarter       int
	YearMonth     string
	CustomerName  string
	Governorate   string
	ProductName   string
	Category      string
	Quantity      *float64
	Total         *decimal.Decimal
	DeliveryDays  *int
	Delayed       bool
	PaymentStatus string
}

// Read loads a BI projection from a .csv or .xlsx file.
func Read(path string) ([]Row, error) {
	var tbl *models.Table

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		t, err := source.ReadCSV(path, filepath.Base(path))
		if err != nil {
			return nil, err
		}

		tbl = t
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		tbl = &models.Table{Name: filepath.Base(path)}
		if len(rows) > 0 {
			tbl.Header, tbl.Rows = rows[0], rows[1:]
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	return Rows(tbl)
}

// Rows converts a BI table, failing when a declared column is absent.
func Rows(tbl *models.Table) ([]Row, error) {
	idx := tbl.Index()
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}

	cell := func(i int, col string) string {
		return strings.TrimSpace(tbl.Cell(i, idx[col]))
	}

	out := make([]Row, len(tbl.Rows))
	for i := range tbl.Rows {
		out[i] = Row{
			OrderID:       cell(i, models.ColOrderID),
			Year:          atoi(cell(i, models.ColOrderYear)),
			Quarter:       atoi(cell(i, models.ColOrderQuarter)),
			YearMonth:     cell(i, models.ColOrderYearMonth),
			CustomerName:  cell(i, models.ColCustomerName),
			Governorate:   cell(i, models.ColGovernorate),
			ProductName:   cell(i, models.ColProductName),
			Category:      cell(i, models.ColCategory),
			Quantity:      float(cell(i, models.ColQuantity)),
			Total:         money(cell(i, models.ColTotal)),
			DeliveryDays:  intPtr(cell(i, models.ColDeliveryTimeDays)),
			Delayed:       truthy(cell(i, models.ColDeliveryDelayed)),
			PaymentStatus: cell(i, models.ColPaymentStatus),
		}
	}

	return out, nil
}

func atoi(s string) int {
	if v := intPtr(s); v != nil {
		return *v
	}

	return 0
}

func intPtr(s string) *int {
	f := float(s)
	if f == nil {
		return nil
	}

	v := int(*f)

	return &v
}

func float(s string) *float64 {
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	return &v
}

func money(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}

	return &d
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1":
		return true
	default:
		return false
	}
}
