package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"egretail/internal/sink"
)

// Dashboard sheet names.
const (
	SheetSummary  = "Executive Summary"
	SheetRevenue  = "Revenue Analysis"
	SheetProducts = "Product Performance"
	SheetDelivery = "Delivery Performance"
	SheetPayments = "Payment & Risk Analysis"
)

type styles struct {
	title   int
	section int
	header  int
	kpi     int
	money   int
}

// WriteDashboard renders the KPIs as a styled multi-sheet workbook.
func WriteDashboard(path string, k *KPIs, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, name := range []string{SheetSummary, SheetRevenue, SheetProducts, SheetDelivery, SheetPayments} {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}

			continue
		}

		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	d := &dash{f: f, st: st}

	// 1. Executive summary
	d.title(SheetSummary, "EG RETAIL SALES DASHBOARD")
	d.section(SheetSummary, 3, "KEY METRICS")
	row := d.pairs(SheetSummary, 4, [][2]any{
		{"Total Revenue (" + currency + ")", moneyCell(k.Revenue)},
		{"Total Orders", k.Orders},
		{"Average Order Value (" + currency + ")", moneyCell(k.AOV)},
		{"Average Delivery Time (days)", round1(k.Delivery.AverageDays)},
		{"Delayed Deliveries (%)", round1(k.Delivery.DelayedPct)},
		{"Unpaid Orders (%)", round1(k.UnpaidPct)},
		{"Revenue at Risk (" + currency + ")", moneyCell(k.RevenueAtRisk)},
	})

	row += 2
	d.section(SheetSummary, row, "TOP 3 ORDERS BY REVENUE")
	top := make([][]any, len(k.TopOrders))
	for i, o := range k.TopOrders {
		top[i] = []any{i + 1, o.OrderID, moneyCell(o.Total), o.YearMonth, o.Product}
	}
	row = d.table(SheetSummary, row+1, []string{"Rank", "Order ID", "Revenue", "Month", "Product"}, top)

	row += 2
	d.section(SheetSummary, row, "TOP 3 CATEGORIES BY REVENUE")
	cats := make([][]any, len(k.TopCategories))
	for i, c := range k.TopCategories {
		cats[i] = []any{i + 1, c.Label, moneyCell(c.Revenue)}
	}
	d.table(SheetSummary, row+1, []string{"Rank", "Category", "Revenue"}, cats)
	d.widths(SheetSummary, 30, 20, 20, 15, 30)

	// 2. Revenue
	d.title(SheetRevenue, "REVENUE ANALYSIS")
	d.section(SheetRevenue, 3, "Monthly Revenue")
	monthEnd := d.table(SheetRevenue, 4, []string{"Month", "Revenue"}, amounts(k.ByMonth))
	d.table(SheetRevenue, monthEnd+3, []string{"Category", "Revenue"}, amounts(k.ByCategory))
	d.tableAt(SheetRevenue, "D", 4, []string{"Quarter", "Revenue"}, amounts(k.ByQuarter))
	d.widths(SheetRevenue, 20, 20, 4, 20, 20)

	if len(k.ByMonth) > 0 {
		if err := f.AddChart(SheetRevenue, "G3", &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("'%s'!$B$4", SheetRevenue),
				Categories: fmt.Sprintf("'%s'!$A$5:$A$%d", SheetRevenue, 4+len(k.ByMonth)),
				Values:     fmt.Sprintf("'%s'!$B$5:$B$%d", SheetRevenue, 4+len(k.ByMonth)),
			}},
			Title: []excelize.RichTextRun{{Text: "Monthly Revenue"}},
		}); err != nil {
			return fmt.Errorf("failed to add revenue chart: %w", err)
		}
	}

	// 3. Products
	d.title(SheetProducts, "PRODUCT PERFORMANCE ANALYSIS")
	d.section(SheetProducts, 3, fmt.Sprintf("Products with Above-Average Order Value (AOV > %s %s)", k.AOV.StringFixed(2), currency))
	above := make([][]any, len(k.AboveAOV))
	for i, p := range k.AboveAOV {
		above[i] = []any{p.Product, moneyCell(p.AOV)}
	}
	row = d.table(SheetProducts, 4, []string{"Product", "Average Order Value"}, above)

	row += 2
	d.section(SheetProducts, row, "Underperforming Products (Lowest 10 by Quantity Sold)")
	under := make([][]any, len(k.Underperforming))
	for i, p := range k.Underperforming {
		under[i] = []any{p.Product, p.Quantity, moneyCell(p.Revenue)}
	}
	d.table(SheetProducts, row+1, []string{"Product", "Quantity Sold", "Revenue"}, under)
	d.widths(SheetProducts, 35, 25, 20)

	// 4. Delivery
	d.title(SheetDelivery, "DELIVERY PERFORMANCE ANALYSIS")
	d.section(SheetDelivery, 3, "Delivery Metrics")
	row = d.pairs(SheetDelivery, 4, [][2]any{
		{"Average Delivery Time (days)", round1(k.Delivery.AverageDays)},
		{"Median Delivery Time (days)", k.Delivery.P50Days},
		{"90th Percentile Delivery Time (days)", k.Delivery.P90Days},
		{"Delayed Deliveries", k.Delivery.Delayed},
		{"Delayed Delivery Rate (%)", round1(k.Delivery.DelayedPct)},
		{"On-Time Deliveries", k.Delivery.OnTime},
		{"On-Time Rate (%)", round1(100 - k.Delivery.DelayedPct)},
	})

	row += 2
	d.section(SheetDelivery, row, "Delayed Orders")
	late := make([][]any, len(k.DelayedOrders))
	for i, o := range k.DelayedOrders {
		late[i] = []any{o.OrderID, o.Days, o.Product, o.Governorate}
	}
	d.table(SheetDelivery, row+1, []string{"Order ID", "Delivery Time (days)", "Product", "Governorate"}, late)
	d.widths(SheetDelivery, 36, 25, 35, 20)

	// 5. Payments
	d.title(SheetPayments, "PAYMENT STATUS & RISK ANALYSIS")
	d.section(SheetPayments, 3, "Payment Status Breakdown")
	pay := make([][]any, len(k.Payments))
	for i, p := range k.Payments {
		pay[i] = []any{p.Status, p.Orders, moneyCell(p.Amount), round1(p.Percent)}
	}
	row = d.table(SheetPayments, 4, []string{"Payment Status", "Order Count", "Total Amount", "Percentage (%)"}, pay)
	d.pairs(SheetPayments, row+2, [][2]any{
		{"Unpaid Orders", k.UnpaidOrders},
		{"Revenue at Risk (" + currency + ")", moneyCell(k.RevenueAtRisk)},
	})
	d.widths(SheetPayments, 30, 15, 20, 18)

	if d.err != nil {
		return fmt.Errorf("failed to build dashboard: %w", d.err)
	}

	f.SetActiveSheet(0)

	return sink.WriteAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles

	for _, s := range []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&st.section, &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		}},
		{&st.header, &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"D3D3D3"}, Pattern: 1},
			Border: []excelize.Border{
				{Type: "left", Color: "000000", Style: 1},
				{Type: "top", Color: "000000", Style: 1},
				{Type: "bottom", Color: "000000", Style: 1},
				{Type: "right", Color: "000000", Style: 1},
			},
		}},
		{&st.kpi, &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 14},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"E7E6E6"}, Pattern: 1},
		}},
		{&st.money, &excelize.Style{NumFmt: 4}},
	} {
		id, err := f.NewStyle(s.style)
		if err != nil {
			return st, fmt.Errorf("failed to create style: %w", err)
		}

		*s.dst = id
	}

	return st, nil
}

// dash writes cells and keeps the first error.
type dash struct {
	f   *excelize.File
	st  styles
	err error
}

func (d *dash) set(sheet, col string, row int, v any, style int) {
	if d.err != nil {
		return
	}

	cell := fmt.Sprintf("%s%d", col, row)
	if d.err = d.f.SetCellValue(sheet, cell, v); d.err != nil {
		return
	}

	if style != 0 {
		d.err = d.f.SetCellStyle(sheet, cell, cell, style)
	}
}

func (d *dash) title(sheet, text string) {
	d.set(sheet, "A", 1, text, d.st.title)
}

func (d *dash) section(sheet string, row int, text string) {
	d.set(sheet, "A", row, text, d.st.section)
}

// pairs writes label/value rows and returns the last row used.
func (d *dash) pairs(sheet string, row int, kv [][2]any) int {
	for i, p := range kv {
		d.set(sheet, "A", row+i, p[0], 0)
		d.set(sheet, "B", row+i, p[1], d.st.kpi)
	}

	return row + len(kv) - 1
}

// table writes a header and rows from column A and returns the last row used.
func (d *dash) table(sheet string, row int, header []string, rows [][]any) int {
	return d.tableAt(sheet, "A", row, header, rows)
}

func (d *dash) tableAt(sheet, startCol string, row int, header []string, rows [][]any) int {
	if d.err != nil {
		return row
	}

	first, err := excelize.ColumnNameToNumber(startCol)
	if err != nil {
		d.err = err
		return row
	}

	col := func(i int) string {
		name, err := excelize.ColumnNumberToName(first + i)
		if err != nil && d.err == nil {
			d.err = err
		}

		return name
	}

	for i, h := range header {
		d.set(sheet, col(i), row, h, d.st.header)
	}

	for r, values := range rows {
		for i, v := range values {
			style := 0
			if _, ok := v.(float64); ok {
				style = d.st.money
			}

			d.set(sheet, col(i), row+1+r, v, style)
		}
	}

	return row + len(rows)
}

func (d *dash) widths(sheet string, widths ...float64) {
	for i, w := range widths {
		if d.err != nil {
			return
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			d.err = err
			return
		}

		d.err = d.f.SetColWidth(sheet, name, name, w)
	}
}

func amounts(list []Amount) [][]any {
	rows := make([][]any, len(list))
	for i, a := range list {
		rows[i] = []any{a.Label, moneyCell(a.Revenue)}
	}

	return rows
}

func moneyCell(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
