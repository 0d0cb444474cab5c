package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"egretail/pkg/metadata"
)

// RenderMarkdown writes the KPIs as a markdown report with aligned tables
// and signs it with prov.
func RenderMarkdown(k *KPIs, currency string, prov metadata.Provenance) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Retail Sales Dashboard\n\n")

	// 1. Headline
	b.WriteString("## Key metrics\n\n")
	writeTable(&b, []string{"Metric", "Value"}, [][]string{
		{"Total revenue (" + currency + ")", money2(k.Revenue)},
		{"Orders", fmt.Sprint(k.Orders)},
		{"Average order value (" + currency + ")", money2(k.AOV)},
		{"Average delivery time (days)", fmt.Sprintf("%.1f", k.Delivery.AverageDays)},
		{"Delivery time p50 / p90 (days)", fmt.Sprintf("%d / %d", k.Delivery.P50Days, k.Delivery.P90Days)},
		{"Delayed deliveries", fmt.Sprintf("%d (%.1f%%)", k.Delivery.Delayed, k.Delivery.DelayedPct)},
		{"Unpaid orders", fmt.Sprintf("%d (%.1f%%)", k.UnpaidOrders, k.UnpaidPct)},
		{"Revenue at risk (" + currency + ")", money2(k.RevenueAtRisk)},
	})

	// 2. Rankings
	b.WriteString("\n## Top orders\n\n")
	rows := make([][]string, len(k.TopOrders))
	for i, o := range k.TopOrders {
		rows[i] = []string{fmt.Sprint(i + 1), o.OrderID, money2(o.Total), o.YearMonth, o.Product}
	}
	writeTable(&b, []string{"Rank", "Order", "Revenue", "Month", "Product"}, rows)

	b.WriteString("\n## Top categories\n\n")
	writeTable(&b, []string{"Rank", "Category", "Revenue"}, amountRows(k.TopCategories, true))

	// 3. Breakdowns
	b.WriteString("\n## Revenue by month\n\n")
	writeTable(&b, []string{"Month", "Revenue"}, amountRows(k.ByMonth, false))

	b.WriteString("\n## Revenue by quarter\n\n")
	writeTable(&b, []string{"Quarter", "Revenue"}, amountRows(k.ByQuarter, false))

	b.WriteString("\n## Products above average order value\n\n")
	rows = make([][]string, len(k.AboveAOV))
	for i, p := range k.AboveAOV {
		rows[i] = []string{p.Product, money2(p.AOV)}
	}
	writeTable(&b, []string{"Product", "AOV"}, rows)

	b.WriteString("\n## Lowest quantity sold\n\n")
	rows = make([][]string, len(k.Underperforming))
	for i, p := range k.Underperforming {
		rows[i] = []string{p.Product, fmt.Sprint(p.Quantity), money2(p.Revenue)}
	}
	writeTable(&b, []string{"Product", "Quantity", "Revenue"}, rows)

	b.WriteString("\n## Payment status\n\n")
	rows = make([][]string, len(k.Payments))
	for i, p := range k.Payments {
		rows[i] = []string{orDash(p.Status), fmt.Sprint(p.Orders), money2(p.Amount), fmt.Sprintf("%.1f%%", p.Percent)}
	}
	writeTable(&b, []string{"Status", "Orders", "Amount", "Share"}, rows)

	if prov.QualityTier != "" {
		fmt.Fprintf(&b, "\nData quality: %s (%.1f%%), run %s\n", prov.QualityTier, prov.QualityScore, orDash(prov.RunID))
	}

	return metadata.Sign(FormatMarkdown(b.String()), prov)
}

// FormatMarkdown aligns every table in content by display width so mixed
// Arabic and Latin cells line up. Signed content must be signed again
// afterwards.
func FormatMarkdown(content string) string {
	lines := strings.Split(content, "\n")

	var formatted []string

	var table []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			table = append(table, line)
			continue
		}

		if len(table) > 0 {
			formatted = append(formatted, alignTable(table)...)
			table = nil
		}

		formatted = append(formatted, line)
	}

	if len(table) > 0 {
		formatted = append(formatted, alignTable(table)...)
	}

	return strings.Join(formatted, "\n")
}

func alignTable(rows []string) []string {
	if len(rows) < 2 {
		return rows
	}

	// 1. Parse cells
	var table [][]string

	for _, row := range rows {
		parts := strings.Split(strings.TrimSpace(row), "|")
		parts = parts[1 : len(parts)-1]

		cells := make([]string, len(parts))
		for i, p := range parts {
			cells[i] = strings.TrimSpace(p)
		}

		table = append(table, cells)
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	sepRow := -1
	if isSeparator(table[1]) {
		sepRow = 1
	}

	// 2. Widths
	widths := make([]int, colCount)
	for r, row := range table {
		if r == sepRow {
			continue
		}

		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range widths {
		widths[i] = max(widths[i], 3)
	}

	// 3. Rebuild
	out := make([]string, len(table))
	for r, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			if r == sepRow {
				sb.WriteString(strings.Repeat("-", widths[j]))
			} else {
				cell := ""
				if j < len(row) {
					cell = row[j]
				}

				sb.WriteString(runewidth.FillRight(cell, widths[j]))
			}

			sb.WriteString(" |")
		}

		out[r] = sb.String()
	}

	return out
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}

	return true
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	if len(rows) == 0 {
		b.WriteString("_No data._\n")
		return
	}

	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")

	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = strings.ReplaceAll(c, "|", "/")
		}

		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func amountRows(amounts []Amount, ranked bool) [][]string {
	rows := make([][]string, len(amounts))
	for i, a := range amounts {
		if ranked {
			rows[i] = []string{fmt.Sprint(i + 1), orDash(a.Label), money2(a.Revenue)}
		} else {
			rows[i] = []string{orDash(a.Label), money2(a.Revenue)}
		}
	}

	return rows
}

func money2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
