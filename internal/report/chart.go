package report

import (
	"bytes"
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"egretail/internal/sink"
)

// Chart geometry in pixels.
const (
	chartWidth   = 900
	chartHeight  = 420
	chartMargin  = 60
	chartBarFill = "fill:#366092"
)

// RevenueChart draws monthly revenue as an SVG bar chart.
func RevenueChart(k *KPIs, currency string) []byte {
	var buf bytes.Buffer

	canvas := svg.New(&buf)
	canvas.Start(chartWidth, chartHeight)
	canvas.Rect(0, 0, chartWidth, chartHeight, "fill:white")
	canvas.Text(chartWidth/2, chartMargin/2, "Monthly Revenue ("+currency+")",
		"text-anchor:middle;font-size:18px;font-family:sans-serif")

	plotW := chartWidth - 2*chartMargin
	plotH := chartHeight - 2*chartMargin
	baseY := chartHeight - chartMargin

	canvas.Line(chartMargin, baseY, chartWidth-chartMargin, baseY, "stroke:black;stroke-width:1")

	peak := 0.0
	for _, m := range k.ByMonth {
		peak = max(peak, moneyCell(m.Revenue))
	}

	if len(k.ByMonth) == 0 || peak <= 0 {
		canvas.Text(chartWidth/2, chartHeight/2, "No revenue", "text-anchor:middle;font-size:14px;fill:gray")
		canvas.End()

		return buf.Bytes()
	}

	slot := plotW / len(k.ByMonth)
	barW := max(slot*7/10, 1)

	for i, m := range k.ByMonth {
		v := moneyCell(m.Revenue)
		h := 0
		if v > 0 {
			h = int(v / peak * float64(plotH))
		}

		x := chartMargin + i*slot + (slot-barW)/2
		canvas.Rect(x, baseY-h, barW, h, chartBarFill)
		canvas.Text(x+barW/2, baseY+16, m.Label, "text-anchor:middle;font-size:10px;font-family:sans-serif")
		canvas.Text(x+barW/2, baseY-h-4, fmt.Sprintf("%.0f", v), "text-anchor:middle;font-size:9px;fill:#333")
	}

	canvas.End()

	return buf.Bytes()
}

// WriteChart writes the revenue chart to path.
func WriteChart(path string, k *KPIs, currency string) error {
	data := RevenueChart(k, currency)

	return sink.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
