package report

import (
	"fmt"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// UnpaidStatus is the payment status whose revenue is at risk.
const UnpaidStatus = "Unpaid"

const (
	topOrders      = 3
	topCategories  = 3
	bottomProducts = 10
	delayedListed  = 20

	minHistogramDays = 3650
)

// Amount is a labelled money value.
type Amount struct {
	Label   string          `yaml:"label"`
	Revenue decimal.Decimal `yaml:"revenue"`
}

// OrderLine is one order in a ranking.
type OrderLine struct {
	OrderID   string          `yaml:"order_id"`
	Total     decimal.Decimal `yaml:"total"`
	YearMonth string          `yaml:"year_month"`
	Product   string          `yaml:"product"`
	Customer  string          `yaml:"customer"`
}

// ProductLine aggregates one product.
type ProductLine struct {
	Product  string          `yaml:"product"`
	Quantity float64         `yaml:"quantity"`
	Revenue  decimal.Decimal `yaml:"revenue"`
	AOV      decimal.Decimal `yaml:"aov"`
}

// DelayedOrder is one late delivery.
type DelayedOrder struct {
	OrderID     string `yaml:"order_id"`
	Days        int    `yaml:"days"`
	Product     string `yaml:"product"`
	Governorate string `yaml:"governorate"`
}

// PaymentLine aggregates one payment status.
type PaymentLine struct {
	Status  string          `yaml:"status"`
	Orders  int             `yaml:"orders"`
	Amount  decimal.Decimal `yaml:"amount"`
	Percent float64         `yaml:"percent"`
}

// Delivery summarizes lead times over orders with a known delivery date.
type Delivery struct {
	Known       int     `yaml:"known"`
	AverageDays float64 `yaml:"average_days"`
	P50Days     int64   `yaml:"p50_days"`
	P90Days     int64   `yaml:"p90_days"`
	Delayed     int     `yaml:"delayed"`
	DelayedPct  float64 `yaml:"delayed_pct"`
	OnTime      int     `yaml:"on_time"`
}

// KPIs is the dashboard content.
type KPIs struct {
	Rows             int             `yaml:"rows"`
	Orders           int             `yaml:"orders"`
	Revenue          decimal.Decimal `yaml:"revenue"`
	AOV              decimal.Decimal `yaml:"aov"`
	OrderValueQ1     float64         `yaml:"order_value_q1"`
	OrderValueMedian float64         `yaml:"order_value_median"`
	OrderValueQ3     float64         `yaml:"order_value_q3"`
	ByMonth          []Amount        `yaml:"by_month"`
	ByQuarter        []Amount        `yaml:"by_quarter"`
	ByCategory       []Amount        `yaml:"by_category"`
	TopOrders        []OrderLine     `yaml:"top_orders"`
	TopCategories    []Amount        `yaml:"top_categories"`
	AboveAOV         []ProductLine   `yaml:"above_aov"`
	Underperforming  []ProductLine   `yaml:"underperforming"`
	Delivery         Delivery        `yaml:"delivery"`
	DelayedOrders    []DelayedOrder  `yaml:"delayed_orders"`
	Payments         []PaymentLine   `yaml:"payments"`
	UnpaidOrders     int             `yaml:"unpaid_orders"`
	UnpaidPct        float64         `yaml:"unpaid_pct"`
	RevenueAtRisk    decimal.Decimal `yaml:"revenue_at_risk"`
}

// Compute derives every KPI. Absent totals count as zero revenue in sums
// and are skipped in rankings and means.
func Compute(rows []Row) (*KPIs, error) {
	k := &KPIs{Rows: len(rows)}

	ids := make(map[string]bool)
	months := newSums()
	quarters := newSums()
	categories := newSums()
	products := make(map[string]*productAcc)
	payments := make(map[string]*PaymentLine)

	var values []float64
	var ranked []OrderLine
	var leadTimes stats.Float64Data

	for _, r := range rows {
		total := decimal.Zero
		if r.Total != nil {
			total = *r.Total
		}

		if r.OrderID != "" {
			ids[r.OrderID] = true
		}

		k.Revenue = k.Revenue.Add(total)

		// 1. Revenue breakdowns
		if r.YearMonth != "" {
			months.add(r.YearMonth, total)
		}

		if r.Year > 0 && r.Quarter > 0 {
			quarters.add(fmt.Sprintf("%d-Q%d", r.Year, r.Quarter), total)
		}

		if r.Category != "" {
			categories.add(r.Category, total)
		}

		if r.Total != nil {
			f, _ := r.Total.Float64()
			values = append(values, f)
			ranked = append(ranked, OrderLine{
				OrderID:   r.OrderID,
				Total:     *r.Total,
				YearMonth: r.YearMonth,
				Product:   r.ProductName,
				Customer:  r.CustomerName,
			})
		}

		// 2. Products
		if r.ProductName != "" {
			p := products[r.ProductName]
			if p == nil {
				p = &productAcc{}
				products[r.ProductName] = p
			}

			p.add(r)
		}

		// 3. Delivery
		if r.DeliveryDays != nil {
			leadTimes = append(leadTimes, float64(*r.DeliveryDays))
		}

		if r.Delayed {
			k.Delivery.Delayed++
			if len(k.DelayedOrders) < delayedListed {
				k.DelayedOrders = append(k.DelayedOrders, DelayedOrder{
					OrderID:     r.OrderID,
					Days:        deref(r.DeliveryDays),
					Product:     r.ProductName,
					Governorate: r.Governorate,
				})
			}
		}

		// 4. Payments
		pl := payments[r.PaymentStatus]
		if pl == nil {
			pl = &PaymentLine{Status: r.PaymentStatus}
			payments[r.PaymentStatus] = pl
		}

		pl.Orders++
		pl.Amount = pl.Amount.Add(total)

		if r.PaymentStatus == UnpaidStatus {
			k.UnpaidOrders++
			k.RevenueAtRisk = k.RevenueAtRisk.Add(total)
		}
	}

	k.Orders = len(ids)
	if k.Orders > 0 {
		k.AOV = k.Revenue.Div(decimal.NewFromInt(int64(k.Orders)))
	}

	k.ByMonth = months.sortedByLabel()
	k.ByQuarter = quarters.sortedByLabel()
	k.ByCategory = categories.sortedByRevenue()
	k.TopCategories = head(k.ByCategory, topCategories)

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total.GreaterThan(ranked[j].Total) })
	k.TopOrders = head(ranked, topOrders)

	if len(values) > 0 {
		if q, err := stats.Quartile(values); err == nil {
			k.OrderValueQ1, k.OrderValueMedian, k.OrderValueQ3 = q.Q1, q.Q2, q.Q3
		}
	}

	k.AboveAOV, k.Underperforming = rankProducts(products, k.AOV)

	if len(leadTimes) > 0 {
		mean, err := leadTimes.Mean()
		if err != nil {
			return nil, fmt.Errorf("delivery mean: %w", err)
		}

		hist, err := leadTimeHistogram(leadTimes)
		if err != nil {
			return nil, err
		}

		k.Delivery.Known = len(leadTimes)
		k.Delivery.AverageDays = mean
		k.Delivery.P50Days = hist.ValueAtQuantile(50)
		k.Delivery.P90Days = hist.ValueAtQuantile(90)
	}

	k.Delivery.DelayedPct = pct(k.Delivery.Delayed, k.Rows)
	k.Delivery.OnTime = k.Rows - k.Delivery.Delayed
	k.UnpaidPct = pct(k.UnpaidOrders, k.Rows)

	for _, pl := range payments {
		pl.Percent = pct(pl.Orders, k.Rows)
		k.Payments = append(k.Payments, *pl)
	}

	sort.Slice(k.Payments, func(i, j int) bool { return k.Payments[i].Status < k.Payments[j].Status })

	return k, nil
}

// leadTimeHistogram records the non-negative lead times. The range is sized
// from the largest value so a mistyped year still fits.
func leadTimeHistogram(days []float64) (*hdrhistogram.Histogram, error) {
	highest := int64(minHistogramDays)
	for _, d := range days {
		if int64(d) > highest {
			highest = int64(d)
		}
	}

	hist := hdrhistogram.New(1, highest, 3)

	for _, d := range days {
		if d < 0 {
			continue
		}

		if err := hist.RecordValue(int64(d)); err != nil {
			return nil, fmt.Errorf("delivery histogram: %w", err)
		}
	}

	return hist, nil
}

type productAcc struct {
	quantity float64
	revenue  decimal.Decimal
	totalSum decimal.Decimal
	totals   int
}

func (p *productAcc) add(r Row) {
	if r.Quantity != nil {
		p.quantity += *r.Quantity
	}

	if r.Total != nil {
		p.revenue = p.revenue.Add(*r.Total)
		p.totalSum = p.totalSum.Add(*r.Total)
		p.totals++
	}
}

// rankProducts returns products whose mean order total exceeds aov, highest
// first, and the products with the lowest quantity sold.
func rankProducts(products map[string]*productAcc, aov decimal.Decimal) ([]ProductLine, []ProductLine) {
	lines := make([]ProductLine, 0, len(products))
	for name, p := range products {
		line := ProductLine{Product: name, Quantity: p.quantity, Revenue: p.revenue}
		if p.totals > 0 {
			line.AOV = p.totalSum.Div(decimal.NewFromInt(int64(p.totals)))
		}

		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Product < lines[j].Product })

	var above []ProductLine
	for _, l := range lines {
		if l.AOV.GreaterThan(aov) {
			above = append(above, l)
		}
	}

	sort.SliceStable(above, func(i, j int) bool { return above[i].AOV.GreaterThan(above[j].AOV) })

	bottom := append([]ProductLine(nil), lines...)
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].Quantity < bottom[j].Quantity })

	return above, head(bottom, bottomProducts)
}

type sums struct {
	values map[string]decimal.Decimal
}

func newSums() *sums {
	return &sums{values: make(map[string]decimal.Decimal)}
}

func (s *sums) add(label string, v decimal.Decimal) {
	s.values[label] = s.values[label].Add(v)
}

func (s *sums) sortedByLabel() []Amount {
	out := make([]Amount, 0, len(s.values))
	for label, v := range s.values {
		out = append(out, Amount{Label: label, Revenue: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	return out
}

func (s *sums) sortedByRevenue() []Amount {
	out := s.sortedByLabel()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })

	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}

	return s
}

func pct(k, n int) float64 {
	if n == 0 {
		return 0
	}

	return float64(k) / float64(n) * 100
}

func deref(v *int) int {
	if v == nil {
		return 0
	}

	return *v
}
