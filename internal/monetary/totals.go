package monetary

import (
	"context"
	"fmt"

	"egretail/internal/models"
)

// Totals is the stage that runs after shipping imputation and derives the
// final order amount.
type Totals struct {
	iqrFactor float64
}

// NewTotals creates the totals stage with the 1.5 x IQR extreme rule.
func NewTotals() *Totals {
	return &Totals{iqrFactor: 1.5}
}

// Name implements pipeline.Stage.
func (t *Totals) Name() string { return "totals" }

// Requires implements pipeline.Stage.
func (t *Totals) Requires() []string {
	return []string{models.ColSubtotalCapped, models.ColDiscountRate, models.ColShippingFilled}
}

// Provides implements pipeline.Stage.
func (t *Totals) Provides() []string {
	return []string{models.ColTotal, models.ColTotalExtreme}
}

// Run implements pipeline.Stage.
func (t *Totals) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	counts := models.Counts{}
	totals := make([]float64, 0, len(ds.Orders))

	for _, o := range ds.Orders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("totals: %w", err)
		}

		o.Total = Total(o.SubtotalCapped, o.DiscountRate, o.ShippingFilled)
		if o.Total == nil {
			counts.Add("total_absent")
			continue
		}

		totals = append(totals, *o.Total)
	}

	lo, hi, ok := t.Fences(totals)
	for _, o := range ds.Orders {
		o.TotalExtreme = ok && o.Total != nil && (*o.Total < lo || *o.Total > hi)
		if o.TotalExtreme {
			counts.Add("total_extreme")
		}
	}

	return counts, nil
}

// Total is subtotal x (1 - discount) + shipping; absent if either amount is.
func Total(subtotal *float64, discount float64, shipping *float64) *float64 {
	if subtotal == nil || shipping == nil {
		return nil
	}

	v := *subtotal*(1-discount) + *shipping

	return &v
}

// Fences returns the lower and upper IQR fences of values.
func (t *Totals) Fences(values []float64) (float64, float64, bool) {
	q1, ok := Percentile(values, 25)
	if !ok {
		return 0, 0, false
	}

	q3, _ := Percentile(values, 75)
	iqr := q3 - q1

	return q1 - t.iqrFactor*iqr, q3 + t.iqrFactor*iqr, true
}
