// Package monetary converts prices to the reporting currency, derives
// subtotals and discount rates, caps per-SKU price outliers and computes
// order totals.
package monetary

import (
	"context"
	"errors"
	"fmt"

	"egretail/internal/config"
	"egretail/internal/models"
)

// ErrNoRates is returned when the FX table is empty.
var ErrNoRates = errors.New("fx rate table is empty")

// Normalizer is the monetary stage.
type Normalizer struct {
	rates      map[string]float64
	percentile float64
}

// NewNormalizer creates a monetary stage from the cleaning config.
func NewNormalizer(cfg config.CleaningConfig) (*Normalizer, error) {
	if len(cfg.FXRates) == 0 {
		return nil, ErrNoRates
	}

	return &Normalizer{rates: cfg.FXRates, percentile: cfg.OutlierPercentile}, nil
}

// Name implements pipeline.Stage.
func (n *Normalizer) Name() string { return "monetary" }

// Requires implements pipeline.Stage.
func (n *Normalizer) Requires() []string {
	return []string{
		models.RawDiscount, models.ColCurrency, models.ColCurrencyStatus,
		models.ColUnitPrice, models.ColQuantityParsed, models.ColSKU, models.ColSKUSource,
	}
}

// Provides implements pipeline.Stage.
func (n *Normalizer) Provides() []string {
	return []string{
		models.ColFXRate, models.ColUnitPriceEGP, models.ColQuantity, models.ColSubtotal,
		models.ColDiscountRate, models.ColDiscountKind,
		models.ColUnitPriceCapped, models.ColPriceWasCapped, models.ColSubtotalCapped,
	}
}

// Run implements pipeline.Stage.
func (n *Normalizer) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	counts := models.Counts{}

	// 1. Convert and derive per-row amounts
	for _, o := range ds.Orders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("monetary: %w", err)
		}

		n.convert(o)
		counts.Add("discount_" + o.DiscountKind)

		if o.FXRate == nil {
			counts.Add("fx_unavailable")
		}
	}

	// 2. Cap price outliers per SKU
	counts["price_capped"] = n.CapOutliers(ds.Orders)

	return counts, nil
}

// FX returns the rate to the reporting currency, or nil when the currency
// has no configured rate.
func (n *Normalizer) FX(currency string) *float64 {
	if rate, ok := n.rates[currency]; ok {
		return &rate
	}

	return nil
}

func (n *Normalizer) convert(o *models.Order) {
	o.FXRate = n.FX(o.Currency)
	o.UnitPriceEGP = mul(o.UnitPrice, o.FXRate)

	o.Quantity = nil
	if o.QuantityParsed != nil && *o.QuantityParsed > 0 {
		q := *o.QuantityParsed
		o.Quantity = &q
	}

	o.Subtotal = mul(o.UnitPriceEGP, o.Quantity)
	o.DiscountRate, o.DiscountKind = DiscountRateOf(o.Raw.Discount, o.FXRate, o.Subtotal)
}

// CapOutliers replaces prices above their SKU's percentile with the
// percentile and recomputes the capped subtotal. Rows without a SKU or a
// converted price are not capped. It returns the number of capped rows.
func (n *Normalizer) CapOutliers(orders []*models.Order) int {
	bySKU := make(map[string][]float64)
	for _, o := range orders {
		if o.SKU != "" && o.UnitPriceEGP != nil {
			bySKU[o.SKU] = append(bySKU[o.SKU], *o.UnitPriceEGP)
		}
	}

	limits := make(map[string]float64, len(bySKU))
	for sku, prices := range bySKU {
		limits[sku], _ = Percentile(prices, n.percentile)
	}

	capped := 0
	for _, o := range orders {
		o.UnitPriceCapped = o.UnitPriceEGP
		o.PriceWasCapped = false

		if limit, ok := limits[o.SKU]; ok && o.UnitPriceEGP != nil && *o.UnitPriceEGP > limit {
			o.UnitPriceCapped = &limit
			o.PriceWasCapped = true
			capped++
		}

		o.SubtotalCapped = mul(o.UnitPriceCapped, o.Quantity)
	}

	return capped
}

func mul(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}

	v := *a * *b

	return &v
}
