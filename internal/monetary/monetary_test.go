package monetary

import (
	"context"
	"errors"
	"math"
	"testing"

	"egretail/internal/config"
	"egretail/internal/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDiscountRateOf(t *testing.T) {
	one, usd := models.Float(1), models.Float(45.3575)

	tests := []struct {
		name     string
		raw      string
		fx       *float64
		subtotal *float64
		want     float64
		kind     string
	}{
		{"blank", "", one, models.Float(200), 0, DiscountNone},
		{"none", "None", one, models.Float(200), 0, DiscountNone},
		{"zero", "0", one, models.Float(200), 0, DiscountNone},
		{"percent", "50%", one, models.Float(200), 0.5, DiscountPercent},
		{"percent over 100", "150%", one, models.Float(200), 1, DiscountPercent},
		{"rate", "0.15", one, models.Float(200), 0.15, DiscountRate},
		{"fixed capped", "300", one, models.Float(200), 1, DiscountFixed},
		{"fixed", "50", one, models.Float(200), 0.25, DiscountFixed},
		{"fixed usd", "2", usd, models.Float(907.15), 0.1, DiscountFixed},
		{"fixed zero subtotal", "50", one, models.Float(0), 0, DiscountFixed},
		{"fixed absent subtotal", "50", one, nil, 0, DiscountFixed},
		{"negative", "-5", one, models.Float(200), 0, DiscountInvalid},
		{"garbage", "ten", one, models.Float(200), 0, DiscountInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := DiscountRateOf(tt.raw, tt.fx, tt.subtotal)
			if !approx(got, tt.want) || kind != tt.kind {
				t.Errorf("DiscountRateOf(%q) = (%v, %s), want (%v, %s)", tt.raw, got, kind, tt.want, tt.kind)
			}

			if got < 0 || got > 1 {
				t.Errorf("rate %v outside [0, 1]", got)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 25},
		{99, 39.7},
		{100, 40},
	}

	for _, tt := range tests {
		got, ok := Percentile(values, tt.p)
		if !ok || !approx(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if values[0] != 40 {
		t.Error("input was reordered")
	}

	if _, ok := Percentile(nil, 50); ok {
		t.Error("expected ok=false for empty input")
	}
}

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()

	n, err := NewNormalizer(config.DefaultConfig().Cleaning)
	if err != nil {
		t.Fatal(err)
	}

	return n
}

func TestNewNormalizer(t *testing.T) {
	cfg := config.DefaultConfig().Cleaning
	cfg.FXRates = nil

	if _, err := NewNormalizer(cfg); !errors.Is(err, ErrNoRates) {
		t.Errorf("expected ErrNoRates, got %v", err)
	}
}

func TestNormalizer_Run(t *testing.T) {
	n := newNormalizer(t)

	ds := models.NewDataset([]*models.Order{
		{SKU: "a", Currency: "EGP", UnitPrice: models.Float(100), QuantityParsed: models.Float(2), Raw: models.RawOrder{Discount: "50%"}},
		{SKU: "a", Currency: "USD", UnitPrice: models.Float(2), QuantityParsed: models.Float(1), Raw: models.RawOrder{Discount: "1"}},
		{SKU: "a", Currency: "SAR", UnitPrice: models.Float(10), QuantityParsed: models.Float(1)},
		{SKU: "b", Currency: "EGP", UnitPrice: models.Float(100), QuantityParsed: models.Float(0)},
		{Currency: "EGP", UnitPrice: models.Float(5000), QuantityParsed: models.Float(1)},
	})

	counts, err := n.Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	o := ds.Orders
	if o[0].Subtotal == nil || *o[0].Subtotal != 200 || o[0].DiscountRate != 0.5 {
		t.Errorf("row 0 subtotal = %v discount = %v", o[0].Subtotal, o[0].DiscountRate)
	}

	if o[1].UnitPriceEGP == nil || !approx(*o[1].UnitPriceEGP, 90.715) {
		t.Errorf("row 1 EGP price = %v", o[1].UnitPriceEGP)
	}

	if !approx(o[1].DiscountRate, 0.5) || o[1].DiscountKind != DiscountFixed {
		t.Errorf("row 1 discount = (%v, %s)", o[1].DiscountRate, o[1].DiscountKind)
	}

	if o[2].FXRate != nil || o[2].UnitPriceEGP != nil || o[2].Subtotal != nil {
		t.Errorf("unrecognized currency must leave amounts absent: %+v", o[2])
	}

	if o[3].Quantity != nil || o[3].Subtotal != nil || o[3].SubtotalCapped != nil {
		t.Errorf("zero quantity must be absent: %+v", o[3])
	}

	if o[4].PriceWasCapped || o[4].UnitPriceCapped == nil || *o[4].UnitPriceCapped != 5000 {
		t.Errorf("rows without SKU are never capped: %+v", o[4])
	}

	if counts["fx_unavailable"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCapOutliers(t *testing.T) {
	n := newNormalizer(t)

	orders := make([]*models.Order, 0, 101)
	for i := range 100 {
		orders = append(orders, &models.Order{SKU: "sku1", UnitPriceEGP: models.Float(float64(100 + i%3)), Quantity: models.Float(2)})
	}

	orders = append(orders, &models.Order{SKU: "sku1", UnitPriceEGP: models.Float(100000), Quantity: models.Float(2)})

	if capped := n.CapOutliers(orders); capped != 1 {
		t.Fatalf("capped = %d, want 1", capped)
	}

	outlier := orders[100]
	if !outlier.PriceWasCapped || *outlier.UnitPriceCapped >= 100000 {
		t.Errorf("outlier not capped: %v", *outlier.UnitPriceCapped)
	}

	for i, o := range orders {
		if *o.UnitPriceCapped > *o.UnitPriceEGP {
			t.Errorf("row %d capped price above original", i)
		}

		if !approx(*o.SubtotalCapped, *o.UnitPriceCapped**o.Quantity) {
			t.Errorf("row %d capped subtotal = %v", i, *o.SubtotalCapped)
		}
	}
}

func TestTotals_Run(t *testing.T) {
	orders := []*models.Order{
		{SubtotalCapped: models.Float(200), DiscountRate: 0.5, ShippingFilled: models.Float(30)},
		{SubtotalCapped: nil, ShippingFilled: models.Float(30)},
		{SubtotalCapped: models.Float(100), ShippingFilled: nil},
	}

	for range 20 {
		orders = append(orders, &models.Order{SubtotalCapped: models.Float(100), ShippingFilled: models.Float(20)})
	}

	orders = append(orders, &models.Order{SubtotalCapped: models.Float(100000), ShippingFilled: models.Float(20)})

	ds := models.NewDataset(orders)

	counts, err := NewTotals().Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	if ds.Orders[0].Total == nil || *ds.Orders[0].Total != 130 {
		t.Errorf("total = %v, want 130", ds.Orders[0].Total)
	}

	if ds.Orders[1].Total != nil || ds.Orders[2].Total != nil {
		t.Error("absent operands must give an absent total")
	}

	if !ds.Orders[len(orders)-1].TotalExtreme || ds.Orders[3].TotalExtreme {
		t.Error("IQR extreme flag misassigned")
	}

	if counts["total_absent"] != 2 || counts["total_extreme"] < 1 {
		t.Errorf("counts = %v", counts)
	}
}
