package lookup

import (
	"context"
	"errors"
	"testing"

	"egretail/internal/config"
	"egretail/internal/models"
)

var products = []models.Product{
	{SKU: "sku200", Name: "smart watch", Category: "electronics", Row: 0},
	{SKU: "sku100", Name: "smart watch", Category: "electronics", Row: 1},
	{SKU: "", Name: "olive oil", Category: "grocery", Row: 2},
	{SKU: "sku300", Name: "olive oil", Category: "grocery", Row: 3},
	{SKU: "sku400", Name: "", Category: "toys", Row: 4},
}

func TestNewJoiner(t *testing.T) {
	if _, err := NewJoiner("random"); !errors.Is(err, ErrUnknownDedupPolicy) {
		t.Errorf("expected ErrUnknownDedupPolicy, got %v", err)
	}
}

func TestJoiner_Dedup(t *testing.T) {
	tests := []struct {
		policy    string
		wantWatch string
		wantOil   string
	}{
		{config.DedupLowestSKU, "sku100", "sku300"},
		{config.DedupFirst, "sku200", ""},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			j, err := NewJoiner(tt.policy)
			if err != nil {
				t.Fatal(err)
			}

			ref := j.Dedup(products)
			if len(ref) != 2 {
				t.Fatalf("len(ref) = %d, want 2", len(ref))
			}

			if ref["smart watch"].SKU != tt.wantWatch || ref["olive oil"].SKU != tt.wantOil {
				t.Errorf("ref = %+v", ref)
			}
		})
	}
}

func TestJoiner_Run(t *testing.T) {
	j, err := NewJoiner(config.DedupLowestSKU)
	if err != nil {
		t.Fatal(err)
	}

	ds := models.NewDataset([]*models.Order{
		{SKU: "sku999", ProductName: "smart watch"},
		{ProductName: "smart watch"},
		{ProductName: "unknown gadget"},
		{},
	})
	ds.Products = products

	counts, err := j.Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct{ sku, source string }{
		{"sku999", SKUOriginal},
		{"sku100", SKUImputedFromName},
		{"", SKUMissing},
		{"", SKUMissing},
	}

	for i, w := range want {
		o := ds.Orders[i]
		if o.SKU != w.sku || o.SKUSource != w.source {
			t.Errorf("row %d = (%q, %s), want (%q, %s)", i, o.SKU, o.SKUSource, w.sku, w.source)
		}
	}

	if counts[SKUMissing] != 2 || counts["reference_products"] != 2 {
		t.Errorf("counts = %v", counts)
	}

	if len(ds.Orders) != 4 {
		t.Errorf("left join changed row count to %d", len(ds.Orders))
	}
}
