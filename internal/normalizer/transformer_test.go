package normalizer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"egretail/internal/config"
	"egretail/internal/models"
)

func TestNewTransformer(t *testing.T) {
	tr := NewTransformer(testMappings(t), config.DefaultConfig().Cleaning)
	if tr == nil {
		t.Fatal("NewTransformer returned nil")
	}
}

func TestTransformer_ParallelMatchesSequential(t *testing.T) {
	build := func() *models.Dataset {
		orders := make([]*models.Order, 0, 40)
		for i := range 40 {
			raw := rawOrder()
			if i%3 == 0 {
				raw.Phone = "0101234567"
				raw.Currency = "usd"
			}

			if i%5 == 0 {
				raw.OrderDate = "not a date"
				raw.Governorate = "Atlantis"
			}

			orders = append(orders, &models.Order{Raw: raw, Row: i})
		}

		return models.NewDataset(orders)
	}

	tr := NewTransformer(testMappings(t), config.DefaultConfig().Cleaning)

	seq, par := build(), build()

	seqSummary, err := tr.Transform(context.Background(), seq, false)
	if err != nil {
		t.Fatal(err)
	}

	parSummary, err := tr.Transform(context.Background(), par, true)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(seqSummary, parSummary) {
		t.Errorf("summaries differ: %+v vs %+v", seqSummary, parSummary)
	}

	for i := range seq.Orders {
		if !reflect.DeepEqual(seq.Orders[i], par.Orders[i]) {
			t.Fatalf("order %d differs between sequential and parallel runs", i)
		}
	}

	if seqSummary.InvalidPhones != 14 {
		t.Errorf("InvalidPhones = %d, want 14", seqSummary.InvalidPhones)
	}

	if seqSummary.UnparseableDates != 8 || seqSummary.Unmapped["governorates"] != 8 {
		t.Errorf("summary = %+v", seqSummary)
	}
}

func TestTransformer_AssumeMissingCurrency(t *testing.T) {
	tests := []struct {
		name       string
		assume     bool
		wantCode   string
		wantStatus string
	}{
		{"assumed", true, "EGP", CurrencyAssumed},
		{"left missing", false, "", CurrencyMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig().Cleaning
			cfg.AssumeMissingCurrency = tt.assume

			raw := rawOrder()
			raw.Currency = " "

			ds := models.NewDataset([]*models.Order{{Raw: raw}})
			summary, err := NewTransformer(testMappings(t), cfg).Transform(context.Background(), ds, false)
			if err != nil {
				t.Fatal(err)
			}

			o := ds.Orders[0]
			if o.Currency != tt.wantCode || o.CurrencyStatus != tt.wantStatus {
				t.Errorf("currency = (%q, %s), want (%q, %s)", o.Currency, o.CurrencyStatus, tt.wantCode, tt.wantStatus)
			}

			if tt.assume && summary.AssumedCurrencies != 1 {
				t.Errorf("AssumedCurrencies = %d", summary.AssumedCurrencies)
			}
		})
	}
}

func TestTransformer_ProductTable(t *testing.T) {
	tr := NewTransformer(testMappings(t), config.DefaultConfig().Cleaning)

	products, err := tr.ProductTable(&models.Table{
		Name:   "Products_Raw",
		Header: []string{" SKU ", "ProductName", "Category", "Extra"},
		Rows: [][]string{
			{"SKU-9", "Bluetooth Headphones - سماعة بلوتوث", "electronics"},
			{"sku-10"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []models.Product{{SKU: "sku9", Name: "bluetooth headphones", Category: "electronics", Row: 0}}
	if !reflect.DeepEqual(products, want) {
		t.Errorf("products = %+v, want %+v", products, want)
	}

	_, err = tr.ProductTable(&models.Table{Name: "Products_Raw", Header: []string{"SKU", "Category"}})
	if !errors.Is(err, models.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}
