package identity

import (
	"context"
	"errors"
	"testing"

	"egretail/internal/config"
	"egretail/internal/models"
)

func resolver() *Resolver {
	return NewResolver(config.DefaultConfig().Cleaning.IDs)
}

func orders(rawIDs ...string) []*models.Order {
	out := make([]*models.Order, len(rawIDs))
	for i, id := range rawIDs {
		out[i] = &models.Order{Raw: models.RawOrder{OrderID: id}, Row: i}
	}

	return out
}

func TestDedupOrderIDs(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		wantIDs  []string
		wantDup  []bool
		wantMiss []bool
	}{
		{
			name:     "duplicated group replaced on every row",
			raw:      []string{"A100", "A100", "B200"},
			wantIDs:  []string{"NEW00001", "NEW00002", "B200"},
			wantDup:  []bool{true, true, false},
			wantMiss: []bool{false, false, false},
		},
		{
			name:     "minted ids skip retained raw ids",
			raw:      []string{"X", "X", "NEW00001"},
			wantIDs:  []string{"NEW00002", "NEW00003", "NEW00001"},
			wantDup:  []bool{true, true, false},
			wantMiss: []bool{false, false, false},
		},
		{
			name:     "missing ids are minted in row order",
			raw:      []string{"", "C1", "nan", "C1"},
			wantIDs:  []string{"NEW00001", "NEW00002", "NEW00003", "NEW00004"},
			wantDup:  []bool{false, true, false, true},
			wantMiss: []bool{true, false, true, false},
		},
		{
			name:     "whitespace does not split a group",
			raw:      []string{"A1 ", " A1"},
			wantIDs:  []string{"NEW00001", "NEW00002"},
			wantDup:  []bool{true, true},
			wantMiss: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := orders(tt.raw...)
			resolver().DedupOrderIDs(rows)

			seen := make(map[string]bool)
			for i, o := range rows {
				if o.OrderID != tt.wantIDs[i] {
					t.Errorf("row %d id = %q, want %q", i, o.OrderID, tt.wantIDs[i])
				}

				if o.OrderIDDuplicated != tt.wantDup[i] || o.OrderIDWasMissing != tt.wantMiss[i] {
					t.Errorf("row %d flags = (%v, %v), want (%v, %v)", i,
						o.OrderIDDuplicated, o.OrderIDWasMissing, tt.wantDup[i], tt.wantMiss[i])
				}

				if seen[o.OrderID] {
					t.Errorf("id %q assigned twice", o.OrderID)
				}

				seen[o.OrderID] = true
			}
		})
	}
}

func TestDedupOrderIDs_RawKept(t *testing.T) {
	rows := orders("A100", "A100")
	resolver().DedupOrderIDs(rows)

	for _, o := range rows {
		if o.Raw.OrderID != "A100" {
			t.Errorf("raw id changed to %q", o.Raw.OrderID)
		}
	}
}

func TestResolveCustomers(t *testing.T) {
	rows := []*models.Order{
		{CustomerID: "C001", Phone: "+201012345678", Email: "a@x.com", Raw: models.RawOrder{Address: "12 Nile St"}},
		{CustomerID: "C002", Phone: "+201012345678", Email: "b@x.com", Raw: models.RawOrder{Address: "5 Tahrir"}},
		{Phone: "+201012345678"},
		{Email: "b@x.com"},
		{Raw: models.RawOrder{Address: "5 Tahrir"}},
		{Raw: models.RawOrder{Address: " 5 Tahrir "}},
		{Phone: "+201199999999", Email: "new@x.com"},
		{Phone: "+201199999999"},
		{CustomerID: "GUEST0001"},
	}

	counts := resolver().ResolveCustomers(rows)

	want := []struct{ id, source string }{
		{"C001", SourceOriginal},
		{"C002", SourceOriginal},
		{"C001", SourcePhoneMatch},
		{"C002", SourceEmailMatch},
		{"C002", SourceAddressMatch},
		{"GUEST0002", SourceGuest},
		{"GUEST0003", SourceGuest},
		{"GUEST0004", SourceGuest},
		{"GUEST0001", SourceOriginal},
	}

	for i, w := range want {
		if rows[i].CustomerID != w.id || rows[i].CustomerIDSource != w.source {
			t.Errorf("row %d = (%q, %s), want (%q, %s)", i, rows[i].CustomerID, rows[i].CustomerIDSource, w.id, w.source)
		}
	}

	if counts[SourceGuest] != 3 || counts[SourceOriginal] != 3 {
		t.Errorf("counts = %v", counts)
	}
}

func TestResolver_Run(t *testing.T) {
	ds := models.NewDataset(orders("A100", "A100"))
	r := resolver()

	if err := ds.Require(r.Name(), r.Requires()...); !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn before normalize, got %v", err)
	}

	counts, err := r.Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	if counts["order_id_duplicated"] != 2 || counts[SourceGuest] != 2 {
		t.Errorf("counts = %v", counts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, ds); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
