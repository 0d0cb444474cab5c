package impute

import (
	"context"
	"testing"

	"egretail/internal/config"
	"egretail/internal/mapping"
	"egretail/internal/models"
)

// egypt is the default box with the global fallback disabled.
var egypt = func() config.GeoConfig {
	g := config.DefaultConfig().Cleaning.Geo
	g.GlobalFallback = false

	return g
}()

func defaultMappings(t *testing.T) *mapping.Mappings {
	t.Helper()

	m, err := mapping.Default()
	if err != nil {
		t.Fatalf("mapping.Default() error = %v", err)
	}

	return m
}

func TestValidatePair(t *testing.T) {
	tests := []struct {
		name      string
		lat, lon  *float64
		wantLat   *float64
		wantLon   *float64
		wantIssue string
	}{
		{"valid", models.Float(30.05), models.Float(31.23), models.Float(30.05), models.Float(31.23), IssueNone},
		{"missing", nil, models.Float(31.23), nil, nil, IssueMissing},
		{"swap lands outside region", models.Float(131.2), models.Float(30.0), nil, nil, IssueOutOfRegion},
		{"alexandria", models.Float(31.2), models.Float(29.9), models.Float(31.2), models.Float(29.9), IssueNone},
		{"lat 200 lon 10", models.Float(200), models.Float(10), nil, nil, IssueGlobal},
		{"lat 200 lon 40", models.Float(200), models.Float(40), nil, nil, IssueGlobal},
		{"outside egypt", models.Float(48.85), models.Float(2.35), nil, nil, IssueOutOfRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, issue := ValidatePair(tt.lat, tt.lon, egypt.BBox)
			if issue != tt.wantIssue {
				t.Errorf("issue = %s, want %s", issue, tt.wantIssue)
			}

			if !samePtr(lat, tt.wantLat) || !samePtr(lon, tt.wantLon) {
				t.Errorf("pair = (%v, %v), want (%v, %v)", lat, lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestValidatePair_SwapIdempotent(t *testing.T) {
	box := config.BoundingBox{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180}

	lat, lon, issue := ValidatePair(models.Float(120), models.Float(45), box)
	if issue != IssueSwapped || *lat != 45 || *lon != 120 {
		t.Fatalf("first pass = (%v, %v, %s)", *lat, *lon, issue)
	}

	lat2, lon2, issue2 := ValidatePair(lat, lon, box)
	if issue2 != IssueNone || *lat2 != 45 || *lon2 != 120 {
		t.Errorf("second pass = (%v, %v, %s), want unchanged", *lat2, *lon2, issue2)
	}
}

func samePtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func TestEngine_Fill(t *testing.T) {
	values := []*float64{models.Float(10), nil, models.Float(30), nil, nil, models.Float(0), nil}
	keys := []string{"a", "a", "b", "b", "", "c", "c"}

	engine := &Engine{
		Levels:     []Level{{Name: "key", Key: func(i int) (string, bool) { return keys[i], keys[i] != "" }}},
		Aggregate:  Median,
		Degenerate: Zero,
		Global:     "global",
	}

	provenance := engine.Fill(Column{
		Len:  len(values),
		Dims: 1,
		Get: func(i int) ([]float64, bool) {
			if values[i] == nil {
				return nil, false
			}

			return []float64{*values[i]}, true
		},
		Set: func(i int, v []float64) { values[i] = models.Float(v[0]) },
	})

	want := []struct {
		value      float64
		provenance string
	}{
		{10, Original}, {10, "key"}, {30, Original}, {30, "key"}, {10, "global"}, {0, Original}, {10, "global"},
	}

	for i, w := range want {
		if values[i] == nil || *values[i] != w.value || provenance[i] != w.provenance {
			t.Errorf("row %d = (%v, %s), want (%v, %s)", i, values[i], provenance[i], w.value, w.provenance)
		}
	}
}

func TestEngine_Cumulative(t *testing.T) {
	values := []*float64{models.Float(2), nil, nil}
	first := []string{"x", "x", "y"}
	second := []string{"g", "h", "h"}

	run := func(cumulative bool) []string {
		vs := make([]*float64, len(values))
		copy(vs, values)

		e := &Engine{
			Levels: []Level{
				{Name: "first", Key: func(i int) (string, bool) { return first[i], true }},
				{Name: "second", Key: func(i int) (string, bool) { return second[i], true }},
			},
			Aggregate:  Mean,
			Cumulative: cumulative,
		}

		return e.Fill(Column{
			Len:  len(vs),
			Dims: 1,
			Get: func(i int) ([]float64, bool) {
				if vs[i] == nil {
					return nil, false
				}

				return []float64{*vs[i]}, true
			},
			Set: func(i int, v []float64) { vs[i] = models.Float(v[0]) },
		})
	}

	if got := run(true); got[2] != "second" {
		t.Errorf("cumulative provenance = %v", got)
	}

	if got := run(false); got[2] != Unresolved {
		t.Errorf("non-cumulative provenance = %v", got)
	}
}

func TestGeoImputer_Run(t *testing.T) {
	orders := []*models.Order{
		{Address: "12 nile st", City: "Cairo", Governorate: "Cairo", Latitude: models.Float(30), Longitude: models.Float(31)},
		{Address: "12 nile st", City: "Cairo", Governorate: "Cairo"},
		{Address: "5 other", City: "Cairo", Governorate: "Cairo", Latitude: models.Float(200), Longitude: models.Float(10)},
		{Address: "9 x", City: "Giza City", Governorate: "Giza", Latitude: models.Float(48.8), Longitude: models.Float(2.3)},
		{Address: "1 y", City: "Nowhere", Governorate: "Unknown"},
		{Address: "2 z", City: "Luxor", Governorate: "Luxor", Latitude: models.Float(25.7), Longitude: models.Float(32.6)},
	}

	ds := models.NewDataset(orders)
	counts, err := NewGeoImputer(egypt, defaultMappings(t)).Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct{ flag, issue string }{
		{FlagValid, IssueNone},
		{FlagByAddress, IssueMissing},
		{FlagByCity, IssueGlobal},
		{FlagNeedsInvestigation, IssueOutOfRegion},
		{FlagNeedsInvestigation, IssueMissing},
		{FlagValid, IssueNone},
	}

	for i, w := range want {
		o := orders[i]
		if o.InvestigationFlag != w.flag || o.CoordIssue != w.issue {
			t.Errorf("row %d = (%s, %s), want (%s, %s)", i, o.InvestigationFlag, o.CoordIssue, w.flag, w.issue)
		}
	}

	if *orders[1].Latitude != 30 || *orders[2].Longitude != 31 {
		t.Errorf("imputed pairs = (%v, %v)", *orders[1].Latitude, *orders[2].Longitude)
	}

	if orders[3].Latitude != nil {
		t.Error("out of region pair must stay absent without a matching group")
	}

	if counts[FlagValid] != 2 {
		t.Errorf("counts = %v", counts)
	}

	cfg := egypt
	cfg.GlobalFallback = true
	if _, err := NewGeoImputer(cfg, defaultMappings(t)).Run(context.Background(), ds); err != nil {
		t.Fatal(err)
	}

	if orders[4].InvestigationFlag != FlagByGlobalMean || orders[4].Latitude == nil {
		t.Errorf("global fallback flag = %s", orders[4].InvestigationFlag)
	}
}

func TestShippingImputer_Run(t *testing.T) {
	orders := []*models.Order{
		{ShipperName: "Aramex", Governorate: "Cairo", City: "Nasr City", ShippingCost: models.Float(40)},
		{ShipperName: "Aramex", Governorate: "Cairo", City: "Nasr City", ShippingCost: models.Float(60)},
		{ShipperName: "Aramex", Governorate: "Cairo", City: "Nasr City"},
		{ShipperName: "Aramex", Governorate: "Giza", City: "Nasr City"},
		{ShipperName: "Aramex", Governorate: "Cairo", City: "Maadi"},
		{ShipperName: "Aramex", Governorate: "Alexandria", City: "Smouha"},
		{ShipperName: "Bosta", Governorate: "Cairo", City: "Maadi", ShippingCost: models.Float(0)},
		{ShipperName: "Bosta", Governorate: "Cairo", City: "Maadi"},
		{ShipperName: "Unknown", Governorate: "Cairo", City: "Maadi"},
	}

	ds := models.NewDataset(orders)
	counts, err := NewShippingImputer(defaultMappings(t)).Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		value float64
		level string
	}{
		{40, Original},
		{60, Original},
		{50, LevelShipperGovernorateCity},
		{50, LevelShipperCity},
		{50, LevelShipperGovernorate},
		{50, LevelShipper},
		{0, Original},
		{40, LevelGlobalMedian},
		{40, LevelGlobalMedian},
	}

	for i, w := range want {
		o := orders[i]
		if o.ShippingFilled == nil || *o.ShippingFilled != w.value || o.ShippingFillLevel != w.level {
			t.Errorf("row %d = (%v, %s), want (%v, %s)", i, o.ShippingFilled, o.ShippingFillLevel, w.value, w.level)
		}
	}

	if orders[2].ShippingCost != nil {
		t.Error("original shipping column must not be modified")
	}

	if counts[LevelGlobalMedian] != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPlaceholdersOf(t *testing.T) {
	p := PlaceholdersOf(&mapping.Table{Missing: "N/A", Unmapped: "Other"})

	tests := []struct {
		value string
		known bool
	}{
		{"Cairo", true},
		{"N/A", false},
		{"Other", false},
		{"", false},
		{"Unknown", true},
	}

	for _, tt := range tests {
		if got := p.Known(tt.value); got != tt.known {
			t.Errorf("Known(%q) = %v, want %v", tt.value, got, tt.known)
		}
	}

	if !PlaceholdersOf(nil).Known("Unknown") {
		t.Error("a nil table has no placeholders")
	}
}

func TestImputers_SkipMappingPlaceholders(t *testing.T) {
	m := &mapping.Mappings{
		Governorates: mapping.Table{Missing: "N/A", Unmapped: "N/A"},
		Shippers:     mapping.Table{Missing: "Unknown", Unmapped: "Other"},
	}

	t.Run("governorate overlay label", func(t *testing.T) {
		orders := []*models.Order{
			{Address: "1 a", Governorate: "N/A", Latitude: models.Float(30), Longitude: models.Float(31)},
			{Address: "2 b", Governorate: "N/A"},
		}

		if _, err := NewGeoImputer(egypt, m).Run(context.Background(), models.NewDataset(orders)); err != nil {
			t.Fatal(err)
		}

		if orders[1].InvestigationFlag != FlagNeedsInvestigation || orders[1].Latitude != nil {
			t.Errorf("row 1 = %s (%v)", orders[1].InvestigationFlag, orders[1].Latitude)
		}
	})

	t.Run("unmapped shippers are not pooled", func(t *testing.T) {
		orders := []*models.Order{
			{ShipperName: "Other", Governorate: "Cairo", City: "Maadi", ShippingCost: models.Float(100)},
			{ShipperName: "Other", Governorate: "Cairo", City: "Maadi"},
			{ShipperName: "Aramex", Governorate: "Giza", City: "Dokki", ShippingCost: models.Float(20)},
			{ShipperName: "Aramex", Governorate: "Giza", City: "Dokki", ShippingCost: models.Float(30)},
		}

		if _, err := NewShippingImputer(m).Run(context.Background(), models.NewDataset(orders)); err != nil {
			t.Fatal(err)
		}

		o := orders[1]
		if o.ShippingFillLevel != LevelGlobalMedian || o.ShippingFilled == nil || *o.ShippingFilled != 30 {
			t.Errorf("row 1 = (%v, %s), want (30, %s)", o.ShippingFilled, o.ShippingFillLevel, LevelGlobalMedian)
		}
	})
}
