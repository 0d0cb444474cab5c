package impute

import (
	"context"

	"egretail/internal/mapping"
	"egretail/internal/models"
)

// Shipping fill levels.
const (
	LevelShipperGovernorateCity = "shipper_governorate_city"
	LevelShipperCity            = "shipper_city"
	LevelShipperGovernorate     = "shipper_governorate"
	LevelShipper                = "shipper"
	LevelGlobalMedian           = "global_median"
)

// ShippingImputer fills absent shipping costs from shipper medians.
type ShippingImputer struct {
	shippers     Placeholders
	governorates Placeholders
}

// NewShippingImputer creates the shipping stage. Shipper and governorate
// labels that m uses for blank or unmapped input are not grouping keys.
func NewShippingImputer(m *mapping.Mappings) *ShippingImputer {
	s := &ShippingImputer{shippers: Placeholders{}, governorates: Placeholders{}}
	if m != nil {
		s.shippers = PlaceholdersOf(&m.Shippers)
		s.governorates = PlaceholdersOf(&m.Governorates)
	}

	return s
}

// Name implements pipeline.Stage.
func (s *ShippingImputer) Name() string { return "impute_shipping" }

// Requires implements pipeline.Stage.
func (s *ShippingImputer) Requires() []string {
	return []string{models.ColShippingCost, models.ColShipperName, models.ColGovernorate, models.ColCity}
}

// Provides implements pipeline.Stage.
func (s *ShippingImputer) Provides() []string {
	return []string{models.ColShippingFilled, models.ColShippingLevel}
}

// Run implements pipeline.Stage.
func (s *ShippingImputer) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orders := ds.Orders
	for _, o := range orders {
		o.ShippingFilled = nil
		if o.ShippingCost != nil {
			v := *o.ShippingCost
			o.ShippingFilled = &v
		}
	}

	shipper := keyField{get: func(o *models.Order) string { return o.ShipperName }, skip: s.shippers}
	gov := keyField{get: func(o *models.Order) string { return o.Governorate }, skip: s.governorates}
	city := keyField{get: func(o *models.Order) string { return o.City }}

	engine := &Engine{
		Levels: []Level{
			{Name: LevelShipperGovernorateCity, Key: compositeKey(orders, shipper, gov, city)},
			{Name: LevelShipperCity, Key: compositeKey(orders, shipper, city)},
			{Name: LevelShipperGovernorate, Key: compositeKey(orders, shipper, gov)},
			{Name: LevelShipper, Key: compositeKey(orders, shipper)},
		},
		Aggregate:  Median,
		Degenerate: Zero,
		Global:     LevelGlobalMedian,
	}

	provenance := engine.Fill(Column{
		Len:  len(orders),
		Dims: 1,
		Get: func(i int) ([]float64, bool) {
			if c := orders[i].ShippingCost; c != nil {
				return []float64{*c}, true
			}

			return nil, false
		},
		Set: func(i int, v []float64) {
			orders[i].ShippingFilled = models.Float(v[0])
		},
	})

	counts := models.Counts{}
	for i, o := range orders {
		o.ShippingFillLevel = provenance[i]
		counts.Add(provenance[i])
	}

	return counts, nil
}
