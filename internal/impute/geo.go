package impute

import (
	"context"
	"fmt"
	"math"

	"egretail/internal/config"
	"egretail/internal/mapping"
	"egretail/internal/models"
)

// Coordinate validation outcomes, one per pair.
const (
	IssueNone        = "none"
	IssueMissing     = "initially_missing"
	IssueSwapped     = "swapped"
	IssueGlobal      = "globally_invalid"
	IssueOutOfRegion = "out_of_region"
)

// Final coordinate investigation flags.
const (
	FlagValid              = "Valid"
	FlagSwapped            = "Manually_Swapped"
	FlagByAddress          = "Imputed_by_Address"
	FlagByCity             = "Imputed_by_City"
	FlagByGovernorate      = "Imputed_by_Governorate"
	FlagByGlobalMean       = "Imputed_by_Global_Mean"
	FlagNeedsInvestigation = "Needs_Further_Investigation"
)


// ValidatePair checks a coordinate pair against the physical domain and the
// expected region. Out-of-domain pairs are swapped when the swap lands in
// the domain, otherwise discarded. In-domain pairs outside box are
// discarded. A pair that is already valid is returned unchanged.
func ValidatePair(lat, lon *float64, box config.BoundingBox) (*float64, *float64, string) {
	if lat == nil || lon == nil {
		return nil, nil, IssueMissing
	}

	la, lo := *lat, *lon
	issue := IssueNone

	if !inDomain(la, lo) {
		if !inDomain(lo, la) {
			return nil, nil, IssueGlobal
		}

		la, lo = lo, la
		issue = IssueSwapped
	}

	if !box.Contains(la, lo) {
		return nil, nil, IssueOutOfRegion
	}

	return &la, &lo, issue
}

func inDomain(lat, lon float64) bool {
	return math.Abs(lat) <= 90 && math.Abs(lon) <= 180
}

// GeoImputer validates coordinates and fills discarded or absent pairs
// from the mean of the same address, city or governorate.
type GeoImputer struct {
	box          config.BoundingBox
	global       bool
	governorates Placeholders
}

// NewGeoImputer creates the geo stage. Governorate labels that m uses for
// blank or unmapped input are not grouping keys.
func NewGeoImputer(cfg config.GeoConfig, m *mapping.Mappings) *GeoImputer {
	g := &GeoImputer{box: cfg.BBox, global: cfg.GlobalFallback, governorates: Placeholders{}}
	if m != nil {
		g.governorates = PlaceholdersOf(&m.Governorates)
	}

	return g
}

// Name implements pipeline.Stage.
func (g *GeoImputer) Name() string { return "impute_geo" }

// Requires implements pipeline.Stage.
func (g *GeoImputer) Requires() []string {
	return []string{
		models.ColLatitude, models.ColLongitude, models.ColCoordsMissing,
		models.ColAddress, models.ColCity, models.ColGovernorate,
	}
}

// Provides implements pipeline.Stage.
func (g *GeoImputer) Provides() []string {
	return []string{models.ColCoordIssue, models.ColInvestigationFlag}
}

// Run implements pipeline.Stage.
func (g *GeoImputer) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	orders := ds.Orders

	// 1. Validate
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("impute geo: %w", err)
		}

		o.Latitude, o.Longitude, o.CoordIssue = ValidatePair(o.Latitude, o.Longitude, g.box)
	}

	// 2. Impute
	engine := &Engine{
		Levels: []Level{
			{Name: FlagByAddress, Key: textKey(orders, keyField{get: func(o *models.Order) string { return o.Address }})},
			{Name: FlagByCity, Key: textKey(orders, keyField{get: func(o *models.Order) string { return o.City }})},
			{Name: FlagByGovernorate, Key: textKey(orders, keyField{
				get:  func(o *models.Order) string { return o.Governorate },
				skip: g.governorates,
			})},
		},
		Aggregate:  Mean,
		Cumulative: true,
	}

	if g.global {
		engine.Global = FlagByGlobalMean
	}

	provenance := engine.Fill(Column{
		Len:  len(orders),
		Dims: 2,
		Get: func(i int) ([]float64, bool) {
			o := orders[i]
			if o.Latitude == nil || o.Longitude == nil {
				return nil, false
			}

			return []float64{*o.Latitude, *o.Longitude}, true
		},
		Set: func(i int, v []float64) {
			orders[i].Latitude = models.Float(v[0])
			orders[i].Longitude = models.Float(v[1])
		},
	})

	// 3. Flag
	counts := models.Counts{}
	for i, o := range orders {
		o.InvestigationFlag = geoFlag(o.CoordIssue, provenance[i])
		counts.Add(o.InvestigationFlag)
	}

	return counts, nil
}

func geoFlag(issue, provenance string) string {
	switch provenance {
	case Original:
		if issue == IssueSwapped {
			return FlagSwapped
		}

		return FlagValid
	case Unresolved:
		return FlagNeedsInvestigation
	default:
		return provenance
	}
}
