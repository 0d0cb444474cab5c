package normalizer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"egretail/internal/config"
	"egretail/internal/mapping"
	"egretail/internal/models"
)

// Columns materialized by the transformer.
var Provides = []string{
	models.ColOriginalOrderID, models.ColCustomerID, models.ColCustomerName,
	models.ColGender, models.ColPhone, models.ColPhoneValid, models.ColEmail, models.ColEmailValid,
	models.ColOrderDate, models.ColDeliveryDate, models.ColReturnDate,
	models.ColOrderDateStatus, models.ColDeliveryDateStatus, models.ColReturnDateStatus,
	models.ColOrderYear, models.ColOrderMonth, models.ColOrderQuarter, models.ColOrderYearMonth,
	models.ColDeliveryYear, models.ColDeliveryMonth, models.ColDeliveryQuarter, models.ColDeliveryYearMonth,
	models.ColReturnYear, models.ColReturnMonth, models.ColReturnQuarter, models.ColReturnYearMonth,
	models.ColDeliveryTimeDays, models.ColDeliveryDelayed, models.ColReturnTimeDays,
	models.ColValidDelivery, models.ColValidReturn, models.ColDeliveryBeforeOrder,
	models.ColReturnBeforeOrder, models.ColReturnBeforeDelivery,
	models.ColOrderDateIsNull, models.ColDeliveryDateIsNull, models.ColReturnFlag,
	models.ColGovernorate, models.ColCity, models.ColAddress, models.ColAddressQuality,
	models.ColAddressBuilding, models.ColAddressBlock, models.ColAddressApartment, models.ColAddressStreet,
	models.ColLatitude, models.ColLongitude, models.ColCoordsMissing,
	models.ColSKU, models.ColProductName, models.ColCategory,
	models.ColCurrency, models.ColCurrencyStatus, models.ColUnitPrice, models.ColQuantityParsed,
	models.ColShippingCost, models.ColPaymentStatus, models.ColPaymentMethod, models.ColStatus,
	models.ColShipperName, models.ColChannel, models.ColSalesRep, models.ColSalesRepMissing,
	models.ColNotes, models.ColNoteCategory,
}

// Summary counts values that degraded to absent or to an unknown bucket.
type Summary struct {
	InvalidPhones          int            `yaml:"invalid_phones"`
	InvalidEmails          int            `yaml:"invalid_emails"`
	UnparseableDates       int            `yaml:"unparseable_dates"`
	UnrecognizedCurrencies int            `yaml:"unrecognized_currencies"`
	AssumedCurrencies      int            `yaml:"assumed_currencies"`
	Unmapped               map[string]int `yaml:"unmapped"`
}

// Transformer runs the per-column normalizers over a dataset.
type Transformer struct {
	mappings *mapping.Mappings
	phone    *PhoneNormalizer
	dates    *DateParser
	cfg      config.CleaningConfig
}

// NewTransformer creates a new transformer instance.
func NewTransformer(m *mapping.Mappings, cfg config.CleaningConfig) *Transformer {
	return &Transformer{
		mappings: m,
		phone:    NewPhoneNormalizer(cfg.Phone),
		dates:    NewDateParser(m),
		cfg:      cfg,
	}
}

// family normalizes a disjoint set of Order fields.
type family struct {
	name string
	run  func(o *models.Order, s *Summary)
}

func (s *Summary) unmapped(table string, status mapping.Status) {
	if status != mapping.StatusUnmapped {
		return
	}

	if s.Unmapped == nil {
		s.Unmapped = make(map[string]int)
	}

	s.Unmapped[table]++
}

func (t *Transformer) families() []family {
	m := t.mappings
	fallback := ""
	if t.cfg.AssumeMissingCurrency {
		fallback = t.cfg.ReportingCurrency
	}

	lookup := func(s *Summary, name string, table *mapping.Table, raw string) string {
		v, status := table.Lookup(raw)
		s.unmapped(name, status)

		return v
	}

	return []family{
		{"customer", func(o *models.Order, s *Summary) {
			o.CustomerID = CustomerID(o.Raw.CustomerID)
			o.CustomerName = StandardizeText(o.Raw.CustomerName)
			o.Gender = lookup(s, "genders", &m.Genders, o.Raw.Gender)

			o.Phone, o.PhoneValid = t.phone.Normalize(o.Raw.Phone)
			if !o.PhoneValid {
				s.InvalidPhones++
			}

			o.Email, o.EmailValid = Email(o.Raw.Email)
			if !o.EmailValid {
				s.InvalidEmails++
			}
		}},
		{"dates", func(o *models.Order, s *Summary) {
			o.OrderDate, o.OrderDateStatus = t.dates.Parse(o.Raw.OrderDate)
			o.DeliveryDate, o.DeliveryDateStatus = t.dates.Parse(o.Raw.DeliveryDate)
			o.ReturnDate, o.ReturnDateStatus = t.dates.Parse(o.Raw.ReturnDate)

			for _, st := range []string{o.OrderDateStatus, o.DeliveryDateStatus, o.ReturnDateStatus} {
				if st == DateUnparseable {
					s.UnparseableDates++
				}
			}

			o.ReturnFlag = lookup(s, "return_flags", &m.ReturnFlags, o.Raw.ReturnFlag)
		}},
		{"location", func(o *models.Order, s *Summary) {
			o.Governorate = lookup(s, "governorates", &m.Governorates, o.Raw.Governorate)
			o.City = City(o.Raw.City)
			o.Address, o.AddressQuality = Address(o.Raw.Address)
			o.AddressParts = AddressComponents(o.Address)
			o.Latitude = Coordinate(o.Raw.Latitude)
			o.Longitude = Coordinate(o.Raw.Longitude)
			o.CoordsMissing = o.Latitude == nil || o.Longitude == nil
		}},
		{"product", func(o *models.Order, s *Summary) {
			o.SKU = SKU(o.Raw.ProductSKU)
			o.ProductName = ProductName(o.Raw.ProductName, &m.ProductNames)

			v, status := m.Categories.Lookup(StandardizeText(o.Raw.Category))
			s.unmapped("categories", status)
			o.Category = v
		}},
		{"money", func(o *models.Order, s *Summary) {
			o.Currency, o.CurrencyStatus = Currency(m, o.Raw.Currency, fallback)

			switch o.CurrencyStatus {
			case CurrencyUnrecognized:
				s.UnrecognizedCurrencies++
			case CurrencyAssumed:
				s.AssumedCurrencies++
			}

			o.UnitPrice = Number(o.Raw.UnitPrice)
			o.QuantityParsed = Number(o.Raw.Quantity)
			o.ShippingCost = Number(o.Raw.ShippingCost)
		}},
		{"operations", func(o *models.Order, s *Summary) {
			o.PaymentStatus = lookup(s, "payment_status", &m.PaymentStatus, o.Raw.PaymentStatus)
			o.PaymentMethod = lookup(s, "payment_methods", &m.PaymentMethods, o.Raw.PaymentMethod)
			o.Status = lookup(s, "order_status", &m.OrderStatus, o.Raw.Status)
			o.ShipperName = lookup(s, "shippers", &m.Shippers, o.Raw.ShipperName)
			o.Channel = lookup(s, "channels", &m.Channels, o.Raw.Channel)
		}},
		{"free_text", func(o *models.Order, s *Summary) {
			o.SalesRep = SalesRep(o.Raw.SalesRep)
			o.Notes = Notes(o.Raw.Notes)
			o.NoteCategory = m.CategorizeNote(o.Notes)
		}},
	}
}

// Transform normalizes every order. Families touch disjoint fields, so they
// run concurrently when parallel is set.
func (t *Transformer) Transform(ctx context.Context, ds *models.Dataset, parallel bool) (*Summary, error) {
	families := t.families()
	summaries := make([]Summary, len(families))

	runFamily := func(ctx context.Context, i int) error {
		f := families[i]
		for _, o := range ds.Orders {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("normalize %s: %w", f.name, err)
			}

			f.run(o, &summaries[i])
		}

		return nil
	}

	if parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range families {
			g.Go(func() error { return runFamily(gctx, i) })
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range families {
			if err := runFamily(ctx, i); err != nil {
				return nil, err
			}
		}
	}

	ds.Provide(Provides...)

	total := &Summary{Unmapped: make(map[string]int)}
	for _, s := range summaries {
		total.InvalidPhones += s.InvalidPhones
		total.InvalidEmails += s.InvalidEmails
		total.UnparseableDates += s.UnparseableDates
		total.UnrecognizedCurrencies += s.UnrecognizedCurrencies
		total.AssumedCurrencies += s.AssumedCurrencies

		for k, v := range s.Unmapped {
			total.Unmapped[k] += v
		}
	}

	return total, nil
}

// ProductTable normalizes the products reference sheet with the same rules
// as the order columns. Rows without a name are dropped.
func (t *Transformer) ProductTable(tbl *models.Table) ([]models.Product, error) {
	if err := tbl.Require(models.RequiredProductColumns...); err != nil {
		return nil, err
	}

	idx := tbl.Index()
	products := make([]models.Product, 0, len(tbl.Rows))

	for i := range tbl.Rows {
		name := ProductName(tbl.Cell(i, idx[models.RawProductSheetName]), &t.mappings.ProductNames)
		if name == "" {
			continue
		}

		products = append(products, models.Product{
			SKU:      SKU(tbl.Cell(i, idx[models.RawProductSheetSKU])),
			Name:     name,
			Category: Category(tbl.Cell(i, idx[models.RawProductSheetCategory]), &t.mappings.Categories),
			Row:      i,
		})
	}

	return products, nil
}

// Counts flattens the summary into stage counts.
func (s *Summary) Counts() models.Counts {
	c := models.Counts{
		"invalid_phones":          s.InvalidPhones,
		"invalid_emails":          s.InvalidEmails,
		"unparseable_dates":       s.UnparseableDates,
		"unrecognized_currencies": s.UnrecognizedCurrencies,
		"assumed_currencies":      s.AssumedCurrencies,
	}

	for table, n := range s.Unmapped {
		c["unmapped_"+table] = n
	}

	return c
}
