// Package sink writes the cleaned dataset, its BI projection and the run
// reports to flat files.
package sink

import (
	"fmt"
	"time"

	"egretail/internal/models"
)

// Column is one output column. Value returns nil for an absent cell,
// otherwise a string, float64, int, bool or time.Time.
type Column struct {
	Name  string
	Value func(o *models.Order) any
}

// BIColumns is the column contract of the BI projection.
var BIColumns = []string{
	models.ColOrderID,
	models.ColOrderDate, models.ColOrderYear, models.ColOrderMonth, models.ColOrderQuarter,
	models.ColOrderYearMonth, models.ColDeliveryDate, models.ColDeliveryTimeDays, models.ColReturnDate,
	models.ColCustomerID, models.ColCustomerName, models.ColGender, models.ColPhone,
	models.ColPhoneValid, models.ColEmail, models.ColEmailValid,
	models.ColGovernorate, models.ColCity, models.ColAddress, models.ColLatitude, models.ColLongitude,
	models.ColSKU, models.ColProductName, models.ColCategory,
	models.ColQuantity, models.ColUnitPriceCapped, models.ColSubtotalCapped, models.ColDiscountRate,
	models.ColShippingFilled, models.ColTotal,
	models.ColPaymentMethod, models.ColPaymentStatus, models.ColChannel, models.ColStatus,
	models.ColShipperName, models.ColReturnFlag,
	models.ColSalesRep, models.ColNotes, models.ColNoteCategory,
	models.ColValidDelivery, models.ColDeliveryDelayed, models.ColInvestigationFlag,
	models.ColPassesBusinessLogic, models.ColAddressQuality,
}

// derivedOrder is the column order of the audit view after the raw columns.
var derivedOrder = []string{
	models.ColOriginalOrderID, models.ColOrderID, models.ColOrderIDDuplicated, models.ColOrderIDMissing,
	models.ColOrderDateStatus, models.ColDeliveryDateStatus, models.ColReturnDateStatus,
	models.ColOrderDateIsNull, models.ColDeliveryDateIsNull,
	models.ColOrderYear, models.ColOrderMonth, models.ColOrderQuarter, models.ColOrderYearMonth,
	models.ColDeliveryYear, models.ColDeliveryMonth, models.ColDeliveryQuarter, models.ColDeliveryYearMonth,
	models.ColReturnYear, models.ColReturnMonth, models.ColReturnQuarter, models.ColReturnYearMonth,
	models.ColDeliveryTimeDays, models.ColDeliveryDelayed, models.ColReturnTimeDays,
	models.ColValidDelivery, models.ColValidReturn, models.ColDeliveryBeforeOrder,
	models.ColReturnBeforeOrder, models.ColReturnBeforeDelivery, models.ColReturnFlag,
	models.ColCustomerID, models.ColCustomerIDSource, models.ColCustomerName, models.ColGender,
	models.ColPhone, models.ColPhoneValid, models.ColEmail, models.ColEmailValid,
	models.ColGovernorate, models.ColCity, models.ColAddress, models.ColAddressQuality,
	models.ColAddressBuilding, models.ColAddressBlock, models.ColAddressApartment, models.ColAddressStreet,
	models.ColLatitude, models.ColLongitude, models.ColCoordsMissing, models.ColCoordIssue,
	models.ColInvestigationFlag,
	models.ColSKU, models.ColSKUSource, models.ColProductName, models.ColCategory,
	models.ColCurrency, models.ColCurrencyStatus, models.ColFXRate, models.ColUnitPrice,
	models.ColUnitPriceEGP, models.ColUnitPriceCapped, models.ColPriceWasCapped,
	models.ColQuantityParsed, models.ColQuantity, models.ColSubtotal, models.ColSubtotalCapped,
	models.ColDiscountRate, models.ColDiscountKind,
	models.ColShippingCost, models.ColShippingFilled, models.ColShippingLevel,
	models.ColTotal, models.ColTotalExtreme,
	models.ColPaymentStatus, models.ColPaymentMethod, models.ColStatus, models.ColShipperName,
	models.ColChannel, models.ColSalesRep, models.ColSalesRepMissing, models.ColNotes, models.ColNoteCategory,
	models.ColShippingMakesSense, models.ColDeliveryMakesSense,
	models.ColReturnDataConsistent, models.ColPassesBusinessLogic,
}

// Registry resolves column names to cell extractors.
type Registry struct {
	columns map[string]Column
}

// NewRegistry builds the extractors. delayDays is the delivery lead time
// above which an order counts as delayed.
func NewRegistry(delayDays int) *Registry {
	r := &Registry{columns: make(map[string]Column)}

	// 1. Raw columns
	raw := append(append([]string{}, models.RequiredOrderColumns...), models.OptionalOrderColumns...)
	for _, name := range raw {
		r.add(name, func(o *models.Order) any { return text(*o.Raw.Fields()[name]) })
	}

	// 2. Derived columns, overriding raw columns of the same name
	date := func(get func(o *models.Order) *time.Time) func(o *models.Order) any {
		return func(o *models.Order) any { return day(get(o)) }
	}

	parts := func(get func(o *models.Order) *time.Time, pick func(p models.DateParts) any) func(o *models.Order) any {
		return func(o *models.Order) any {
			p, ok := models.PartsOf(get(o))
			if !ok {
				return nil
			}

			return pick(p)
		}
	}

	orderDate := func(o *models.Order) *time.Time { return o.OrderDate }
	deliveryDate := func(o *models.Order) *time.Time { return o.DeliveryDate }
	returnDate := func(o *models.Order) *time.Time { return o.ReturnDate }

	year := func(p models.DateParts) any { return p.Year }
	month := func(p models.DateParts) any { return p.Month }
	quarter := func(p models.DateParts) any { return p.Quarter }
	yearMonth := func(p models.DateParts) any { return p.YearMonth }

	for name, value := range map[string]func(o *models.Order) any{
		models.ColOriginalOrderID:   func(o *models.Order) any { return text(o.Raw.OrderID) },
		models.ColOrderID:           func(o *models.Order) any { return text(o.OrderID) },
		models.ColOrderIDDuplicated: func(o *models.Order) any { return o.OrderIDDuplicated },
		models.ColOrderIDMissing:    func(o *models.Order) any { return o.OrderIDWasMissing },

		models.ColOrderDate:          date(orderDate),
		models.ColDeliveryDate:       date(deliveryDate),
		models.ColReturnDate:         date(returnDate),
		models.ColOrderDateStatus:    func(o *models.Order) any { return text(o.OrderDateStatus) },
		models.ColDeliveryDateStatus: func(o *models.Order) any { return text(o.DeliveryDateStatus) },
		models.ColReturnDateStatus:   func(o *models.Order) any { return text(o.ReturnDateStatus) },
		models.ColOrderDateIsNull:    func(o *models.Order) any { return o.OrderDate == nil },
		models.ColDeliveryDateIsNull: func(o *models.Order) any { return o.DeliveryDate == nil },

		models.ColOrderYear:         parts(orderDate, year),
		models.ColOrderMonth:        parts(orderDate, month),
		models.ColOrderQuarter:      parts(orderDate, quarter),
		models.ColOrderYearMonth:    parts(orderDate, yearMonth),
		models.ColDeliveryYear:      parts(deliveryDate, year),
		models.ColDeliveryMonth:     parts(deliveryDate, month),
		models.ColDeliveryQuarter:   parts(deliveryDate, quarter),
		models.ColDeliveryYearMonth: parts(deliveryDate, yearMonth),
		models.ColReturnYear:        parts(returnDate, year),
		models.ColReturnMonth:       parts(returnDate, month),
		models.ColReturnQuarter:     parts(returnDate, quarter),
		models.ColReturnYearMonth:   parts(returnDate, yearMonth),

		models.ColDeliveryTimeDays:     func(o *models.Order) any { return integer(o.DeliveryTimeDays()) },
		models.ColDeliveryDelayed:      func(o *models.Order) any { return o.DeliveryDelayed(delayDays) },
		models.ColReturnTimeDays:       func(o *models.Order) any { return integer(o.ReturnTimeDays()) },
		models.ColValidDelivery:        func(o *models.Order) any { return tristate(o.ValidDelivery()) },
		models.ColValidReturn:          func(o *models.Order) any { return tristate(o.ValidReturn()) },
		models.ColDeliveryBeforeOrder:  func(o *models.Order) any { return o.DeliveryBeforeOrder() },
		models.ColReturnBeforeOrder:    func(o *models.Order) any { return o.ReturnBeforeOrder() },
		models.ColReturnBeforeDelivery: func(o *models.Order) any { return o.ReturnBeforeDelivery() },
		models.ColReturnFlag:           func(o *models.Order) any { return text(o.ReturnFlag) },

		models.ColCustomerID:       func(o *models.Order) any { return text(o.CustomerID) },
		models.ColCustomerIDSource: func(o *models.Order) any { return text(o.CustomerIDSource) },
		models.ColCustomerName:     func(o *models.Order) any { return text(o.CustomerName) },
		models.ColGender:           func(o *models.Order) any { return text(o.Gender) },
		models.ColPhone:            func(o *models.Order) any { return text(o.Phone) },
		models.ColPhoneValid:       func(o *models.Order) any { return o.PhoneValid },
		models.ColEmail:            func(o *models.Order) any { return text(o.Email) },
		models.ColEmailValid:       func(o *models.Order) any { return o.EmailValid },

		models.ColGovernorate:       func(o *models.Order) any { return text(o.Governorate) },
		models.ColCity:              func(o *models.Order) any { return text(o.City) },
		models.ColAddress:           func(o *models.Order) any { return text(o.Address) },
		models.ColAddressQuality:    func(o *models.Order) any { return text(o.AddressQuality) },
		models.ColAddressBuilding:   func(o *models.Order) any { return text(o.AddressParts.Building) },
		models.ColAddressBlock:      func(o *models.Order) any { return text(o.AddressParts.Block) },
		models.ColAddressApartment:  func(o *models.Order) any { return text(o.AddressParts.Apartment) },
		models.ColAddressStreet:     func(o *models.Order) any { return text(o.AddressParts.Street) },
		models.ColLatitude:          func(o *models.Order) any { return number(o.Latitude) },
		models.ColLongitude:         func(o *models.Order) any { return number(o.Longitude) },
		models.ColCoordsMissing:     func(o *models.Order) any { return o.CoordsMissing },
		models.ColCoordIssue:        func(o *models.Order) any { return text(o.CoordIssue) },
		models.ColInvestigationFlag: func(o *models.Order) any { return text(o.InvestigationFlag) },

		models.ColSKU:         func(o *models.Order) any { return text(o.SKU) },
		models.ColSKUSource:   func(o *models.Order) any { return text(o.SKUSource) },
		models.ColProductName: func(o *models.Order) any { return text(o.ProductName) },
		models.ColCategory:    func(o *models.Order) any { return text(o.Category) },

		models.ColCurrency:        func(o *models.Order) any { return text(o.Currency) },
		models.ColCurrencyStatus:  func(o *models.Order) any { return text(o.CurrencyStatus) },
		models.ColFXRate:          func(o *models.Order) any { return number(o.FXRate) },
		models.ColUnitPrice:       func(o *models.Order) any { return number(o.UnitPrice) },
		models.ColUnitPriceEGP:    func(o *models.Order) any { return number(o.UnitPriceEGP) },
		models.ColUnitPriceCapped: func(o *models.Order) any { return number(o.UnitPriceCapped) },
		models.ColPriceWasCapped:  func(o *models.Order) any { return o.PriceWasCapped },
		models.ColQuantityParsed:  func(o *models.Order) any { return number(o.QuantityParsed) },
		models.ColQuantity:        func(o *models.Order) any { return number(o.Quantity) },
		models.ColSubtotal:        func(o *models.Order) any { return number(o.Subtotal) },
		models.ColSubtotalCapped:  func(o *models.Order) any { return number(o.SubtotalCapped) },
		models.ColDiscountRate:    func(o *models.Order) any { return o.DiscountRate },
		models.ColDiscountKind:    func(o *models.Order) any { return text(o.DiscountKind) },

		models.ColShippingCost:   func(o *models.Order) any { return number(o.ShippingCost) },
		models.ColShippingFilled: func(o *models.Order) any { return number(o.ShippingFilled) },
		models.ColShippingLevel:  func(o *models.Order) any { return text(o.ShippingFillLevel) },
		models.ColTotal:          func(o *models.Order) any { return number(o.Total) },
		models.ColTotalExtreme:   func(o *models.Order) any { return o.TotalExtreme },

		models.ColPaymentStatus:   func(o *models.Order) any { return text(o.PaymentStatus) },
		models.ColPaymentMethod:   func(o *models.Order) any { return text(o.PaymentMethod) },
		models.ColStatus:          func(o *models.Order) any { return text(o.Status) },
		models.ColShipperName:     func(o *models.Order) any { return text(o.ShipperName) },
		models.ColChannel:         func(o *models.Order) any { return text(o.Channel) },
		models.ColSalesRep:        func(o *models.Order) any { return text(o.SalesRep) },
		models.ColSalesRepMissing: func(o *models.Order) any { return o.SalesRep == "" },
		models.ColNotes:           func(o *models.Order) any { return text(o.Notes) },
		models.ColNoteCategory:    func(o *models.Order) any { return text(o.NoteCategory) },

		models.ColShippingMakesSense:   func(o *models.Order) any { return o.ShippingMakesSense },
		models.ColDeliveryMakesSense:   func(o *models.Order) any { return o.DeliveryMakesSense },
		models.ColReturnDataConsistent: func(o *models.Order) any { return o.ReturnDataConsistent },
		models.ColPassesBusinessLogic:  func(o *models.Order) any { return o.PassesBusinessLogic },
	} {
		r.add(name, value)
	}

	return r
}

func (r *Registry) add(name string, value func(o *models.Order) any) {
	r.columns[name] = Column{Name: name, Value: value}
}

// Lookup returns the named column.
func (r *Registry) Lookup(name string) (Column, bool) {
	c, ok := r.columns[name]
	return c, ok
}

// Select resolves names against ds, failing on the first column that is
// unknown or not materialized.
func (r *Registry) Select(ds *models.Dataset, names []string) ([]Column, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := r.columns[name]
		if !ok || !ds.Has(name) {
			return nil, fmt.Errorf("%w: output requires %q", models.ErrMissingColumn, name)
		}

		cols = append(cols, c)
	}

	return cols, nil
}

// Full returns the audit view: every raw column in input order followed by
// every materialized derived column. Raw date columns carry parsed dates.
func (r *Registry) Full(ds *models.Dataset) []Column {
	var cols []Column
	seen := make(map[string]bool)

	names := append(append([]string{}, models.RequiredOrderColumns...), models.OptionalOrderColumns...)
	names = append(names, derivedOrder...)

	for _, name := range names {
		if seen[name] || !ds.Has(name) {
			continue
		}

		seen[name] = true
		cols = append(cols, r.columns[name])
	}

	return cols
}

// BI returns the BI projection columns.
func (r *Registry) BI(ds *models.Dataset) ([]Column, error) {
	return r.Select(ds, BIColumns)
}

// Names lists the column names.
func Names(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}

	return out
}

func text(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func number(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}

func integer(v *int) any {
	if v == nil {
		return nil
	}

	return *v
}

func tristate(v *bool) any {
	if v == nil {
		return nil
	}

	return *v
}

func day(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}
