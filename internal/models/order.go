package models

import (
	"math"
	"time"
)

// RawOrder holds one orders-sheet row exactly as read.
type RawOrder struct {
	OrderID       string `json:"orderId"`
	OrderDate     string `json:"orderDate"`
	DeliveryDate  string `json:"deliveryDate"`
	ReturnDate    string `json:"returnDate"`
	ReturnFlag    string `json:"returnFlag"`
	CustomerID    string `json:"customerId"`
	CustomerName  string `json:"customerName"`
	Gender        string `json:"gender"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Governorate   string `json:"governorate"`
	City          string `json:"city"`
	Address       string `json:"address"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	ProductSKU    string `json:"productSku"`
	ProductName   string `json:"productName"`
	Category      string `json:"category"`
	UnitPrice     string `json:"unitPrice"`
	Quantity      string `json:"quantity"`
	Discount      string `json:"discount"`
	Currency      string `json:"currency"`
	ShippingCost  string `json:"shippingCost"`
	ShipperName   string `json:"shipperName"`
	Channel       string `json:"channel"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentMethod string `json:"paymentMethod"`
	SalesRep      string `json:"salesRep"`
	Notes         string `json:"notes"`
	Subtotal      string `json:"subtotal,omitempty"`
	TotalAmount   string `json:"totalAmount,omitempty"`
}

// Fields returns pointers to every raw field keyed by source column name.
func (r *RawOrder) Fields() map[string]*string {
	return map[string]*string{
		RawOrderID:       &r.OrderID,
		RawOrderDate:     &r.OrderDate,
		RawDeliveryDate:  &r.DeliveryDate,
		RawReturnDate:    &r.ReturnDate,
		RawReturnFlag:    &r.ReturnFlag,
		RawCustomerID:    &r.CustomerID,
		RawCustomerName:  &r.CustomerName,
		RawGender:        &r.Gender,
		RawPhone:         &r.Phone,
		RawEmail:         &r.Email,
		RawGovernorate:   &r.Governorate,
		RawCity:          &r.City,
		RawAddress:       &r.Address,
		RawLatitude:      &r.Latitude,
		RawLongitude:     &r.Longitude,
		RawProductSKU:    &r.ProductSKU,
		RawProductName:   &r.ProductName,
		RawCategory:      &r.Category,
		RawUnitPrice:     &r.UnitPrice,
		RawQuantity:      &r.Quantity,
		RawDiscount:      &r.Discount,
		RawCurrency:      &r.Currency,
		RawShippingCost:  &r.ShippingCost,
		RawShipperName:   &r.ShipperName,
		RawChannel:       &r.Channel,
		RawStatus:        &r.Status,
		RawPaymentStatus: &r.PaymentStatus,
		RawPaymentMethod: &r.PaymentMethod,
		RawSalesRep:      &r.SalesRep,
		RawNotes:         &r.Notes,
		RawSubtotal:      &r.Subtotal,
		RawTotalAmount:   &r.TotalAmount,
	}
}

// AddressParts are the structured pieces found in a free-text address.
type AddressParts struct {
	Building  string `json:"building,omitempty"`
	Block     string `json:"block,omitempty"`
	Apartment string `json:"apartment,omitempty"`
	Street    string `json:"street,omitempty"`
}

// Order is one cleaned and audited transaction row. Absent numbers and
// dates are nil; absent text is "".
type Order struct {
	Raw RawOrder `json:"raw"`
	Row int      `json:"row"`

	OrderID           string `json:"orderId"`
	OrderIDDuplicated bool   `json:"orderIdDuplicated"`
	OrderIDWasMissing bool   `json:"orderIdWasMissing"`

	CustomerID       string `json:"customerId"`
	CustomerIDSource string `json:"customerIdSource"`
	CustomerName     string `json:"customerName"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	PhoneValid       bool   `json:"phoneValid"`
	Email            string `json:"email"`
	EmailValid       bool   `json:"emailValid"`

	OrderDate          *time.Time `json:"orderDate"`
	DeliveryDate       *time.Time `json:"deliveryDate"`
	ReturnDate         *time.Time `json:"returnDate"`
	OrderDateStatus    string     `json:"orderDateStatus"`
	DeliveryDateStatus string     `json:"deliveryDateStatus"`
	ReturnDateStatus   string     `json:"returnDateStatus"`
	ReturnFlag         string     `json:"returnFlag"`

	Governorate    string       `json:"governorate"`
	City           string       `json:"city"`
	Address        string       `json:"address"`
	AddressQuality string       `json:"addressQuality"`
	AddressParts   AddressParts `json:"addressParts"`

	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	CoordsMissing     bool     `json:"coordsInitiallyMissing"`
	CoordIssue        string   `json:"coordIssue"`
	InvestigationFlag string   `json:"investigationFlag"`

	SKU         string `json:"sku"`
	SKUSource   string `json:"skuSource"`
	ProductName string `json:"productName"`
	Category    string `json:"category"`

	Currency        string   `json:"currency"`
	CurrencyStatus  string   `json:"currencyStatus"`
	UnitPrice       *float64 `json:"unitPrice"`
	QuantityParsed  *float64 `json:"quantityParsed"`
	FXRate          *float64 `json:"fxRate"`
	UnitPriceEGP    *float64 `json:"unitPriceEgp"`
	Quantity        *float64 `json:"quantity"`
	Subtotal        *float64 `json:"subtotal"`
	DiscountRate    float64  `json:"discountRate"`
	DiscountKind    string   `json:"discountKind"`
	UnitPriceCapped *float64 `json:"unitPriceCapped"`
	PriceWasCapped  bool     `json:"priceWasCapped"`
	SubtotalCapped  *float64 `json:"subtotalCapped"`

	ShippingCost      *float64 `json:"shippingCost"`
	ShippingFilled    *float64 `json:"shippingFilled"`
	ShippingFillLevel string   `json:"shippingFillLevel"`
	Total             *float64 `json:"total"`
	TotalExtreme      bool     `json:"totalExtreme"`

	PaymentStatus string `json:"paymentStatus"`
	PaymentMethod string `json:"paymentMethod"`
	Status        string `json:"status"`
	ShipperName   string `json:"shipperName"`
	Channel       string `json:"channel"`
	SalesRep      string `json:"salesRep"`
	Notes         string `json:"notes"`
	NoteCategory  string `json:"noteCategory"`

	ShippingMakesSense   bool `json:"shippingMakesSense"`
	DeliveryMakesSense   bool `json:"deliveryMakesSense"`
	ReturnDataConsistent bool `json:"returnDataConsistent"`
	PassesBusinessLogic  bool `json:"passesBusinessLogic"`
}

// DateParts are the calendar columns derived from one date.
type DateParts struct {
	Year      int
	Month     int
	Quarter   int
	YearMonth string
}

// PartsOf derives calendar parts; ok is false for an absent date.
func PartsOf(t *time.Time) (DateParts, bool) {
	if t == nil {
		return DateParts{}, false
	}

	m := int(t.Month())

	return DateParts{
		Year:      t.Year(),
		Month:     m,
		Quarter:   (m-1)/3 + 1,
		YearMonth: t.Format("2006-01"),
	}, true
}

// DaysBetween returns whole days from a to b, floored; nil if either is absent.
func DaysBetween(a, b *time.Time) *int {
	if a == nil || b == nil {
		return nil
	}

	d := int(math.Floor(b.Sub(*a).Hours() / 24))

	return &d
}

// DeliveryTimeDays is the delivery lead time in days.
func (o *Order) DeliveryTimeDays() *int {
	return DaysBetween(o.OrderDate, o.DeliveryDate)
}

// ReturnTimeDays is the time from delivery to return in days.
func (o *Order) ReturnTimeDays() *int {
	return DaysBetween(o.DeliveryDate, o.ReturnDate)
}

// DeliveryDelayed reports whether delivery took longer than limitDays.
// An unknown lead time is not a delay.
func (o *Order) DeliveryDelayed(limitDays int) bool {
	d := o.DeliveryTimeDays()
	return d != nil && *d > limitDays
}

// ValidDelivery is nil when either date is absent, otherwise whether the
// delivery is on or after the order date.
func (o *Order) ValidDelivery() *bool {
	return notBefore(o.DeliveryDate, o.OrderDate)
}

// ValidReturn is nil when either date is absent, otherwise whether the
// return is on or after delivery.
func (o *Order) ValidReturn() *bool {
	return notBefore(o.ReturnDate, o.DeliveryDate)
}

// DeliveryBeforeOrder is true only when both dates exist and are inverted.
func (o *Order) DeliveryBeforeOrder() bool {
	return before(o.DeliveryDate, o.OrderDate)
}

// ReturnBeforeOrder is true only when both dates exist and are inverted.
func (o *Order) ReturnBeforeOrder() bool {
	return before(o.ReturnDate, o.OrderDate)
}

// ReturnBeforeDelivery is true only when both dates exist and are inverted.
func (o *Order) ReturnBeforeDelivery() bool {
	return before(o.ReturnDate, o.DeliveryDate)
}

func notBefore(a, b *time.Time) *bool {
	if a == nil || b == nil {
		return nil
	}

	ok := !a.Before(*b)

	return &ok
}

func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Product is one deduplicated product reference entry.
type Product struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Row      int    `json:"row"`
}
