package models

// Source columns of the orders sheet.
const (
	RawOrderID       = "OrderID"
	RawOrderDate     = "OrderDate"
	RawDeliveryDate  = "DeliveryDate"
	RawReturnDate    = "ReturnDate"
	RawReturnFlag    = "ReturnFlag"
	RawCustomerID    = "CustomerID"
	RawCustomerName  = "CustomerName"
	RawGender        = "Gender"
	RawPhone         = "Phone"
	RawEmail         = "Email"
	RawGovernorate   = "Governorate"
	RawCity          = "City"
	RawAddress       = "Address"
	RawLatitude      = "Latitude"
	RawLongitude     = "Longitude"
	RawProductSKU    = "ProductSKU"
	RawProductName   = "ProductName"
	RawCategory      = "Category"
	RawUnitPrice     = "UnitPrice"
	RawQuantity      = "Quantity"
	RawDiscount      = "Discount"
	RawCurrency      = "Currency"
	RawShippingCost  = "ShippingCost"
	RawShipperName   = "ShipperName"
	RawChannel       = "Channel"
	RawStatus        = "Status"
	RawPaymentStatus = "PaymentStatus"
	RawPaymentMethod = "PaymentMethod"
	RawSalesRep      = "SalesRep"
	RawNotes         = "Notes"
	RawSubtotal      = "Subtotal"
	RawTotalAmount   = "TotalAmount"
)

// Source columns of the products sheet.
const (
	RawProductSheetSKU      = "SKU"
	RawProductSheetName     = "ProductName"
	RawProductSheetCategory = "Category"
)

// RequiredOrderColumns is the versioned input contract of the orders sheet.
var RequiredOrderColumns = []string{
	RawOrderID, RawOrderDate, RawDeliveryDate, RawReturnDate, RawReturnFlag,
	RawCustomerID, RawCustomerName, RawGender, RawPhone, RawEmail,
	RawGovernorate, RawCity, RawAddress, RawLatitude, RawLongitude,
	RawProductSKU, RawProductName, RawCategory, RawUnitPrice, RawQuantity,
	RawDiscount, RawCurrency, RawShippingCost, RawShipperName, RawChannel,
	RawStatus, RawPaymentStatus, RawPaymentMethod, RawSalesRep, RawNotes,
}

// OptionalOrderColumns are read when present.
var OptionalOrderColumns = []string{RawSubtotal, RawTotalAmount}

// RequiredProductColumns is the input contract of the products sheet.
var RequiredProductColumns = []string{RawProductSheetSKU, RawProductSheetName, RawProductSheetCategory}

// Derived columns, grouped by the stage that materializes them.
const (
	// normalize
	ColOriginalOrderID      = "Original OrderID"
	ColOrderDate            = "OrderDate"
	ColDeliveryDate         = "DeliveryDate"
	ColReturnDate           = "ReturnDate"
	ColOrderDateStatus      = "orderdate_status"
	ColDeliveryDateStatus   = "deliverydate_status"
	ColReturnDateStatus     = "returndate_status"
	ColOrderYear            = "Order_Year"
	ColOrderMonth           = "Order_Month"
	ColOrderQuarter         = "Order_Quarter"
	ColOrderYearMonth       = "Order_YearMonth"
	ColDeliveryYear         = "Delivery_Year"
	ColDeliveryMonth        = "Delivery_Month"
	ColDeliveryQuarter      = "Delivery_Quarter"
	ColDeliveryYearMonth    = "Delivery_YearMonth"
	ColReturnYear           = "Return_Year"
	ColReturnMonth          = "Return_Month"
	ColReturnQuarter        = "Return_Quarter"
	ColReturnYearMonth      = "Return_YearMonth"
	ColDeliveryTimeDays     = "Delivery_Time_Days"
	ColDeliveryDelayed      = "Delivery_Delayed"
	ColReturnTimeDays       = "Return_Time_Days"
	ColValidDelivery        = "Valid_Delivery"
	ColValidReturn          = "Valid_Return"
	ColDeliveryBeforeOrder  = "delivery_is_before_order"
	ColReturnBeforeOrder    = "return_is_before_order"
	ColReturnBeforeDelivery = "return_is_before_delivery"
	ColOrderDateIsNull      = "orderdate_is_null"
	ColDeliveryDateIsNull   = "deliverydate_is_null"
	ColReturnFlag           = "ReturnFlag_Clean"
	ColCustomerName         = "CustomerName_clean"
	ColPhone                = "Phone_Clean"
	ColPhoneValid           = "phone_is_valid"
	ColEmail                = "Email_Clean"
	ColEmailValid           = "email_is_valid"
	ColGender               = "Gender_Clean"
	ColGovernorate          = "Governorate_Clean"
	ColCity                 = "City_Clean"
	ColAddress              = "Address_Clean"
	ColAddressQuality       = "address_quality"
	ColAddressBuilding      = "Address_Building"
	ColAddressBlock         = "Address_Block"
	ColAddressApartment     = "Address_Apartment"
	ColAddressStreet        = "Address_Street"
	ColLatitude             = "Latitude_Clean"
	ColLongitude            = "Longitude_Clean"
	ColCoordsMissing        = "coords_initially_missing"
	ColSKU                  = "ProductSKU_Clean"
	ColProductName          = "ProductName_Clean"
	ColCategory             = "Category_Clean"
	ColCurrency             = "Currency_Clean"
	ColCurrencyStatus       = "currency_status"
	ColUnitPrice            = "UnitPrice_Clean"
	ColQuantityParsed       = "Quantity_Parsed"
	ColShippingCost         = "ShippingCost_Clean"
	ColPaymentStatus        = "PaymentStatus_Clean"
	ColPaymentMethod        = "PaymentMethod_Clean"
	ColStatus               = "Status_Clean"
	ColShipperName          = "ShipperName_Clean"
	ColChannel              = "Channel_Clean"
	ColSalesRep             = "SalesRep_Clean"
	ColSalesRepMissing      = "salesrep_is_missing"
	ColNotes                = "Notes_Clean"
	ColNoteCategory         = "note_category"
	ColCustomerID           = "CustomerID_clean"

	// identity
	ColOrderID           = "OrderID_cleaned"
	ColOrderIDDuplicated = "is_OrderID_duplicated_flag"
	ColOrderIDMissing    = "order_id_was_missing"
	ColCustomerIDSource  = "customer_id_source"

	// lookup
	ColSKUSource = "sku_source"

	// monetary
	ColFXRate          = "FX_Rate"
	ColUnitPriceEGP    = "UnitPrice_EGP"
	ColQuantity        = "Quantity_Clean"
	ColSubtotal        = "Subtotal_Calc"
	ColDiscountRate    = "Discount_Rate_Clean"
	ColDiscountKind    = "discount_kind"
	ColUnitPriceCapped = "UnitPrice_EGP_capped"
	ColPriceWasCapped  = "price_was_capped"
	ColSubtotalCapped  = "Subtotal_Calc_Capped"

	// impute
	ColCoordIssue        = "coord_issue"
	ColInvestigationFlag = "investigation_flag"
	ColShippingFilled    = "ShippingCost_Filled"
	ColShippingLevel     = "shipping_fill_level"

	// totals
	ColTotal        = "TotalAmount_Calc"
	ColTotalExtreme = "TotalAmount_Extreme"

	// validate
	ColShippingMakesSense   = "shipping_makes_sense"
	ColDeliveryMakesSense   = "delivery_makes_sense"
	ColReturnDataConsistent = "return_data_consistent"
	ColPassesBusinessLogic  = "passes_business_logic"
)
