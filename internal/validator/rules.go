// Package validator applies the business-rule checks to cleaned orders and
// scores the overall quality of a cleaned dataset.
package validator

import (
	"context"
	"fmt"

	"egretail/internal/config"
	"egretail/internal/models"
)

// Rule failure labels.
const (
	FailShipping      = "illogical_shipping"
	FailDelivery      = "illogical_delivery"
	FailReturns       = "inconsistent_returns"
	FailDeliveryDates = "invalid_delivery_dates"
	FailDiscount      = "invalid_discount"
	FailQuantity      = "invalid_quantity"
	PassBusinessLogic = "passes_business_logic"
)

const (
	returnFlagYes = "Yes"
	returnFlagNo  = "No"
)

// BusinessRules flags orders whose fields contradict each other.
type BusinessRules struct {
	inPerson string
}

// NewBusinessRules creates the rule checker. inPerson is the channel label
// of walk-in sales, which never ship.
func NewBusinessRules(inPerson string) (*BusinessRules, error) {
	if inPerson == "" {
		return nil, config.ErrMissingInPersonChannel
	}

	return &BusinessRules{inPerson: inPerson}, nil
}

// Name implements pipeline.Stage.
func (b *BusinessRules) Name() string { return "validate" }

// Requires implements pipeline.Stage.
func (b *BusinessRules) Requires() []string {
	return []string{
		models.ColChannel, models.ColShippingFilled, models.ColDeliveryDate, models.ColReturnDate,
		models.ColReturnFlag, models.ColValidDelivery, models.ColDiscountRate, models.ColQuantity,
	}
}

// Provides implements pipeline.Stage.
func (b *BusinessRules) Provides() []string {
	return []string{
		models.ColShippingMakesSense, models.ColDeliveryMakesSense,
		models.ColReturnDataConsistent, models.ColPassesBusinessLogic,
	}
}

// Run implements pipeline.Stage.
func (b *BusinessRules) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	counts := models.Counts{}

	for _, o := range ds.Orders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}

		for _, failure := range b.Check(o) {
			counts.Add(failure)
		}

		if o.PassesBusinessLogic {
			counts.Add(PassBusinessLogic)
		}
	}

	return counts, nil
}

// Check sets the rule flags on o and returns the failed rules.
func (b *BusinessRules) Check(o *models.Order) []string {
	var failures []string

	// 1. Shipping
	inPerson := o.Channel == b.inPerson
	if inPerson {
		o.ShippingMakesSense = o.ShippingFilled != nil && *o.ShippingFilled == 0
	} else {
		o.ShippingMakesSense = o.ShippingFilled != nil && *o.ShippingFilled > 0
	}

	if !o.ShippingMakesSense {
		failures = append(failures, FailShipping)
	}

	// 2. Delivery
	o.DeliveryMakesSense = !inPerson || o.DeliveryDate == nil
	if !o.DeliveryMakesSense {
		failures = append(failures, FailDelivery)
	}

	// 3. Returns
	o.ReturnDataConsistent = !((o.ReturnFlag == returnFlagNo && o.ReturnDate != nil) ||
		(o.ReturnFlag == returnFlagYes && o.ReturnDate == nil))
	if !o.ReturnDataConsistent {
		failures = append(failures, FailReturns)
	}

	// 4. Dates, discount, quantity
	if valid := o.ValidDelivery(); valid != nil && !*valid {
		failures = append(failures, FailDeliveryDates)
	}

	if o.DiscountRate > 1 {
		failures = append(failures, FailDiscount)
	}

	if o.Quantity == nil || *o.Quantity <= 0 {
		failures = append(failures, FailQuantity)
	}

	o.PassesBusinessLogic = len(failures) == 0

	return failures
}
