package normalizer

import (
	"errors"
	"fmt"

	"egretail/internal/models"
)

// Validation errors.
var (
	ErrNilDataset  = errors.New("dataset is nil")
	ErrNoOrders    = errors.New("dataset contains no orders")
	ErrNilMappings = errors.New("mapping tables are not loaded")
)

// Validator checks that a dataset can be normalized.
type Validator struct {
	required []string
}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{required: models.RequiredOrderColumns}
}

// Validate checks the batch shape before any column is touched.
func (v *Validator) Validate(ds *models.Dataset) error {
	if ds == nil {
		return ErrNilDataset
	}

	if ds.Len() == 0 {
		return ErrNoOrders
	}

	if err := ds.Require("normalize", v.required...); err != nil {
		return err
	}

	for i, o := range ds.Orders {
		if o == nil {
			return fmt.Errorf("%w: nil order at index %d", ErrNilDataset, i)
		}
	}

	return nil
}
