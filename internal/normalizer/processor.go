// Package normalizer turns raw spreadsheet cells into cleaned, labelled
// order fields.
package normalizer

import (
	"context"
	"fmt"

	"egretail/internal/config"
	"egretail/internal/mapping"
	"egretail/internal/models"
)

// Processor validates a dataset and then normalizes it.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	parallel    bool
}

// NewProcessor creates a new processor instance.
func NewProcessor(m *mapping.Mappings, cfg config.CleaningConfig) (*Processor, error) {
	if m == nil {
		return nil, ErrNilMappings
	}

	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(m, cfg),
		parallel:    cfg.ParallelNormalizers,
	}, nil
}

// Process normalizes the orders and the product reference sheet in place.
func (p *Processor) Process(ctx context.Context, ds *models.Dataset) (*Summary, error) {
	// 1. Validate the input data
	if err := p.validator.Validate(ds); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// 2. Transform the data
	summary, err := p.transformer.Transform(ctx, ds, p.parallel)
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	if ds.ProductTable != nil {
		products, err := p.transformer.ProductTable(ds.ProductTable)
		if err != nil {
			return nil, fmt.Errorf("product reference: %w", err)
		}

		ds.Products = products
	}

	return summary, nil
}

// Name implements pipeline.Stage.
func (p *Processor) Name() string { return "normalize" }

// Requires implements pipeline.Stage.
func (p *Processor) Requires() []string { return models.RequiredOrderColumns }

// Provides implements pipeline.Stage.
func (p *Processor) Provides() []string { return Provides }

// Run implements pipeline.Stage.
func (p *Processor) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	summary, err := p.Process(ctx, ds)
	if err != nil {
		return nil, err
	}

	return summary.Counts(), nil
}
