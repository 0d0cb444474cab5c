// Package lookup fills missing order SKUs from the product reference sheet.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"egretail/internal/config"
	"egretail/internal/models"
)

// SKU provenance labels.
const (
	SKUOriginal        = "original"
	SKUImputedFromName = "imputed_from_name"
	SKUMissing         = "missing"
)

// ErrUnknownDedupPolicy is returned for a tie-break other than lowest_sku or first.
var ErrUnknownDedupPolicy = errors.New("unknown product dedup policy")

// Joiner left-joins orders to the product reference on canonical name.
type Joiner struct {
	policy string
}

// NewJoiner creates a joiner with the given dedup tie-break.
func NewJoiner(policy string) (*Joiner, error) {
	if policy != config.DedupLowestSKU && policy != config.DedupFirst {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDedupPolicy, policy)
	}

	return &Joiner{policy: policy}, nil
}

// Name implements pipeline.Stage.
func (j *Joiner) Name() string { return "lookup" }

// Requires implements pipeline.Stage.
func (j *Joiner) Requires() []string {
	return []string{models.ColSKU, models.ColProductName}
}

// Provides implements pipeline.Stage.
func (j *Joiner) Provides() []string {
	return []string{models.ColSKUSource}
}

// Run implements pipeline.Stage.
func (j *Joiner) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := j.Dedup(ds.Products)
	counts := models.Counts{"reference_products": len(ref)}

	j.Fill(ds.Orders, ref, counts)

	return counts, nil
}

// Dedup keeps one product per canonical name. With lowest_sku the
// lexicographically smallest non-empty SKU wins; with first the earliest
// row wins.
func (j *Joiner) Dedup(products []models.Product) map[string]models.Product {
	ordered := make([]models.Product, len(products))
	copy(ordered, products)

	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Row < ordered[b].Row })

	ref := make(map[string]models.Product, len(ordered))
	for _, p := range ordered {
		if p.Name == "" {
			continue
		}

		cur, ok := ref[p.Name]
		if !ok || (j.policy == config.DedupLowestSKU && better(p.SKU, cur.SKU)) {
			ref[p.Name] = p
		}
	}

	return ref
}

func better(candidate, current string) bool {
	if candidate == "" {
		return false
	}

	return current == "" || candidate < current
}

// Fill substitutes the reference SKU where the order has none.
func (j *Joiner) Fill(orders []*models.Order, ref map[string]models.Product, counts models.Counts) {
	for _, o := range orders {
		if o.SKU != "" {
			o.SKUSource = SKUOriginal
			counts.Add(SKUOriginal)

			continue
		}

		if p, ok := ref[o.ProductName]; ok && o.ProductName != "" && p.SKU != "" {
			o.SKU = p.SKU
			o.SKUSource = SKUImputedFromName
			counts.Add(SKUImputedFromName)

			continue
		}

		o.SKUSource = SKUMissing
		counts.Add(SKUMissing)
	}
}
