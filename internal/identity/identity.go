// Package identity assigns unique order identifiers and resolves orders
// that arrive without a customer id.
package identity

import (
	"context"
	"fmt"
	"strings"

	"egretail/internal/config"
	"egretail/internal/models"
	"egretail/pkg/utils"
)

// Customer id provenance labels.
const (
	SourceOriginal     = "original"
	SourcePhoneMatch   = "phone_match"
	SourceEmailMatch   = "email_match"
	SourceAddressMatch = "address_match"
	SourceGuest        = "guest"
)

// Resolver runs order-id dedup followed by customer resolution.
type Resolver struct {
	cfg config.IDConfig
}

// NewResolver creates a resolver minting ids with the configured prefixes.
func NewResolver(cfg config.IDConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Name implements pipeline.Stage.
func (r *Resolver) Name() string { return "identity" }

// Requires implements pipeline.Stage.
func (r *Resolver) Requires() []string {
	return []string{models.RawOrderID, models.RawAddress, models.ColCustomerID, models.ColPhone, models.ColEmail}
}

// Provides implements pipeline.Stage.
func (r *Resolver) Provides() []string {
	return []string{models.ColOrderID, models.ColOrderIDDuplicated, models.ColOrderIDMissing, models.ColCustomerIDSource}
}

// Run implements pipeline.Stage.
func (r *Resolver) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := models.Counts{}
	counts.Merge(r.DedupOrderIDs(ds.Orders))
	counts.Merge(r.ResolveCustomers(ds.Orders))

	return counts, nil
}

// counter mints PREFIX + zero-padded numbers, skipping taken values.
type counter struct {
	format string
	next   int
	taken  map[string]bool
}

func newCounter(prefix string, width int, taken map[string]bool) *counter {
	return &counter{format: fmt.Sprintf("%s%%0%dd", prefix, width), next: 1, taken: taken}
}

func (c *counter) mint() string {
	for {
		id := fmt.Sprintf(c.format, c.next)
		c.next++

		if !c.taken[id] {
			c.taken[id] = true
			return id
		}
	}
}

// DedupOrderIDs gives every order a unique OrderID. Ids shared by several
// rows are replaced on every row of the group, first row included, and
// flagged. Rows without an id get a minted one as well.
func (r *Resolver) DedupOrderIDs(orders []*models.Order) models.Counts {
	counts := models.Counts{}
	sizes := make(map[string]int, len(orders))

	for _, o := range orders {
		if id := rawOrderID(o); id != "" {
			sizes[id]++
		}
	}

	// Ids kept as-is must never be minted.
	retained := make(map[string]bool, len(sizes))
	for id, n := range sizes {
		if n == 1 {
			retained[id] = true
		}
	}

	ids := newCounter(r.cfg.OrderPrefix, r.cfg.OrderWidth, retained)

	for _, o := range orders {
		id := rawOrderID(o)

		switch {
		case id == "":
			o.OrderID = ids.mint()
			o.OrderIDWasMissing = true
			counts.Add("order_id_missing")
		case sizes[id] > 1:
			o.OrderID = ids.mint()
			o.OrderIDDuplicated = true
			counts.Add("order_id_duplicated")
		default:
			o.OrderID = id
			counts.Add("order_id_kept")
		}
	}

	return counts
}

func rawOrderID(o *models.Order) string {
	if utils.IsBlank(o.Raw.OrderID) {
		return ""
	}

	return strings.TrimSpace(o.Raw.OrderID)
}

// reference maps contact details to the first customer id seen with them.
type reference struct {
	phone   map[string]string
	email   map[string]string
	address map[string]string
}

func buildReference(orders []*models.Order) reference {
	ref := reference{
		phone:   make(map[string]string),
		email:   make(map[string]string),
		address: make(map[string]string),
	}

	first := func(m map[string]string, key, id string) {
		if key == "" {
			return
		}

		if _, ok := m[key]; !ok {
			m[key] = id
		}
	}

	for _, o := range orders {
		if o.CustomerID == "" {
			continue
		}

		first(ref.phone, o.Phone, o.CustomerID)
		first(ref.email, o.Email, o.CustomerID)
		first(ref.address, rawAddress(o), o.CustomerID)
	}

	return ref
}

func rawAddress(o *models.Order) string {
	if utils.IsBlank(o.Raw.Address) {
		return ""
	}

	return o.Raw.Address
}

// ResolveCustomers fills absent customer ids by phone, then email, then
// raw address, and mints a guest id when nothing matches. Matches only
// consider ids present before the pass, so minted guests never cascade.
func (r *Resolver) ResolveCustomers(orders []*models.Order) models.Counts {
	counts := models.Counts{}
	ref := buildReference(orders)

	existing := make(map[string]bool)
	for _, o := range orders {
		if o.CustomerID != "" {
			existing[o.CustomerID] = true
		}
	}

	guests := newCounter(r.cfg.GuestPrefix, r.cfg.GuestWidth, existing)

	for _, o := range orders {
		if o.CustomerID != "" {
			o.CustomerIDSource = SourceOriginal
			counts.Add(SourceOriginal)

			continue
		}

		id, source := ref.match(o)
		if id == "" {
			id, source = guests.mint(), SourceGuest
		}

		o.CustomerID = id
		o.CustomerIDSource = source
		counts.Add(source)
	}

	return counts
}

func (ref reference) match(o *models.Order) (string, string) {
	if id, ok := ref.phone[o.Phone]; ok && o.Phone != "" {
		return id, SourcePhoneMatch
	}

	if id, ok := ref.email[o.Email]; ok && o.Email != "" {
		return id, SourceEmailMatch
	}

	if addr := rawAddress(o); addr != "" {
		if id, ok := ref.address[addr]; ok {
			return id, SourceAddressMatch
		}
	}

	return "", ""
}
