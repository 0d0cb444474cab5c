package impute

import (
	"strings"

	"egretail/internal/mapping"
	"egretail/internal/models"
)

// Placeholders are the labels a mapping table assigns to blank or unmapped
// input. They never form a grouping key.
type Placeholders map[string]bool

// PlaceholdersOf collects the missing and unmapped labels of t. A nil table
// yields an empty set.
func PlaceholdersOf(t *mapping.Table) Placeholders {
	p := Placeholders{}
	if t == nil {
		return p
	}

	for _, label := range []string{t.Missing, t.Unmapped} {
		if label != "" {
			p[label] = true
		}
	}

	return p
}

// Known reports whether v can be used as a key.
func (p Placeholders) Known(v string) bool {
	return v != "" && !p[v]
}

// keyField is one text field of a grouping key and its placeholder labels.
type keyField struct {
	get  func(*models.Order) string
	skip Placeholders
}

// textKey builds a level key from one field.
func textKey(orders []*models.Order, f keyField) func(int) (string, bool) {
	return compositeKey(orders, f)
}

// compositeKey joins several fields; any blank or placeholder part drops the
// row from the level.
func compositeKey(orders []*models.Order, fields ...keyField) func(int) (string, bool) {
	return func(i int) (string, bool) {
		parts := make([]string, len(fields))
		for j, f := range fields {
			v := f.get(orders[i])
			if !f.skip.Known(v) {
				return "", false
			}

			parts[j] = v
		}

		return strings.Join(parts, "\x1f"), true
	}
}
