// Package mapping holds the editable vocabulary tables that turn raw
// spelling variants into canonical labels.
package mapping

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"egretail/pkg/utils"
)

//go:embed default.yaml
var defaultYAML []byte

// Mapping errors.
var (
	ErrConflictingVariant = errors.New("variant maps to more than one canonical value")
	ErrInvalidPolicy      = errors.New("policy must be 'strict' or 'passthrough'")
	ErrEmptyNoteRule      = errors.New("note category rule needs a category and keywords")
)

// Policy controls what happens to values not listed in a table.
type Policy string

// Table policies.
const (
	PolicyStrict      Policy = "strict"
	PolicyPassthrough Policy = "passthrough"
)

// Status describes how a lookup resolved.
type Status string

// Lookup outcomes.
const (
	StatusMapped      Status = "mapped"
	StatusMissing     Status = "missing"
	StatusUnmapped    Status = "unmapped"
	StatusPassthrough Status = "passthrough"
)

// Table maps canonical labels to their known variants.
type Table struct {
	Policy   Policy              `yaml:"policy"`
	Missing  string              `yaml:"missing"`
	Unmapped string              `yaml:"unmapped"`
	Values   map[string][]string `yaml:"values"`

	index map[string]string
}

// NoteRule assigns Category when any keyword occurs in a note.
type NoteRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// NoteRules is an ordered keyword classifier; the first matching rule wins.
type NoteRules struct {
	Missing  string     `yaml:"missing"`
	Fallback string     `yaml:"fallback"`
	Rules    []NoteRule `yaml:"rules"`
}

// Mappings is the full set of vocabulary tables.
type Mappings struct {
	Governorates   Table     `yaml:"governorates"`
	Genders        Table     `yaml:"genders"`
	ReturnFlags    Table     `yaml:"return_flags"`
	PaymentStatus  Table     `yaml:"payment_status"`
	PaymentMethods Table     `yaml:"payment_methods"`
	OrderStatus    Table     `yaml:"order_status"`
	Shippers       Table     `yaml:"shippers"`
	Channels       Table     `yaml:"channels"`
	Categories     Table     `yaml:"categories"`
	ProductNames   Table     `yaml:"product_names"`
	Currencies     Table     `yaml:"currencies"`
	Months         Table     `yaml:"months"`
	NoteCategories NoteRules `yaml:"note_categories"`

	currencyPattern *regexp.Regexp
	monthPattern    *regexp.Regexp
}

// Default returns the embedded tables.
func Default() (*Mappings, error) {
	m := &Mappings{}
	if err := yaml.Unmarshal(defaultYAML, m); err != nil {
		return nil, fmt.Errorf("failed to parse embedded mappings: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("embedded mappings: %w", err)
	}

	return m, nil
}

// Load reads a YAML file on top of the embedded defaults. Variants in the
// file are added to the default lists; labels and policies are replaced.
func Load(path string) (*Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}

	m := &Mappings{}
	if err := yaml.Unmarshal(defaultYAML, m); err != nil {
		return nil, fmt.Errorf("failed to parse embedded mappings: %w", err)
	}

	overlay := &Mappings{}
	if err := yaml.Unmarshal(data, overlay); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file: %w", err)
	}

	m.merge(overlay)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

func (m *Mappings) tables() map[string]*Table {
	return map[string]*Table{
		"governorates":    &m.Governorates,
		"genders":         &m.Genders,
		"return_flags":    &m.ReturnFlags,
		"payment_status":  &m.PaymentStatus,
		"payment_methods": &m.PaymentMethods,
		"order_status":    &m.OrderStatus,
		"shippers":        &m.Shippers,
		"channels":        &m.Channels,
		"categories":      &m.Categories,
		"product_names":   &m.ProductNames,
		"currencies":      &m.Currencies,
		"months":          &m.Months,
	}
}

func (m *Mappings) merge(o *Mappings) {
	dst := m.tables()
	for name, src := range o.tables() {
		t := dst[name]
		if src.Policy != "" {
			t.Policy = src.Policy
		}

		if src.Missing != "" {
			t.Missing = src.Missing
		}

		if src.Unmapped != "" {
			t.Unmapped = src.Unmapped
		}

		if t.Values == nil {
			t.Values = map[string][]string{}
		}

		for canonical, variants := range src.Values {
			t.Values[canonical] = append(t.Values[canonical], variants...)
		}
	}

	if len(o.NoteCategories.Rules) > 0 {
		m.NoteCategories.Rules = o.NoteCategories.Rules
	}

	if o.NoteCategories.Missing != "" {
		m.NoteCategories.Missing = o.NoteCategories.Missing
	}

	if o.NoteCategories.Fallback != "" {
		m.NoteCategories.Fallback = o.NoteCategories.Fallback
	}
}

// Validate checks policies, builds the lookup indexes and rejects variants
// claimed by two canonical labels of the same table.
func (m *Mappings) Validate() error {
	names := make([]string, 0, len(m.tables()))
	for name := range m.tables() {
		names = append(names, name)
	}

	sort.Strings(names)

	tables := m.tables()
	for _, name := range names {
		if err := tables[name].build(); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
	}

	for i, rule := range m.NoteCategories.Rules {
		if rule.Category == "" || len(rule.Keywords) == 0 {
			return fmt.Errorf("note rule %d: %w", i, ErrEmptyNoteRule)
		}
	}

	m.currencyPattern = variantPattern(&m.Currencies, true)
	m.monthPattern = variantPattern(&m.Months, false)

	return nil
}

func (t *Table) build() error {
	switch t.Policy {
	case "":
		t.Policy = PolicyStrict
	case PolicyStrict, PolicyPassthrough:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidPolicy, t.Policy)
	}

	canonicals := make([]string, 0, len(t.Values))
	for c := range t.Values {
		canonicals = append(canonicals, c)
	}

	sort.Strings(canonicals)

	t.index = make(map[string]string)
	for _, canonical := range canonicals {
		for _, v := range append([]string{canonical}, t.Values[canonical]...) {
			key := utils.FoldKey(v)
			if prev, ok := t.index[key]; ok && prev != canonical {
				return fmt.Errorf("%w: %q -> %q and %q", ErrConflictingVariant, v, prev, canonical)
			}

			t.index[key] = canonical
		}
	}

	return nil
}

// Lookup maps raw to its canonical label.
func (t *Table) Lookup(raw string) (string, Status) {
	if utils.IsBlank(raw) {
		return t.Missing, StatusMissing
	}

	if canonical, ok := t.index[utils.FoldKey(raw)]; ok {
		return canonical, StatusMapped
	}

	if t.Policy == PolicyPassthrough {
		return utils.NormalizeWhitespace(raw), StatusPassthrough
	}

	return t.Unmapped, StatusUnmapped
}

// Canonical returns the label for raw, discarding the status.
func (t *Table) Canonical(raw string) string {
	v, _ := t.Lookup(raw)
	return v
}

// Labels returns the canonical labels in sorted order.
func (t *Table) Labels() []string {
	out := make([]string, 0, len(t.Values))
	for c := range t.Values {
		out = append(out, c)
	}

	sort.Strings(out)

	return out
}

// variantPattern builds one alternation over every variant, longest first,
// so the longest spelling wins when variants overlap.
func variantPattern(t *Table, upper bool) *regexp.Regexp {
	var alts []string
	for canonical, variants := range t.Values {
		for _, v := range append([]string{canonical}, variants...) {
			if upper {
				v = strings.ToUpper(v)
			}

			alts = append(alts, regexp.QuoteMeta(v))
		}
	}

	if len(alts) == 0 {
		return nil
	}

	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}

		return alts[i] < alts[j]
	})

	prefix := ""
	if !upper {
		prefix = "(?i)"
	}

	return regexp.MustCompile(prefix + "(" + strings.Join(alts, "|") + ")")
}

// FindCurrency returns the canonical currency code embedded anywhere in
// text, compared upper-cased.
func (m *Mappings) FindCurrency(text string) (string, bool) {
	if m.currencyPattern == nil {
		return "", false
	}

	match := m.currencyPattern.FindString(strings.ToUpper(text))
	if match == "" {
		return "", false
	}

	return m.Currencies.Canonical(match), true
}

// ReplaceMonths rewrites month-name variants in text as their canonical
// English names.
func (m *Mappings) ReplaceMonths(text string) string {
	if m.monthPattern == nil {
		return text
	}

	return m.monthPattern.ReplaceAllStringFunc(text, func(s string) string {
		return " " + m.Months.Canonical(s) + " "
	})
}

// CategorizeNote classifies an already-cleaned note.
func (m *Mappings) CategorizeNote(note string) string {
	if utils.IsBlank(note) {
		return m.NoteCategories.Missing
	}

	lower := strings.ToLower(note)
	for _, rule := range m.NoteCategories.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Category
			}
		}
	}

	return m.NoteCategories.Fallback
}
