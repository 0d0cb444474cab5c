package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"egretail/internal/config"
	"egretail/internal/mapping"
	"egretail/internal/models"
	"egretail/pkg/utils"
)

// Address quality labels.
const (
	AddressMissing  = "missing"
	AddressTooShort = "too_short"
	AddressNoNumber = "no_number"
	AddressValid    = "valid"
)

// Currency status labels.
const (
	CurrencyRecognized   = "recognized"
	CurrencyUnrecognized = "unrecognized"
	CurrencyAssumed      = "assumed"
	CurrencyMissing      = "missing"
)

var (
	emailPattern         = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	productSuffixPattern = regexp.MustCompile(`\s+-\s*[ا-ي\s]+`)
	addressEdgePattern   = regexp.MustCompile(`^[,.\-\s]+|[,.\-\s]+$`)
	numericCellPattern   = regexp.MustCompile(`\.0+$`)
	nonDigitPattern      = regexp.MustCompile(`[^0-9]`)
	leadingZerosPattern  = regexp.MustCompile(`^0+`)

	buildingPattern  = regexp.MustCompile(`(?i)عمارة\s*(\d+)|Building\s*(\d+)`)
	blockPattern     = regexp.MustCompile(`(?i)Block\s*(\d+)|بلوك\s*(\d+)`)
	apartmentPattern = regexp.MustCompile(`(?i)Apt\.?\s*(\d+)|شقة\s*(\d+)`)
	streetPattern    = regexp.MustCompile(`(?i)شارع\s+([^\d]+)|Street\s+([A-Za-z\s]+)`)
)

// StandardizeText trims, collapses whitespace and lowercases. Blank
// placeholders come back as "".
func StandardizeText(raw string) string {
	if utils.IsBlank(raw) {
		return ""
	}

	return strings.ToLower(utils.NormalizeWhitespace(raw))
}

// PhoneNormalizer validates numbers against a national numbering plan.
type PhoneNormalizer struct {
	countryCode    string
	national       int
	prefixes       []string
	countryPattern *regexp.Regexp
}

// NewPhoneNormalizer builds a normalizer for the given plan.
func NewPhoneNormalizer(cfg config.PhoneConfig) *PhoneNormalizer {
	cc := regexp.QuoteMeta(cfg.CountryCode)

	return &PhoneNormalizer{
		countryCode:    cfg.CountryCode,
		national:       cfg.NationalLength,
		prefixes:       cfg.ValidPrefixes,
		countryPattern: regexp.MustCompile(`^(` + cc + `|0+` + cc + `)`),
	}
}

// Normalize returns the international form of a valid mobile number, or ""
// and false. Numbers are never partially normalized.
func (p *PhoneNormalizer) Normalize(raw string) (string, bool) {
	if utils.IsBlank(raw) {
		return "", false
	}

	s := numericCellPattern.ReplaceAllString(strings.TrimSpace(utils.FoldDigits(raw)), "")
	digits := nonDigitPattern.ReplaceAllString(s, "")
	digits = p.countryPattern.ReplaceAllString(digits, "")
	digits = leadingZerosPattern.ReplaceAllString(digits, "0")

	if !strings.HasPrefix(digits, "0") && len(digits) == p.national-1 {
		digits = "0" + digits
	}

	if len(digits) != p.national || !hasAnyPrefix(digits, p.prefixes) {
		return "", false
	}

	return "+" + p.countryCode + digits[1:], true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// Email lowercases, removes all whitespace and validates a conservative
// local@domain.tld shape. Arabic script is rejected.
func Email(raw string) (string, bool) {
	if utils.IsBlank(raw) {
		return "", false
	}

	email := strings.Join(strings.Fields(strings.ToLower(raw)), "")
	if utils.ContainsArabic(email) || !emailPattern.MatchString(email) {
		return "", false
	}

	return email, true
}

// CustomerID upper-cases and rewrites the CUS-/CUS prefixes to C.
func CustomerID(raw string) string {
	if utils.IsBlank(raw) {
		return ""
	}

	id := strings.ToUpper(strings.TrimSpace(raw))
	id = strings.ReplaceAll(id, "CUS-", "C")
	id = strings.ReplaceAll(id, "CUS", "C")

	return id
}

// SKU standardizes text and removes every hyphen.
func SKU(raw string) string {
	return strings.ReplaceAll(StandardizeText(raw), "-", "")
}

// ProductName standardizes text, drops a trailing " - <arabic words>" gloss
// and applies the product-name corrections.
func ProductName(raw string, names *mapping.Table) string {
	s := StandardizeText(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimSpace(productSuffixPattern.ReplaceAllString(s, ""))

	return names.Canonical(s)
}

// Category standardizes text and maps it to a canonical category.
func Category(raw string, categories *mapping.Table) string {
	return categories.Canonical(StandardizeText(raw))
}

// groupedNumber is a figure with comma thousands separators, e.g. 12,500.00.
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Number parses an amount or a count. A comma is accepted only as a
// thousands separator in well-formed groups; any other comma makes the value
// absent. Arabic-Indic digits and the Arabic decimal mark are accepted.
func Number(raw string) *float64 {
	if utils.IsBlank(raw) {
		return nil
	}

	s := strings.NewReplacer("٫", ".", "٬", ",", " ", "").Replace(strings.TrimSpace(utils.FoldDigits(raw)))

	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return nil
		}

		s = strings.ReplaceAll(s, ",", "")
	}

	return parseFloat(s)
}

// Coordinate parses a latitude or longitude, where a comma is the decimal
// separator.
func Coordinate(raw string) *float64 {
	if utils.IsBlank(raw) {
		return nil
	}

	s := strings.TrimSpace(utils.FoldDigits(raw))

	return parseFloat(strings.NewReplacer("٫", ".", ",", ".", " ", "").Replace(s))
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}

// Currency resolves the currency code embedded in raw. A blank value is
// assumed to be fallback when fallback is non-empty.
func Currency(m *mapping.Mappings, raw, fallback string) (string, string) {
	if utils.IsBlank(raw) {
		if fallback != "" {
			return fallback, CurrencyAssumed
		}

		return "", CurrencyMissing
	}

	if code, ok := m.FindCurrency(raw); ok {
		return code, CurrencyRecognized
	}

	return strings.ToUpper(strings.TrimSpace(raw)), CurrencyUnrecognized
}

// Address cleans whitespace and edge punctuation and grades the result.
func Address(raw string) (string, string) {
	if utils.IsBlank(raw) {
		return "", AddressMissing
	}

	addr := addressEdgePattern.ReplaceAllString(utils.NormalizeWhitespace(raw), "")

	switch {
	case len([]rune(addr)) < 5:
		return addr, AddressTooShort
	case !utils.HasDigit(addr):
		return addr, AddressNoNumber
	default:
		return addr, AddressValid
	}
}

// AddressComponents extracts building, block, apartment and street.
func AddressComponents(addr string) models.AddressParts {
	if addr == "" {
		return models.AddressParts{}
	}

	addr = utils.FoldDigits(addr)

	return models.AddressParts{
		Building:  firstGroup(buildingPattern, addr),
		Block:     firstGroup(blockPattern, addr),
		Apartment: firstGroup(apartmentPattern, addr),
		Street:    strings.TrimSpace(firstGroup(streetPattern, addr)),
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	for _, g := range m[min(1, len(m)):] {
		if g != "" {
			return g
		}
	}

	return ""
}

// City collapses whitespace and title-cases Latin words.
func City(raw string) string {
	if utils.IsBlank(raw) {
		return ""
	}

	return utils.TitleWords(raw)
}

// SalesRep title-cases a rep name.
func SalesRep(raw string) string {
	if utils.IsBlank(raw) {
		return ""
	}

	return utils.TitleWords(raw)
}

// Notes collapses whitespace and lowercases.
func Notes(raw string) string {
	return StandardizeText(raw)
}
