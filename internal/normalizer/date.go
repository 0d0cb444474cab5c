package normalizer

import (
	"regexp"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"egretail/internal/mapping"
	"egretail/pkg/utils"
)

// Date status labels.
const (
	DateValid       = "valid"
	DateMissing     = "missing"
	DateUnparseable = "unparseable"
)

// Numeric layouts, day-first before month-first, then year-first.
var numericLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04:05",
	"1/2/2006",
	"1-2-2006",
	"1-2-06",
	"1/2/2006 15:04:05",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
}

// Layouts for dates with a month name, after separators became spaces.
var textLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2006 January 2",
	"2006 Jan 2",
	"2 January 06",
	"2 Jan 06",
	"Monday 2 January 2006",
	"Mon 2 Jan 2006",
	"Monday January 2 2006",
	"Mon Jan 2 2006",
}

var (
	excelSerialPattern = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
	letterPattern      = regexp.MustCompile(`[A-Za-z]`)
	textSepPattern     = regexp.MustCompile(`[-/,.،]+`)
)

// DateParser parses the mixed-format, mixed-script dates of the extract.
type DateParser struct {
	months *mapping.Mappings
}

// NewDateParser uses m's month table for non-English month names.
func NewDateParser(m *mapping.Mappings) *DateParser {
	return &DateParser{months: m}
}

// Parse returns the date and a status label. Failure is never an error.
func (p *DateParser) Parse(raw string) (*time.Time, string) {
	if utils.IsBlank(raw) {
		return nil, DateMissing
	}

	s := utils.NormalizeWhitespace(utils.FoldDigits(raw))

	if excelSerialPattern.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(v, false); err == nil {
				t = t.UTC()
				return &t, DateValid
			}
		}
	}

	if p.months != nil {
		s = utils.NormalizeWhitespace(p.months.ReplaceMonths(s))
	}

	if t, ok := parseLayouts(s, numericLayouts); ok {
		return &t, DateValid
	}

	if letterPattern.MatchString(s) {
		text := utils.NormalizeWhitespace(textSepPattern.ReplaceAllString(s, " "))
		if t, ok := parseLayouts(text, textLayouts); ok {
			return &t, DateValid
		}
	}

	return nil, DateUnparseable
}

func parseLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}
