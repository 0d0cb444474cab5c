package validator

import (
	"fmt"
	"math"
	"sort"

	"egretail/internal/models"
)

// Quality tiers.
const (
	TierExcellent = "Excellent"
	TierGood      = "Good"
	TierFair      = "Fair"
	TierPoor      = "Poor"
)

// CriticalColumns must all be present for a row to count as complete.
var CriticalColumns = []string{
	models.ColOrderID, models.ColOrderDate, models.ColCustomerID, models.ColSKU, models.ColTotal,
}

// QualityReport summarizes a cleaned dataset.
type QualityReport struct {
	RunID        string                   `yaml:"run_id,omitempty"`
	Rows         int                      `yaml:"rows"`
	Uniqueness   Uniqueness               `yaml:"uniqueness"`
	Completeness Completeness             `yaml:"completeness"`
	Accuracy     Accuracy                 `yaml:"accuracy"`
	Validity     Validity                 `yaml:"validity"`
	Consistency  Consistency              `yaml:"consistency"`
	Contact      Contact                  `yaml:"contact"`
	Geo          map[string]int           `yaml:"geo_flags"`
	Stages       map[string]models.Counts `yaml:"stages,omitempty"`
	Score        Score                    `yaml:"score"`
}

// Uniqueness of the resolved order identifier.
type Uniqueness struct {
	UniqueOrderIDs    int `yaml:"unique_order_ids"`
	DuplicatedRawRows int `yaml:"duplicated_raw_rows"`
	MissingRawRows    int `yaml:"missing_raw_rows"`
}

// Completeness counts absent values per critical column.
type Completeness struct {
	Missing      map[string]int `yaml:"missing"`
	CompleteRows int            `yaml:"complete_rows"`
}

// Accuracy re-checks derived arithmetic.
type Accuracy struct {
	SubtotalDiff        float64 `yaml:"subtotal_diff"`
	DeliveryBeforeOrder int     `yaml:"delivery_before_order"`
}

// Validity counts rule outcomes.
type Validity struct {
	Failures      map[string]int `yaml:"failures"`
	Passing       int            `yaml:"passing"`
	ExtremeTotals int            `yaml:"extreme_totals"`
	CappedPrices  int            `yaml:"capped_prices"`
	ValidDelivery int            `yaml:"valid_or_unknown_delivery"`
}

// Consistency lists the distinct values of standardized columns.
type Consistency struct {
	Governorates []string `yaml:"governorates"`
	Currencies   []string `yaml:"currencies"`
	Genders      []string `yaml:"genders"`
	ReturnFlags  []string `yaml:"return_flags"`
}

// Contact counts valid phone numbers and emails.
type Contact struct {
	ValidPhones   int `yaml:"valid_phones"`
	InvalidPhones int `yaml:"invalid_phones"`
	ValidEmails   int `yaml:"valid_emails"`
	InvalidEmails int `yaml:"invalid_emails"`
}

// Score is the unweighted mean of five percentages.
type Score struct {
	Uniqueness   float64 `yaml:"uniqueness"`
	Completeness float64 `yaml:"completeness"`
	BusinessRule float64 `yaml:"business_rules"`
	DateValidity float64 `yaml:"date_validity"`
	Confidence   float64 `yaml:"standardization_confidence"`
	Overall      float64 `yaml:"overall"`
	Tier         string  `yaml:"tier"`
}

// Assess builds the quality report. confidence is the fixed
// standardization score in percent.
func Assess(ds *models.Dataset, confidence float64) *QualityReport {
	n := ds.Len()
	r := &QualityReport{
		Rows:         n,
		Completeness: Completeness{Missing: make(map[string]int)},
		Validity:     Validity{Failures: make(map[string]int)},
		Geo:          make(map[string]int),
	}

	ids := make(map[string]bool, n)
	govs, currencies, genders, flags := set{}, set{}, set{}, set{}

	for _, o := range ds.Orders {
		ids[o.OrderID] = true

		if o.OrderIDDuplicated {
			r.Uniqueness.DuplicatedRawRows++
		}

		if o.OrderIDWasMissing {
			r.Uniqueness.MissingRawRows++
		}

		if missing := missingCritical(o); len(missing) == 0 {
			r.Completeness.CompleteRows++
		} else {
			for _, c := range missing {
				r.Completeness.Missing[c]++
			}
		}

		if o.UnitPriceCapped != nil && o.Quantity != nil && o.SubtotalCapped != nil {
			r.Accuracy.SubtotalDiff += math.Abs((*o.UnitPriceCapped)*(*o.Quantity) - *o.SubtotalCapped)
		}

		if o.DeliveryBeforeOrder() {
			r.Accuracy.DeliveryBeforeOrder++
		}

		r.tallyValidity(o)

		govs.add(o.Governorate)
		currencies.add(o.Currency)
		genders.add(o.Gender)
		flags.add(o.ReturnFlag)

		r.Contact.tally(o)

		if o.InvestigationFlag != "" {
			r.Geo[o.InvestigationFlag]++
		}
	}

	r.Uniqueness.UniqueOrderIDs = len(ids)
	r.Consistency = Consistency{
		Governorates: govs.sorted(),
		Currencies:   currencies.sorted(),
		Genders:      genders.sorted(),
		ReturnFlags:  flags.sorted(),
	}
	r.Score = score(r, confidence)

	return r
}

func (r *QualityReport) tallyValidity(o *models.Order) {
	if !o.ShippingMakesSense {
		r.Validity.Failures[FailShipping]++
	}

	if !o.DeliveryMakesSense {
		r.Validity.Failures[FailDelivery]++
	}

	if !o.ReturnDataConsistent {
		r.Validity.Failures[FailReturns]++
	}

	if valid := o.ValidDelivery(); valid == nil || *valid {
		r.Validity.ValidDelivery++
	} else {
		r.Validity.Failures[FailDeliveryDates]++
	}

	if o.DiscountRate > 1 {
		r.Validity.Failures[FailDiscount]++
	}

	if o.Quantity == nil || *o.Quantity <= 0 {
		r.Validity.Failures[FailQuantity]++
	}

	if o.PassesBusinessLogic {
		r.Validity.Passing++
	}

	if o.TotalExtreme {
		r.Validity.ExtremeTotals++
	}

	if o.PriceWasCapped {
		r.Validity.CappedPrices++
	}
}

func (c *Contact) tally(o *models.Order) {
	if o.PhoneValid {
		c.ValidPhones++
	} else {
		c.InvalidPhones++
	}

	if o.EmailValid {
		c.ValidEmails++
	} else {
		c.InvalidEmails++
	}
}

func missingCritical(o *models.Order) []string {
	var missing []string

	present := map[string]bool{
		models.ColOrderID:    o.OrderID != "",
		models.ColOrderDate:  o.OrderDate != nil,
		models.ColCustomerID: o.CustomerID != "",
		models.ColSKU:        o.SKU != "",
		models.ColTotal:      o.Total != nil,
	}

	for _, c := range CriticalColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}

	return missing
}

func score(r *QualityReport, confidence float64) Score {
	pct := func(k int) float64 {
		if r.Rows == 0 {
			return 0
		}

		return float64(k) / float64(r.Rows) * 100
	}

	s := Score{
		Uniqueness:   pct(r.Uniqueness.UniqueOrderIDs),
		Completeness: pct(r.Completeness.CompleteRows),
		BusinessRule: pct(r.Validity.Passing),
		DateValidity: pct(r.Validity.ValidDelivery),
		Confidence:   confidence,
	}

	s.Overall = (s.Uniqueness + s.Completeness + s.BusinessRule + s.DateValidity + s.Confidence) / 5
	s.Tier = TierOf(s.Overall)

	return s
}

// TierOf maps an overall score to its tier.
func TierOf(overall float64) string {
	switch {
	case overall >= 90:
		return TierExcellent
	case overall >= 80:
		return TierGood
	case overall >= 70:
		return TierFair
	default:
		return TierPoor
	}
}

// String returns a one-line summary of the report.
func (r *QualityReport) String() string {
	status := "✅"
	if r.Score.Tier == TierFair || r.Score.Tier == TierPoor {
		status = "⚠️"
	}

	return fmt.Sprintf(
		"%s %s %.1f%% | Rows: %d | Unique IDs: %d | Complete: %d | Passing rules: %d",
		status,
		r.Score.Tier,
		r.Score.Overall,
		r.Rows,
		r.Uniqueness.UniqueOrderIDs,
		r.Completeness.CompleteRows,
		r.Validity.Passing,
	)
}

type set map[string]bool

func (s set) add(v string) {
	s[v] = true
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}
