package monetary

import (
	"strings"

	"egretail/internal/normalizer"
	"egretail/pkg/utils"
)

// Discount kinds.
const (
	DiscountNone    = "none"
	DiscountPercent = "percent"
	DiscountRate    = "rate"
	DiscountFixed   = "fixed_amount"
	DiscountInvalid = "invalid"
)

// DiscountRateOf converts a raw discount cell into a rate in [0, 1].
// Amounts of 1 or more are fixed discounts in the order currency and are
// divided by the EGP subtotal after conversion with fx.
func DiscountRateOf(raw string, fx, subtotal *float64) (float64, string) {
	s := strings.TrimSpace(raw)
	if utils.IsBlank(s) || s == "0" {
		return 0, DiscountNone
	}

	if strings.Contains(s, "%") {
		v := normalizer.Number(strings.ReplaceAll(s, "%", ""))
		if v == nil {
			return 0, DiscountInvalid
		}

		return clamp(*v / 100), DiscountPercent
	}

	v := normalizer.Number(s)
	switch {
	case v == nil || *v < 0:
		return 0, DiscountInvalid
	case *v == 0:
		return 0, DiscountNone
	case *v < 1:
		return *v, DiscountRate
	}

	if subtotal == nil || *subtotal == 0 || fx == nil {
		return 0, DiscountFixed
	}

	return clamp(*v * *fx / *subtotal), DiscountFixed
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
