package storecart

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/model"
)

var mmPerM2 = decimal.NewFromInt(1_000_000)

// sizeAttribute is the variation attribute carrying tile dimensions.
const sizeAttribute = "pa_sizemm"

// parseDimensions reads "WxH" or "WxHxD" in millimetres and returns width
// and height. Each part may carry a unit suffix ("305mm").
func parseDimensions(s string) (w, h decimal.Decimal, ok bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) < 2 {
		return decimal.Zero, decimal.Zero, false
	}
	w, okW := leadingNumber(parts[0])
	h, okH := leadingNumber(parts[1])
	if !okW || !okH || !w.IsPositive() || !h.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return w, h, true
}

func leadingNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s[:end])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// tileArea is the area of one tile in m².
func tileArea(w, h decimal.Decimal) decimal.Decimal {
	return w.Mul(h).Div(mmPerM2)
}

// areaFromVariation derives the m² a quantity of tiles covers from the
// selected size attribute: pa_sizemm, or any attribute named like "size".
func areaFromVariation(variation []model.VariationValue, quantity int) (decimal.Decimal, bool) {
	for _, v := range variation {
		if v.Attribute != sizeAttribute && !strings.Contains(strings.ToLower(v.Attribute), "size") {
			continue
		}
		if v.Value == "" {
			continue
		}
		w, h, ok := parseDimensions(v.Value)
		if !ok {
			return decimal.Zero, false
		}
		return tileArea(w, h).Mul(decimal.NewFromInt(int64(quantity))), true
	}
	return decimal.Zero, false
}
