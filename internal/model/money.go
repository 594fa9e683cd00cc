package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// AreaPlaces is the precision area (m²) quantities are stored at.
const AreaPlaces = 3

// ParseDecimal parses a WooCommerce amount that may arrive as a JSON string,
// a JSON number or a Go value decoded into interface{}.
// Unparseable or empty input yields zero.
// Examples: "12.50" → 12.5, 3 → 3, nil → 0
func ParseDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case bool:
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

// RoundArea rounds an area quantity to 3 decimal places.
func RoundArea(d decimal.Decimal) decimal.Decimal {
	return d.Round(AreaPlaces)
}

// FormatMoney renders an amount with exactly two decimals, the way
// WooCommerce stores subtotal and total.
// Examples: 45.5 → "45.50", 0 → "0.00"
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FromMinorUnits converts a Store API amount (string of minor units) to a
// major-unit decimal using the currency's minor unit.
// Examples: ("8900", 2) → 89.00, ("", 2) → 0
func FromMinorUnits(s string, minorUnit int) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(int32(-minorUnit))
}
