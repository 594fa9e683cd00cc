package reconcile

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// Metadata keys the gateway owns.
const (
	MetaArea       = "_m2_quantity"
	MetaSample     = "_is_sample"
	MetaSampleType = "sample_type"
)

// allowedMeta is the set of keys kept when a line item is rewritten.
// Everything else is stripped.
var allowedMeta = map[string]bool{
	MetaArea:       true,
	MetaSample:     true,
	MetaSampleType: true,
}

// FilterMeta keeps only allow-listed entries. Stored meta ids belong to the
// old order and are dropped.
func FilterMeta(meta []woocommerce.MetaData) []woocommerce.MetaData {
	var out []woocommerce.MetaData
	for _, m := range meta {
		if allowedMeta[m.Key] {
			out = append(out, woocommerce.MetaData{Key: m.Key, Value: m.Value})
		}
	}
	return out
}

// MetaValue returns the first value stored under key.
func MetaValue(meta []woocommerce.MetaData, key string) (any, bool) {
	for _, m := range meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// AreaOf returns the _m2_quantity of a line item, zero when absent or not
// numeric.
func AreaOf(meta []woocommerce.MetaData) decimal.Decimal {
	v, _ := MetaValue(meta, MetaArea)
	return model.ParseDecimal(v)
}

// SetMeta replaces the value under key, or appends it.
func SetMeta(meta []woocommerce.MetaData, key string, value any) []woocommerce.MetaData {
	for i := range meta {
		if meta[i].Key == key {
			meta[i].Value = value
			return meta
		}
	}
	return append(meta, woocommerce.MetaData{Key: key, Value: value})
}

// areaValue is how an area is written to metadata: a JSON number with
// three decimals.
func areaValue(d decimal.Decimal) json.Number {
	return json.Number(model.RoundArea(d).StringFixed(model.AreaPlaces))
}
