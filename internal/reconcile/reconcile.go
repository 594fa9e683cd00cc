// Package reconcile provides the cart algebra for carts stored as pending
// WooCommerce orders: merge-key identity, the metadata allow-list, line item
// construction and merging, and the read-path derivation of display values.
// Everything here is pure; the cart package performs the upstream calls.
package reconcile

import (
	"strings"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// Sample types recorded in sample_type metadata.
const (
	SampleFree     = "free-sample"
	SampleFullSize = "full-size-sample"
)

// Key identifies a cart entry. Two line items are the same entry when their
// keys match (see Matches). VariationID is 0 when absent.
type Key struct {
	ProductID   int
	VariationID int
	Sample      bool
}

// Matches reports whether k and o denote the same cart entry.
// Product ids must match. When both sides are samples that is enough;
// otherwise variation ids and sample flags must match too.
func (k Key) Matches(o Key) bool {
	if k.ProductID != o.ProductID {
		return false
	}
	if k.Sample && o.Sample {
		return true
	}
	return k.VariationID == o.VariationID && k.Sample == o.Sample
}

// KeyOf returns the merge key of a stored line item.
func KeyOf(item woocommerce.LineItem) Key {
	return Key{
		ProductID:   item.ProductID,
		VariationID: item.VariationID,
		Sample:      IsSampleMeta(item.MetaData),
	}
}

// Match locates a line item in a set of orders.
type Match struct {
	Order *woocommerce.Order
	Item  *woocommerce.LineItem
}

// FindMatch returns the first line item across orders whose key matches k.
// Orders are scanned in the given order, so callers pass newest first.
func FindMatch(orders []woocommerce.Order, k Key) (Match, bool) {
	for i := range orders {
		for j := range orders[i].LineItems {
			if KeyOf(orders[i].LineItems[j]).Matches(k) {
				return Match{Order: &orders[i], Item: &orders[i].LineItems[j]}, true
			}
		}
	}
	return Match{}, false
}

// FindItem returns the line item with the given line id across orders.
func FindItem(orders []woocommerce.Order, itemID int) (Match, bool) {
	for i := range orders {
		for j := range orders[i].LineItems {
			if orders[i].LineItems[j].ID == itemID {
				return Match{Order: &orders[i], Item: &orders[i].LineItems[j]}, true
			}
		}
	}
	return Match{}, false
}

// DetectSample classifies an incoming add request. The storefront flags
// samples explicitly, or sends a sample marker in place of a variation id,
// or uses a SKU containing SAMPLE.
//
// Examples:
//
//	(true, "", "")                   → true, "free-sample"
//	(false, "full-size-sample", "")  → true, "full-size-sample"
//	(false, "", "TRAV-SAMPLE-01")    → true, "free-sample"
func DetectSample(explicit bool, variationLabel, sku string) (bool, string) {
	label := strings.ToLower(variationLabel)
	fullSize := strings.Contains(label, SampleFullSize)

	sample := explicit ||
		fullSize ||
		strings.Contains(label, SampleFree) ||
		strings.Contains(sku, "SAMPLE")
	if !sample {
		return false, ""
	}
	if fullSize {
		return true, SampleFullSize
	}
	return true, SampleFree
}

// IsSampleMeta reports whether metadata carries a truthy _is_sample.
func IsSampleMeta(meta []woocommerce.MetaData) bool {
	v, ok := MetaValue(meta, MetaSample)
	return ok && model.Truthy(v)
}
