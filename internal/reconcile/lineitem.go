package reconcile

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// Incoming is a validated add-to-cart request after parent resolution and
// sample detection. Area is zero when none was supplied.
type Incoming struct {
	Key        Key
	Quantity   int
	Area       decimal.Decimal
	Price      decimal.Decimal
	HasPrice   bool
	SampleType string
}

// NewLineItem builds the line item for an entry that is not yet in the cart.
//
// Samples carry _is_sample and sample_type only. Area-priced items carry
// _m2_quantity, plus price, subtotal and total when a unit price is known.
func NewLineItem(in Incoming) woocommerce.LineItemInput {
	item := woocommerce.LineItemInput{
		ProductID:   in.Key.ProductID,
		VariationID: in.Key.VariationID,
		Quantity:    in.Quantity,
	}

	if in.Key.Sample {
		sampleType := in.SampleType
		if sampleType == "" {
			sampleType = SampleFree
		}
		item.MetaData = []woocommerce.MetaData{
			{Key: MetaSample, Value: "1"},
			{Key: MetaSampleType, Value: sampleType},
		}
		return item
	}

	if in.Area.IsPositive() {
		area := model.RoundArea(in.Area)
		item.MetaData = []woocommerce.MetaData{{Key: MetaArea, Value: areaValue(area)}}
		if in.HasPrice {
			setPricing(&item, in.Price, area)
		}
	}
	return item
}

// Merge folds an incoming add into the matching stored line item.
//
// Quantities and areas add up (area rounded to 3dp). The per-m² price is
// recovered as subtotal ÷ old area, the same way the read path shows it, so
// re-adding never reprices the line; subtotal and total become that price ×
// new area. Entries without area use the stored price × new quantity.
// Samples keep only their sample metadata. The result has no line id: it
// goes into a recreated order.
func Merge(existing woocommerce.LineItem, in Incoming) woocommerce.LineItemInput {
	quantity := existing.Quantity + in.Quantity
	oldArea := AreaOf(existing.MetaData)
	area := model.RoundArea(oldArea.Add(in.Area))
	sample := IsSampleMeta(existing.MetaData)

	meta := FilterMeta(existing.MetaData)
	if _, ok := MetaValue(meta, MetaArea); !sample && (ok || in.Area.IsPositive()) {
		meta = SetMeta(meta, MetaArea, areaValue(area))
	}

	item := woocommerce.LineItemInput{
		ProductID:   existing.ProductID,
		VariationID: existing.VariationID,
		Quantity:    quantity,
		MetaData:    meta,
	}

	if sample {
		return item
	}
	unit, multiplier := unitPrice(existing, oldArea), area
	if !area.IsPositive() {
		unit, multiplier = existing.Price.Decimal, decimal.NewFromInt(int64(quantity))
	}
	if unit.IsPositive() {
		setPricing(&item, unit, multiplier)
	}
	return item
}

// Carry copies a stored line item into a recreated order unchanged, apart
// from the metadata allow-list. Samples never carry price fields.
func Carry(existing woocommerce.LineItem) woocommerce.LineItemInput {
	item := woocommerce.LineItemInput{
		ProductID:   existing.ProductID,
		VariationID: existing.VariationID,
		Quantity:    existing.Quantity,
		MetaData:    FilterMeta(existing.MetaData),
	}
	if IsSampleMeta(existing.MetaData) {
		return item
	}
	if existing.Price.IsPositive() {
		item.Price = priceValue(existing.Price.Decimal)
	}
	item.Subtotal = existing.Subtotal
	item.Total = existing.Total
	return item
}

// ApplyDelta adjusts a stored line item in place by quantity and area
// deltas. The result keeps the line id and the allow-listed meta ids so the
// upstream updates rather than appends.
//
// When the area changes on a priced non-sample item, subtotal and total are
// rescaled from the unit price recovered as subtotal ÷ old area.
func ApplyDelta(existing woocommerce.LineItem, quantityDelta int, areaDelta decimal.Decimal, hasArea bool) woocommerce.LineItemInput {
	item := woocommerce.LineItemInput{
		ID:          existing.ID,
		ProductID:   existing.ProductID,
		VariationID: existing.VariationID,
		Quantity:    existing.Quantity + quantityDelta,
	}

	var meta []woocommerce.MetaData
	for _, m := range existing.MetaData {
		if allowedMeta[m.Key] {
			meta = append(meta, m)
		}
	}

	if hasArea {
		oldArea := AreaOf(existing.MetaData)
		newArea := model.RoundArea(oldArea.Add(areaDelta))
		meta = SetMeta(meta, MetaArea, areaValue(newArea))

		if !IsSampleMeta(existing.MetaData) {
			unit := unitPrice(existing, oldArea)
			if unit.IsPositive() && newArea.IsPositive() {
				setPricing(&item, unit, newArea)
			}
		}
	}

	item.MetaData = meta
	return item
}

// unitPrice recovers the per-m² price of a stored line. Subtotal is what the
// store actually charged, so it wins over the stored price field.
func unitPrice(item woocommerce.LineItem, area decimal.Decimal) decimal.Decimal {
	if area.IsPositive() {
		subtotal := model.ParseDecimal(item.Subtotal)
		if subtotal.IsPositive() {
			return subtotal.Div(area)
		}
	}
	return item.Price.Decimal
}

func setPricing(item *woocommerce.LineItemInput, unit, multiplier decimal.Decimal) {
	line := model.FormatMoney(unit.Mul(multiplier))
	item.Price = priceValue(unit)
	item.Subtotal = line
	item.Total = line
}

// priceValue renders a unit price for the order payload. Recovered prices
// are quotients, so they are cut to 6 places.
func priceValue(d decimal.Decimal) json.Number {
	return json.Number(d.Round(6).String())
}
