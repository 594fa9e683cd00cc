package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"storefront-gateway/internal/woocommerce"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amount(s string) woocommerce.Amount {
	return woocommerce.Amount{Decimal: dec(s)}
}

func TestKeyMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want bool
	}{
		{"identical", Key{40, 41, false}, Key{40, 41, false}, true},
		{"both without variation", Key{40, 0, false}, Key{40, 0, false}, true},
		{"different product", Key{40, 41, false}, Key{50, 41, false}, false},
		{"different variation", Key{40, 41, false}, Key{40, 42, false}, false},
		{"variation vs none", Key{40, 41, false}, Key{40, 0, false}, false},
		{"sample vs regular", Key{40, 41, true}, Key{40, 41, false}, false},
		{"samples ignore variation", Key{40, 41, true}, Key{40, 42, true}, true},
		{"samples still need product", Key{40, 41, true}, Key{50, 41, true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Matches(tt.b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Matches(tt.a); got != tt.want {
				t.Errorf("Matches() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyOfSampleTruthiness(t *testing.T) {
	for _, v := range []any{true, "1", float64(1), json.Number("1")} {
		item := woocommerce.LineItem{ProductID: 40, MetaData: []woocommerce.MetaData{{Key: MetaSample, Value: v}}}
		if !KeyOf(item).Sample {
			t.Errorf("KeyOf(_is_sample=%#v).Sample = false, want true", v)
		}
	}
	item := woocommerce.LineItem{ProductID: 40, MetaData: []woocommerce.MetaData{{Key: MetaSample, Value: "0"}}}
	if KeyOf(item).Sample {
		t.Error(`KeyOf(_is_sample="0").Sample = true, want false`)
	}
}

func TestFindMatchNewestFirst(t *testing.T) {
	orders := []woocommerce.Order{
		{ID: 2, LineItems: []woocommerce.LineItem{{ID: 20, ProductID: 40, VariationID: 41}}},
		{ID: 1, LineItems: []woocommerce.LineItem{{ID: 10, ProductID: 40, VariationID: 41}}},
	}

	m, ok := FindMatch(orders, Key{ProductID: 40, VariationID: 41})
	if !ok {
		t.Fatal("FindMatch() found nothing")
	}
	if m.Order.ID != 2 || m.Item.ID != 20 {
		t.Errorf("match = order %d item %d, want order 2 item 20", m.Order.ID, m.Item.ID)
	}

	if _, ok := FindMatch(orders, Key{ProductID: 40}); ok {
		t.Error("FindMatch() matched an item with a different variation")
	}
}

func TestDetectSample(t *testing.T) {
	tests := []struct {
		name       string
		explicit   bool
		label, sku string
		wantSample bool
		wantType   string
	}{
		{"explicit", true, "", "", true, SampleFree},
		{"free label", false, "free-sample", "", true, SampleFree},
		{"full size label", false, "full-size-sample", "", true, SampleFullSize},
		{"explicit with full size label", true, "Full-Size-Sample", "", true, SampleFullSize},
		{"sku marker", false, "", "TRAV-SAMPLE", true, SampleFree},
		{"regular", false, "", "TRAV-305", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample, typ := DetectSample(tt.explicit, tt.label, tt.sku)
			if sample != tt.wantSample || typ != tt.wantType {
				t.Errorf("DetectSample() = %v, %q, want %v, %q", sample, typ, tt.wantSample, tt.wantType)
			}
		})
	}
}

func TestFilterMeta(t *testing.T) {
	meta := []woocommerce.MetaData{
		{ID: 1, Key: MetaArea, Value: "1.500"},
		{ID: 2, Key: "_wcpdf_invoice", Value: "x"},
		{ID: 3, Key: MetaSample, Value: "1"},
		{ID: 4, Key: MetaSampleType, Value: SampleFree},
		{ID: 5, Key: "pa_sizemm", Value: "600x600"},
	}

	want := []woocommerce.MetaData{
		{Key: MetaArea, Value: "1.500"},
		{Key: MetaSample, Value: "1"},
		{Key: MetaSampleType, Value: SampleFree},
	}
	if diff := cmp.Diff(want, FilterMeta(meta)); diff != "" {
		t.Errorf("FilterMeta() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLineItem(t *testing.T) {
	tests := []struct {
		name string
		in   Incoming
		want woocommerce.LineItemInput
	}{
		{
			name: "priced area item",
			in:   Incoming{Key: Key{40, 41, false}, Quantity: 4, Area: dec("1.5"), Price: dec("45"), HasPrice: true},
			want: woocommerce.LineItemInput{
				ProductID: 40, VariationID: 41, Quantity: 4,
				Price: "45", Subtotal: "67.50", Total: "67.50",
				MetaData: []woocommerce.MetaData{{Key: MetaArea, Value: json.Number("1.500")}},
			},
		},
		{
			name: "area without price",
			in:   Incoming{Key: Key{40, 41, false}, Quantity: 4, Area: dec("1.5")},
			want: woocommerce.LineItemInput{
				ProductID: 40, VariationID: 41, Quantity: 4,
				MetaData: []woocommerce.MetaData{{Key: MetaArea, Value: json.Number("1.500")}},
			},
		},
		{
			name: "plain unit item",
			in:   Incoming{Key: Key{40, 0, false}, Quantity: 2, Price: dec("10"), HasPrice: true},
			want: woocommerce.LineItemInput{ProductID: 40, Quantity: 2},
		},
		{
			name: "sample drops price and area",
			in:   Incoming{Key: Key{40, 0, true}, Quantity: 1, Area: dec("0.2"), Price: dec("45"), HasPrice: true, SampleType: SampleFullSize},
			want: woocommerce.LineItemInput{
				ProductID: 40, Quantity: 1,
				MetaData: []woocommerce.MetaData{
					{Key: MetaSample, Value: "1"},
					{Key: MetaSampleType, Value: SampleFullSize},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NewLineItem(tt.in)); diff != "" {
				t.Errorf("NewLineItem() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeAdditivity(t *testing.T) {
	existing := woocommerce.LineItem{
		ID: 9, ProductID: 40, VariationID: 41, Quantity: 2,
		Price: amount("22.5"), Subtotal: "45.00", Total: "45.00",
		MetaData: []woocommerce.MetaData{
			{ID: 100, Key: MetaArea, Value: "1.500"},
			{ID: 101, Key: "_reduced_stock", Value: "2"},
		},
	}

	got := Merge(existing, Incoming{Key: Key{40, 41, false}, Quantity: 3, Area: dec("0.750")})

	want := woocommerce.LineItemInput{
		ProductID: 40, VariationID: 41, Quantity: 5,
		Price: "30", Subtotal: "67.50", Total: "67.50",
		MetaData: []woocommerce.MetaData{{Key: MetaArea, Value: json.Number("2.250")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeKeepsAreaPrice(t *testing.T) {
	// WooCommerce reports price as total ÷ quantity, a per-tile figure.
	existing := woocommerce.LineItem{
		ID: 9, Name: "Travertine - 610x406", ProductID: 40, VariationID: 41, Quantity: 5,
		Price: amount("13.5"), Subtotal: "67.50", Total: "67.50",
		MetaData: []woocommerce.MetaData{{Key: MetaArea, Value: "2.250"}},
	}
	before := Derive(501, existing)

	merged := Merge(existing, Incoming{Key: Key{40, 41, false}, Quantity: 3, Area: dec("0.750")})
	if merged.Subtotal != "90.00" || merged.Total != "90.00" {
		t.Errorf("Subtotal/Total = %s/%s, want 90.00/90.00", merged.Subtotal, merged.Total)
	}

	after := Derive(501, woocommerce.LineItem{
		ID: 9, Name: existing.Name, ProductID: merged.ProductID, VariationID: merged.VariationID,
		Quantity: merged.Quantity, Price: woocommerce.Amount{Decimal: dec("11.25")},
		Subtotal: merged.Subtotal, Total: merged.Total, MetaData: merged.MetaData,
	})
	if before.DisplayPrice != "30.00" || after.DisplayPrice != before.DisplayPrice {
		t.Errorf("DisplayPrice before/after merge = %s/%s, want 30.00/30.00", before.DisplayPrice, after.DisplayPrice)
	}
}

func TestMergeWithoutArea(t *testing.T) {
	existing := woocommerce.LineItem{ProductID: 40, Quantity: 2, Price: amount("12.5"), Subtotal: "25.00", Total: "25.00"}

	got := Merge(existing, Incoming{Key: Key{40, 0, false}, Quantity: 1})

	if got.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", got.Quantity)
	}
	if got.Subtotal != "37.50" || got.Total != "37.50" {
		t.Errorf("Subtotal/Total = %s/%s, want 37.50/37.50", got.Subtotal, got.Total)
	}
	if len(got.MetaData) != 0 {
		t.Errorf("MetaData = %+v, want none", got.MetaData)
	}
}

func TestMergeSampleStaysUnpriced(t *testing.T) {
	existing := woocommerce.LineItem{
		ProductID: 40, VariationID: 41, Quantity: 1, Price: amount("0"),
		MetaData: []woocommerce.MetaData{
			{Key: MetaSample, Value: "1"},
			{Key: MetaSampleType, Value: SampleFree},
		},
	}

	got := Merge(existing, Incoming{Key: Key{40, 99, true}, Quantity: 1})

	if got.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", got.Quantity)
	}
	if got.Price != "" || got.Subtotal != "" || got.Total != "" {
		t.Errorf("sample carries price fields: %+v", got)
	}

	withArea := Merge(existing, Incoming{Key: Key{40, 99, true}, Quantity: 1, Area: dec("0.5")})
	if _, ok := MetaValue(withArea.MetaData, MetaArea); ok {
		t.Errorf("sample gained %s: %+v", MetaArea, withArea.MetaData)
	}
	want := []woocommerce.MetaData{
		{Key: MetaSample, Value: "1"},
		{Key: MetaSampleType, Value: SampleFree},
	}
	if diff := cmp.Diff(want, withArea.MetaData); diff != "" {
		t.Errorf("sample MetaData mismatch (-want +got):\n%s", diff)
	}
}

func TestCarry(t *testing.T) {
	regular := woocommerce.LineItem{
		ID: 9, ProductID: 40, Quantity: 2, Price: amount("30"), Subtotal: "60.00", Total: "60.00",
		MetaData: []woocommerce.MetaData{{ID: 1, Key: "_foreign", Value: "x"}},
	}
	got := Carry(regular)
	want := woocommerce.LineItemInput{ProductID: 40, Quantity: 2, Price: "30", Subtotal: "60.00", Total: "60.00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Carry(regular) mismatch (-want +got):\n%s", diff)
	}

	sample := woocommerce.LineItem{
		ProductID: 40, Quantity: 1, Subtotal: "0.00", Total: "0.00",
		MetaData: []woocommerce.MetaData{{Key: MetaSample, Value: "1"}},
	}
	if got := Carry(sample); got.Subtotal != "" || got.Total != "" || got.Price != "" {
		t.Errorf("Carry(sample) carries price fields: %+v", got)
	}
}

func TestApplyDelta(t *testing.T) {
	existing := woocommerce.LineItem{
		ID: 9, ProductID: 40, VariationID: 41, Quantity: 4,
		Price: amount("11.25"), Subtotal: "45.00", Total: "45.00",
		MetaData: []woocommerce.MetaData{
			{ID: 100, Key: MetaArea, Value: "1.000"},
			{ID: 101, Key: "_foreign", Value: "x"},
		},
	}

	got := ApplyDelta(existing, 2, dec("0.5"), true)

	want := woocommerce.LineItemInput{
		ID: 9, ProductID: 40, VariationID: 41, Quantity: 6,
		Price: "45", Subtotal: "67.50", Total: "67.50",
		MetaData: []woocommerce.MetaData{{ID: 100, Key: MetaArea, Value: json.Number("1.500")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyDelta() mismatch (-want +got):\n%s", diff)
	}

	qtyOnly := ApplyDelta(existing, -1, decimal.Zero, false)
	if qtyOnly.Quantity != 3 || qtyOnly.Subtotal != "" {
		t.Errorf("ApplyDelta(qty only) = %+v, want quantity 3 and no pricing", qtyOnly)
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name             string
		item             woocommerce.LineItem
		wantSample       bool
		wantDisplayQty   string
		wantDisplayPrice string
	}{
		{
			name: "area priced",
			item: woocommerce.LineItem{
				ID: 9, Name: "Travertine - 610x406", ProductID: 40, VariationID: 41, Quantity: 5,
				Price: amount("13.5"), Subtotal: "67.50", Total: "67.50",
				MetaData: []woocommerce.MetaData{{Key: MetaArea, Value: "2.250"}},
			},
			wantDisplayQty:   "2.25",
			wantDisplayPrice: "30.00",
		},
		{
			name: "sample by meta",
			item: woocommerce.LineItem{
				Name: "Travertine", Quantity: 1, Subtotal: "0.00", Total: "0.00",
				MetaData: []woocommerce.MetaData{{Key: MetaSample, Value: true}, {Key: MetaArea, Value: 0.2}},
			},
			wantSample:       true,
			wantDisplayQty:   "1",
			wantDisplayPrice: "0.00",
		},
		{
			name:             "sample by sku after meta stripped",
			item:             woocommerce.LineItem{Name: "Travertine", SKU: "TRAV-SAMPLE", Quantity: 2, Subtotal: "0", Total: "0"},
			wantSample:       true,
			wantDisplayQty:   "2",
			wantDisplayPrice: "0.00",
		},
		{
			name:             "unit priced",
			item:             woocommerce.LineItem{Name: "Grout", Quantity: 3, Price: amount("4.5"), Subtotal: "13.50", Total: "13.50"},
			wantDisplayQty:   "3",
			wantDisplayPrice: "4.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(501, tt.item)
			if v.IsSample != tt.wantSample {
				t.Errorf("IsSample = %v, want %v", v.IsSample, tt.wantSample)
			}
			if string(v.DisplayQuantity) != tt.wantDisplayQty {
				t.Errorf("DisplayQuantity = %s, want %s", v.DisplayQuantity, tt.wantDisplayQty)
			}
			if v.DisplayPrice != tt.wantDisplayPrice {
				t.Errorf("DisplayPrice = %s, want %s", v.DisplayPrice, tt.wantDisplayPrice)
			}
			if v.OrderID != 501 {
				t.Errorf("OrderID = %d, want 501", v.OrderID)
			}

			again := Derive(501, v.LineItem())
			if diff := cmp.Diff(v, again); diff != "" {
				t.Errorf("Derive is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestDeriveParentName(t *testing.T) {
	v := Derive(1, woocommerce.LineItem{Name: "Tumbled Travertine - 305x305x10 - Honed"})
	if v.ParentName != "Tumbled Travertine" {
		t.Errorf("ParentName = %q, want Tumbled Travertine", v.ParentName)
	}
}
