package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// View is a cart line as the storefront displays it.
type View struct {
	ID              int                    `json:"id"`
	Name            string                 `json:"name"`
	ParentName      string                 `json:"parent_name"`
	ProductID       int                    `json:"product_id"`
	VariationID     int                    `json:"variation_id"`
	Quantity        int                    `json:"quantity"`
	SKU             string                 `json:"sku"`
	IsSample        bool                   `json:"is_sample"`
	M2Quantity      json.Number            `json:"m2_quantity"`
	DisplayQuantity json.Number            `json:"display_quantity"`
	Price           string                 `json:"price"`
	DisplayPrice    string                 `json:"display_price"`
	Subtotal        string                 `json:"subtotal"`
	Total           string                 `json:"total"`
	MetaData        []woocommerce.MetaData `json:"meta_data"`
	OrderID         int                    `json:"order_id"`
}

// Derive computes the display view of a stored line item.
//
// The store recalculates subtotal from its own pricing rules, so for
// area-priced items the displayed unit price is subtotal ÷ area rather than
// the stored price field. Samples always display their unit count.
func Derive(orderID int, item woocommerce.LineItem) View {
	sample := IsSampleMeta(item.MetaData) ||
		strings.Contains(item.SKU, "SAMPLE") ||
		strings.Contains(item.Name, "Sample")
	area := AreaOf(item.MetaData)
	subtotal := model.ParseDecimal(item.Subtotal).Round(2)

	displayQuantity := decimal.NewFromInt(int64(item.Quantity))
	price := item.Price.Decimal
	if !sample && area.IsPositive() {
		displayQuantity = area
		price = subtotal.Div(area)
	}

	parent, _, _ := strings.Cut(item.Name, " - ")

	return View{
		ID:              item.ID,
		Name:            item.Name,
		ParentName:      parent,
		ProductID:       item.ProductID,
		VariationID:     item.VariationID,
		Quantity:        item.Quantity,
		SKU:             item.SKU,
		IsSample:        sample,
		M2Quantity:      json.Number(area.String()),
		DisplayQuantity: json.Number(displayQuantity.String()),
		Price:           model.FormatMoney(price),
		DisplayPrice:    model.FormatMoney(price),
		Subtotal:        model.FormatMoney(subtotal),
		Total:           model.FormatMoney(model.ParseDecimal(item.Total)),
		MetaData:        item.MetaData,
		OrderID:         orderID,
	}
}

// DeriveOrders derives views for every line item of every order.
func DeriveOrders(orders []woocommerce.Order) []View {
	views := []View{}
	for _, o := range orders {
		for _, item := range o.LineItems {
			views = append(views, Derive(o.ID, item))
		}
	}
	return views
}

// LineItem maps a view back onto a stored line item. Deriving the result
// yields the same view.
func (v View) LineItem() woocommerce.LineItem {
	return woocommerce.LineItem{
		ID:          v.ID,
		Name:        v.Name,
		ProductID:   v.ProductID,
		VariationID: v.VariationID,
		Quantity:    v.Quantity,
		SKU:         v.SKU,
		Price:       woocommerce.Amount{Decimal: model.ParseDecimal(v.Price)},
		Subtotal:    v.Subtotal,
		Total:       v.Total,
		MetaData:    v.MetaData,
	}
}
