package shipping

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-gateway/internal/woocommerce"
)

const flexibleShipping = "flexible_shipping_single"

// productLine restricts methods whose title starts with prefix to carts
// holding a product whose shipping class, category or slug contains one of
// keywords.
type productLine struct {
	prefix   string
	keywords []string
}

var productLines = []productLine{
	{"Moulding -", []string{"moulding", "molding"}},
	{"Jerusalem -", []string{"jerusalem"}},
	{"Vanity Tops -", []string{"vanity", "vanity-top", "vanity-tops"}},
	{"Brazilian -", []string{"brazilian"}},
	{"Slab -", []string{"slab"}},
	{"LTP -", []string{"ltp"}},
}

// hiddenTitles are never offered, whatever the zone configures.
var hiddenTitles = []string{"next day"}

// weightBands price Flexible Shipping methods that are not set up for
// per-kg costing. A band applies below its limit.
var weightBands = []struct {
	below decimal.Decimal
	cost  decimal.Decimal
}{
	{decimal.NewFromInt(30), decimal.Zero},
	{decimal.NewFromInt(100), decimal.NewFromInt(30)},
	{decimal.NewFromInt(200), decimal.NewFromInt(50)},
}

var heaviestBand = decimal.NewFromInt(75)

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?|\.\d+)`)

// cartProfile is what method rules look at. Keys are lowercased.
type cartProfile struct {
	weight  decimal.Decimal
	classes map[string]bool
	terms   map[string]bool // category names and slugs
	slugs   map[string]bool
}

func newCartProfile() *cartProfile {
	return &cartProfile{
		weight:  decimal.Zero,
		classes: map[string]bool{},
		terms:   map[string]bool{},
		slugs:   map[string]bool{},
	}
}

// add folds one product, ordered quantity times, into the profile.
func (c *cartProfile) add(p *woocommerce.Product, quantity int) {
	if w, err := decimal.NewFromString(strings.TrimSpace(p.Weight)); err == nil && w.IsPositive() {
		c.weight = c.weight.Add(w.Mul(decimal.NewFromInt(int64(quantity))))
	}
	if class := strings.ToLower(strings.TrimSpace(p.ShippingClass)); class != "" {
		c.classes[class] = true
	}
	if p.Slug != "" {
		c.slugs[strings.ToLower(p.Slug)] = true
	}
	for _, cat := range p.Categories {
		if cat.Name != "" {
			c.terms[strings.ToLower(cat.Name)] = true
		}
		if cat.Slug != "" {
			c.terms[strings.ToLower(cat.Slug)] = true
		}
	}
}

// mentions reports whether any class, category or slug contains a keyword.
func (c *cartProfile) mentions(keywords []string) bool {
	for _, set := range []map[string]bool{c.classes, c.terms, c.slugs} {
		for v := range set {
			for _, kw := range keywords {
				if strings.Contains(v, kw) {
					return true
				}
			}
		}
	}
	return false
}

// allows applies a method's shipping-class restriction. A cart without
// shipping classes passes every restriction.
func (c *cartProfile) allows(m woocommerce.ZoneMethod) bool {
	restriction, _ := m.Setting("class_cost_calculation_type")
	if restriction == "" {
		restriction, _ = m.Setting("shipping_class")
	}
	switch restriction {
	case "", "per_order", "per_class":
		return true
	}
	if len(c.classes) == 0 {
		return true
	}
	for _, class := range strings.Split(restriction, ",") {
		if c.classes[strings.ToLower(strings.TrimSpace(class))] {
			return true
		}
	}
	return false
}

// productLineFor returns the product line a method title is reserved for.
func productLineFor(title string) (productLine, bool) {
	for _, pl := range productLines {
		if strings.HasPrefix(title, pl.prefix) {
			return pl, true
		}
	}
	return productLine{}, false
}

func methodTitle(m woocommerce.ZoneMethod) string {
	if t, _ := m.Setting("method_title"); t != "" {
		return t
	}
	if m.Title != "" {
		return m.Title
	}
	if m.MethodTitle != "" {
		return m.MethodTitle
	}
	return "Unnamed Method"
}

// methodCost prices a method for a cart of the given weight. ok is false
// when the method carries no pricing the gateway understands.
func methodCost(m woocommerce.ZoneMethod, weight decimal.Decimal) (cost decimal.Decimal, ok bool) {
	if m.MethodID == flexibleShipping {
		if basis, _ := m.Setting("method_cost_based_on"); basis == "weight" {
			return perKgCost(m, weight), true
		}
		return bandCost(weight), true
	}

	raw, ok := m.Setting("cost")
	if !ok {
		return decimal.Zero, false
	}
	return parseCost(raw), true
}

func perKgCost(m woocommerce.ZoneMethod, weight decimal.Decimal) decimal.Decimal {
	perKg := settingAmount(m, "method_cost_per_unit")
	minimum := settingAmount(m, "method_minimum_cost")
	maximum := settingAmount(m, "method_maximum_cost")

	cost := perKg.Mul(weight)
	if minimum.IsPositive() && cost.LessThan(minimum) {
		cost = minimum
	}
	if maximum.IsPositive() && cost.GreaterThan(maximum) {
		cost = maximum
	}
	return cost.Round(2)
}

func bandCost(weight decimal.Decimal) decimal.Decimal {
	for _, b := range weightBands {
		if weight.LessThan(b.below) {
			return b.cost
		}
	}
	return heaviestBand
}

func settingAmount(m woocommerce.ZoneMethod, key string) decimal.Decimal {
	raw, _ := m.Setting(key)
	return parseCost(raw)
}

// parseCost reads the leading number of a cost setting. Flat rate costs
// may be formulas such as "10 + 2 * [qty]"; only the base is used.
// Anything unreadable is free.
func parseCost(raw string) decimal.Decimal {
	num := leadingNumber.FindStringSubmatch(raw)
	if num == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(num[1])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// locationMatches reports whether dest falls inside a zone location rule.
// Postcode rules match by prefix, ignoring case and spaces; a trailing *
// is the same as a bare prefix.
func locationMatches(loc woocommerce.ZoneLocation, dest woocommerce.Address) bool {
	switch loc.Type {
	case "country":
		return dest.Country != "" && strings.EqualFold(loc.Code, dest.Country)
	case "state":
		return dest.State != "" && strings.EqualFold(loc.Code, dest.Country+":"+dest.State)
	case "postcode":
		code := strings.TrimSuffix(normalizePostcode(loc.Code), "*")
		pc := normalizePostcode(dest.Postcode)
		return code != "" && strings.HasPrefix(pc, code)
	}
	return false
}

func normalizePostcode(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// displayTitle collapses whitespace; every collection variant reads
// "Collection".
func displayTitle(title string) string {
	t := strings.Join(strings.Fields(title), " ")
	if strings.Contains(strings.ToLower(t), "collection") {
		return "Collection"
	}
	return t
}

func hidden(title string) bool {
	lower := strings.ToLower(title)
	for _, h := range hiddenTitles {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// displayCost renders a cost the way the storefront shows it.
func displayCost(cost decimal.Decimal, currency string) string {
	if cost.IsZero() {
		return "Free"
	}
	return currencySymbol(currency) + cost.StringFixed(2)
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "", "GBP":
		return "£"
	case "EUR":
		return "€"
	case "USD":
		return "$"
	default:
		return strings.ToUpper(code) + " "
	}
}
