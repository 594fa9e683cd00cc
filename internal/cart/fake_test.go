package cart

import (
	"context"
	"errors"
	"sort"
	"sync"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/woocommerce"
)

// fakeWoo is an in-memory order collection standing in for the REST API.
// Set the fail* fields to make the next matching call fail.
type fakeWoo struct {
	mu       sync.Mutex
	orders   map[int]*woocommerce.Order
	nextID   int
	nextLine int
	products map[int]woocommerce.Product

	failCreate error
	failDelete error
	failUpdate error
	failList   error

	creates []*woocommerce.OrderInput
	updates map[int][]*woocommerce.OrderInput
	deletes []int
	lists   []woocommerce.OrderQuery
}

var _ Upstream = (*fakeWoo)(nil)

func newFakeWoo() *fakeWoo {
	return &fakeWoo{
		orders:   make(map[int]*woocommerce.Order),
		nextID:   500,
		nextLine: 900,
		products: make(map[int]woocommerce.Product),
		updates:  make(map[int][]*woocommerce.OrderInput),
	}
}

// seed stores an order as-is and returns its id.
func (f *fakeWoo) seed(o woocommerce.Order) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		f.nextID++
		o.ID = f.nextID
	} else if o.ID > f.nextID {
		f.nextID = o.ID
	}
	if o.Status == "" {
		o.Status = statusPending
	}
	f.orders[o.ID] = &o
	return o.ID
}

func (f *fakeWoo) order(id int) *woocommerce.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeWoo) ListOrders(ctx context.Context, q woocommerce.OrderQuery) (*woocommerce.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, q)
	if f.failList != nil {
		return nil, f.failList
	}

	var matched []woocommerce.Order
	for _, o := range f.orders {
		if q.Status == "" || o.Status == q.Status {
			matched = append(matched, *o)
		}
	}
	// Higher ids are newer.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	total := len(matched)
	pages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return &woocommerce.OrderPage{
		Orders:     matched[start:end],
		Pagination: woocommerce.Pagination{Total: total, TotalPages: pages},
	}, nil
}

func (f *fakeWoo) GetOrder(ctx context.Context, id int) (*woocommerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, model.NewNotFoundError("order")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeWoo) CreateOrder(ctx context.Context, in *woocommerce.OrderInput) (*woocommerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, in)
	if f.failCreate != nil {
		return nil, f.failCreate
	}

	f.nextID++
	o := &woocommerce.Order{
		ID:         f.nextID,
		Status:     in.Status,
		CustomerID: in.CustomerID,
		CreatedVia: in.CreatedVia,
	}
	for _, li := range in.LineItems {
		o.LineItems = append(o.LineItems, f.lineFrom(li))
	}
	f.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeWoo) UpdateOrder(ctx context.Context, id int, in *woocommerce.OrderInput) (*woocommerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = append(f.updates[id], in)
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}

	o, ok := f.orders[id]
	if !ok {
		return nil, model.NewNotFoundError("order")
	}
	if in.Status != "" {
		o.Status = in.Status
	}
	if in.CustomerID != 0 {
		o.CustomerID = in.CustomerID
	}
	if in.Billing != nil {
		o.Billing = *in.Billing
	}
	if in.TransactionID != "" {
		o.TransactionID = in.TransactionID
	}
	if in.DatePaid != "" {
		o.DatePaid = in.DatePaid
	}
	if in.PaymentMethodTitle != "" {
		o.PaymentMethodTitle = in.PaymentMethodTitle
	}

	for _, li := range in.LineItems {
		replaced := false
		for i := range o.LineItems {
			if li.ID != 0 && o.LineItems[i].ID == li.ID {
				updated := f.lineFrom(li)
				updated.ID = li.ID
				o.LineItems[i] = updated
				replaced = true
			}
		}
		if !replaced {
			o.LineItems = append(o.LineItems, f.lineFrom(li))
		}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeWoo) DeleteOrder(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.failDelete != nil {
		return f.failDelete
	}
	if _, ok := f.orders[id]; !ok {
		return model.NewNotFoundError("order")
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeWoo) GetProduct(ctx context.Context, id int) (*woocommerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, model.NewNotFoundError("product")
	}
	return &p, nil
}

// lineFrom stores a written line the way WooCommerce echoes it back.
func (f *fakeWoo) lineFrom(in woocommerce.LineItemInput) woocommerce.LineItem {
	f.nextLine++
	li := woocommerce.LineItem{
		ID:          f.nextLine,
		ProductID:   in.ProductID,
		VariationID: in.VariationID,
		Quantity:    in.Quantity,
		Subtotal:    in.Subtotal,
		Total:       in.Total,
		MetaData:    append([]woocommerce.MetaData(nil), in.MetaData...),
	}
	if in.Price != "" {
		li.Price = woocommerce.Amount{Decimal: model.ParseDecimal(in.Price)}
	}
	return li
}

var errBoom = errors.New("boom")
