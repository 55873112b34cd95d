package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos sincronizados en memoria.
type OrderRepo struct {
	db     *DB
	locked bool
}

func (r *OrderRepo) Upsert(_ context.Context, o *entity.ExternalOrder) (bool, error) {
	defer guard(r.db, r.locked)()
	now := time.Now().UTC()
	for id, existing := range r.db.orders {
		if existing.StoreID == o.StoreID && existing.ExternalOrderID == o.ExternalOrderID {
			updated := cloneOrder(*o)
			updated.ID = id
			updated.InvoiceID = existing.InvoiceID
			updated.CreatedAt = existing.CreatedAt
			updated.UpdatedAt = now
			r.db.orders[id] = updated
			o.ID = id
			return false, nil
		}
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	stored := cloneOrder(*o)
	stored.InvoiceID = ""
	stored.OrderDate = stored.OrderDate.UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.db.orders[o.ID] = stored
	return true, nil
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.ExternalOrder, error) {
	defer guard(r.db, r.locked)()
	return r.get(id), nil
}

// GetByIDForUpdate dentro de RunBilling el lock global ya serializa el acceso.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.ExternalOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) GetByExternalID(_ context.Context, storeID, externalOrderID string) (*entity.ExternalOrder, error) {
	defer guard(r.db, r.locked)()
	for _, o := range r.db.orders {
		if o.StoreID == storeID && o.ExternalOrderID == externalOrderID {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *OrderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.ExternalOrder, error) {
	defer guard(r.db, r.locked)()
	list := r.filter(f)
	slices.SortFunc(list, func(a, b *entity.ExternalOrder) int {
		if n := b.OrderDate.Compare(a.OrderDate); n != 0 {
			return n
		}
		return strings.Compare(b.ExternalOrderID, a.ExternalOrderID)
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *OrderRepo) Count(_ context.Context, f repository.OrderFilter) (int, error) {
	defer guard(r.db, r.locked)()
	return len(r.filter(f)), nil
}

func (r *OrderRepo) LatestOrderDate(_ context.Context, storeID string) (*time.Time, error) {
	defer guard(r.db, r.locked)()
	var latest *time.Time
	for _, o := range r.db.orders {
		if o.StoreID != storeID {
			continue
		}
		if latest == nil || o.OrderDate.After(*latest) {
			d := o.OrderDate
			latest = &d
		}
	}
	return latest, nil
}

func (r *OrderRepo) LinkInvoice(_ context.Context, orderID, invoiceID string) error {
	defer guard(r.db, r.locked)()
	o, ok := r.db.orders[orderID]
	if !ok || o.InvoiceID != "" {
		return &domain.ConflictError{Reason: "el pedido ya tiene una factura vinculada"}
	}
	o.InvoiceID = invoiceID
	o.UpdatedAt = time.Now().UTC()
	r.db.orders[orderID] = o
	return nil
}

func (r *OrderRepo) ClearInvoiceLink(_ context.Context, orderID string) error {
	defer guard(r.db, r.locked)()
	if o, ok := r.db.orders[orderID]; ok {
		o.InvoiceID = ""
		o.UpdatedAt = time.Now().UTC()
		r.db.orders[orderID] = o
	}
	return nil
}

func (r *OrderRepo) Delete(_ context.Context, id string) error {
	defer guard(r.db, r.locked)()
	if o, ok := r.db.orders[id]; ok && o.InvoiceID != "" {
		return &domain.ConflictError{Reason: "el pedido tiene una factura vinculada y no puede borrarse"}
	}
	delete(r.db.orders, id)
	return nil
}

func (r *OrderRepo) get(id string) *entity.ExternalOrder {
	o, ok := r.db.orders[id]
	if !ok {
		return nil
	}
	c := cloneOrder(o)
	return &c
}

func (r *OrderRepo) filter(f repository.OrderFilter) []*entity.ExternalOrder {
	var list []*entity.ExternalOrder
	for _, o := range r.db.orders {
		switch {
		case f.StoreID != "" && o.StoreID != f.StoreID,
			f.Status != "" && o.Status != f.Status,
			f.Invoiced != nil && o.Invoiced() != *f.Invoiced:
			continue
		}
		c := cloneOrder(o)
		list = append(list, &c)
	}
	return list
}

func cloneOrder(o entity.ExternalOrder) entity.ExternalOrder {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	o.Fees = append([]entity.OrderFee(nil), o.Fees...)
	o.Coupons = append([]entity.OrderCoupon(nil), o.Coupons...)
	o.Raw = append([]byte(nil), o.Raw...)
	return o
}
