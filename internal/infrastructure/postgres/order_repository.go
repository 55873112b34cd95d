package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, store_id, external_order_id, order_number, order_date, status, customer, items, fees,
	coupons, items_subtotal, discount_total, stamp_duty, subtotal, tax_total, total, currency, payment_method,
	payment_method_title, invoice_id, raw, created_at, updated_at`

// OrderRepo implementación de OrderRepository (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Upsert inserta el pedido o actualiza la copia existente de (store_id, external_order_id).
// invoice_id no se toca: un pedido facturado sigue vinculado tras re-sincronizar.
func (r *OrderRepo) Upsert(ctx context.Context, o *entity.ExternalOrder) (bool, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	customer, items, fees, coupons, err := marshalOrderDocs(o)
	if err != nil {
		return false, err
	}
	var raw any
	if len(o.Raw) > 0 {
		raw = []byte(o.Raw)
	}
	query := `
		INSERT INTO external_orders (id, store_id, external_order_id, order_number, order_date, status, customer,
		    items, fees, coupons, items_subtotal, discount_total, stamp_duty, subtotal, tax_total, total, currency,
		    payment_method, payment_method_title, raw, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
		ON CONFLICT (store_id, external_order_id) DO UPDATE
		SET order_number         = EXCLUDED.order_number,
		    order_date           = EXCLUDED.order_date,
		    status               = EXCLUDED.status,
		    customer             = EXCLUDED.customer,
		    items                = EXCLUDED.items,
		    fees                 = EXCLUDED.fees,
		    coupons              = EXCLUDED.coupons,
		    items_subtotal       = EXCLUDED.items_subtotal,
		    discount_total       = EXCLUDED.discount_total,
		    stamp_duty           = EXCLUDED.stamp_duty,
		    subtotal             = EXCLUDED.subtotal,
		    tax_total            = EXCLUDED.tax_total,
		    total                = EXCLUDED.total,
		    currency             = EXCLUDED.currency,
		    payment_method       = EXCLUDED.payment_method,
		    payment_method_title = EXCLUDED.payment_method_title,
		    raw                  = EXCLUDED.raw,
		    updated_at           = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted`
	var inserted bool
	err = r.q.QueryRow(ctx, query,
		o.ID, o.StoreID, o.ExternalOrderID, o.OrderNumber, o.OrderDate.UTC(), o.Status, customer, items, fees,
		coupons, o.ItemsSubtotal, o.DiscountTotal, o.StampDuty, o.Subtotal, o.TaxTotal, o.Total, o.Currency,
		o.PaymentMethod, o.PaymentMethodTitle, raw, time.Now().UTC(),
	).Scan(&o.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert order: %w", err)
	}
	return inserted, nil
}

// GetByID obtiene un pedido.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.ExternalOrder, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM external_orders WHERE id = $1`, id)
}

// GetByIDForUpdate obtiene el pedido con bloqueo de fila (usar dentro de tx).
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.ExternalOrder, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM external_orders WHERE id = $1 FOR UPDATE`, id)
}

// GetByExternalID obtiene el pedido por su identificador en la tienda.
func (r *OrderRepo) GetByExternalID(ctx context.Context, storeID, externalOrderID string) (*entity.ExternalOrder, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM external_orders
		WHERE store_id = $1 AND external_order_id = $2`, storeID, externalOrderID)
}

// List lista pedidos del más reciente al más antiguo.
func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.ExternalOrder, error) {
	where, args := orderWhere(f)
	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + orderColumns + ` FROM external_orders` + where +
		fmt.Sprintf(" ORDER BY order_date DESC, external_order_id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.ExternalOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Count número de pedidos que cumplen el filtro.
func (r *OrderRepo) Count(ctx context.Context, f repository.OrderFilter) (int, error) {
	where, args := orderWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM external_orders`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// LatestOrderDate fecha del pedido más reciente de la tienda.
func (r *OrderRepo) LatestOrderDate(ctx context.Context, storeID string) (*time.Time, error) {
	var latest *time.Time
	if err := r.q.QueryRow(ctx, `SELECT MAX(order_date) FROM external_orders WHERE store_id = $1`, storeID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest order date: %w", err)
	}
	return latest, nil
}

// LinkInvoice vincula la factura solo si el pedido sigue libre.
func (r *OrderRepo) LinkInvoice(ctx context.Context, orderID, invoiceID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE external_orders SET invoice_id = $2, updated_at = NOW()
		WHERE id = $1 AND invoice_id IS NULL`, orderID, invoiceID)
	if err != nil {
		return fmt.Errorf("link invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConflictError{Reason: "el pedido ya tiene una factura vinculada"}
	}
	return nil
}

// ClearInvoiceLink quita el vínculo con la factura.
func (r *OrderRepo) ClearInvoiceLink(ctx context.Context, orderID string) error {
	if _, err := r.q.Exec(ctx, `UPDATE external_orders SET invoice_id = NULL, updated_at = NOW() WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("clear invoice link: %w", err)
	}
	return nil
}

// Delete borra el pedido si no está facturado.
func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM external_orders WHERE id = $1 AND invoice_id IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		o, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o != nil {
			return &domain.ConflictError{Reason: "el pedido tiene una factura vinculada y no puede borrarse"}
		}
	}
	return nil
}

func (r *OrderRepo) getOne(ctx context.Context, query string, args ...any) (*entity.ExternalOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func orderWhere(f repository.OrderFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.StoreID != "" {
		args = append(args, f.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Invoiced != nil {
		if *f.Invoiced {
			where = append(where, "invoice_id IS NOT NULL")
		} else {
			where = append(where, "invoice_id IS NULL")
		}
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func marshalOrderDocs(o *entity.ExternalOrder) (customer, items, fees, coupons []byte, err error) {
	if customer, err = json.Marshal(o.Customer); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal customer: %w", err)
	}
	if items, err = json.Marshal(nonNil(o.Items)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal items: %w", err)
	}
	if fees, err = json.Marshal(nonNil(o.Fees)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal fees: %w", err)
	}
	if coupons, err = json.Marshal(nonNil(o.Coupons)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal coupons: %w", err)
	}
	return customer, items, fees, coupons, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanOrder(row pgx.Row) (*entity.ExternalOrder, error) {
	var (
		o                              entity.ExternalOrder
		customer, items, fees, coupons []byte
		raw                            []byte
		invoiceID                      *string
	)
	err := row.Scan(
		&o.ID, &o.StoreID, &o.ExternalOrderID, &o.OrderNumber, &o.OrderDate, &o.Status, &customer, &items,
		&fees, &coupons, &o.ItemsSubtotal, &o.DiscountTotal, &o.StampDuty, &o.Subtotal, &o.TaxTotal, &o.Total,
		&o.Currency, &o.PaymentMethod, &o.PaymentMethodTitle, &invoiceID, &raw, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if invoiceID != nil {
		o.InvoiceID = *invoiceID
	}
	o.OrderDate = o.OrderDate.UTC()
	o.Raw = raw
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(fees, &o.Fees); err != nil {
		return nil, fmt.Errorf("unmarshal fees: %w", err)
	}
	if err := json.Unmarshal(coupons, &o.Coupons); err != nil {
		return nil, fmt.Errorf("unmarshal coupons: %w", err)
	}
	return &o, nil
}
