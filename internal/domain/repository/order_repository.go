package repository

import (
	"context"
	"time"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// OrderFilter opciones de listado de pedidos sincronizados.
type OrderFilter struct {
	StoreID  string
	Status   string
	Invoiced *bool // nil = todos
	Limit    int
	Offset   int
}

// OrderRepository define el puerto de persistencia para ExternalOrder.
type OrderRepository interface {
	// Upsert inserta o actualiza por (store_id, external_order_id) de forma atómica.
	// No modifica el vínculo con la factura. Devuelve true si fue inserción.
	Upsert(ctx context.Context, order *entity.ExternalOrder) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.ExternalOrder, error)
	// GetByIDForUpdate bloquea la fila hasta el fin de la transacción.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.ExternalOrder, error)
	GetByExternalID(ctx context.Context, storeID, externalOrderID string) (*entity.ExternalOrder, error)
	List(ctx context.Context, f OrderFilter) ([]*entity.ExternalOrder, error)
	Count(ctx context.Context, f OrderFilter) (int, error)
	// LatestOrderDate fecha del pedido más reciente de la tienda (nil si no hay).
	LatestOrderDate(ctx context.Context, storeID string) (*time.Time, error)
	// LinkInvoice vincula solo si el pedido no tiene factura; si no, ConflictError.
	LinkInvoice(ctx context.Context, orderID, invoiceID string) error
	ClearInvoiceLink(ctx context.Context, orderID string) error
	// Delete devuelve ConflictError si el pedido tiene factura vinculada.
	Delete(ctx context.Context, id string) error
}
