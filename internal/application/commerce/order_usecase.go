package commerce

import (
	"context"
	"strconv"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

// OrderUseCase consultas y borrado de pedidos sincronizados.
type OrderUseCase struct {
	repo repository.OrderRepository
}

// NewOrderUseCase construye el caso de uso.
func NewOrderUseCase(repo repository.OrderRepository) *OrderUseCase {
	return &OrderUseCase{repo: repo}
}

// List filtra por tienda, estado y si ya tiene factura.
func (uc *OrderUseCase) List(ctx context.Context, in dto.OrderListRequest) ([]*dto.OrderResponse, error) {
	in.DefaultPage()
	f := repository.OrderFilter{StoreID: in.StoreID, Status: in.Status, Limit: in.Limit, Offset: in.Offset}
	if in.Invoiced != "" {
		v, err := strconv.ParseBool(in.Invoiced)
		if err != nil {
			return nil, domain.NewValidationError("invoiced debe ser true o false")
		}
		f.Invoiced = &v
	}
	list, err := uc.repo.List(ctx, f)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar pedidos", Err: err}
	}
	out := make([]*dto.OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, ToOrderResponse(o))
	}
	return out, nil
}

// Get devuelve el pedido completo.
func (uc *OrderUseCase) Get(ctx context.Context, id string) (*entity.ExternalOrder, error) {
	o, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener pedido", Err: err}
	}
	if o == nil {
		return nil, &domain.NotFoundError{Entity: "pedido", ID: id}
	}
	return o, nil
}

// Delete falla con ConflictError si el pedido ya tiene factura.
func (uc *OrderUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.Get(ctx, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

// Stats pedidos totales, facturados y pendientes de una tienda.
func (uc *OrderUseCase) Stats(ctx context.Context, storeID string) (*dto.OrderStatsResponse, error) {
	yes, no := true, false
	total, err := uc.repo.Count(ctx, repository.OrderFilter{StoreID: storeID})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "contar pedidos", Err: err}
	}
	invoiced, err := uc.repo.Count(ctx, repository.OrderFilter{StoreID: storeID, Invoiced: &yes})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "contar pedidos", Err: err}
	}
	pending, err := uc.repo.Count(ctx, repository.OrderFilter{StoreID: storeID, Invoiced: &no})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "contar pedidos", Err: err}
	}
	return &dto.OrderStatsResponse{StoreID: storeID, Total: total, Invoiced: invoiced, Pending: pending}, nil
}

// ToOrderResponse mapea la entidad al DTO de listado.
func ToOrderResponse(o *entity.ExternalOrder) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:              o.ID,
		StoreID:         o.StoreID,
		ExternalOrderID: o.ExternalOrderID,
		OrderNumber:     o.OrderNumber,
		OrderDate:       o.OrderDate,
		Status:          o.Status,
		CustomerName:    o.Customer.DisplayName(),
		CustomerEmail:   o.Customer.Email,
		ItemsSubtotal:   o.ItemsSubtotal,
		DiscountTotal:   o.DiscountTotal,
		StampDuty:       o.StampDuty,
		Subtotal:        o.Subtotal,
		TaxTotal:        o.TaxTotal,
		Total:           o.Total,
		Currency:        o.Currency,
		PaymentMethod:   firstNonEmpty(o.PaymentMethodTitle, o.PaymentMethod),
		InvoiceID:       o.InvoiceID,
	}
}
