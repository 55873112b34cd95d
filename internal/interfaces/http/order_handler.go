package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/application/dto"
)

// OrderHandler pedidos sincronizados y su conversión en factura (protegido).
type OrderHandler struct {
	orders    *commerce.OrderUseCase
	converter *commerce.Converter
}

// NewOrderHandler construye el handler.
func NewOrderHandler(orders *commerce.OrderUseCase, converter *commerce.Converter) *OrderHandler {
	return &OrderHandler{orders: orders, converter: converter}
}

// List godoc
// @Summary      Listar pedidos sincronizados
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        store_id  query  string  false  "Tienda"
// @Param        status    query  string  false  "Estado WooCommerce"
// @Param        invoiced  query  string  false  "true | false"
// @Param        limit     query  int     false  "Límite"
// @Param        offset    query  int     false  "Offset"
// @Success      200  {array}   dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var in dto.OrderListRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	out, err := h.orders.List(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener pedido
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.orders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(commerce.ToOrderResponse(o))
}

// Delete godoc
// @Summary      Borrar pedido
// @Description  Falla con 409 si el pedido ya tiene factura.
// @Tags         orders
// @Security     Bearer
// @Param        id   path  string  true  "ID del pedido"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	if err := h.orders.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Convert godoc
// @Summary      Crear factura desde el pedido
// @Description  Crea una factura draft y vincula el pedido. Un pedido ya facturado devuelve 409.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      201  {object}  dto.ConvertOrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/invoice [post]
func (h *OrderHandler) Convert(c *fiber.Ctx) error {
	id := c.Params("id")
	res, err := h.converter.Convert(c.UserContext(), id, GetOperator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ConvertOrderResponse{
		OrderID:       id,
		InvoiceID:     res.Invoice.ID,
		InvoiceNumber: res.Invoice.InvoiceNumber,
		ClientID:      res.Client.ID,
		ClientCreated: res.ClientCreated,
		Warnings:      res.Warnings,
	})
}
