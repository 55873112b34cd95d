package http

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
)

// StoreHandler maneja tiendas WooCommerce y su sincronización (protegido).
type StoreHandler struct {
	stores *commerce.StoreUseCase
	orders *commerce.OrderUseCase
	engine *commerce.SyncEngine
}

// NewStoreHandler construye el handler.
func NewStoreHandler(stores *commerce.StoreUseCase, orders *commerce.OrderUseCase, engine *commerce.SyncEngine) *StoreHandler {
	return &StoreHandler{stores: stores, orders: orders, engine: engine}
}

// Create godoc
// @Summary      Registrar tienda
// @Tags         stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStoreRequest  true  "URL y credenciales REST"
// @Success      201   {object}  dto.StoreResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stores [post]
func (h *StoreHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStoreRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.stores.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar tiendas
// @Tags         stores
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StoreResponse
// @Router       /api/stores [get]
func (h *StoreHandler) List(c *fiber.Ctx) error {
	out, err := h.stores.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener tienda
// @Tags         stores
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la tienda"
// @Success      200  {object}  dto.StoreResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stores/{id} [get]
func (h *StoreHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.stores.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar tienda
// @Description  consumer_secret vacío conserva el guardado.
// @Tags         stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la tienda"
// @Param        body  body  dto.CreateStoreRequest  true  "URL y credenciales REST"
// @Success      200   {object}  dto.StoreResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stores/{id} [put]
func (h *StoreHandler) Update(c *fiber.Ctx) error {
	var in dto.CreateStoreRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.stores.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Borrar tienda
// @Description  Falla con 409 si la tienda tiene pedidos sincronizados.
// @Tags         stores
// @Security     Bearer
// @Param        id   path  string  true  "ID de la tienda"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stores/{id} [delete]
func (h *StoreHandler) Delete(c *fiber.Ctx) error {
	if err := h.stores.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sync godoc
// @Summary      Sincronizar pedidos de una tienda
// @Tags         stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string           true   "ID de la tienda"
// @Param        body  body  dto.SyncRequest  false  "page_size opcional (máx. 100)"
// @Success      200   {object}  dto.SyncResultResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/stores/{id}/sync [post]
func (h *StoreHandler) Sync(c *fiber.Ctx) error {
	var in dto.SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	res, err := h.engine.SyncStore(c.UserContext(), c.Params("id"), in.PageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSyncResponse(res))
}

// SyncAll godoc
// @Summary      Sincronizar todas las tiendas activas
// @Description  El fallo de una tienda aparece en su entrada y no interrumpe al resto.
// @Tags         stores
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.SyncResultResponse
// @Router       /api/stores/sync-all [post]
func (h *StoreHandler) SyncAll(c *fiber.Ctx) error {
	results, err := h.engine.SyncAllActive(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SyncResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toSyncResponse(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return c.JSON(out)
}

// TestConnection godoc
// @Summary      Probar conexión de una tienda guardada
// @Tags         stores
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la tienda"
// @Success      200  {object}  dto.ConnectionTestResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stores/{id}/test [get]
func (h *StoreHandler) TestConnection(c *fiber.Ctx) error {
	id := c.Params("id")
	err := h.engine.TestConnection(c.UserContext(), id)
	if err != nil && !errors.Is(err, domain.ErrExternalAPI) {
		return respondError(c, err)
	}
	return c.JSON(connectionResult(id, err))
}

// TestCredentials godoc
// @Summary      Probar credenciales sin guardarlas
// @Tags         stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStoreRequest  true  "URL y credenciales REST"
// @Success      200   {object}  dto.ConnectionTestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stores/test [post]
func (h *StoreHandler) TestCredentials(c *fiber.Ctx) error {
	var in dto.CreateStoreRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	err := h.stores.TestCredentials(c.UserContext(), in)
	if err != nil && !errors.Is(err, domain.ErrExternalAPI) {
		return respondError(c, err)
	}
	return c.JSON(connectionResult("", err))
}

// Stats godoc
// @Summary      Contadores de pedidos de una tienda
// @Tags         stores
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la tienda"
// @Success      200  {object}  dto.OrderStatsResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stores/{id}/stats [get]
func (h *StoreHandler) Stats(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.stores.GetByID(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	out, err := h.orders.Stats(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func toSyncResponse(res *commerce.SyncResult) dto.SyncResultResponse {
	out := dto.SyncResultResponse{
		StoreID:      res.StoreID,
		Synced:       res.Synced,
		TotalFetched: res.TotalFetched,
		Errors:       res.Errors,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func connectionResult(storeID string, err error) dto.ConnectionTestResponse {
	switch {
	case err == nil:
		return dto.ConnectionTestResponse{StoreID: storeID, OK: true, Message: "Conexión correcta"}
	case errors.Is(err, domain.ErrUnauthorized):
		return dto.ConnectionTestResponse{StoreID: storeID, Message: "Credenciales de la API no válidas"}
	default:
		return dto.ConnectionTestResponse{StoreID: storeID, Message: err.Error()}
	}
}
