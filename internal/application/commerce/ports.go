// Package commerce sincroniza pedidos de tiendas WooCommerce y los convierte en facturas del libro.
package commerce

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// AfterLayout formato del parámetro after de la API de pedidos (UTC, precisión de segundos).
const AfterLayout = "2006-01-02T15:04:05Z"

// OrderQuery ventana y tamaño de página de una petición de pedidos.
type OrderQuery struct {
	After   time.Time
	PerPage int
}

// OrderSource puerto hacia la API REST de la tienda. Devuelve cada pedido sin decodificar
// para que un pedido malformado no invalide el lote.
type OrderSource interface {
	FetchOrders(ctx context.Context, store *entity.ExternalStore, q OrderQuery) ([]json.RawMessage, error)
	// TestConnection nil si la tienda responde 200 con esas credenciales.
	TestConnection(ctx context.Context, store *entity.ExternalStore) error
}
