package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateStoreRequest body para POST /api/stores y PUT /api/stores/:id.
type CreateStoreRequest struct {
	Name           string `json:"name"`
	StoreURL       string `json:"store_url"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	SyncFrom       string `json:"sync_from,omitempty"` // YYYY-MM-DD
	AutoSync       bool   `json:"auto_sync"`
	SyncInterval   int    `json:"sync_interval,omitempty"` // minutos
	Status         string `json:"status,omitempty"`        // active | inactive
}

// StoreResponse tienda sin el secreto.
type StoreResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	StoreURL     string     `json:"store_url"`
	ConsumerKey  string     `json:"consumer_key"`
	SyncFrom     string     `json:"sync_from,omitempty"`
	AutoSync     bool       `json:"auto_sync"`
	SyncInterval int        `json:"sync_interval"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Status       string     `json:"status"`
}

// SyncRequest body opcional para POST /api/stores/:id/sync.
type SyncRequest struct {
	PageSize int `json:"page_size,omitempty"`
}

// SyncResultResponse resultado de una sincronización.
type SyncResultResponse struct {
	StoreID      string   `json:"store_id"`
	Synced       int      `json:"synced"`
	TotalFetched int      `json:"total_fetched"`
	Errors       []string `json:"errors"`
	Error        string   `json:"error,omitempty"` // fallo a nivel de tienda
}

// ConnectionTestResponse resultado de GET /api/stores/:id/test.
type ConnectionTestResponse struct {
	StoreID string `json:"store_id"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// OrderListRequest query de GET /api/orders.
type OrderListRequest struct {
	PageRequest
	StoreID  string `query:"store_id"`
	Status   string `query:"status"`
	Invoiced string `query:"invoiced"` // "true" | "false" | ""
}

// OrderResponse pedido sincronizado.
type OrderResponse struct {
	ID              string          `json:"id"`
	StoreID         string          `json:"store_id"`
	ExternalOrderID string          `json:"external_order_id"`
	OrderNumber     string          `json:"order_number"`
	OrderDate       time.Time       `json:"order_date"`
	Status          string          `json:"status"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	ItemsSubtotal   decimal.Decimal `json:"items_subtotal"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	StampDuty       decimal.Decimal `json:"stamp_duty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxTotal        decimal.Decimal `json:"tax_total"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	InvoiceID       string          `json:"invoice_id,omitempty"`
}

// ConvertOrderResponse resultado de POST /api/orders/:id/invoice.
type ConvertOrderResponse struct {
	OrderID       string   `json:"order_id"`
	InvoiceID     string   `json:"invoice_id"`
	InvoiceNumber string   `json:"invoice_number"`
	ClientID      string   `json:"client_id"`
	ClientCreated bool     `json:"client_created"`
	Warnings      []string `json:"warnings,omitempty"`
}

// OrderStatsResponse contadores de pedidos de una tienda.
type OrderStatsResponse struct {
	StoreID  string `json:"store_id"`
	Total    int    `json:"total"`
	Invoiced int    `json:"invoiced"`
	Pending  int    `json:"pending"`
}
