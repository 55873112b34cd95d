package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fatture-rf/internal/application/auth"
	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/application/commerce"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC       *auth.AuthUseCase
	ClientUC     *billing.ClientUseCase
	InvoiceUC    *billing.InvoiceUseCase
	DocumentUC   *billing.FiscalDocumentUseCase
	InvoicePDF   *billing.PDFUseCase
	StoreUC      *commerce.StoreUseCase
	OrderUC      *commerce.OrderUseCase
	SyncEngine   *commerce.SyncEngine
	Converter    *commerce.Converter
	XMLOutputDir string
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	clients := protected.Group("/clients")
	clientHandler := NewClientHandler(deps.ClientUC)
	clients.Post("/", clientHandler.Create)
	clients.Get("/", clientHandler.List)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Put("/:id", clientHandler.Update)
	clients.Delete("/:id", clientHandler.Delete)

	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.DocumentUC, deps.InvoicePDF, deps.XMLOutputDir)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/next-number", invoiceHandler.NextNumber)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Patch("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Post("/:id/status", invoiceHandler.ChangeStatus)
	invoices.Get("/:id/history", invoiceHandler.History)
	invoices.Get("/:id/xml", invoiceHandler.DownloadXML)
	invoices.Post("/:id/xml", invoiceHandler.SaveXML)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)

	// Tiendas WooCommerce
	stores := protected.Group("/stores")
	storeHandler := NewStoreHandler(deps.StoreUC, deps.OrderUC, deps.SyncEngine)
	stores.Post("/", storeHandler.Create)
	stores.Get("/", storeHandler.List)
	stores.Post("/test", storeHandler.TestCredentials)
	stores.Post("/sync-all", storeHandler.SyncAll)
	stores.Get("/:id", storeHandler.GetByID)
	stores.Put("/:id", storeHandler.Update)
	stores.Delete("/:id", storeHandler.Delete)
	stores.Post("/:id/sync", storeHandler.Sync)
	stores.Get("/:id/test", storeHandler.TestConnection)
	stores.Get("/:id/stats", storeHandler.Stats)

	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.OrderUC, deps.Converter)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Delete("/:id", orderHandler.Delete)
	orders.Post("/:id/invoice", orderHandler.Convert)
}
