package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado del ciclo de vida de la factura.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusSubmitted InvoiceStatus = "submitted" // Enviada al SDI
	InvoiceStatusAccepted  InvoiceStatus = "accepted"  // Consegnata / accettata dal SDI
	InvoiceStatusRejected  InvoiceStatus = "rejected"  // Scartata dal SDI
)

// DefaultCurrency divisa de las facturas.
const DefaultCurrency = "EUR"

// Invoice representa la cabecera de una factura.
type Invoice struct {
	ID                string
	InvoiceNumber     string // PREFIX/YEAR/NNNN, inmutable
	InvoiceDate       time.Time
	ClientID          string
	Subtotal          decimal.Decimal
	TaxRate           decimal.Decimal // porcentaje
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal
	WithholdingTax    decimal.Decimal // porcentaje de ritenuta d'acconto
	WithholdingAmount decimal.Decimal
	NetToPay          decimal.Decimal
	StampDuty         decimal.Decimal // imposta di bollo declarada en DatiBollo
	PaymentTerms      string
	PaymentMethod     string
	Notes             string
	Status            InvoiceStatus
	PaidDate          *time.Time
	Currency          string
	ExternalOrderID   string // pedido sincronizado de origen (opcional)
	SDIIdentifier     string
	XMLFilePath       string
	XMLDigest         string // SHA-256 hex del XML canonicalizado
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items []LineItem
}

// LineItem línea de detalle de una factura.
type LineItem struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Position    int
}

// StatusHistoryEntry registro de auditoría de un cambio de estado. OldStatus nil = creación.
type StatusHistoryEntry struct {
	ID        string
	InvoiceID string
	OldStatus *InvoiceStatus
	NewStatus InvoiceStatus
	ChangedAt time.Time
	Actor     string
	Notes     string
}
