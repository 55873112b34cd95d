package repository

import (
	"context"
	"time"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// InvoiceSortField columnas de ordenación admitidas en el listado.
type InvoiceSortField string

const (
	SortByInvoiceDate   InvoiceSortField = "invoice_date"
	SortByInvoiceNumber InvoiceSortField = "invoice_number"
	SortByTotal         InvoiceSortField = "total"
	SortByCreatedAt     InvoiceSortField = "created_at"
)

// InvoiceFilter opciones de listado de facturas.
type InvoiceFilter struct {
	Status   entity.InvoiceStatus
	ClientID string
	Year     int
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string // número o notas
	SortBy   InvoiceSortField
	SortDesc bool
	Limit    int
	Offset   int
}

// InvoiceRepository define el puerto de persistencia para Invoice, sus líneas y su historial.
type InvoiceRepository interface {
	// Create persiste la cabecera. Devuelve domain.ErrDuplicate si el número ya existe.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// ReplaceItems borra e inserta las líneas de la factura (llamar dentro de una tx).
	ReplaceItems(ctx context.Context, invoiceID string, items []entity.LineItem) error
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]entity.LineItem, error)
	List(ctx context.Context, f InvoiceFilter) ([]*entity.Invoice, error)
	// MaxSequence mayor NNNN persistido en el espacio PREFIX/YEAR/.
	MaxSequence(ctx context.Context, prefix string, year int) (int, error)
	CountByClient(ctx context.Context, clientID string) (int, error)
	AppendHistory(ctx context.Context, entry *entity.StatusHistoryEntry) error
	ListHistory(ctx context.Context, invoiceID string) ([]entity.StatusHistoryEntry, error)
}
