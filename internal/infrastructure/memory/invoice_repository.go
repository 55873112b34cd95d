package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/invoicing"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo facturas, líneas e historial en memoria.
type InvoiceRepo struct {
	db     *DB
	locked bool
}

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	defer guard(r.db, r.locked)()
	for _, existing := range r.db.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return domain.ErrDuplicate
		}
	}
	if _, ok := r.db.clients[inv.ClientID]; !ok {
		return fmt.Errorf("insert invoice: cliente %s inexistente", inv.ClientID)
	}
	stored := *inv
	stored.Items = nil
	r.db.invoices[inv.ID] = stored
	return nil
}

func (r *InvoiceRepo) ReplaceItems(_ context.Context, invoiceID string, items []entity.LineItem) error {
	defer guard(r.db, r.locked)()
	r.db.items[invoiceID] = append([]entity.LineItem(nil), items...)
	return nil
}

func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	defer guard(r.db, r.locked)()
	current, ok := r.db.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("update invoice: %w", domain.ErrNotFound)
	}
	stored := *inv
	stored.InvoiceNumber = current.InvoiceNumber
	stored.Items = nil
	r.db.invoices[inv.ID] = stored
	return nil
}

// Delete borra en cascada líneas e historial y libera los pedidos vinculados.
func (r *InvoiceRepo) Delete(_ context.Context, id string) error {
	defer guard(r.db, r.locked)()
	delete(r.db.invoices, id)
	delete(r.db.items, id)
	delete(r.db.history, id)
	for k, o := range r.db.orders {
		if o.InvoiceID == id {
			o.InvoiceID = ""
			r.db.orders[k] = o
		}
	}
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	defer guard(r.db, r.locked)()
	inv, ok := r.db.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *InvoiceRepo) GetItems(_ context.Context, invoiceID string) ([]entity.LineItem, error) {
	defer guard(r.db, r.locked)()
	items := append([]entity.LineItem(nil), r.db.items[invoiceID]...)
	slices.SortFunc(items, func(a, b entity.LineItem) int { return a.Position - b.Position })
	return items, nil
}

func (r *InvoiceRepo) List(_ context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	defer guard(r.db, r.locked)()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var list []*entity.Invoice
	for _, inv := range r.db.invoices {
		switch {
		case f.Status != "" && inv.Status != f.Status,
			f.ClientID != "" && inv.ClientID != f.ClientID,
			f.Year > 0 && inv.InvoiceDate.Year() != f.Year,
			f.DateFrom != nil && inv.InvoiceDate.Before(*f.DateFrom),
			f.DateTo != nil && inv.InvoiceDate.After(*f.DateTo),
			search != "" && !containsAny(search, inv.InvoiceNumber, inv.Notes):
			continue
		}
		inv := inv
		list = append(list, &inv)
	}
	desc := f.SortDesc || f.SortBy == ""
	slices.SortFunc(list, func(a, b *entity.Invoice) int {
		n := compareInvoices(a, b, f.SortBy)
		if n == 0 {
			n = strings.Compare(a.InvoiceNumber, b.InvoiceNumber)
		}
		if desc {
			return -n
		}
		return n
	})
	return page(list, f.Limit, f.Offset), nil
}

func compareInvoices(a, b *entity.Invoice, by repository.InvoiceSortField) int {
	switch by {
	case repository.SortByInvoiceNumber:
		return strings.Compare(a.InvoiceNumber, b.InvoiceNumber)
	case repository.SortByTotal:
		return a.Total.Cmp(b.Total)
	case repository.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.InvoiceDate.Compare(b.InvoiceDate)
	}
}

func (r *InvoiceRepo) MaxSequence(_ context.Context, prefix string, year int) (int, error) {
	defer guard(r.db, r.locked)()
	numbers := make([]string, 0, len(r.db.invoices))
	for _, inv := range r.db.invoices {
		numbers = append(numbers, inv.InvoiceNumber)
	}
	return invoicing.MaxSequence(numbers, prefix, year), nil
}

func (r *InvoiceRepo) CountByClient(_ context.Context, clientID string) (int, error) {
	defer guard(r.db, r.locked)()
	n := 0
	for _, inv := range r.db.invoices {
		if inv.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (r *InvoiceRepo) AppendHistory(_ context.Context, e *entity.StatusHistoryEntry) error {
	defer guard(r.db, r.locked)()
	r.db.history[e.InvoiceID] = append(r.db.history[e.InvoiceID], *e)
	return nil
}

func (r *InvoiceRepo) ListHistory(_ context.Context, invoiceID string) ([]entity.StatusHistoryEntry, error) {
	defer guard(r.db, r.locked)()
	return append([]entity.StatusHistoryEntry(nil), r.db.history[invoiceID]...), nil
}
