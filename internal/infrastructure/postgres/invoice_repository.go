package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/invoicing"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `id, invoice_number, invoice_date, client_id, subtotal, tax_rate, tax_amount, total,
	withholding_tax, withholding_amount, net_to_pay, stamp_duty, payment_terms, payment_method, notes, status,
	paid_date, currency, external_order_id, sdi_identifier, xml_file_path, xml_digest, created_at, updated_at`

var invoiceSortColumns = map[repository.InvoiceSortField]string{
	repository.SortByInvoiceDate:   "invoice_date",
	repository.SortByInvoiceNumber: "invoice_number",
	repository.SortByTotal:         "total",
	repository.SortByCreatedAt:     "created_at",
}

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.InvoiceNumber, inv.InvoiceDate, inv.ClientID, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		inv.Total, inv.WithholdingTax, inv.WithholdingAmount, inv.NetToPay, inv.StampDuty, inv.PaymentTerms,
		inv.PaymentMethod, inv.Notes, inv.Status, inv.PaidDate, inv.Currency, inv.ExternalOrderID,
		inv.SDIIdentifier, inv.XMLFilePath, inv.XMLDigest, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// ReplaceItems borra las líneas actuales e inserta las nuevas.
func (r *InvoiceRepo) ReplaceItems(ctx context.Context, invoiceID string, items []entity.LineItem) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	query := `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := r.q.Exec(ctx, query, id, invoiceID, it.Description, it.Quantity, it.UnitPrice, it.Total, it.Position); err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

// Update actualiza la cabecera; el número es inmutable.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_date       = $2,
		    client_id          = $3,
		    subtotal           = $4,
		    tax_rate           = $5,
		    tax_amount         = $6,
		    total              = $7,
		    withholding_tax    = $8,
		    withholding_amount = $9,
		    net_to_pay         = $10,
		    stamp_duty         = $11,
		    payment_terms      = $12,
		    payment_method     = $13,
		    notes              = $14,
		    status             = $15,
		    paid_date          = $16,
		    sdi_identifier     = $17,
		    xml_file_path      = $18,
		    xml_digest         = $19,
		    updated_at         = $20
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.InvoiceDate, inv.ClientID, inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.WithholdingTax, inv.WithholdingAmount, inv.NetToPay, inv.StampDuty, inv.PaymentTerms,
		inv.PaymentMethod, inv.Notes, inv.Status, inv.PaidDate, inv.SDIIdentifier, inv.XMLFilePath,
		inv.XMLDigest, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// Delete borra la factura; líneas e historial caen por cascada y el pedido vinculado queda libre.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de una factura.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetItems líneas de la factura ordenadas por posición.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]entity.LineItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, total, position
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var items []entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Total, &it.Position); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List lista cabeceras con filtros y ordenación.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.Year > 0 {
		add("EXTRACT(YEAR FROM invoice_date) = $%d", f.Year)
	}
	if f.DateFrom != nil {
		add("invoice_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("invoice_date <= $%d", *f.DateTo)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		where = append(where, fmt.Sprintf("(invoice_number ILIKE $%d OR notes ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	col, ok := invoiceSortColumns[f.SortBy]
	if !ok {
		col = "invoice_date"
	}
	dir := "ASC"
	if f.SortDesc || f.SortBy == "" {
		dir = "DESC"
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY %s %s, invoice_number %s LIMIT $%d OFFSET $%d", col, dir, dir, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// MaxSequence mayor NNNN con formato numérico dentro de PREFIX/YEAR/.
func (r *InvoiceRepo) MaxSequence(ctx context.Context, prefix string, year int) (int, error) {
	ns := invoicing.NumberNamespace(prefix, year)
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(invoice_number FROM CHAR_LENGTH($1::text) + 1) AS INTEGER)), 0)
		FROM invoices
		WHERE invoice_number LIKE $2
		  AND SUBSTRING(invoice_number FROM CHAR_LENGTH($1::text) + 1) ~ '^[0-9]{1,9}$'`
	var highest int
	if err := r.q.QueryRow(ctx, query, ns, escapeLike(ns)+"%").Scan(&highest); err != nil {
		return 0, fmt.Errorf("max invoice sequence: %w", err)
	}
	return highest, nil
}

// CountByClient número de facturas del cliente.
func (r *InvoiceRepo) CountByClient(ctx context.Context, clientID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE client_id = $1`, clientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invoices by client: %w", err)
	}
	return n, nil
}

// AppendHistory añade una entrada al historial de estados.
func (r *InvoiceRepo) AppendHistory(ctx context.Context, e *entity.StatusHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_status_history (id, invoice_id, old_status, new_status, changed_at, actor, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.InvoiceID, e.OldStatus, e.NewStatus, e.ChangedAt, e.Actor, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// ListHistory historial en orden de inserción.
func (r *InvoiceRepo) ListHistory(ctx context.Context, invoiceID string) ([]entity.StatusHistoryEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, old_status, new_status, changed_at, actor, notes
		FROM invoice_status_history WHERE invoice_id = $1 ORDER BY seq`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()
	var list []entity.StatusHistoryEntry
	for rows.Next() {
		var (
			e   entity.StatusHistoryEntry
			old *string
		)
		if err := rows.Scan(&e.ID, &e.InvoiceID, &old, &e.NewStatus, &e.ChangedAt, &e.Actor, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		if old != nil {
			s := entity.InvoiceStatus(*old)
			e.OldStatus = &s
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.ClientID, &inv.Subtotal, &inv.TaxRate,
		&inv.TaxAmount, &inv.Total, &inv.WithholdingTax, &inv.WithholdingAmount, &inv.NetToPay,
		&inv.StampDuty, &inv.PaymentTerms, &inv.PaymentMethod, &inv.Notes, &inv.Status, &inv.PaidDate,
		&inv.Currency, &inv.ExternalOrderID, &inv.SDIIdentifier, &inv.XMLFilePath, &inv.XMLDigest,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
