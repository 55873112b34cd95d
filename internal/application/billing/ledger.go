package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/fiscal"
	"github.com/jhoicas/fatture-rf/internal/domain/invoicing"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/internal/domain/tax"
)

// maxNumberAttempts reintentos de creación cuando el número auto-asignado colisiona.
const maxNumberAttempts = 5

// NumberConflictError el número de factura ya está persistido.
type NumberConflictError struct {
	Number string
	Auto   bool // asignado por el sistema: la creación se puede reintentar
}

func (e *NumberConflictError) Error() string {
	return fmt.Sprintf("el número de factura %s ya existe", e.Number)
}

func (e *NumberConflictError) Is(target error) bool { return target == domain.ErrConflict }

// ItemInput línea de factura de entrada. UnitPrice puede ser negativo (descuentos).
type ItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateInvoiceInput datos de alta de una factura.
type CreateInvoiceInput struct {
	InvoiceNumber   string    // vacío = siguiente número PREFIX/YEAR/NNNN
	InvoiceDate     time.Time // cero = hoy
	ClientID        string
	Items           []ItemInput
	TaxRate         *decimal.Decimal // nil = 0
	ReportedTax     *decimal.Decimal // IVA ya calculado por la tienda (pedidos importados)
	WithholdingRate *decimal.Decimal // nil = valor por defecto de Settings
	StampDuty       decimal.Decimal
	PaymentTerms    string
	PaymentMethod   string
	Notes           string
	Status          entity.InvoiceStatus // solo draft
	ExternalOrderID string
	Actor           string
}

// InvoicePatch actualización parcial; los campos nil no se modifican.
type InvoicePatch struct {
	InvoiceDate    *time.Time
	ClientID       *string
	Items          []ItemInput // nil = sin cambios; no nil = reemplazo completo
	TaxRate        *decimal.Decimal
	WithholdingTax *decimal.Decimal
	PaymentTerms   *string
	PaymentMethod  *string
	Notes          *string
	Status         *entity.InvoiceStatus
	StatusNotes    string
	SDIIdentifier  *string
	PaidDate       *time.Time
}

// Ledger libro de facturas: alta, numeración, líneas, máquina de estados e historial.
type Ledger struct {
	tx          TxRunner
	invoiceRepo repository.InvoiceRepository
	settings    Settings
	now         func() time.Time
}

// NewLedger construye el libro. invoiceRepo se usa para lecturas fuera de transacción.
func NewLedger(tx TxRunner, invoiceRepo repository.InvoiceRepository, settings Settings) *Ledger {
	return &Ledger{tx: tx, invoiceRepo: invoiceRepo, settings: settings, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Settings devuelve la configuración con la que se construyó.
func (l *Ledger) Settings() Settings { return l.settings }

// Create crea la factura en estado draft con su primera entrada de historial.
func (l *Ledger) Create(ctx context.Context, in CreateInvoiceInput) (*entity.Invoice, error) {
	var created *entity.Invoice
	err := l.RunCreate(ctx, func(
		clientRepo repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.OrderRepository,
	) error {
		inv, err := l.CreateInTx(ctx, clientRepo, invoiceRepo, in)
		if err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RunCreate ejecuta fn en una transacción y la repite completa si el número
// asignado automáticamente ya fue tomado por otra escritura concurrente.
func (l *Ledger) RunCreate(ctx context.Context, fn func(
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
) error) error {
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = l.tx.RunBilling(ctx, fn)
		var nc *NumberConflictError
		if err == nil || !errors.As(err, &nc) || !nc.Auto {
			return err
		}
	}
	return err
}

// CreateInTx da de alta la factura usando los repos de la transacción del caller.
func (l *Ledger) CreateInTx(
	ctx context.Context,
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	in CreateInvoiceInput,
) (*entity.Invoice, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	client, err := clientRepo.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener cliente", Err: err}
	}
	if client == nil {
		return nil, &domain.NotFoundError{Entity: "cliente", ID: in.ClientID}
	}
	if err := fiscal.Validate(fiscal.SnapshotOf(client)); err != nil {
		return nil, err
	}

	now := l.now()
	date := in.InvoiceDate
	if date.IsZero() {
		date = now
	}

	number := strings.TrimSpace(in.InvoiceNumber)
	auto := number == ""
	if auto {
		number, err = l.nextNumber(ctx, invoiceRepo, l.settings.InvoicePrefix, date.Year())
		if err != nil {
			return nil, err
		}
	}

	taxRate := decimal.Zero
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	withholding := l.defaultWithholding()
	if in.WithholdingRate != nil {
		withholding = *in.WithholdingRate
	}
	lines := toTaxLines(in.Items)
	var totals tax.Totals
	if in.ReportedTax != nil {
		totals = tax.ComputeWithTax(lines, *in.ReportedTax, withholding)
	} else {
		totals = tax.Compute(lines, taxRate, withholding)
	}

	inv := &entity.Invoice{
		ID:                uuid.New().String(),
		InvoiceNumber:     number,
		InvoiceDate:       date,
		ClientID:          client.ID,
		Subtotal:          totals.Subtotal,
		TaxRate:           taxRate,
		TaxAmount:         totals.TaxAmount,
		Total:             totals.Total,
		WithholdingTax:    withholding,
		WithholdingAmount: totals.WithholdingAmount,
		NetToPay:          totals.NetToPay,
		StampDuty:         in.StampDuty.Round(2),
		PaymentTerms:      firstNonEmpty(in.PaymentTerms, l.settings.DefaultPaymentTerms),
		PaymentMethod:     firstNonEmpty(in.PaymentMethod, l.settings.DefaultPaymentMethod),
		Notes:             firstNonEmpty(in.Notes, l.settings.DefaultNotes),
		Status:            entity.InvoiceStatusDraft,
		Currency:          firstNonEmpty(l.settings.Currency, entity.DefaultCurrency),
		ExternalOrderID:   in.ExternalOrderID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	inv.Items = buildItems(inv.ID, in.Items)

	if err := invoiceRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, &NumberConflictError{Number: number, Auto: auto}
		}
		return nil, &domain.PersistenceError{Op: "crear factura", Err: err}
	}
	if err := invoiceRepo.ReplaceItems(ctx, inv.ID, inv.Items); err != nil {
		return nil, &domain.PersistenceError{Op: "guardar líneas de factura", Err: err}
	}
	if err := invoiceRepo.AppendHistory(ctx, &entity.StatusHistoryEntry{
		ID:        uuid.New().String(),
		InvoiceID: inv.ID,
		OldStatus: nil,
		NewStatus: entity.InvoiceStatusDraft,
		ChangedAt: now,
		Actor:     in.Actor,
		Notes:     "Fattura creata",
	}); err != nil {
		return nil, &domain.PersistenceError{Op: "registrar historial", Err: err}
	}
	return inv, nil
}

// Update aplica un cambio parcial. Un cambio de estado se valida contra la máquina de estados
// y añade exactamente una entrada de historial; las líneas se reemplazan en la misma transacción.
func (l *Ledger) Update(ctx context.Context, id string, patch InvoicePatch, actor string) (*entity.Invoice, error) {
	var updated *entity.Invoice
	err := l.tx.RunBilling(ctx, func(
		clientRepo repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.OrderRepository,
	) error {
		inv, err := l.load(ctx, invoiceRepo, id)
		if err != nil {
			return err
		}
		now := l.now()

		amountsPatched := patch.Items != nil || patch.TaxRate != nil || patch.WithholdingTax != nil
		if amountsPatched && invoicing.Terminal(inv.Status) {
			return &domain.ConflictError{Reason: fmt.Sprintf("la factura %s está en estado %s: no admite cambios de líneas ni importes", inv.InvoiceNumber, inv.Status)}
		}

		if patch.ClientID != nil && *patch.ClientID != inv.ClientID {
			client, err := clientRepo.GetByID(ctx, *patch.ClientID)
			if err != nil {
				return &domain.PersistenceError{Op: "obtener cliente", Err: err}
			}
			if client == nil {
				return &domain.NotFoundError{Entity: "cliente", ID: *patch.ClientID}
			}
			if err := fiscal.Validate(fiscal.SnapshotOf(client)); err != nil {
				return err
			}
			inv.ClientID = client.ID
		}
		if patch.InvoiceDate != nil {
			inv.InvoiceDate = *patch.InvoiceDate
		}
		if patch.PaymentTerms != nil {
			inv.PaymentTerms = *patch.PaymentTerms
		}
		if patch.PaymentMethod != nil {
			inv.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Notes != nil {
			inv.Notes = *patch.Notes
		}
		if patch.SDIIdentifier != nil {
			inv.SDIIdentifier = *patch.SDIIdentifier
		}
		if patch.PaidDate != nil {
			inv.PaidDate = patch.PaidDate
		}

		prevSubtotal, prevTax, prevRate := inv.Subtotal, inv.TaxAmount, inv.TaxRate
		var newRate *decimal.Decimal
		recompute := false
		if patch.Items != nil {
			if err := validateItems(patch.Items); err != nil {
				return err
			}
			inv.Items = buildItems(inv.ID, patch.Items)
			recompute = true
		}
		if patch.TaxRate != nil {
			if patch.TaxRate.IsNegative() {
				return domain.NewValidationError("el tipo de IVA no puede ser negativo")
			}
			if !patch.TaxRate.Equal(prevRate) {
				newRate = patch.TaxRate
				inv.TaxRate = *patch.TaxRate
			}
			recompute = true
		}
		if patch.WithholdingTax != nil {
			if patch.WithholdingTax.IsNegative() || patch.WithholdingTax.GreaterThan(decimal.NewFromInt(100)) {
				return domain.NewValidationError("la ritenuta debe estar entre 0 y 100")
			}
			inv.WithholdingTax = *patch.WithholdingTax
			recompute = true
		}
		if recompute {
			applyTotals(inv, recomputeTotals(itemsToTaxLines(inv.Items), prevSubtotal, prevTax, prevRate, newRate, inv.WithholdingTax))
		}

		var entry *entity.StatusHistoryEntry
		if patch.Status != nil && *patch.Status != inv.Status {
			if err := invoicing.CheckTransition(inv.Status, *patch.Status); err != nil {
				return err
			}
			old := inv.Status
			entry = &entity.StatusHistoryEntry{
				ID:        uuid.New().String(),
				InvoiceID: inv.ID,
				OldStatus: &old,
				NewStatus: *patch.Status,
				ChangedAt: now,
				Actor:     actor,
				Notes:     patch.StatusNotes,
			}
			inv.Status = *patch.Status
			if inv.Status == entity.InvoiceStatusPaid && inv.PaidDate == nil {
				paid := now
				inv.PaidDate = &paid
			}
		}

		inv.UpdatedAt = now
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return &domain.PersistenceError{Op: "actualizar factura", Err: err}
		}
		if patch.Items != nil {
			if err := invoiceRepo.ReplaceItems(ctx, inv.ID, inv.Items); err != nil {
				return &domain.PersistenceError{Op: "reemplazar líneas de factura", Err: err}
			}
		}
		if entry != nil {
			if err := invoiceRepo.AppendHistory(ctx, entry); err != nil {
				return &domain.PersistenceError{Op: "registrar historial", Err: err}
			}
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeStatus atajo de Update para un cambio de estado con nota.
func (l *Ledger) ChangeStatus(ctx context.Context, id string, status entity.InvoiceStatus, actor, notes string) (*entity.Invoice, error) {
	return l.Update(ctx, id, InvoicePatch{Status: &status, StatusNotes: notes}, actor)
}

// Delete borra la factura con sus líneas e historial.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	return l.tx.RunBilling(ctx, func(
		_ repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.OrderRepository,
	) error {
		inv, err := invoiceRepo.GetByID(ctx, id)
		if err != nil {
			return &domain.PersistenceError{Op: "obtener factura", Err: err}
		}
		if inv == nil {
			return &domain.NotFoundError{Entity: "factura", ID: id}
		}
		if err := invoiceRepo.Delete(ctx, id); err != nil {
			return &domain.PersistenceError{Op: "borrar factura", Err: err}
		}
		return nil
	})
}

// RecordDocument guarda la ruta y el digest del último XML generado.
func (l *Ledger) RecordDocument(ctx context.Context, id, path, digest string) error {
	return l.tx.RunBilling(ctx, func(
		_ repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.OrderRepository,
	) error {
		inv, err := invoiceRepo.GetByID(ctx, id)
		if err != nil {
			return &domain.PersistenceError{Op: "obtener factura", Err: err}
		}
		if inv == nil {
			return &domain.NotFoundError{Entity: "factura", ID: id}
		}
		inv.XMLFilePath = path
		inv.XMLDigest = digest
		inv.UpdatedAt = l.now()
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return &domain.PersistenceError{Op: "guardar documento fiscal", Err: err}
		}
		return nil
	})
}

// Get devuelve la factura con sus líneas.
func (l *Ledger) Get(ctx context.Context, id string) (*entity.Invoice, error) {
	return l.load(ctx, l.invoiceRepo, id)
}

// List lista cabeceras de facturas según el filtro.
func (l *Ledger) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Status != "" && !invoicing.ValidStatus(f.Status) {
		return nil, domain.NewValidationError(fmt.Sprintf("estado desconocido: %q", f.Status))
	}
	list, err := l.invoiceRepo.List(ctx, f)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar facturas", Err: err}
	}
	return list, nil
}

// History devuelve el historial de estados en orden cronológico.
func (l *Ledger) History(ctx context.Context, id string) ([]entity.StatusHistoryEntry, error) {
	if _, err := l.load(ctx, l.invoiceRepo, id); err != nil {
		return nil, err
	}
	entries, err := l.invoiceRepo.ListHistory(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar historial", Err: err}
	}
	return entries, nil
}

// GenerateNextNumber PREFIX/YEAR/NNNN a partir del máximo persistido. prefix vacío = prefijo configurado.
func (l *Ledger) GenerateNextNumber(ctx context.Context, prefix string, year int) (string, error) {
	return l.nextNumber(ctx, l.invoiceRepo, prefix, year)
}

func (l *Ledger) nextNumber(ctx context.Context, repo repository.InvoiceRepository, prefix string, year int) (string, error) {
	prefix = firstNonEmpty(strings.TrimSpace(prefix), l.settings.InvoicePrefix, "FATT")
	if year <= 0 {
		year = l.now().Year()
	}
	current, err := repo.MaxSequence(ctx, prefix, year)
	if err != nil {
		return "", &domain.PersistenceError{Op: "calcular siguiente número", Err: err}
	}
	return invoicing.NextNumber(prefix, year, current), nil
}

func (l *Ledger) load(ctx context.Context, repo repository.InvoiceRepository, id string) (*entity.Invoice, error) {
	inv, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener factura", Err: err}
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Entity: "factura", ID: id}
	}
	items, err := repo.GetItems(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener líneas de factura", Err: err}
	}
	inv.Items = items
	return inv, nil
}

func (l *Ledger) defaultWithholding() decimal.Decimal {
	if l.settings.ApplyWithholding {
		return l.settings.WithholdingRate
	}
	return decimal.Zero
}

func validateCreate(in CreateInvoiceInput) error {
	var reasons []string
	if strings.TrimSpace(in.ClientID) == "" {
		reasons = append(reasons, "el cliente es obligatorio")
	}
	if in.Status != "" && in.Status != entity.InvoiceStatusDraft {
		reasons = append(reasons, "una factura nueva solo puede crearse en estado draft")
	}
	if in.TaxRate != nil && in.TaxRate.IsNegative() {
		reasons = append(reasons, "el tipo de IVA no puede ser negativo")
	}
	if in.WithholdingRate != nil && (in.WithholdingRate.IsNegative() || in.WithholdingRate.GreaterThan(decimal.NewFromInt(100))) {
		reasons = append(reasons, "la ritenuta debe estar entre 0 y 100")
	}
	if err := validateItems(in.Items); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			reasons = append(reasons, vErr.Reasons...)
		}
	}
	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return domain.NewValidationError("la factura debe tener al menos una línea")
	}
	var reasons []string
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			reasons = append(reasons, fmt.Sprintf("línea %d: descripción obligatoria", i+1))
		}
		if !it.Quantity.IsPositive() {
			reasons = append(reasons, fmt.Sprintf("línea %d: la cantidad debe ser mayor que cero", i+1))
		}
	}
	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}

func buildItems(invoiceID string, in []ItemInput) []entity.LineItem {
	items := make([]entity.LineItem, 0, len(in))
	for i, it := range in {
		items = append(items, entity.LineItem{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       tax.LineTotal(tax.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}),
			Position:    i + 1,
		})
	}
	return items
}

func toTaxLines(in []ItemInput) []tax.Line {
	lines := make([]tax.Line, 0, len(in))
	for _, it := range in {
		lines = append(lines, tax.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return lines
}

func itemsToTaxLines(items []entity.LineItem) []tax.Line {
	lines := make([]tax.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, tax.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return lines
}

// recomputeTotals totales tras editar líneas o tipos. Un tipo de IVA nuevo se aplica sobre el
// subtotal. Si no cambia, se conserva el IVA persistido: en las facturas importadas es el
// importe de la tienda y no coincide con tipo × subtotal, así que se escala al nuevo subtotal.
func recomputeTotals(lines []tax.Line, prevSubtotal, prevTax, prevRate decimal.Decimal, newRate *decimal.Decimal, withholding decimal.Decimal) tax.Totals {
	if newRate != nil {
		return tax.Compute(lines, *newRate, withholding)
	}
	if tax.Percent(prevSubtotal, prevRate).Equal(prevTax) {
		return tax.Compute(lines, prevRate, withholding)
	}
	subtotal := tax.Subtotal(lines)
	if subtotal.Equal(prevSubtotal) || prevSubtotal.IsZero() {
		return tax.ComputeWithTax(lines, prevTax, withholding)
	}
	return tax.ComputeWithTax(lines, prevTax.Mul(subtotal).Div(prevSubtotal), withholding)
}

func applyTotals(inv *entity.Invoice, t tax.Totals) {
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
	inv.WithholdingAmount = t.WithholdingAmount
	inv.NetToPay = t.NetToPay
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
