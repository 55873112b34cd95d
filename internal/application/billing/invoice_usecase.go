package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

const dateLayout = "2006-01-02"

// InvoiceUseCase traduce los DTOs de la API a operaciones del libro.
type InvoiceUseCase struct {
	ledger *Ledger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(ledger *Ledger) *InvoiceUseCase {
	return &InvoiceUseCase{ledger: ledger}
}

// Create da de alta una factura draft.
func (uc *InvoiceUseCase) Create(ctx context.Context, in dto.CreateInvoiceRequest, actor string) (*dto.InvoiceResponse, error) {
	date, err := parseDate("invoice_date", in.InvoiceDate)
	if err != nil {
		return nil, err
	}
	inv, err := uc.ledger.Create(ctx, CreateInvoiceInput{
		InvoiceNumber:   in.InvoiceNumber,
		InvoiceDate:     date,
		ClientID:        in.ClientID,
		Items:           toItemInputs(in.Items),
		TaxRate:         in.TaxRate,
		WithholdingRate: in.WithholdingTax,
		PaymentTerms:    in.PaymentTerms,
		PaymentMethod:   in.PaymentMethod,
		Notes:           in.Notes,
		Actor:           actor,
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// Update aplica un cambio parcial.
func (uc *InvoiceUseCase) Update(ctx context.Context, id string, in dto.UpdateInvoiceRequest, actor string) (*dto.InvoiceResponse, error) {
	patch := InvoicePatch{
		ClientID:       in.ClientID,
		TaxRate:        in.TaxRate,
		WithholdingTax: in.WithholdingTax,
		PaymentTerms:   in.PaymentTerms,
		PaymentMethod:  in.PaymentMethod,
		Notes:          in.Notes,
		StatusNotes:    in.StatusNotes,
		SDIIdentifier:  in.SDIIdentifier,
	}
	if in.InvoiceDate != nil {
		date, err := parseDate("invoice_date", *in.InvoiceDate)
		if err != nil {
			return nil, err
		}
		patch.InvoiceDate = &date
	}
	if in.Items != nil {
		patch.Items = toItemInputs(in.Items)
	}
	if in.Status != nil {
		s := entity.InvoiceStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		patch.Status = &s
	}
	inv, err := uc.ledger.Update(ctx, id, patch, actor)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// ChangeStatus cambio de estado con nota para el historial.
func (uc *InvoiceUseCase) ChangeStatus(ctx context.Context, id string, in dto.ChangeStatusRequest, actor string) (*dto.InvoiceResponse, error) {
	inv, err := uc.ledger.ChangeStatus(ctx, id, entity.InvoiceStatus(strings.ToLower(strings.TrimSpace(in.Status))), actor, in.Notes)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// Get factura con líneas.
func (uc *InvoiceUseCase) Get(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(inv), nil
}

// List facturas filtradas y ordenadas.
func (uc *InvoiceUseCase) List(ctx context.Context, in dto.InvoiceListRequest) ([]*dto.InvoiceResponse, error) {
	in.DefaultPage()
	f := repository.InvoiceFilter{
		Status:   entity.InvoiceStatus(in.Status),
		ClientID: in.ClientID,
		Year:     in.Year,
		Search:   in.Search,
		SortBy:   repository.InvoiceSortField(in.SortBy),
		SortDesc: in.SortDesc,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	var reasons []string
	for _, p := range []struct {
		field, value string
		dst          **time.Time
	}{
		{"date_from", in.DateFrom, &f.DateFrom},
		{"date_to", in.DateTo, &f.DateTo},
	} {
		if p.value == "" {
			continue
		}
		t, err := time.Parse(dateLayout, p.value)
		if err != nil {
			reasons = append(reasons, p.field+" debe tener formato YYYY-MM-DD")
			continue
		}
		*p.dst = &t
	}
	switch f.SortBy {
	case "", repository.SortByInvoiceDate, repository.SortByInvoiceNumber, repository.SortByTotal, repository.SortByCreatedAt:
	default:
		reasons = append(reasons, fmt.Sprintf("sort_by no soportado: %q", in.SortBy))
	}
	if len(reasons) > 0 {
		return nil, domain.NewValidationError(reasons...)
	}

	list, err := uc.ledger.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out, nil
}

// Delete borra la factura; el pedido de origen, si lo hay, queda sin vínculo.
func (uc *InvoiceUseCase) Delete(ctx context.Context, id string) error {
	return uc.ledger.Delete(ctx, id)
}

// History historial de estados en orden cronológico.
func (uc *InvoiceUseCase) History(ctx context.Context, id string) ([]dto.StatusHistoryResponse, error) {
	entries, err := uc.ledger.History(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StatusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		r := dto.StatusHistoryResponse{
			NewStatus: string(e.NewStatus),
			ChangedAt: e.ChangedAt,
			Actor:     e.Actor,
			Notes:     e.Notes,
		}
		if e.OldStatus != nil {
			old := string(*e.OldStatus)
			r.OldStatus = &old
		}
		out = append(out, r)
	}
	return out, nil
}

// NextNumber número que recibiría la próxima factura del año (0 = año en curso). No lo reserva.
func (uc *InvoiceUseCase) NextNumber(ctx context.Context, year int) (*dto.NextNumberResponse, error) {
	if year == 0 {
		year = uc.ledger.now().Year()
	}
	n, err := uc.ledger.GenerateNextNumber(ctx, uc.ledger.Settings().InvoicePrefix, year)
	if err != nil {
		return nil, err
	}
	return &dto.NextNumberResponse{Number: n}, nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.NewValidationError(field + " debe tener formato YYYY-MM-DD")
	}
	return t, nil
}

func toItemInputs(in []dto.LineItemRequest) []ItemInput {
	out := make([]ItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, ItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

// ToInvoiceResponse convierte la entidad a DTO.
func ToInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	r := &dto.InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		InvoiceDate:       inv.InvoiceDate.Format(dateLayout),
		ClientID:          inv.ClientID,
		Subtotal:          inv.Subtotal,
		TaxRate:           inv.TaxRate,
		TaxAmount:         inv.TaxAmount,
		Total:             inv.Total,
		WithholdingTax:    inv.WithholdingTax,
		WithholdingAmount: inv.WithholdingAmount,
		NetToPay:          inv.NetToPay,
		StampDuty:         inv.StampDuty,
		PaymentTerms:      inv.PaymentTerms,
		PaymentMethod:     inv.PaymentMethod,
		Notes:             inv.Notes,
		Status:            string(inv.Status),
		Currency:          inv.Currency,
		ExternalOrderID:   inv.ExternalOrderID,
		SDIIdentifier:     inv.SDIIdentifier,
		XMLFilePath:       inv.XMLFilePath,
		XMLDigest:         inv.XMLDigest,
	}
	if inv.PaidDate != nil {
		r.PaidDate = inv.PaidDate.Format(dateLayout)
	}
	for _, it := range inv.Items {
		r.Items = append(r.Items, dto.LineItemResponse{
			Position:    it.Position,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}
	return r
}
