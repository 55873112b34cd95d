package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

// PDFUseCase genera la copia de cortesía en PDF de una factura del libro.
type PDFUseCase struct {
	ledger     *Ledger
	clientRepo repository.ClientRepository
	business   entity.BusinessProfile
	generator  InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	ledger *Ledger,
	clientRepo repository.ClientRepository,
	business entity.BusinessProfile,
	generator InvoicePDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		ledger:     ledger,
		clientRepo: clientRepo,
		business:   business,
		generator:  generator,
	}
}

// DownloadInvoicePDF carga factura y cliente y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura o su cliente no existen.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, invoiceID string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura con líneas ──────────────────────────────────────────
	inv, err := uc.ledger.Get(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}

	// ── 2. Cargar cliente ─────────────────────────────────────────────────────
	client, err := uc.clientRepo.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, "", &domain.PersistenceError{Op: "pdf: obtener cliente", Err: err}
	}
	if client == nil {
		return nil, "", &domain.NotFoundError{Entity: "cliente", ID: inv.ClientID}
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	business := uc.business
	business.FlatRateRegime = uc.ledger.Settings().FlatRateRegime
	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, inv, business, client)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("fattura_%s.pdf", strings.ReplaceAll(inv.InvoiceNumber, "/", "_"))
	return pdfBytes, filename, nil
}
