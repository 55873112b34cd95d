package billing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/fiscal"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

// GeneratedDocument XML FatturaPA de una factura.
type GeneratedDocument struct {
	Invoice  *entity.Invoice
	XML      []byte
	Digest   string // SHA-256 hex de la forma canónica
	FileName string
	Path     string // solo tras SaveToFile
	Warning  string // p. ej. esquema no disponible
}

// FiscalDocumentUseCase genera y archiva el XML FatturaPA de las facturas del libro.
type FiscalDocumentUseCase struct {
	ledger     *Ledger
	clientRepo repository.ClientRepository
	business   entity.BusinessProfile
	builder    DocumentBuilder
	validator  SchemaValidator
	log        *logger.Logger
}

// NewFiscalDocumentUseCase validator puede ser nil (sin comprobación de esquema).
func NewFiscalDocumentUseCase(
	ledger *Ledger,
	clientRepo repository.ClientRepository,
	business entity.BusinessProfile,
	builder DocumentBuilder,
	validator SchemaValidator,
	log *logger.Logger,
) *FiscalDocumentUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &FiscalDocumentUseCase{
		ledger:     ledger,
		clientRepo: clientRepo,
		business:   business,
		builder:    builder,
		validator:  validator,
		log:        log.WithComponent("fatturapa"),
	}
}

// DocumentFileName nombre SDI del archivo: {país}{P.IVA}_{número con / → _}.xml
func DocumentFileName(business entity.BusinessProfile, invoiceNumber string) string {
	return fmt.Sprintf("%s%s_%s.xml",
		fiscal.NormalizeCountry(business.Country), business.VATNumber, strings.ReplaceAll(invoiceNumber, "/", "_"))
}

// Generate construye el XML sin escribirlo. Un esquema ausente se devuelve como Warning.
func (uc *FiscalDocumentUseCase) Generate(ctx context.Context, invoiceID string) (*GeneratedDocument, error) {
	// ── 1. Cargar factura y cliente ───────────────────────────────────────────
	inv, err := uc.ledger.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	client, err := uc.clientRepo.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener cliente", Err: err}
	}
	if client == nil {
		return nil, &domain.NotFoundError{Entity: "cliente", ID: inv.ClientID}
	}

	// ── 2. Precondiciones ─────────────────────────────────────────────────────
	if err := checkPreconditions(uc.business, client, inv); err != nil {
		return nil, err
	}

	// ── 3. Serializar ─────────────────────────────────────────────────────────
	xmlBytes, err := uc.builder.Build(&FiscalDocument{
		Invoice:  inv,
		Client:   client,
		Business: uc.business,
		Settings: uc.ledger.Settings(),
	})
	if err != nil {
		return nil, fmt.Errorf("generar XML: %w", err)
	}
	digest, err := uc.builder.Digest(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("digest XML: %w", err)
	}

	out := &GeneratedDocument{
		Invoice:  inv,
		XML:      xmlBytes,
		Digest:   digest,
		FileName: DocumentFileName(uc.business, inv.InvoiceNumber),
	}

	// ── 4. Esquema ────────────────────────────────────────────────────────────
	if uc.validator != nil {
		switch err := uc.validator.Validate(xmlBytes); {
		case errors.Is(err, ErrSchemaUnavailable):
			out.Warning = err.Error()
			uc.log.Warn().Str("invoice_number", inv.InvoiceNumber).Err(err).Msg("XML generado sin validación de esquema")
		case err != nil:
			return nil, err
		}
	}
	return out, nil
}

// SaveToFile genera el XML, lo escribe en dir (vacío = directorio configurado)
// y guarda ruta y digest en la factura.
func (uc *FiscalDocumentUseCase) SaveToFile(ctx context.Context, invoiceID, dir string) (*GeneratedDocument, error) {
	doc, err := uc.Generate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = uc.ledger.Settings().XMLOutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.PersistenceError{Op: "crear directorio XML", Err: err}
	}
	path := filepath.Join(dir, doc.FileName)
	if err := os.WriteFile(path, doc.XML, 0o644); err != nil {
		return nil, &domain.PersistenceError{Op: "escribir XML", Err: err}
	}
	if err := uc.ledger.RecordDocument(ctx, invoiceID, path, doc.Digest); err != nil {
		return nil, err
	}
	doc.Path = path
	doc.Invoice.XMLFilePath = path
	doc.Invoice.XMLDigest = doc.Digest

	uc.log.Info().
		Str("invoice_number", doc.Invoice.InvoiceNumber).
		Str("path", path).
		Str("digest", doc.Digest).
		Msg("XML FatturaPA guardado")
	return doc, nil
}

// checkPreconditions reúne en un único ValidationError todo lo que impide emitir el XML.
func checkPreconditions(business entity.BusinessProfile, client *entity.Client, inv *entity.Invoice) error {
	var reasons []string
	if strings.TrimSpace(business.VATNumber) == "" {
		reasons = append(reasons, "falta la Partita IVA del emisor")
	}
	if fiscal.NormalizeCountry(business.Country) == "" {
		reasons = append(reasons, "falta el país del emisor")
	}
	if fiscal.Classify(client.Country) == entity.ClientTypeIT {
		if strings.TrimSpace(client.VATNumber) == "" && strings.TrimSpace(client.TaxCode) == "" {
			reasons = append(reasons, "cliente italiano: se requiere Partita IVA o Codice Fiscale")
		}
		if strings.TrimSpace(client.SDICode) == "" && strings.TrimSpace(client.PECEmail) == "" {
			reasons = append(reasons, "cliente italiano: se requiere Codice Destinatario SDI o PEC")
		}
	}
	if len(inv.Items) == 0 {
		reasons = append(reasons, "la factura no tiene líneas")
	}
	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}
