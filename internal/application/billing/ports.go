package billing

import (
	"context"
	"errors"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con los repos de facturación atados a ella.
// Si fn devuelve error se hace rollback de todo lo escrito.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		clientRepo repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		orderRepo repository.OrderRepository,
	) error) error
}

// DocumentBuilder serializa una factura al formato FatturaPA.
type DocumentBuilder interface {
	Build(doc *FiscalDocument) ([]byte, error)
	// Digest SHA-256 hex de la forma canónica del XML.
	Digest(xmlBytes []byte) (string, error)
}

// ErrSchemaUnavailable no hay XSD local: el documento se genera igualmente, con aviso.
var ErrSchemaUnavailable = errors.New("esquema FatturaPA no disponible")

// SchemaValidator valida el XML contra el XSD publicado. Devuelve ErrSchemaUnavailable si no hay XSD local.
type SchemaValidator interface {
	Validate(xmlBytes []byte) error
}

// InvoicePDFGenerator genera la copia de cortesía en PDF.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(
		ctx context.Context,
		invoice *entity.Invoice,
		business entity.BusinessProfile,
		client *entity.Client,
	) ([]byte, error)
}

// FiscalDocument datos completos que necesita el builder XML.
type FiscalDocument struct {
	Invoice  *entity.Invoice
	Client   *entity.Client
	Business entity.BusinessProfile
	Settings Settings
}
