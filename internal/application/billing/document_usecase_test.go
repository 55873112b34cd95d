package billing_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/fatturapa"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/memory"
)

func business() entity.BusinessProfile {
	return entity.BusinessProfile{
		Name:       "Mario Bianchi",
		VATNumber:  "09876543210",
		TaxCode:    "BNCMRA80A01H501U",
		Country:    "IT",
		City:       "Roma",
		PostalCode: "00100",
		Province:   "RM",
	}
}

func newDocuments(t *testing.T, biz entity.BusinessProfile, schemaPath string) (*billing.FiscalDocumentUseCase, *billing.Ledger, *memory.DB) {
	t.Helper()
	l, db := newLedger(t, billing.DefaultSettings())
	uc := billing.NewFiscalDocumentUseCase(l, db.Clients(), biz,
		fatturapa.NewBuilder(), fatturapa.NewSchemaChecker(schemaPath), nil)
	return uc, l, db
}

func TestDocumentFileName(t *testing.T) {
	b := entity.BusinessProfile{Country: "it", VATNumber: "09876543210"}
	assert.Equal(t, "IT09876543210_FATT_2025_0007.xml", billing.DocumentFileName(b, "FATT/2025/0007"))
}

func TestGenerate_SinEsquemaDevuelveAviso(t *testing.T) {
	ctx := context.Background()
	uc, l, db := newDocuments(t, business(), filepath.Join(t.TempDir(), "none.xsd"))
	client := seedClient(t, db)
	inv, err := l.Create(ctx, billing.CreateInvoiceInput{ClientID: client.ID, Items: oneItem()})
	require.NoError(t, err)

	doc, err := uc.Generate(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Warning)
	assert.Contains(t, string(doc.XML), "<Numero>FATT/2025/0001</Numero>")
	assert.Len(t, doc.Digest, 64)
	assert.Equal(t, "IT09876543210_FATT_2025_0001.xml", doc.FileName)

	again, err := uc.Generate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.XML, again.XML)
	assert.Equal(t, doc.Digest, again.Digest)
}

func TestGenerate_PrecondicionesAgregadas(t *testing.T) {
	ctx := context.Background()
	biz := business()
	biz.VATNumber = ""
	uc, l, db := newDocuments(t, biz, "")
	client := seedClient(t, db)
	inv, err := l.Create(ctx, billing.CreateInvoiceInput{ClientID: client.ID, Items: oneItem()})
	require.NoError(t, err)

	// El cliente pierde el código SDI después de emitida la factura.
	client.SDICode = ""
	require.NoError(t, db.Clients().Update(ctx, client))

	_, err = uc.Generate(ctx, inv.ID)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Reasons, 2)
}

func TestGenerate_FacturaInexistente(t *testing.T) {
	uc, _, _ := newDocuments(t, business(), "")
	_, err := uc.Generate(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveToFile_EscribeYGuardaDigest(t *testing.T) {
	ctx := context.Background()
	uc, l, db := newDocuments(t, business(), "")
	client := seedClient(t, db)
	inv, err := l.Create(ctx, billing.CreateInvoiceInput{ClientID: client.ID, Items: oneItem()})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "xml")
	doc, err := uc.SaveToFile(ctx, inv.ID, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "IT09876543210_FATT_2025_0001.xml"), doc.Path)
	written, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, doc.XML, written)

	stored, err := l.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Path, stored.XMLFilePath)
	assert.Equal(t, doc.Digest, stored.XMLDigest)
	assert.Equal(t, entity.InvoiceStatusDraft, stored.Status, "generar el XML no cambia el estado")
}
