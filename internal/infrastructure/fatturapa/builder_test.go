package fatturapa_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/fatturapa"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleDocument() *billing.FiscalDocument {
	inv := &entity.Invoice{
		ID:                "inv-1",
		InvoiceNumber:     "FATT/2025/0007",
		InvoiceDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Subtotal:          d("102.00"),
		TaxRate:           d("0"),
		TaxAmount:         d("0"),
		Total:             d("102.00"),
		WithholdingTax:    d("20"),
		WithholdingAmount: d("20.40"),
		NetToPay:          d("81.60"),
		StampDuty:         d("2.00"),
		PaymentMethod:     "Bonifico bancario",
		Notes:             "Consulenza marzo → città",
		Currency:          "EUR",
		Items: []entity.LineItem{
			{Description: "Consulenza", Quantity: d("2"), UnitPrice: d("50"), Total: d("100.00"), Position: 1},
			{Description: "Imposta di bollo", Quantity: d("1"), UnitPrice: d("2"), Total: d("2.00"), Position: 2},
		},
	}
	client := &entity.Client{
		BusinessName: "Rossi S.r.l.",
		VATNumber:    "01234567890",
		Country:      "IT",
		Kind:         entity.ClientKindBusiness,
		SDICode:      "M5UXCR1",
		Address:      "Via Roma 1",
		City:         "Milano",
		Province:     "mi",
		PostalCode:   "20100",
	}
	business := entity.BusinessProfile{
		Name:       "Mario Bianchi",
		VATNumber:  "09876543210",
		TaxCode:    "BNCMRA80A01H501U",
		Address:    "Via Verdi 2",
		City:       "Roma",
		Province:   "RM",
		PostalCode: "00100",
		Country:    "IT",
		Email:      "mario@example.com",
		IBAN:       "IT60 X054 2811 1010 0000 0123 456",
	}
	settings := billing.DefaultSettings()
	return &billing.FiscalDocument{Invoice: inv, Client: client, Business: business, Settings: settings}
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	return doc.Root()
}

func text(root *etree.Element, path string) string {
	el := root.FindElement(path)
	if el == nil {
		return ""
	}
	return el.Text()
}

// ──────────────────────────────────────────────────────────────────────────────
// Build
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_Determinista(t *testing.T) {
	b := fatturapa.NewBuilder()
	first, err := b.Build(sampleDocument())
	require.NoError(t, err)
	second, err := b.Build(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	d1, err := b.Digest(first)
	require.NoError(t, err)
	d2, err := b.Digest(second)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestBuild_ElementosObligatorios(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)
	root := parse(t, out)

	assert.Equal(t, "FatturaElettronica", root.Tag)
	assert.Equal(t, fatturapa.NsFatturaPA, root.NamespaceURI())
	assert.Equal(t, "FPR12", root.SelectAttrValue("versione", ""))

	h := "FatturaElettronicaHeader/"
	assert.Equal(t, "IT", text(root, h+"DatiTrasmissione/IdTrasmittente/IdPaese"))
	assert.Equal(t, "BNCMRA80A01H501U", text(root, h+"DatiTrasmissione/IdTrasmittente/IdCodice"))
	assert.Equal(t, "50007", text(root, h+"DatiTrasmissione/ProgressivoInvio"))
	assert.Equal(t, "M5UXCR1", text(root, h+"DatiTrasmissione/CodiceDestinatario"))
	assert.Equal(t, "RF19", text(root, h+"CedentePrestatore/DatiAnagrafici/RegimeFiscale"))
	assert.Equal(t, "MI", text(root, h+"CessionarioCommittente/Sede/Provincia"))

	g := "FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/"
	assert.Equal(t, "TD01", text(root, g+"TipoDocumento"))
	assert.Equal(t, "EUR", text(root, g+"Divisa"))
	assert.Equal(t, "2025-03-10", text(root, g+"Data"))
	assert.Equal(t, "FATT/2025/0007", text(root, g+"Numero"))
	assert.Equal(t, "RT01", text(root, g+"DatiRitenuta/TipoRitenuta"))
	assert.Equal(t, "20.40", text(root, g+"DatiRitenuta/ImportoRitenuta"))
	assert.Equal(t, "SI", text(root, g+"DatiBollo/BolloVirtuale"))
	assert.Equal(t, "2.00", text(root, g+"DatiBollo/ImportoBollo"))
	assert.Equal(t, "102.00", text(root, g+"ImportoTotaleDocumento"))
	assert.Equal(t, "Consulenza marzo ? città", text(root, g+"Causale"), "la flecha no es Latin-1")

	lines := root.FindElements("FatturaElettronicaBody/DatiBeniServizi/DettaglioLinee")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", text(lines[0], "NumeroLinea"))
	assert.Equal(t, "2.00", text(lines[0], "Quantita"))
	assert.Equal(t, "50.00", text(lines[0], "PrezzoUnitario"))
	assert.Equal(t, "0.00", text(lines[0], "AliquotaIVA"))
	assert.Equal(t, "N2.2", text(lines[0], "Natura"))
	assert.Equal(t, "SI", text(lines[0], "Ritenuta"))

	r := "FatturaElettronicaBody/DatiBeniServizi/DatiRiepilogo/"
	assert.Equal(t, "N2.2", text(root, r+"Natura"))
	assert.Equal(t, "102.00", text(root, r+"ImponibileImporto"))
	assert.Equal(t, "0.00", text(root, r+"Imposta"))
	assert.Equal(t, fatturapa.RiferimentoForfett, text(root, r+"RiferimentoNormativo"))

	p := "FatturaElettronicaBody/DatiPagamento/"
	assert.Equal(t, "TP02", text(root, p+"CondizioniPagamento"))
	assert.Equal(t, "MP05", text(root, p+"DettaglioPagamento/ModalitaPagamento"))
	assert.Equal(t, "81.60", text(root, p+"DettaglioPagamento/ImportoPagamento"))
	assert.Equal(t, "IT60X0542811101000000123456", text(root, p+"DettaglioPagamento/IBAN"))
}

func TestBuild_RegimenOrdinarioSinNatura(t *testing.T) {
	doc := sampleDocument()
	doc.Settings.FlatRateRegime = false
	doc.Invoice.TaxRate = d("22")
	doc.Invoice.TaxAmount = d("22.44")
	doc.Invoice.WithholdingTax = decimal.Zero
	doc.Invoice.WithholdingAmount = decimal.Zero

	out, err := fatturapa.NewBuilder().Build(doc)
	require.NoError(t, err)
	root := parse(t, out)

	assert.Equal(t, "RF01", text(root, "FatturaElettronicaHeader/CedentePrestatore/DatiAnagrafici/RegimeFiscale"))
	assert.Nil(t, root.FindElement("FatturaElettronicaBody/DatiBeniServizi/DettaglioLinee/Natura"))
	assert.Nil(t, root.FindElement("FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/DatiRitenuta"))
	assert.Equal(t, "I", text(root, "FatturaElettronicaBody/DatiBeniServizi/DatiRiepilogo/EsigibilitaIVA"))
}

func TestBuild_Destinatario(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *entity.Client)
		codice  string
		formato string
		pec     string
	}{
		{"pa", func(c *entity.Client) { c.SDICode = "UFABCD" }, "UFABCD", "FPA12", ""},
		{"pec", func(c *entity.Client) { c.SDICode = ""; c.PECEmail = "rossi@pec.it" }, "0000000", "FPR12", "rossi@pec.it"},
		{"estero", func(c *entity.Client) { c.Country = "DE"; c.SDICode = ""; c.Province = "" }, "XXXXXXX", "FPR12", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			tt.mutate(doc.Client)
			out, err := fatturapa.NewBuilder().Build(doc)
			require.NoError(t, err)
			root := parse(t, out)
			assert.Equal(t, tt.codice, text(root, "FatturaElettronicaHeader/DatiTrasmissione/CodiceDestinatario"))
			assert.Equal(t, tt.formato, text(root, "FatturaElettronicaHeader/DatiTrasmissione/FormatoTrasmissione"))
			assert.Equal(t, tt.pec, text(root, "FatturaElettronicaHeader/DatiTrasmissione/PECDestinatario"))
		})
	}
}

func TestBuild_ClienteExtranjeroCAPGenerico(t *testing.T) {
	doc := sampleDocument()
	doc.Client.Country = "DE"
	doc.Client.PostalCode = "10115"
	out, err := fatturapa.NewBuilder().Build(doc)
	require.NoError(t, err)
	root := parse(t, out)
	assert.Equal(t, "00000", text(root, "FatturaElettronicaHeader/CessionarioCommittente/Sede/CAP"))
	assert.Nil(t, root.FindElement("FatturaElettronicaHeader/CessionarioCommittente/Sede/Provincia"))
	assert.Equal(t, "DE", text(root, "FatturaElettronicaHeader/CessionarioCommittente/DatiAnagrafici/IdFiscaleIVA/IdPaese"))
}

func TestPaymentCode(t *testing.T) {
	assert.Equal(t, "MP05", fatturapa.PaymentCode("Bonifico Bancario"))
	assert.Equal(t, "MP01", fatturapa.PaymentCode(" contanti "))
	assert.Equal(t, "MP08", fatturapa.PaymentCode("PayPal"))
	assert.Equal(t, "MP05", fatturapa.PaymentCode("bitcoin"), "desconocido usa el valor por defecto")
	assert.Equal(t, "MP05", fatturapa.PaymentCode(""))
}

// ──────────────────────────────────────────────────────────────────────────────
// SchemaChecker
// ──────────────────────────────────────────────────────────────────────────────

func TestSchemaChecker_SinEsquema(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)

	err = fatturapa.NewSchemaChecker(filepath.Join(t.TempDir(), "missing.xsd")).Validate(out)
	assert.ErrorIs(t, err, billing.ErrSchemaUnavailable)
	assert.ErrorIs(t, fatturapa.NewSchemaChecker("").Validate(out), billing.ErrSchemaUnavailable)
}

// writeSchema escribe un XSD mínimo que declara los elementos del documento, excepto skip.
func writeSchema(t *testing.T, xmlBytes []byte, skip string) string {
	t.Helper()
	names := map[string]struct{}{"FatturaElettronica": {}}
	var collect func(*etree.Element)
	collect = func(el *etree.Element) {
		names[el.Tag] = struct{}{}
		for _, c := range el.ChildElements() {
			collect(c)
		}
	}
	collect(parse(t, xmlBytes))
	delete(names, skip)

	xsd := etree.NewDocument()
	schema := xsd.CreateElement("xs:schema")
	schema.CreateAttr("xmlns:xs", "http://www.w3.org/2001/XMLSchema")
	schema.CreateAttr("targetNamespace", fatturapa.NsFatturaPA)
	for n := range names {
		schema.CreateElement("xs:element").CreateAttr("name", n)
	}
	path := filepath.Join(t.TempDir(), "Schema_FatturaPA_v1.2.2.xsd")
	out, err := xsd.WriteToString()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))
	return path
}

func TestSchemaChecker_DocumentoValido(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)
	assert.NoError(t, fatturapa.NewSchemaChecker(writeSchema(t, out, "")).Validate(out))
}

func TestSchemaChecker_ElementoNoDeclarado(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)

	err = fatturapa.NewSchemaChecker(writeSchema(t, out, "DatiBollo")).Validate(out)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "DatiBollo")
}

func TestSchemaChecker_FaltaObligatorio(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)
	schema := writeSchema(t, out, "")
	broken := strings.Replace(string(out), "<TipoDocumento>TD01</TipoDocumento>", "", 1)

	err = fatturapa.NewSchemaChecker(schema).Validate([]byte(broken))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "TipoDocumento")
}

func TestSchemaChecker_EsquemaIlegible(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "roto.xsd")
	require.NoError(t, os.WriteFile(path, []byte("<xs:schema><xs:element"), 0o600))

	err = fatturapa.NewSchemaChecker(path).Validate(out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, billing.ErrSchemaUnavailable)
	assert.Contains(t, err.Error(), "esquema ilegible")
}

func TestSchemaChecker_NoEsXSD(t *testing.T) {
	out, err := fatturapa.NewBuilder().Build(sampleDocument())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "otro.xml")
	require.NoError(t, os.WriteFile(path, []byte("<root/>"), 0o600))

	err = fatturapa.NewSchemaChecker(path).Validate(out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no es un XSD")
}
