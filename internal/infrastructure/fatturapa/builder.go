// Package fatturapa serializa facturas al formato FatturaPA v1.2 del Sistema di Interscambio.
package fatturapa

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/fiscal"
	"github.com/jhoicas/fatture-rf/internal/domain/invoicing"
)

// Namespaces del documento.
const (
	NsFatturaPA    = "http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2"
	nsDs           = "http://www.w3.org/2000/09/xmldsig#"
	nsXsi          = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = NsFatturaPA + " http://www.fatturapa.gov.it/export/fatturazione/sdi/fatturapa/v1.2/Schema_del_file_xml_FatturaPA_versione_1.2.xsd"
)

// Códigos fijos del documento.
const (
	FormatoPA       = "FPA12"
	FormatoPrivati  = "FPR12"
	TipoFattura     = "TD01"
	NaturaForfett   = "N2.2"
	RegimeForfett   = "RF19"
	RegimeOrdinario = "RF01"
	// CodiceDestinatario para IT sin código (entrega por PEC o cajón fiscal) y para extranjeros.
	CodiceNoSDI        = "0000000"
	CodiceEstero       = "XXXXXXX"
	RiferimentoForfett = "Operazione effettuata ai sensi dell'art. 1, commi 54-89, Legge n. 190/2014"
	citazioneLinea     = "Art. 1 c. 54-89 L. 190/2014"
)

var _ billing.DocumentBuilder = (*Builder)(nil)

// Builder construye el XML FatturaPA. Sin estado: misma entrada, mismos bytes.
type Builder struct{}

// NewBuilder crea el builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build genera el documento completo. Los importes se escriben con dos decimales y punto.
func (b *Builder) Build(d *billing.FiscalDocument) ([]byte, error) {
	if d == nil || d.Invoice == nil || d.Client == nil {
		return nil, fmt.Errorf("fatturapa: faltan factura o cliente")
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("p:FatturaElettronica")
	root.CreateAttr("versione", formatoTrasmissione(d.Client))
	root.CreateAttr("xmlns:ds", nsDs)
	root.CreateAttr("xmlns:p", NsFatturaPA)
	root.CreateAttr("xmlns:xsi", nsXsi)
	root.CreateAttr("xsi:schemaLocation", schemaLocation)

	header := root.CreateElement("FatturaElettronicaHeader")
	writeDatiTrasmissione(header, d)
	writeCedente(header, d)
	writeCessionario(header, d.Client)

	body := root.CreateElement("FatturaElettronicaBody")
	writeDatiGenerali(body, d)
	writeBeniServizi(body, d)
	writePagamento(body, d)

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("fatturapa: serializar: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest SHA-256 hex de la forma canónica (C14N) del documento, sin la declaración XML.
func (b *Builder) Digest(xmlBytes []byte) (string, error) {
	canon, err := canonicalize(stripDeclaration(xmlBytes))
	if err != nil {
		return "", fmt.Errorf("fatturapa: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func stripDeclaration(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("<?xml")) {
		if i := bytes.Index(data, []byte("?>")); i >= 0 {
			data = bytes.TrimSpace(data[i+2:])
		}
	}
	return data
}

// formatoTrasmissione FPA12 solo para administraciones públicas (código de oficina de 6 caracteres).
func formatoTrasmissione(c *entity.Client) string {
	if len(strings.TrimSpace(c.SDICode)) == 6 {
		return FormatoPA
	}
	return FormatoPrivati
}

// codiceDestinatario código SDI del cliente, 0000000 para IT sin código, XXXXXXX para extranjeros.
func codiceDestinatario(c *entity.Client) string {
	if fiscal.Classify(c.Country) != entity.ClientTypeIT {
		return CodiceEstero
	}
	if code := strings.ToUpper(strings.TrimSpace(c.SDICode)); code != "" {
		return code
	}
	return CodiceNoSDI
}

func writeDatiTrasmissione(header *etree.Element, d *billing.FiscalDocument) {
	dt := header.CreateElement("DatiTrasmissione")
	id := dt.CreateElement("IdTrasmittente")
	add(id, "IdPaese", fiscal.NormalizeCountry(d.Business.Country))
	add(id, "IdCodice", transmitterCode(d.Business))
	add(dt, "ProgressivoInvio", invoicing.ProgressiveID(d.Invoice.InvoiceNumber))
	add(dt, "FormatoTrasmissione", formatoTrasmissione(d.Client))
	code := codiceDestinatario(d.Client)
	add(dt, "CodiceDestinatario", code)
	if code == CodiceNoSDI && d.Client.PECEmail != "" {
		add(dt, "PECDestinatario", d.Client.PECEmail)
	}
}

// transmitterCode el transmisor es el propio titular: Codice Fiscale si existe, si no la P.IVA.
func transmitterCode(b entity.BusinessProfile) string {
	if b.TaxCode != "" {
		return strings.ToUpper(b.TaxCode)
	}
	return b.VATNumber
}

func writeCedente(header *etree.Element, d *billing.FiscalDocument) {
	b := d.Business
	ced := header.CreateElement("CedentePrestatore")
	anag := ced.CreateElement("DatiAnagrafici")
	idIVA := anag.CreateElement("IdFiscaleIVA")
	add(idIVA, "IdPaese", fiscal.NormalizeCountry(b.Country))
	add(idIVA, "IdCodice", b.VATNumber)
	if b.TaxCode != "" && b.TaxCode != b.VATNumber {
		add(anag, "CodiceFiscale", strings.ToUpper(b.TaxCode))
	}
	add(anag.CreateElement("Anagrafica"), "Denominazione", text(b.Name, 80))
	regime := RegimeOrdinario
	if d.Settings.FlatRateRegime {
		regime = RegimeForfett
	}
	add(anag, "RegimeFiscale", regime)

	writeSede(ced, b.Address, b.PostalCode, b.City, b.Province, b.Country)

	if b.Phone != "" || b.Email != "" {
		contatti := ced.CreateElement("Contatti")
		if b.Phone != "" {
			add(contatti, "Telefono", text(b.Phone, 12))
		}
		if b.Email != "" {
			add(contatti, "Email", text(b.Email, 256))
		}
	}
}

func writeCessionario(header *etree.Element, c *entity.Client) {
	ces := header.CreateElement("CessionarioCommittente")
	anag := ces.CreateElement("DatiAnagrafici")
	if c.VATNumber != "" {
		country := fiscal.NormalizeCountry(c.Country)
		idIVA := anag.CreateElement("IdFiscaleIVA")
		add(idIVA, "IdPaese", country)
		add(idIVA, "IdCodice", strings.TrimPrefix(strings.ToUpper(c.VATNumber), country))
	}
	if c.TaxCode != "" {
		add(anag, "CodiceFiscale", strings.ToUpper(c.TaxCode))
	}
	add(anag.CreateElement("Anagrafica"), "Denominazione", text(c.BusinessName, 80))
	writeSede(ces, c.Address, c.PostalCode, c.City, c.Province, c.Country)
}

func writeSede(parent *etree.Element, address, cap, city, province, country string) {
	country = fiscal.NormalizeCountry(country)
	sede := parent.CreateElement("Sede")
	add(sede, "Indirizzo", orNA(text(address, 60)))
	if country != "IT" || len(strings.TrimSpace(cap)) != 5 {
		cap = "00000"
	}
	add(sede, "CAP", strings.TrimSpace(cap))
	add(sede, "Comune", orNA(text(city, 60)))
	if p := strings.ToUpper(strings.TrimSpace(province)); country == "IT" && len(p) == 2 {
		add(sede, "Provincia", p)
	}
	add(sede, "Nazione", country)
}

func writeDatiGenerali(body *etree.Element, d *billing.FiscalDocument) {
	inv := d.Invoice
	doc := body.CreateElement("DatiGenerali").CreateElement("DatiGeneraliDocumento")
	add(doc, "TipoDocumento", TipoFattura)
	currency := inv.Currency
	if currency == "" {
		currency = entity.DefaultCurrency
	}
	add(doc, "Divisa", currency)
	add(doc, "Data", inv.InvoiceDate.Format("2006-01-02"))
	add(doc, "Numero", inv.InvoiceNumber)

	if withholds(inv) {
		rit := doc.CreateElement("DatiRitenuta")
		add(rit, "TipoRitenuta", "RT01")
		add(rit, "ImportoRitenuta", money(inv.WithholdingAmount))
		add(rit, "AliquotaRitenuta", money(inv.WithholdingTax))
		add(rit, "CausalePagamento", "A")
	}
	if inv.StampDuty.IsPositive() {
		bollo := doc.CreateElement("DatiBollo")
		add(bollo, "BolloVirtuale", "SI")
		add(bollo, "ImportoBollo", money(inv.StampDuty))
	}
	add(doc, "ImportoTotaleDocumento", money(inv.Total))
	if notes := text(inv.Notes, 200); notes != "" {
		add(doc, "Causale", notes)
	}
}

func writeBeniServizi(body *etree.Element, d *billing.FiscalDocument) {
	inv := d.Invoice
	exempt := d.Settings.FlatRateRegime && inv.TaxRate.IsZero()
	rate := money(inv.TaxRate)

	dbs := body.CreateElement("DatiBeniServizi")
	for i, it := range inv.Items {
		line := dbs.CreateElement("DettaglioLinee")
		add(line, "NumeroLinea", fmt.Sprintf("%d", i+1))
		add(line, "Descrizione", orNA(text(it.Description, 1000)))
		add(line, "Quantita", money(it.Quantity))
		add(line, "PrezzoUnitario", money(it.UnitPrice))
		add(line, "PrezzoTotale", money(it.Total))
		add(line, "AliquotaIVA", rate)
		if withholds(inv) {
			add(line, "Ritenuta", "SI")
		}
		if exempt {
			add(line, "Natura", NaturaForfett)
			other := line.CreateElement("AltriDatiGestionali")
			add(other, "TipoDato", "REGIME")
			add(other, "RiferimentoTesto", citazioneLinea)
		}
	}

	summary := dbs.CreateElement("DatiRiepilogo")
	add(summary, "AliquotaIVA", rate)
	if exempt {
		add(summary, "Natura", NaturaForfett)
	}
	add(summary, "ImponibileImporto", money(inv.Subtotal))
	add(summary, "Imposta", money(inv.TaxAmount))
	if exempt {
		add(summary, "RiferimentoNormativo", RiferimentoForfett)
	} else if inv.TaxAmount.IsPositive() {
		add(summary, "EsigibilitaIVA", "I")
	}
}

func writePagamento(body *etree.Element, d *billing.FiscalDocument) {
	inv := d.Invoice
	pag := body.CreateElement("DatiPagamento")
	add(pag, "CondizioniPagamento", "TP02")
	det := pag.CreateElement("DettaglioPagamento")
	code := PaymentCode(inv.PaymentMethod)
	add(det, "ModalitaPagamento", code)
	add(det, "ImportoPagamento", money(inv.NetToPay))
	if iban := strings.ReplaceAll(strings.ToUpper(d.Business.IBAN), " ", ""); iban != "" && code == DefaultPaymentCode {
		add(det, "IBAN", iban)
	}
}

func withholds(inv *entity.Invoice) bool {
	return inv.WithholdingTax.IsPositive() && inv.WithholdingAmount.IsPositive()
}

func add(parent *etree.Element, tag, value string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(value)
	return el
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
