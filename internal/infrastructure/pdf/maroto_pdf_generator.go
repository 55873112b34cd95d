// Package pdf genera la copia di cortesia en PDF de una factura. No tiene valor
// fiscal: el documento válido es el XML FatturaPA.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  CEDENTE: Denominazione + P.IVA │  N° Fattura + Data         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CEDENTE: indirizzo / email / PEC                           │
//	│  CLIENTE: denominazione + P.IVA/CF + indirizzo              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABELLA: Descrizione | Q.tà | Prezzo | Importo             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALI: Imponibile / IVA / Totale / Ritenuta / Netto       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PIE: regime fiscale + pagamento + QR del digest XML        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

const flatRateNotice = "Operazione senza applicazione dell'IVA, effettuata ai sensi dell'art. 1, commi 54-89, " +
	"Legge n. 190/2014 (regime forfettario). Compenso non soggetto a ritenuta d'acconto ai sensi dell'art. 1, " +
	"comma 67, Legge n. 190/2014."

var _ billing.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	invoice *entity.Invoice,
	business entity.BusinessProfile,
	client *entity.Client,
) ([]byte, error) {
	if invoice == nil || client == nil {
		return nil, fmt.Errorf("pdf: faltan factura o cliente")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Fattura "+invoice.InvoiceNumber, true).
		WithAuthor(business.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice, business))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(cedenteRow(business))
	m.AddRows(clienteRow(client))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(invoice.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(invoice, business)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(invoice *entity.Invoice, business entity.BusinessProfile) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(business.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("P.IVA: "+business.VATNumber, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FATTURA - COPIA DI CORTESIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("N. "+invoice.InvoiceNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Data: "+invoice.InvoiceDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func cedenteRow(b entity.BusinessProfile) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("CEDENTE / PRESTATORE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s   |   C.F.: %s   |   Email: %s   |   PEC: %s",
				nonEmpty(address(b.Address, b.PostalCode, b.City, b.Province), "-"),
				nonEmpty(b.TaxCode, "-"),
				nonEmpty(b.Email, "-"),
				nonEmpty(b.PECEmail, "-"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func clienteRow(c *entity.Client) core.Row {
	ids := []string{}
	if c.VATNumber != "" {
		ids = append(ids, "P.IVA: "+c.VATNumber)
	}
	if c.TaxCode != "" {
		ids = append(ids, "C.F.: "+c.TaxCode)
	}
	if c.SDICode != "" {
		ids = append(ids, "SDI: "+c.SDICode)
	} else if c.PECEmail != "" {
		ids = append(ids, "PEC: "+c.PECEmail)
	}
	return row.New(18).Add(
		col.New(12).Add(
			text.New("CESSIONARIO / COMMITTENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(c.BusinessName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(nonEmpty(strings.Join(ids, "   |   "), "-"), props.Text{Size: 8, Top: 11, Color: colorGray}),
			text.New(address(c.Address, c.PostalCode, c.City, c.Province)+" "+c.Country, props.Text{
				Size: 8, Top: 15, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Descrizione", 6, align.Left),
		h("Q.tà", 2, align.Center),
		h("Prezzo unit.", 2, align.Right),
		h("Importo", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableItemRows(items []entity.LineItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(it.Description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(quantity(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(euro(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(euro(it.Total), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(invoice *entity.Invoice) core.Row {
	labels := col.New(3)
	values := col.New(3)
	add := func(l, v string, top float64) {
		labels.Add(text.New(l, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top}))
		values.Add(text.New(v, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top}))
	}

	top := 0.0
	add("Imponibile:", euro(invoice.Subtotal), top)
	top += 5
	add(fmt.Sprintf("IVA %s%%:", invoice.TaxRate.StringFixed(2)), euro(invoice.TaxAmount), top)
	top += 5
	add("Totale documento:", euro(invoice.Total), top)
	if invoice.WithholdingAmount.IsPositive() {
		top += 5
		add(fmt.Sprintf("Ritenuta %s%%:", invoice.WithholdingTax.StringFixed(2)), "-"+euro(invoice.WithholdingAmount), top)
	}
	top += 6
	labels.Add(text.New("NETTO A PAGARE:", props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: top,
	}))
	values.Add(text.New(euro(invoice.NetToPay), props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top,
	}))

	return row.New(top+8).Add(col.New(6), labels, values)
}

func footerRows(invoice *entity.Invoice, business entity.BusinessProfile) []core.Row {
	var rows []core.Row
	if business.FlatRateRegime {
		rows = append(rows, row.New(12).Add(col.New(12).Add(
			text.New(flatRateNotice, props.Text{Size: 7, Color: colorGray, Top: 2}),
		)))
	}
	if invoice.StampDuty.IsPositive() {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Imposta di bollo assolta in modo virtuale: "+euro(invoice.StampDuty), props.Text{
				Size: 7, Color: colorGray, Top: 1,
			}),
		)))
	}

	payment := fmt.Sprintf("Pagamento: %s   |   %s", nonEmpty(invoice.PaymentMethod, "-"), nonEmpty(invoice.PaymentTerms, "-"))
	if business.IBAN != "" {
		payment += "   |   IBAN: " + business.IBAN
	}
	rows = append(rows, row.New(7).Add(col.New(12).Add(
		text.New(payment, props.Text{Size: 8, Top: 2}),
	)))
	if invoice.Notes != "" {
		rows = append(rows, row.New(7).Add(col.New(12).Add(
			text.New("Note: "+invoice.Notes, props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}

	if invoice.XMLDigest != "" {
		rows = append(rows, row.New(40).Add(
			col.New(3).Add(code.NewQr(invoice.InvoiceNumber+"|"+invoice.XMLDigest, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(9).Add(
				text.New("Impronta SHA-256 del file XML FatturaPA:", props.Text{
					Style: fontstyle.Bold, Size: 7, Top: 4, Left: 3,
				}),
				text.New(invoice.XMLDigest, props.Text{Size: 6.5, Top: 9, Left: 3, Color: colorGray}),
			),
		))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New("Copia di cortesia priva di valore fiscale. L'originale è il file XML trasmesso tramite SDI.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2}),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func address(street, cap, city, province string) string {
	parts := []string{}
	if street != "" {
		parts = append(parts, street)
	}
	loc := strings.TrimSpace(cap + " " + city)
	if province != "" {
		loc += " (" + province + ")"
	}
	if loc != "" {
		parts = append(parts, strings.TrimSpace(loc))
	}
	return strings.Join(parts, ", ")
}

func quantity(q decimal.Decimal) string {
	return strings.Replace(q.String(), ".", ",", 1)
}

// euro formato italiano con separador de miles: 1234.5 → "€ 1.234,50".
func euro(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	out := "€ " + groupThousands(intPart) + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// groupThousands inserta puntos de miles: "1000000" → "1.000.000".
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
