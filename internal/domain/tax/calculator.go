// Package tax calcula subtotal, IVA, ritenuta d'acconto y neto a pagar de una factura.
package tax

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line cantidad y precio unitario de una línea.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals importes calculados de una factura.
type Totals struct {
	Subtotal          decimal.Decimal
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal
	WithholdingAmount decimal.Decimal
	NetToPay          decimal.Decimal
}

// LineTotal cantidad × precio redondeado a 2 decimales.
func LineTotal(l Line) decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Round(2)
}

// Subtotal suma los totales de línea ya redondeados.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

// Percent aplica un porcentaje a una base y redondea a 2 decimales.
func Percent(base, ratePct decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePct).Div(hundred).Round(2)
}

// Compute calcula los totales. Un tipo de IVA 0 es válido (régimen exento).
// La ritenuta se calcula sobre el subtotal, no sobre el total.
func Compute(lines []Line, taxRatePct, withholdingRatePct decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	return build(subtotal, Percent(subtotal, taxRatePct), withholdingRatePct)
}

// ComputeWithTax igual que Compute pero con un importe de IVA ya calculado (pedidos importados).
func ComputeWithTax(lines []Line, taxAmount, withholdingRatePct decimal.Decimal) Totals {
	return build(Subtotal(lines), taxAmount.Round(2), withholdingRatePct)
}

func build(subtotal, taxAmount, withholdingRatePct decimal.Decimal) Totals {
	total := subtotal.Add(taxAmount)
	withholding := Percent(subtotal, withholdingRatePct)
	return Totals{
		Subtotal:          subtotal,
		TaxAmount:         taxAmount,
		Total:             total,
		WithholdingAmount: withholding,
		NetToPay:          total.Sub(withholding),
	}
}

// EffectiveRate tax / base × 100 redondeado a 2 decimales; 0 si la base es 0.
func EffectiveRate(taxAmount, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return taxAmount.Div(base).Mul(hundred).Round(2)
}
