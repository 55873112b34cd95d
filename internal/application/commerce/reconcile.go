package commerce

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fatture-rf/internal/domain/tax"
)

var one = decimal.NewFromInt(1)

// Reconciliation importes de la factura derivados de un pedido con descuento y marca da bollo.
type Reconciliation struct {
	ItemsSubtotal      decimal.Decimal // suma de líneas antes del descuento
	Discount           decimal.Decimal // descuento aplicado a los productos
	DiscountRate       decimal.Decimal // discount / items_subtotal, en [0, 1]
	InvoiceSubtotal    decimal.Decimal // productos tras el descuento
	StampAmount        decimal.Decimal
	StampAfterDiscount decimal.Decimal
	Tax                decimal.Decimal
	TaxRate            decimal.Decimal // porcentaje efectivo sobre InvoiceSubtotal
	Total              decimal.Decimal
	FullWaiver         bool
}

// StampDiscount parte de la marca da bollo absorbida por el descuento.
func (r Reconciliation) StampDiscount() decimal.Decimal {
	return r.StampAmount.Sub(r.StampAfterDiscount)
}

// Reconcile reparte el descuento del pedido entre productos y marca da bollo.
// Un cupón del 100 % anula ambos; si no, el bollo se reduce en la misma proporción que los productos.
func Reconcile(itemsSubtotal, discountTotal, stampAmount, taxTotal decimal.Decimal, fullWaiver bool) Reconciliation {
	r := Reconciliation{
		ItemsSubtotal: itemsSubtotal.Round(2),
		StampAmount:   stampAmount.Round(2),
		Tax:           taxTotal.Round(2),
		FullWaiver:    fullWaiver,
	}

	switch {
	case fullWaiver:
		r.DiscountRate = one
	case itemsSubtotal.IsPositive() && discountTotal.IsPositive():
		r.DiscountRate = decimal.Min(discountTotal.Div(itemsSubtotal), one)
	default:
		r.DiscountRate = decimal.Zero
	}

	if fullWaiver {
		r.Discount = r.ItemsSubtotal
	} else {
		r.Discount = decimal.Min(discountTotal.Round(2), r.ItemsSubtotal)
		if r.Discount.IsNegative() {
			r.Discount = decimal.Zero
		}
	}
	r.InvoiceSubtotal = r.ItemsSubtotal.Sub(r.Discount)
	r.StampAfterDiscount = r.StampAmount.Mul(one.Sub(r.DiscountRate)).Round(2)
	r.TaxRate = tax.EffectiveRate(r.Tax, r.InvoiceSubtotal)
	r.Total = r.InvoiceSubtotal.Add(r.Tax).Add(r.StampAfterDiscount)
	return r
}
