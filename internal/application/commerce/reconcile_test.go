package commerce_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestReconcile_DescuentoProporcionalAlBollo(t *testing.T) {
	r := commerce.Reconcile(d("100.00"), d("20.00"), d("2.00"), d("0"), false)

	assert.True(t, r.InvoiceSubtotal.Equal(d("80.00")), "subtotal: %s", r.InvoiceSubtotal)
	assert.True(t, r.StampAfterDiscount.Equal(d("1.60")), "bollo: %s", r.StampAfterDiscount)
	assert.True(t, r.StampDiscount().Equal(d("0.40")))
	assert.True(t, r.DiscountRate.Equal(d("0.2")))
	assert.True(t, r.Total.Equal(d("81.60")), "total: %s", r.Total)
}

func TestReconcile_CuponDelCienPorCien(t *testing.T) {
	r := commerce.Reconcile(d("100.00"), d("20.00"), d("2.00"), d("0"), true)

	assert.True(t, r.InvoiceSubtotal.IsZero(), "subtotal: %s", r.InvoiceSubtotal)
	assert.True(t, r.StampAfterDiscount.IsZero(), "bollo: %s", r.StampAfterDiscount)
	assert.True(t, r.Discount.Equal(d("100.00")))
	assert.True(t, r.Total.IsZero())
	assert.True(t, r.TaxRate.IsZero(), "sin división por cero")
}

func TestReconcile_SinDescuento(t *testing.T) {
	r := commerce.Reconcile(d("80.00"), d("0"), d("2.00"), d("17.60"), false)

	assert.True(t, r.InvoiceSubtotal.Equal(d("80.00")))
	assert.True(t, r.StampAfterDiscount.Equal(d("2.00")))
	assert.True(t, r.TaxRate.Equal(d("22")), "tipo efectivo: %s", r.TaxRate)
	assert.True(t, r.Total.Equal(d("99.60")))
}

func TestReconcile_DescuentoMayorQueProductos(t *testing.T) {
	r := commerce.Reconcile(d("10.00"), d("15.00"), d("2.00"), d("0"), false)
	assert.True(t, r.InvoiceSubtotal.IsZero())
	assert.True(t, r.StampAfterDiscount.IsZero())
}
