package commerce_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

func TestNormalizeOrder_CamposBasicos(t *testing.T) {
	o, err := commerce.NormalizeOrder("store-1", raw(t, wooOrder(42, "2025-02-01T10:15:30", individualMeta())))
	require.NoError(t, err)

	assert.Equal(t, "store-1", o.StoreID)
	assert.Equal(t, "42", o.ExternalOrderID)
	assert.Equal(t, "42", o.OrderNumber)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 15, 30, 0, time.UTC), o.OrderDate)
	assert.Equal(t, "EUR", o.Currency)
	assert.Empty(t, o.Customer.ExternalCustomerID, "customer_id 0 es un invitado")
	assert.Equal(t, "mario.rossi@example.it", o.Customer.Email)
	assert.Equal(t, "RSSMRA80A01F205X", o.Customer.TaxCode)
	assert.Equal(t, entity.ClientKindIndividual, o.Customer.Kind)
	assert.Equal(t, "Mario Rossi", o.Customer.DisplayName())

	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].UnitPrice.Equal(d("50")), "unitario: %s", o.Items[0].UnitPrice)
	assert.True(t, o.ItemsSubtotal.Equal(d("100")))
	assert.True(t, o.Subtotal.Equal(d("100")))
	assert.NotEmpty(t, o.Raw)
}

func TestNormalizeOrder_PrioridadDeClavesDeMetadatos(t *testing.T) {
	// _billing_vat_number va antes que partita_iva; un valor vacío pasa a la siguiente clave.
	o, err := commerce.NormalizeOrder("s", raw(t, wooOrder(1, "2025-02-01T10:00:00", meta{
		"partita_iva":         "99999999999",
		"_billing_vat_number": "IT 12345678901",
		"_billing_sdi":        "",
		"sdi":                 "abc1234",
		"_billing_pec":        "Fatture@PEC.it",
	})))
	require.NoError(t, err)

	assert.Equal(t, "IT12345678901", o.Customer.VATNumber)
	assert.Equal(t, "ABC1234", o.Customer.SDICode)
	assert.Equal(t, "fatture@pec.it", o.Customer.PECEmail)
	assert.Equal(t, entity.ClientKindBusiness, o.Customer.Kind, "con P.IVA es empresa")
}

func TestNormalizeOrder_TipoExplicitoPrevalece(t *testing.T) {
	m := businessMeta()
	m["_forfettario_client_type"] = "privato"
	o, err := commerce.NormalizeOrder("s", raw(t, wooOrder(1, "2025-02-01T10:00:00", m)))
	require.NoError(t, err)
	assert.Equal(t, entity.ClientKindIndividual, o.Customer.Kind)
}

func TestNormalizeOrder_DetectaBolloYCupones(t *testing.T) {
	order := wooOrder(7, "2025-02-01T10:00:00", individualMeta())
	order["discount_total"] = "20.00"
	order["total"] = "81.60"
	order["fee_lines"] = []map[string]any{
		{"name": "Marca da Bollo", "total": "2.00"},
		{"name": "Spedizione express", "total": "5.00"},
	}
	order["coupon_lines"] = []map[string]any{
		{"code": "primavera", "discount": "20.00", "meta_data": []map[string]any{
			{"key": "coupon_data", "value": map[string]any{"discount_type": "percent", "amount": "20"}},
		}},
	}

	o, err := commerce.NormalizeOrder("s", raw(t, order))
	require.NoError(t, err)

	assert.True(t, o.StampDuty.Equal(d("2.00")), "bollo: %s", o.StampDuty)
	require.Len(t, o.Fees, 2)
	assert.True(t, o.Fees[0].StampDuty)
	assert.False(t, o.Fees[1].StampDuty)

	require.Len(t, o.Coupons, 1)
	assert.Equal(t, entity.CouponPercent, o.Coupons[0].DiscountType, "coupon_data como respaldo")
	assert.True(t, o.Coupons[0].NominalAmount.Equal(d("20")))
	assert.False(t, o.Coupons[0].FullWaiver())
	assert.True(t, o.DiscountTotal.Equal(d("20")))
}

func TestNormalizeOrder_ImportesVaciosYNumericos(t *testing.T) {
	order := wooOrder(3, "2025-02-01T10:00:00", nil)
	order["total_tax"] = nil
	order["discount_total"] = ""
	order["total"] = 55.5
	o, err := commerce.NormalizeOrder("s", raw(t, order))
	require.NoError(t, err)
	assert.True(t, o.TaxTotal.IsZero())
	assert.True(t, o.DiscountTotal.IsZero())
	assert.True(t, o.Total.Equal(d("55.5")))
}

func TestNormalizeOrder_FechaLocalSinGMT(t *testing.T) {
	order := wooOrder(3, "", nil)
	order["date_created"] = "2025-02-01T11:00:00+01:00"
	o, err := commerce.NormalizeOrder("s", raw(t, order))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), o.OrderDate)
}

func TestNormalizeOrder_Malformados(t *testing.T) {
	noID := wooOrder(0, "2025-02-01T10:00:00", nil)
	badDate := wooOrder(5, "ayer", nil)

	cases := map[string]json.RawMessage{
		"sin id":        raw(t, noID),
		"fecha":         raw(t, badDate),
		"no es objeto":  json.RawMessage(`[1,2]`),
		"JSON truncado": json.RawMessage(`{"id": 1,`),
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := commerce.NormalizeOrder("s", r)
			assert.Error(t, err)
		})
	}
}

func TestIsStampDutyFee(t *testing.T) {
	for _, name := range []string{"Marca da bollo", "IMPOSTA DI BOLLO", "Stamp duty (virtual)", "Bollo 2€"} {
		assert.True(t, commerce.IsStampDutyFee(name), name)
	}
	for _, name := range []string{"Spedizione", "Commissione PayPal", ""} {
		assert.False(t, commerce.IsStampDutyFee(name), name)
	}
}

func TestResolveClientKind(t *testing.T) {
	cases := []struct {
		explicit, company, vat string
		want                   entity.ClientKind
	}{
		{"azienda", "", "", entity.ClientKindBusiness},
		{"B2C", "ACME S.r.l.", "12345678901", entity.ClientKindIndividual},
		{"", "ACME S.r.l.", "", entity.ClientKindBusiness},
		{"", "", "12345678901", entity.ClientKindBusiness},
		{"", "", "", entity.ClientKindIndividual},
		{"sconosciuto", "", "", entity.ClientKindIndividual},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, commerce.ResolveClientKind(c.explicit, c.company, c.vat), "%+v", c)
	}
}
