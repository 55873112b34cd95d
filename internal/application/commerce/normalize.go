package commerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// Claves de metadatos candidatas por atributo fiscal, en orden de prioridad.
// Cada plugin de facturación italiano guarda el dato bajo un nombre distinto.
var (
	vatNumberKeys = []string{
		"_billing_vat_number", "_billing_partita_iva", "_billing_piva", "_billing_vat",
		"billing_vat_number", "_vat_number", "vat_number", "partita_iva",
	}
	taxCodeKeys = []string{
		"_billing_cf", "_billing_codice_fiscale", "_billing_fiscal_code",
		"billing_cf", "_codice_fiscale", "codice_fiscale", "cf",
	}
	sdiCodeKeys = []string{
		"_billing_sdi", "_billing_codice_destinatario", "_billing_sdi_code",
		"billing_sdi", "_codice_destinatario", "codice_destinatario", "sdi",
	}
	pecKeys = []string{
		"_billing_pec", "_billing_pec_email", "billing_pec", "_pec", "pec",
	}
	clientKindKeys = []string{
		"_forfettario_client_type", "_billing_customer_type", "_billing_invoice_type",
		"billing_customer_type", "customer_type",
	}
)

var (
	businessKinds   = map[string]struct{}{"business": {}, "company": {}, "azienda": {}, "b2b": {}, "societa": {}, "società": {}, "professionista": {}}
	individualKinds = map[string]struct{}{"individual": {}, "private": {}, "privato": {}, "persona_fisica": {}, "b2c": {}, "consumer": {}}
)

// stampDutyPatterns nombres de fee line que identifican la marca da bollo (sin distinguir mayúsculas).
var stampDutyPatterns = []string{"marca da bollo", "imposta di bollo", "stamp duty", "bollo"}

// lookupMeta primer valor no vacío entre las claves candidatas, en el orden de la lista.
func lookupMeta(meta []metaEntry, keys []string) string {
	for _, k := range keys {
		for _, m := range meta {
			if m.Key != k {
				continue
			}
			if v := metaText(m.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// IsStampDutyFee indica si el nombre de la fee line corresponde a la imposta di bollo.
func IsStampDutyFee(name string) bool {
	n := strings.ToLower(name)
	for _, p := range stampDutyPatterns {
		if strings.Contains(n, p) {
			return true
		}
	}
	return false
}

// ResolveClientKind decide una sola vez empresa o particular: primero el metadato explícito,
// después la heurística razón social / P.IVA.
func ResolveClientKind(explicit, company, vatNumber string) entity.ClientKind {
	v := strings.ToLower(strings.TrimSpace(explicit))
	if _, ok := businessKinds[v]; ok {
		return entity.ClientKindBusiness
	}
	if _, ok := individualKinds[v]; ok {
		return entity.ClientKindIndividual
	}
	if strings.TrimSpace(company) != "" || strings.TrimSpace(vatNumber) != "" {
		return entity.ClientKindBusiness
	}
	return entity.ClientKindIndividual
}

// orderRef identificador legible para mensajes de error, aun con el pedido malformado.
func orderRef(raw json.RawMessage) string {
	var ref struct {
		ID     flexString `json:"id"`
		Number flexString `json:"number"`
	}
	_ = json.Unmarshal(raw, &ref)
	if ref.Number != "" {
		return string(ref.Number)
	}
	if ref.ID != "" {
		return string(ref.ID)
	}
	return "?"
}

// NormalizeOrder convierte un pedido WooCommerce en ExternalOrder. No persiste nada.
func NormalizeOrder(storeID string, raw json.RawMessage) (*entity.ExternalOrder, error) {
	var ro remoteOrder
	if err := json.Unmarshal(raw, &ro); err != nil {
		return nil, fmt.Errorf("JSON de pedido no válido: %w", err)
	}
	externalID := strings.TrimSpace(string(ro.ID))
	if externalID == "" || externalID == "0" {
		return nil, errors.New("pedido sin identificador")
	}
	date, err := orderDate(ro)
	if err != nil {
		return nil, err
	}

	customer := normalizeCustomer(ro)
	items := make([]entity.OrderItem, 0, len(ro.LineItems))
	itemsSubtotal := decimal.Zero
	for _, li := range ro.LineItems {
		qty := li.Quantity.Decimal
		unit := li.Subtotal.Decimal
		if qty.IsPositive() {
			unit = li.Subtotal.DivRound(qty, 4)
		}
		items = append(items, entity.OrderItem{
			ExternalID: string(li.ID),
			Name:       strings.TrimSpace(li.Name),
			SKU:        li.SKU,
			Quantity:   qty,
			UnitPrice:  unit,
			Subtotal:   li.Subtotal.Decimal,
			Total:      li.Total.Decimal,
			Tax:        li.TotalTax.Decimal,
		})
		itemsSubtotal = itemsSubtotal.Add(li.Subtotal.Decimal)
	}

	fees := make([]entity.OrderFee, 0, len(ro.FeeLines))
	stamp := decimal.Zero
	for _, f := range ro.FeeLines {
		isStamp := IsStampDutyFee(f.Name)
		if isStamp {
			stamp = stamp.Add(f.Total.Decimal)
		}
		fees = append(fees, entity.OrderFee{Name: f.Name, Total: f.Total.Decimal, StampDuty: isStamp})
	}

	coupons := make([]entity.OrderCoupon, 0, len(ro.CouponLines))
	for _, c := range ro.CouponLines {
		coupons = append(coupons, normalizeCoupon(c))
	}

	total := ro.Total.Decimal
	taxTotal := ro.TotalTax.Decimal
	return &entity.ExternalOrder{
		StoreID:            storeID,
		ExternalOrderID:    externalID,
		OrderNumber:        firstNonEmpty(string(ro.Number), externalID),
		OrderDate:          date,
		Status:             ro.Status,
		Customer:           customer,
		Items:              items,
		Fees:               fees,
		Coupons:            coupons,
		ItemsSubtotal:      itemsSubtotal,
		DiscountTotal:      ro.DiscountTotal.Decimal,
		StampDuty:          stamp,
		Subtotal:           total.Sub(taxTotal),
		TaxTotal:           taxTotal,
		Total:              total,
		Currency:           strings.ToUpper(ro.Currency),
		PaymentMethod:      ro.PaymentMethod,
		PaymentMethodTitle: ro.PaymentMethodTitle,
		Raw:                append(json.RawMessage(nil), raw...),
	}, nil
}

func orderDate(ro remoteOrder) (time.Time, error) {
	if ro.DateCreatedGMT != "" {
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", strings.TrimSuffix(ro.DateCreatedGMT, "Z"), time.UTC); err == nil {
			return t, nil
		}
	}
	if ro.DateCreated != "" {
		if t, err := time.Parse(time.RFC3339, ro.DateCreated); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", ro.DateCreated, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fecha de pedido no válida: %q", firstNonEmpty(ro.DateCreatedGMT, ro.DateCreated))
}

func normalizeCustomer(ro remoteOrder) entity.CustomerSnapshot {
	b := ro.Billing
	vat := strings.ToUpper(strings.ReplaceAll(lookupMeta(ro.MetaData, vatNumberKeys), " ", ""))
	customerID := string(ro.CustomerID)
	if customerID == "0" {
		customerID = "" // pedido de invitado
	}
	c := entity.CustomerSnapshot{
		ExternalCustomerID: customerID,
		FirstName:          strings.TrimSpace(b.FirstName),
		LastName:           strings.TrimSpace(b.LastName),
		Company:            strings.TrimSpace(b.Company),
		Email:              strings.ToLower(strings.TrimSpace(b.Email)),
		Phone:              strings.TrimSpace(b.Phone),
		Billing:            toAddress(b),
		Shipping:           toAddress(ro.Shipping),
		VATNumber:          vat,
		TaxCode:            strings.ToUpper(lookupMeta(ro.MetaData, taxCodeKeys)),
		SDICode:            strings.ToUpper(lookupMeta(ro.MetaData, sdiCodeKeys)),
		PECEmail:           strings.ToLower(lookupMeta(ro.MetaData, pecKeys)),
	}
	c.Kind = ResolveClientKind(lookupMeta(ro.MetaData, clientKindKeys), c.Company, c.VATNumber)
	return c
}

func toAddress(a remoteAddress) entity.Address {
	return entity.Address{
		Address1:   strings.TrimSpace(a.Address1),
		Address2:   strings.TrimSpace(a.Address2),
		City:       strings.TrimSpace(a.City),
		Province:   strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.Postcode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}

func normalizeCoupon(c remoteCouponLine) entity.OrderCoupon {
	out := entity.OrderCoupon{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		NominalAmount: c.NominalAmount.Decimal,
		Discount:      c.Discount.Decimal,
	}
	if out.DiscountType != "" {
		return out
	}
	// Versiones anteriores a WooCommerce 8.3 solo lo exponen en coupon_data.
	for _, m := range c.MetaData {
		if m.Key != "coupon_data" {
			continue
		}
		var data struct {
			DiscountType string `json:"discount_type"`
			Amount       amount `json:"amount"`
		}
		if err := json.Unmarshal(m.Value, &data); err == nil {
			out.DiscountType = data.DiscountType
			out.NominalAmount = data.Amount.Decimal
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
