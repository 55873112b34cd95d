package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ExternalOrder copia normalizada de un pedido de la tienda. (StoreID, ExternalOrderID) es único.
type ExternalOrder struct {
	ID                 string
	StoreID            string
	ExternalOrderID    string
	OrderNumber        string
	OrderDate          time.Time // UTC
	Status             string
	Customer           CustomerSnapshot
	Items              []OrderItem
	Fees               []OrderFee
	Coupons            []OrderCoupon
	ItemsSubtotal      decimal.Decimal // suma de subtotales de línea antes de descuento
	DiscountTotal      decimal.Decimal
	StampDuty          decimal.Decimal // marca da bollo detectada en las fee lines
	Subtotal           decimal.Decimal // total − impuestos
	TaxTotal           decimal.Decimal
	Total              decimal.Decimal
	Currency           string
	PaymentMethod      string
	PaymentMethodTitle string
	InvoiceID          string // vínculo débil; vacío = sin facturar
	Raw                json.RawMessage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Invoiced indica si el pedido tiene una factura vinculada.
func (o *ExternalOrder) Invoiced() bool { return o.InvoiceID != "" }

// Address dirección postal del pedido.
type Address struct {
	Address1   string `json:"address_1,omitempty"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CustomerSnapshot identidad del comprador tal como llegó en el pedido, con los datos fiscales resueltos.
type CustomerSnapshot struct {
	ExternalCustomerID string     `json:"external_customer_id,omitempty"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	Company            string     `json:"company,omitempty"`
	Email              string     `json:"email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Billing            Address    `json:"billing"`
	Shipping           Address    `json:"shipping"`
	VATNumber          string     `json:"vat_number,omitempty"`
	TaxCode            string     `json:"tax_code,omitempty"`
	SDICode            string     `json:"sdi_code,omitempty"`
	PECEmail           string     `json:"pec_email,omitempty"`
	Kind               ClientKind `json:"kind"`
}

// DisplayName razón social o nombre completo del comprador.
func (c CustomerSnapshot) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	return name
}

// OrderItem línea de producto del pedido.
type OrderItem struct {
	ExternalID string          `json:"external_id,omitempty"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"` // antes de descuento
	Subtotal   decimal.Decimal `json:"subtotal"`   // antes de descuento
	Total      decimal.Decimal `json:"total"`      // después de descuento
	Tax        decimal.Decimal `json:"tax"`
}

// OrderFee cargo accesorio (fee line) del pedido.
type OrderFee struct {
	Name      string          `json:"name"`
	Total     decimal.Decimal `json:"total"`
	StampDuty bool            `json:"stamp_duty"`
}

// Tipos de descuento de cupón WooCommerce.
const (
	CouponPercent      = "percent"
	CouponFixedCart    = "fixed_cart"
	CouponFixedProduct = "fixed_product"
)

// OrderCoupon cupón aplicado al pedido.
type OrderCoupon struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type,omitempty"`
	NominalAmount decimal.Decimal `json:"nominal_amount"` // 20 = 20 % o 20 EUR según el tipo
	Discount      decimal.Decimal `json:"discount"`       // importe descontado en el pedido
}

// FullWaiver indica un cupón porcentual del 100 %.
func (c OrderCoupon) FullWaiver() bool {
	return c.DiscountType == CouponPercent && c.NominalAmount.GreaterThanOrEqual(decimal.NewFromInt(100))
}
