package commerce

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// amount importe de la API: admite "12.50", 12.5, "" y null.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

// flexString campo que unas versiones envían como string y otras como número.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	*s = flexString(strings.Trim(string(data), `"`))
	return nil
}

type remoteAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type metaEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type remoteLineItem struct {
	ID       flexString `json:"id"`
	Name     string     `json:"name"`
	SKU      string     `json:"sku"`
	Quantity amount     `json:"quantity"`
	Subtotal amount     `json:"subtotal"`
	Total    amount     `json:"total"`
	TotalTax amount     `json:"total_tax"`
}

type remoteFeeLine struct {
	Name  string `json:"name"`
	Total amount `json:"total"`
}

type remoteCouponLine struct {
	Code          string      `json:"code"`
	Discount      amount      `json:"discount"`
	DiscountType  string      `json:"discount_type"`
	NominalAmount amount      `json:"nominal_amount"`
	MetaData      []metaEntry `json:"meta_data"`
}

// remoteOrder subconjunto del pedido WooCommerce REST v3 que se normaliza.
type remoteOrder struct {
	ID                 flexString         `json:"id"`
	Number             flexString         `json:"number"`
	Status             string             `json:"status"`
	Currency           string             `json:"currency"`
	DateCreated        string             `json:"date_created"`
	DateCreatedGMT     string             `json:"date_created_gmt"`
	DiscountTotal      amount             `json:"discount_total"`
	TotalTax           amount             `json:"total_tax"`
	Total              amount             `json:"total"`
	CustomerID         flexString         `json:"customer_id"`
	PaymentMethod      string             `json:"payment_method"`
	PaymentMethodTitle string             `json:"payment_method_title"`
	Billing            remoteAddress      `json:"billing"`
	Shipping           remoteAddress      `json:"shipping"`
	MetaData           []metaEntry        `json:"meta_data"`
	LineItems          []remoteLineItem   `json:"line_items"`
	FeeLines           []remoteFeeLine    `json:"fee_lines"`
	CouponLines        []remoteCouponLine `json:"coupon_lines"`
}

// metaText valor de metadato como texto; los objetos y arrays no cuentan.
func metaText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
