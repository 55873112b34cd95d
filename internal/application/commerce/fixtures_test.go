package commerce_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type meta map[string]any

// wooOrder pedido WooCommerce REST v3 con los campos que se normalizan.
func wooOrder(id int, created string, m meta) map[string]any {
	metaData := make([]map[string]any, 0, len(m))
	for k, v := range m {
		metaData = append(metaData, map[string]any{"id": len(metaData) + 1, "key": k, "value": v})
	}
	return map[string]any{
		"id":                   id,
		"number":               json.Number(itoa(id)),
		"status":               "completed",
		"currency":             "EUR",
		"date_created":         created,
		"date_created_gmt":     created,
		"discount_total":       "0.00",
		"total_tax":            "0.00",
		"total":                "100.00",
		"customer_id":          0,
		"payment_method":       "bacs",
		"payment_method_title": "Bonifico",
		"billing": map[string]any{
			"first_name": "Mario",
			"last_name":  "Rossi",
			"company":    "",
			"address_1":  "Via Roma 1",
			"city":       "Milano",
			"state":      "MI",
			"postcode":   "20121",
			"country":    "IT",
			"email":      "Mario.Rossi@example.it",
			"phone":      "+39 02 1234567",
		},
		"meta_data": metaData,
		"line_items": []map[string]any{
			{"id": 11, "name": "Consulenza", "sku": "CONS", "quantity": 2, "subtotal": "100.00", "total": "100.00", "total_tax": "0.00"},
		},
		"fee_lines":    []map[string]any{},
		"coupon_lines": []map[string]any{},
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// individualMeta datos fiscales de una persona física italiana.
func individualMeta() meta {
	return meta{"_billing_cf": "rssmra80a01f205x"}
}

// businessMeta datos fiscales de una empresa italiana con código SDI.
func businessMeta() meta {
	return meta{"_billing_vat_number": "IT 12345678901", "_billing_sdi": "m5uxcr1"}
}
