package fatturapa

import "strings"

// DefaultPaymentCode bonifico.
const DefaultPaymentCode = "MP05"

var paymentCodes = map[string]string{
	"bonifico bancario": "MP05",
	"bonifico":          "MP05",
	"contanti":          "MP01",
	"assegno":           "MP02",
	"rid":               "MP09",
	"sepa direct debit": "MP19",
	"paypal":            "MP08",
	"carta di credito":  "MP08",
	"stripe":            "MP08",
}

// PaymentCode ModalitaPagamento para el nombre del método de pago; MP05 si no está en la tabla.
func PaymentCode(method string) string {
	if code, ok := paymentCodes[strings.ToLower(strings.TrimSpace(method))]; ok {
		return code
	}
	return DefaultPaymentCode
}
