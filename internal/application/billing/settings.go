package billing

import "github.com/shopspring/decimal"

// Settings preferencias de facturación del titular. Se construye desde config y se inyecta.
type Settings struct {
	InvoicePrefix        string
	DefaultPaymentTerms  string
	DefaultPaymentMethod string
	DefaultNotes         string
	ApplyWithholding     bool
	WithholdingRate      decimal.Decimal // porcentaje
	FlatRateRegime       bool
	FlatTaxRate          decimal.Decimal // impuesto sustitutivo (5 o 15)
	Currency             string
	XMLOutputDir         string
	SchemaPath           string
}

// DefaultSettings valores por defecto del régimen forfettario.
func DefaultSettings() Settings {
	return Settings{
		InvoicePrefix:        "FATT",
		DefaultPaymentTerms:  "30 giorni data fattura",
		DefaultPaymentMethod: "Bonifico bancario",
		ApplyWithholding:     false,
		WithholdingRate:      decimal.NewFromInt(20),
		FlatRateRegime:       true,
		FlatTaxRate:          decimal.NewFromInt(15),
		Currency:             "EUR",
		XMLOutputDir:         "./xml",
	}
}
