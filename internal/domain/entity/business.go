package entity

// BusinessProfile identidad fiscal del emisor (cedente/prestatore).
type BusinessProfile struct {
	Name           string
	VATNumber      string
	TaxCode        string
	Address        string
	City           string
	Province       string
	PostalCode     string
	Country        string
	Email          string
	PECEmail       string
	Phone          string
	IBAN           string
	FlatRateRegime bool // regime forfettario (L. 190/2014)
}
