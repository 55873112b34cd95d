package entity

import "time"

// ClientType categoría fiscal derivada del país del cliente.
type ClientType string

const (
	ClientTypeIT    ClientType = "IT"
	ClientTypeEU    ClientType = "EU"
	ClientTypeNonEU ClientType = "NON_EU"
)

// ClientKind distingue empresa (B2B) de persona física (B2C).
type ClientKind string

const (
	ClientKindBusiness   ClientKind = "business"
	ClientKindIndividual ClientKind = "individual"
)

// DefaultCountry país por defecto de clientes y emisor.
const DefaultCountry = "IT"

// Client representa un cliente (cessionario/committente) de la factura.
type Client struct {
	ID                 string
	BusinessName       string
	VATNumber          string // Partita IVA
	TaxCode            string // Codice Fiscale
	Email              string
	PECEmail           string // Posta elettronica certificata
	Phone              string
	Address            string
	City               string
	Province           string
	PostalCode         string
	Country            string // ISO-3166 alpha-2
	ClientType         ClientType
	Kind               ClientKind
	SDICode            string // Codice destinatario SDI
	ExternalStoreID    string
	ExternalCustomerID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
