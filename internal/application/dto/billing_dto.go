package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateClientRequest body para POST /api/clients y PUT /api/clients/:id.
type CreateClientRequest struct {
	BusinessName string `json:"business_name"`
	Kind         string `json:"kind,omitempty"` // business | individual
	VATNumber    string `json:"vat_number,omitempty"`
	TaxCode      string `json:"tax_code,omitempty"`
	Email        string `json:"email,omitempty"`
	PECEmail     string `json:"pec_email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Province     string `json:"province,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	SDICode      string `json:"sdi_code,omitempty"`
}

// ClientResponse cliente en respuestas.
type ClientResponse struct {
	ID                 string    `json:"id"`
	BusinessName       string    `json:"business_name"`
	Kind               string    `json:"kind"`
	ClientType         string    `json:"client_type"`
	VATNumber          string    `json:"vat_number,omitempty"`
	TaxCode            string    `json:"tax_code,omitempty"`
	Email              string    `json:"email,omitempty"`
	PECEmail           string    `json:"pec_email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Address            string    `json:"address,omitempty"`
	City               string    `json:"city,omitempty"`
	Province           string    `json:"province,omitempty"`
	PostalCode         string    `json:"postal_code,omitempty"`
	Country            string    `json:"country"`
	SDICode            string    `json:"sdi_code,omitempty"`
	ExternalStoreID    string    `json:"external_store_id,omitempty"`
	ExternalCustomerID string    `json:"external_customer_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ClientListRequest query de GET /api/clients.
type ClientListRequest struct {
	PageRequest
	Type   string `query:"type"`
	Search string `query:"search"`
}

// LineItemRequest línea de factura.
type LineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest body para POST /api/invoices.
type CreateInvoiceRequest struct {
	InvoiceNumber  string            `json:"invoice_number,omitempty"` // vacío = siguiente número
	InvoiceDate    string            `json:"invoice_date,omitempty"`   // YYYY-MM-DD
	ClientID       string            `json:"client_id"`
	Items          []LineItemRequest `json:"items"`
	TaxRate        *decimal.Decimal  `json:"tax_rate,omitempty"`
	WithholdingTax *decimal.Decimal  `json:"withholding_tax,omitempty"`
	PaymentTerms   string            `json:"payment_terms,omitempty"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// UpdateInvoiceRequest body para PATCH /api/invoices/:id. Campos ausentes no se modifican.
type UpdateInvoiceRequest struct {
	InvoiceDate    *string           `json:"invoice_date,omitempty"`
	ClientID       *string           `json:"client_id,omitempty"`
	Items          []LineItemRequest `json:"items,omitempty"`
	TaxRate        *decimal.Decimal  `json:"tax_rate,omitempty"`
	WithholdingTax *decimal.Decimal  `json:"withholding_tax,omitempty"`
	PaymentTerms   *string           `json:"payment_terms,omitempty"`
	PaymentMethod  *string           `json:"payment_method,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	Status         *string           `json:"status,omitempty"`
	StatusNotes    string            `json:"status_notes,omitempty"`
	SDIIdentifier  *string           `json:"sdi_identifier,omitempty"`
}

// ChangeStatusRequest body para POST /api/invoices/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// InvoiceListRequest query de GET /api/invoices.
type InvoiceListRequest struct {
	PageRequest
	Status   string `query:"status"`
	ClientID string `query:"client_id"`
	Year     int    `query:"year"`
	DateFrom string `query:"date_from"`
	DateTo   string `query:"date_to"`
	Search   string `query:"search"`
	SortBy   string `query:"sort_by"`
	SortDesc bool   `query:"sort_desc"`
}

// InvoiceResponse factura con líneas.
type InvoiceResponse struct {
	ID                string             `json:"id"`
	InvoiceNumber     string             `json:"invoice_number"`
	InvoiceDate       string             `json:"invoice_date"`
	ClientID          string             `json:"client_id"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	TaxRate           decimal.Decimal    `json:"tax_rate"`
	TaxAmount         decimal.Decimal    `json:"tax_amount"`
	Total             decimal.Decimal    `json:"total"`
	WithholdingTax    decimal.Decimal    `json:"withholding_tax"`
	WithholdingAmount decimal.Decimal    `json:"withholding_amount"`
	NetToPay          decimal.Decimal    `json:"net_to_pay"`
	StampDuty         decimal.Decimal    `json:"stamp_duty"`
	PaymentTerms      string             `json:"payment_terms,omitempty"`
	PaymentMethod     string             `json:"payment_method,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	Status            string             `json:"status"`
	PaidDate          string             `json:"paid_date,omitempty"`
	Currency          string             `json:"currency"`
	ExternalOrderID   string             `json:"external_order_id,omitempty"`
	SDIIdentifier     string             `json:"sdi_identifier,omitempty"`
	XMLFilePath       string             `json:"xml_file_path,omitempty"`
	XMLDigest         string             `json:"xml_digest,omitempty"`
	Items             []LineItemResponse `json:"items,omitempty"`
}

// LineItemResponse línea en la respuesta.
type LineItemResponse struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// StatusHistoryResponse entrada del historial de estados.
type StatusHistoryResponse struct {
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
	Actor     string    `json:"actor,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// NextNumberResponse respuesta de GET /api/invoices/next-number.
type NextNumberResponse struct {
	Number string `json:"number"`
}

// FiscalDocumentResponse resultado de generar el XML FatturaPA.
type FiscalDocumentResponse struct {
	InvoiceID string `json:"invoice_id"`
	FileName  string `json:"file_name"`
	Path      string `json:"path,omitempty"`
	Digest    string `json:"digest"`
	Warning   string `json:"warning,omitempty"`
}
