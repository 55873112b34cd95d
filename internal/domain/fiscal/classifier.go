// Package fiscal clasifica clientes por país y valida sus identificadores fiscales
// según las reglas de facturación electrónica italiana.
package fiscal

import (
	"regexp"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// euCountries estados miembros de la UE distintos de Italia.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "CY": {}, "CZ": {}, "DE": {}, "DK": {}, "EE": {}, "ES": {},
	"FI": {}, "FR": {}, "GR": {}, "HR": {}, "HU": {}, "IE": {}, "LT": {}, "LU": {}, "LV": {},
	"MT": {}, "NL": {}, "PL": {}, "PT": {}, "RO": {}, "SE": {}, "SI": {}, "SK": {},
}

var (
	italianVATPattern     = regexp.MustCompile(`^[0-9]{11}$`)
	italianTaxCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)
)

// EUCountries devuelve el conjunto UE (sin IT) en orden alfabético.
func EUCountries() []string {
	return []string{
		"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES",
		"FI", "FR", "GR", "HR", "HU", "IE", "LT", "LU", "LV",
		"MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
	}
}

// NormalizeCountry recorta y pasa a mayúsculas el código ISO.
func NormalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

// Classify determina la categoría fiscal a partir del país.
func Classify(country string) entity.ClientType {
	c := NormalizeCountry(country)
	if c == "IT" {
		return entity.ClientTypeIT
	}
	if _, ok := euCountries[c]; ok {
		return entity.ClientTypeEU
	}
	return entity.ClientTypeNonEU
}

// Snapshot datos mínimos de un cliente necesarios para la validación fiscal.
type Snapshot struct {
	Country   string
	Kind      entity.ClientKind
	VATNumber string
	TaxCode   string
	SDICode   string
	PECEmail  string
}

// SnapshotOf extrae el snapshot de un cliente persistido.
func SnapshotOf(c *entity.Client) Snapshot {
	return Snapshot{
		Country:   c.Country,
		Kind:      c.Kind,
		VATNumber: c.VATNumber,
		TaxCode:   c.TaxCode,
		SDICode:   c.SDICode,
		PECEmail:  c.PECEmail,
	}
}

// Validate comprueba los identificadores fiscales según categoría y tipo de cliente.
// Devuelve *domain.ValidationError con todos los motivos, o nil.
func Validate(s Snapshot) error {
	var reasons []string
	country := NormalizeCountry(s.Country)
	vat := strings.TrimSpace(s.VATNumber)
	taxCode := strings.TrimSpace(s.TaxCode)
	business := s.Kind != entity.ClientKindIndividual

	switch Classify(country) {
	case entity.ClientTypeIT:
		if business {
			switch {
			case vat == "":
				reasons = append(reasons, "la Partita IVA es obligatoria para empresas italianas")
			case !italianVATPattern.MatchString(vat):
				reasons = append(reasons, "la Partita IVA debe tener exactamente 11 dígitos")
			}
			if strings.TrimSpace(s.SDICode) == "" && strings.TrimSpace(s.PECEmail) == "" {
				reasons = append(reasons, "se requiere Codice Destinatario SDI o PEC para la facturación electrónica")
			}
		} else {
			switch {
			case taxCode == "":
				reasons = append(reasons, "el Codice Fiscale es obligatorio para personas físicas italianas")
			case !italianTaxCodePattern.MatchString(taxCode):
				reasons = append(reasons, "el Codice Fiscale debe tener exactamente 16 caracteres alfanuméricos")
			}
		}
	case entity.ClientTypeEU:
		if business && vat == "" {
			reasons = append(reasons, "el número de IVA es obligatorio para empresas de la UE")
		}
	default:
		if country == "" {
			reasons = append(reasons, "el país es obligatorio")
		}
	}

	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}
