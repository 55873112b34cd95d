package fatturapa

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain"
)

var _ billing.SchemaValidator = (*SchemaChecker)(nil)

// mandatoryPaths elementos sin los cuales el SDI descarta el archivo.
var mandatoryPaths = []string{
	"FatturaElettronicaHeader/DatiTrasmissione/IdTrasmittente/IdPaese",
	"FatturaElettronicaHeader/DatiTrasmissione/IdTrasmittente/IdCodice",
	"FatturaElettronicaHeader/DatiTrasmissione/ProgressivoInvio",
	"FatturaElettronicaHeader/DatiTrasmissione/FormatoTrasmissione",
	"FatturaElettronicaHeader/DatiTrasmissione/CodiceDestinatario",
	"FatturaElettronicaHeader/CedentePrestatore/DatiAnagrafici/IdFiscaleIVA/IdCodice",
	"FatturaElettronicaHeader/CedentePrestatore/DatiAnagrafici/Anagrafica/Denominazione",
	"FatturaElettronicaHeader/CedentePrestatore/DatiAnagrafici/RegimeFiscale",
	"FatturaElettronicaHeader/CedentePrestatore/Sede/Nazione",
	"FatturaElettronicaHeader/CessionarioCommittente/DatiAnagrafici/Anagrafica/Denominazione",
	"FatturaElettronicaHeader/CessionarioCommittente/Sede/Nazione",
	"FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/TipoDocumento",
	"FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/Divisa",
	"FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/Data",
	"FatturaElettronicaBody/DatiGenerali/DatiGeneraliDocumento/Numero",
	"FatturaElettronicaBody/DatiBeniServizi/DettaglioLinee",
	"FatturaElettronicaBody/DatiBeniServizi/DatiRiepilogo",
}

// SchemaChecker comprueba el documento contra el XSD local de FatturaPA.
// Del XSD toma el targetNamespace y los nombres de elemento declarados; el
// resto son comprobaciones estructurales sobre el árbol generado.
type SchemaChecker struct {
	path string

	once     sync.Once
	loadErr  error
	ns       string
	declared map[string]struct{}
}

// NewSchemaChecker path al Schema_FatturaPA_v1.2.2.xsd. Vacío = sin esquema.
func NewSchemaChecker(path string) *SchemaChecker {
	return &SchemaChecker{path: path}
}

// Validate devuelve billing.ErrSchemaUnavailable si el XSD no existe, ValidationError si el documento no cumple.
func (s *SchemaChecker) Validate(xmlBytes []byte) error {
	s.once.Do(s.load)
	if s.loadErr != nil {
		return s.loadErr
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return domain.NewValidationError(fmt.Sprintf("XML mal formado: %v", err))
	}
	root := doc.Root()
	if root == nil || root.Tag != "FatturaElettronica" {
		return domain.NewValidationError("el elemento raíz debe ser FatturaElettronica")
	}

	var reasons []string
	if ns := root.NamespaceURI(); ns != s.ns {
		reasons = append(reasons, fmt.Sprintf("namespace %q distinto del esquema %q", ns, s.ns))
	}
	if v := root.SelectAttrValue("versione", ""); v != FormatoPA && v != FormatoPrivati {
		reasons = append(reasons, fmt.Sprintf("versione %q no admitida", v))
	}
	for _, p := range mandatoryPaths {
		if el := root.FindElement(p); el == nil || (strings.TrimSpace(el.Text()) == "" && len(el.ChildElements()) == 0) {
			reasons = append(reasons, "falta "+p)
		}
	}
	unknown := map[string]struct{}{}
	walk(root, func(el *etree.Element) {
		if el == root {
			return
		}
		if _, ok := s.declared[el.Tag]; !ok {
			unknown[el.Tag] = struct{}{}
		}
	})
	for tag := range unknown {
		reasons = append(reasons, "elemento no declarado en el esquema: "+tag)
	}

	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}

func (s *SchemaChecker) load() {
	if s.path == "" {
		s.loadErr = billing.ErrSchemaUnavailable
		return
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loadErr = fmt.Errorf("%w: %s", billing.ErrSchemaUnavailable, s.path)
		return
	}
	if err != nil {
		s.loadErr = fmt.Errorf("fatturapa: leer esquema: %w", err)
		return
	}

	xsd := etree.NewDocument()
	if err := xsd.ReadFromBytes(data); err != nil {
		s.loadErr = fmt.Errorf("fatturapa: esquema ilegible: %w", err)
		return
	}
	root := xsd.Root()
	if root == nil || root.Tag != "schema" {
		s.loadErr = fmt.Errorf("fatturapa: %s no es un XSD", s.path)
		return
	}
	s.ns = root.SelectAttrValue("targetNamespace", "")
	s.declared = map[string]struct{}{}
	walk(root, func(el *etree.Element) {
		if el.Tag == "element" {
			if name := el.SelectAttrValue("name", ""); name != "" {
				s.declared[name] = struct{}{}
			}
		}
	})
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}
