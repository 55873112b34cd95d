package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/fiscal"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

// ClientUseCase casos de uso para clientes (cessionari).
type ClientUseCase struct {
	repo        repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
}

// NewClientUseCase construye el caso de uso.
func NewClientUseCase(repo repository.ClientRepository, invoiceRepo repository.InvoiceRepository) *ClientUseCase {
	return &ClientUseCase{repo: repo, invoiceRepo: invoiceRepo}
}

// NormalizeVATNumber mayúsculas sin espacios; la P.IVA italiana se guarda sin el prefijo IT.
func NormalizeVATNumber(country, vat string) string {
	vat = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(vat), " ", ""))
	if fiscal.NormalizeCountry(country) == "IT" && strings.HasPrefix(vat, "IT") {
		vat = strings.TrimPrefix(vat, "IT")
	}
	return vat
}

// PrepareClient normaliza los campos, deriva ClientType y valida los datos fiscales.
// Lo comparten el alta manual y la conversión de pedidos.
func PrepareClient(c *entity.Client) error {
	c.BusinessName = strings.TrimSpace(c.BusinessName)
	c.TaxCode = strings.ToUpper(strings.TrimSpace(c.TaxCode))
	c.SDICode = strings.ToUpper(strings.TrimSpace(c.SDICode))
	c.Email = strings.TrimSpace(c.Email)
	c.PECEmail = strings.TrimSpace(c.PECEmail)
	c.Province = strings.ToUpper(strings.TrimSpace(c.Province))
	c.Country = fiscal.NormalizeCountry(c.Country)
	if c.Country == "" {
		c.Country = entity.DefaultCountry
	}
	c.VATNumber = NormalizeVATNumber(c.Country, c.VATNumber)
	if c.Kind == "" {
		if c.VATNumber != "" {
			c.Kind = entity.ClientKindBusiness
		} else {
			c.Kind = entity.ClientKindIndividual
		}
	}
	c.ClientType = fiscal.Classify(c.Country)

	var reasons []string
	if c.BusinessName == "" {
		reasons = append(reasons, "la razón social es obligatoria")
	}
	if c.Kind != entity.ClientKindBusiness && c.Kind != entity.ClientKindIndividual {
		reasons = append(reasons, fmt.Sprintf("tipo de cliente desconocido: %q", c.Kind))
	}
	if err := fiscal.Validate(fiscal.SnapshotOf(c)); err != nil {
		if vErr, ok := err.(*domain.ValidationError); ok {
			reasons = append(reasons, vErr.Reasons...)
		}
	}
	if len(reasons) > 0 {
		return domain.NewValidationError(reasons...)
	}
	return nil
}

// Create da de alta un cliente.
func (uc *ClientUseCase) Create(ctx context.Context, in dto.CreateClientRequest) (*dto.ClientResponse, error) {
	now := time.Now()
	client := clientFromRequest(in)
	client.ID = uuid.New().String()
	client.CreatedAt = now
	client.UpdatedAt = now
	if err := PrepareClient(client); err != nil {
		return nil, err
	}
	if err := uc.ensureUniqueVAT(ctx, client); err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, client); err != nil {
		return nil, &domain.PersistenceError{Op: "crear cliente", Err: err}
	}
	return ToClientResponse(client), nil
}

// Update reemplaza los datos del cliente; ClientType se recalcula.
func (uc *ClientUseCase) Update(ctx context.Context, id string, in dto.CreateClientRequest) (*dto.ClientResponse, error) {
	current, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	client := clientFromRequest(in)
	client.ID = current.ID
	client.ExternalStoreID = current.ExternalStoreID
	client.ExternalCustomerID = current.ExternalCustomerID
	client.CreatedAt = current.CreatedAt
	client.UpdatedAt = time.Now()
	if err := PrepareClient(client); err != nil {
		return nil, err
	}
	if err := uc.ensureUniqueVAT(ctx, client); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, client); err != nil {
		return nil, &domain.PersistenceError{Op: "actualizar cliente", Err: err}
	}
	return ToClientResponse(client), nil
}

// GetByID devuelve un cliente.
func (uc *ClientUseCase) GetByID(ctx context.Context, id string) (*dto.ClientResponse, error) {
	c, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToClientResponse(c), nil
}

// List lista clientes con filtros por tipo y texto.
func (uc *ClientUseCase) List(ctx context.Context, in dto.ClientListRequest) ([]*dto.ClientResponse, error) {
	in.DefaultPage()
	f := repository.ClientFilter{
		Search: strings.TrimSpace(in.Search),
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if in.Type != "" {
		t := entity.ClientType(strings.ToUpper(in.Type))
		switch t {
		case entity.ClientTypeIT, entity.ClientTypeEU, entity.ClientTypeNonEU:
			f.Type = t
		default:
			return nil, domain.NewValidationError(fmt.Sprintf("tipo de cliente desconocido: %q", in.Type))
		}
	}
	list, err := uc.repo.List(ctx, f)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar clientes", Err: err}
	}
	out := make([]*dto.ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToClientResponse(c))
	}
	return out, nil
}

// Delete borra el cliente si ninguna factura lo referencia.
func (uc *ClientUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.get(ctx, id); err != nil {
		return err
	}
	n, err := uc.invoiceRepo.CountByClient(ctx, id)
	if err != nil {
		return &domain.PersistenceError{Op: "contar facturas del cliente", Err: err}
	}
	if n > 0 {
		return &domain.ConflictError{Reason: fmt.Sprintf("el cliente tiene %d facturas y no puede borrarse", n)}
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return &domain.PersistenceError{Op: "borrar cliente", Err: err}
	}
	return nil
}

func (uc *ClientUseCase) get(ctx context.Context, id string) (*entity.Client, error) {
	c, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener cliente", Err: err}
	}
	if c == nil {
		return nil, &domain.NotFoundError{Entity: "cliente", ID: id}
	}
	return c, nil
}

func (uc *ClientUseCase) ensureUniqueVAT(ctx context.Context, c *entity.Client) error {
	if c.VATNumber == "" {
		return nil
	}
	existing, err := uc.repo.FindByVATNumber(ctx, c.VATNumber)
	if err != nil {
		return &domain.PersistenceError{Op: "buscar cliente por P.IVA", Err: err}
	}
	if existing != nil && existing.ID != c.ID {
		return &domain.ConflictError{Reason: fmt.Sprintf("ya existe un cliente con la Partita IVA %s", c.VATNumber)}
	}
	return nil
}

func clientFromRequest(in dto.CreateClientRequest) *entity.Client {
	return &entity.Client{
		BusinessName: in.BusinessName,
		Kind:         entity.ClientKind(strings.ToLower(strings.TrimSpace(in.Kind))),
		VATNumber:    in.VATNumber,
		TaxCode:      in.TaxCode,
		Email:        in.Email,
		PECEmail:     in.PECEmail,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
		Province:     in.Province,
		PostalCode:   strings.TrimSpace(in.PostalCode),
		Country:      in.Country,
		SDICode:      in.SDICode,
	}
}

// ToClientResponse convierte la entidad a DTO.
func ToClientResponse(c *entity.Client) *dto.ClientResponse {
	return &dto.ClientResponse{
		ID:                 c.ID,
		BusinessName:       c.BusinessName,
		Kind:               string(c.Kind),
		ClientType:         string(c.ClientType),
		VATNumber:          c.VATNumber,
		TaxCode:            c.TaxCode,
		Email:              c.Email,
		PECEmail:           c.PECEmail,
		Phone:              c.Phone,
		Address:            c.Address,
		City:               c.City,
		Province:           c.Province,
		PostalCode:         c.PostalCode,
		Country:            c.Country,
		SDICode:            c.SDICode,
		ExternalStoreID:    c.ExternalStoreID,
		ExternalCustomerID: c.ExternalCustomerID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
