package repository

import (
	"context"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// ClientFilter opciones de listado de clientes.
type ClientFilter struct {
	Type   entity.ClientType // vacío = todos
	Search string            // razón social, P.IVA, CF o email
	Limit  int
	Offset int
}

// ClientRepository define el puerto de persistencia para Client.
// Los Get/Find devuelven (nil, nil) si no existe.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id string) (*entity.Client, error)
	FindByVATNumber(ctx context.Context, vat string) (*entity.Client, error)
	FindByTaxCode(ctx context.Context, taxCode string) (*entity.Client, error)
	FindByEmail(ctx context.Context, email string) (*entity.Client, error)
	List(ctx context.Context, f ClientFilter) ([]*entity.Client, error)
	Update(ctx context.Context, client *entity.Client) error
	// Delete devuelve ConflictError si alguna factura lo referencia.
	Delete(ctx context.Context, id string) error
}
