package repository

import (
	"context"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// StoreRepository define el puerto de persistencia para ExternalStore.
type StoreRepository interface {
	Create(ctx context.Context, store *entity.ExternalStore) error
	GetByID(ctx context.Context, id string) (*entity.ExternalStore, error)
	List(ctx context.Context) ([]*entity.ExternalStore, error)
	// ListAutoSync tiendas activas con sincronización automática.
	ListAutoSync(ctx context.Context) ([]*entity.ExternalStore, error)
	Update(ctx context.Context, store *entity.ExternalStore) error
	// Delete devuelve ConflictError si la tienda tiene pedidos.
	Delete(ctx context.Context, id string) error
}
