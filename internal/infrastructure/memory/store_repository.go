package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.StoreRepository = (*StoreRepo)(nil)

// StoreRepo tiendas en memoria.
type StoreRepo struct {
	db *DB
}

func (r *StoreRepo) Create(_ context.Context, s *entity.ExternalStore) error {
	defer guard(r.db, false)()
	if _, ok := r.db.stores[s.ID]; ok {
		return domain.ErrDuplicate
	}
	r.db.stores[s.ID] = *s
	return nil
}

func (r *StoreRepo) GetByID(_ context.Context, id string) (*entity.ExternalStore, error) {
	defer guard(r.db, false)()
	s, ok := r.db.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *StoreRepo) List(_ context.Context) ([]*entity.ExternalStore, error) {
	return r.list(func(entity.ExternalStore) bool { return true }), nil
}

func (r *StoreRepo) ListAutoSync(_ context.Context) ([]*entity.ExternalStore, error) {
	return r.list(func(s entity.ExternalStore) bool {
		return s.Status == entity.StoreStatusActive && s.AutoSync
	}), nil
}

func (r *StoreRepo) Update(_ context.Context, s *entity.ExternalStore) error {
	defer guard(r.db, false)()
	if _, ok := r.db.stores[s.ID]; !ok {
		return fmt.Errorf("update store: %w", domain.ErrNotFound)
	}
	r.db.stores[s.ID] = *s
	return nil
}

func (r *StoreRepo) Delete(_ context.Context, id string) error {
	defer guard(r.db, false)()
	for _, o := range r.db.orders {
		if o.StoreID == id {
			return &domain.ConflictError{Reason: "la tienda tiene pedidos sincronizados y no puede borrarse"}
		}
	}
	delete(r.db.stores, id)
	return nil
}

func (r *StoreRepo) list(keep func(entity.ExternalStore) bool) []*entity.ExternalStore {
	defer guard(r.db, false)()
	var list []*entity.ExternalStore
	for _, s := range r.db.stores {
		if keep(s) {
			s := s
			list = append(list, &s)
		}
	}
	slices.SortFunc(list, func(a, b *entity.ExternalStore) int { return strings.Compare(a.Name, b.Name) })
	return list
}
