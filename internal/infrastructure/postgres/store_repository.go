package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.StoreRepository = (*StoreRepo)(nil)

const storeColumns = `id, name, store_url, consumer_key, consumer_secret, sync_from, auto_sync, sync_interval,
	last_sync_at, last_error, status, created_at, updated_at`

// StoreRepo implementación de StoreRepository (usable con pool o tx).
type StoreRepo struct {
	q Querier
}

// NewStoreRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStoreRepository(q Querier) *StoreRepo {
	return &StoreRepo{q: q}
}

// Create persiste una tienda.
func (r *StoreRepo) Create(ctx context.Context, s *entity.ExternalStore) error {
	query := `INSERT INTO external_stores (` + storeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.Name, s.StoreURL, s.ConsumerKey, s.ConsumerSecret, s.SyncFrom, s.AutoSync, s.SyncInterval,
		s.LastSyncAt, s.LastError, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

// GetByID obtiene una tienda.
func (r *StoreRepo) GetByID(ctx context.Context, id string) (*entity.ExternalStore, error) {
	s, err := scanStore(r.q.QueryRow(ctx, `SELECT `+storeColumns+` FROM external_stores WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

// List todas las tiendas por nombre.
func (r *StoreRepo) List(ctx context.Context) ([]*entity.ExternalStore, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM external_stores ORDER BY name`)
}

// ListAutoSync tiendas activas con auto_sync.
func (r *StoreRepo) ListAutoSync(ctx context.Context) ([]*entity.ExternalStore, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM external_stores
		WHERE status = 'active' AND auto_sync ORDER BY name`)
}

// Update actualiza credenciales, ventana y estado de sincronización.
func (r *StoreRepo) Update(ctx context.Context, s *entity.ExternalStore) error {
	query := `
		UPDATE external_stores
		SET name = $2, store_url = $3, consumer_key = $4, consumer_secret = $5, sync_from = $6,
		    auto_sync = $7, sync_interval = $8, last_sync_at = $9, last_error = $10, status = $11,
		    updated_at = $12
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.Name, s.StoreURL, s.ConsumerKey, s.ConsumerSecret, s.SyncFrom, s.AutoSync, s.SyncInterval,
		s.LastSyncAt, s.LastError, s.Status, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	return nil
}

// Delete borra la tienda; la FK de external_orders lo impide si tiene pedidos.
func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM external_stores WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return &domain.ConflictError{Reason: "la tienda tiene pedidos sincronizados y no puede borrarse"}
		}
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}

func (r *StoreRepo) list(ctx context.Context, query string) ([]*entity.ExternalStore, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	var list []*entity.ExternalStore
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanStore(row pgx.Row) (*entity.ExternalStore, error) {
	var s entity.ExternalStore
	err := row.Scan(
		&s.ID, &s.Name, &s.StoreURL, &s.ConsumerKey, &s.ConsumerSecret, &s.SyncFrom, &s.AutoSync,
		&s.SyncInterval, &s.LastSyncAt, &s.LastError, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
