package commerce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

// Valores por defecto de la sincronización.
const (
	DefaultPageSize     = 50
	MaxPageSize         = 100
	DefaultLookbackDays = 30
)

// SyncConfig parámetros de sincronización construidos desde config.
type SyncConfig struct {
	PageSize     int
	LookbackDays int
}

// SyncResult resultado de sincronizar una tienda.
type SyncResult struct {
	StoreID      string
	Synced       int
	TotalFetched int
	Errors       []string // "Pedido #N: motivo"
	Err          error    // fallo de la tienda completa (solo en SyncAllActive / SyncDue)
}

// SyncEngine trae pedidos de las tiendas y los guarda con upsert por (tienda, id externo).
type SyncEngine struct {
	stores repository.StoreRepository
	orders repository.OrderRepository
	source OrderSource
	cfg    SyncConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewSyncEngine construye el motor de sincronización.
func NewSyncEngine(
	stores repository.StoreRepository,
	orders repository.OrderRepository,
	source OrderSource,
	cfg SyncConfig,
	log *logger.Logger,
) *SyncEngine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SyncEngine{
		stores: stores,
		orders: orders,
		source: source,
		cfg:    cfg,
		log:    log.WithComponent("sync"),
		now:    time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (e *SyncEngine) WithClock(now func() time.Time) *SyncEngine {
	e.now = now
	return e
}

// SyncStore sincroniza una tienda. pageSize <= 0 usa el valor configurado.
// Los errores por pedido se acumulan en el resultado; un fallo de la API aborta solo esta tienda.
func (e *SyncEngine) SyncStore(ctx context.Context, storeID string, pageSize int) (*SyncResult, error) {
	store, err := e.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener tienda", Err: err}
	}
	if store == nil {
		return nil, &domain.NotFoundError{Entity: "tienda", ID: storeID}
	}
	return e.syncStore(ctx, store, pageSize)
}

func (e *SyncEngine) syncStore(ctx context.Context, store *entity.ExternalStore, pageSize int) (*SyncResult, error) {
	if pageSize <= 0 {
		pageSize = e.cfg.PageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	log := e.log.With().Str("store_id", store.ID).Logger()

	after, err := e.window(ctx, store)
	if err != nil {
		return nil, err
	}

	raws, err := e.source.FetchOrders(ctx, store, OrderQuery{After: after, PerPage: pageSize})
	if err != nil {
		log.Error().Err(err).Time("after", after).Msg("sincronización fallida")
		e.recordFailure(ctx, store, err)
		return nil, err
	}

	res := &SyncResult{StoreID: store.ID, TotalFetched: len(raws)}
	for _, raw := range raws {
		order, err := NormalizeOrder(store.ID, raw)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Pedido #%s: %v", orderRef(raw), err))
			continue
		}
		if _, err := e.orders.Upsert(ctx, order); err != nil {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("upsert de pedido")
			res.Errors = append(res.Errors, fmt.Sprintf("Pedido #%s: %v", order.OrderNumber, err))
			continue
		}
		res.Synced++
	}

	now := e.now().UTC()
	store.LastSyncAt = &now
	store.LastError = ""
	if len(res.Errors) > 0 {
		store.LastError = fmt.Sprintf("%d pedidos con errores", len(res.Errors))
	}
	if store.Status == entity.StoreStatusError {
		store.Status = entity.StoreStatusActive
	}
	store.UpdatedAt = now
	if err := e.stores.Update(ctx, store); err != nil {
		return res, &domain.PersistenceError{Op: "actualizar tienda", Err: err}
	}

	log.Info().
		Int("synced", res.Synced).
		Int("fetched", res.TotalFetched).
		Int("errors", len(res.Errors)).
		Time("after", after).
		Msg("tienda sincronizada")
	return res, nil
}

// window inicio de la ventana: último pedido guardado + 1 s (el filtro after es inclusivo),
// si no la fecha configurada en la tienda, si no now − lookback.
func (e *SyncEngine) window(ctx context.Context, store *entity.ExternalStore) (time.Time, error) {
	latest, err := e.orders.LatestOrderDate(ctx, store.ID)
	if err != nil {
		return time.Time{}, &domain.PersistenceError{Op: "último pedido sincronizado", Err: err}
	}
	switch {
	case latest != nil:
		return latest.UTC().Add(time.Second).Truncate(time.Second), nil
	case store.SyncFrom != nil:
		return store.SyncFrom.UTC().Truncate(time.Second), nil
	default:
		return e.now().UTC().AddDate(0, 0, -e.cfg.LookbackDays).Truncate(time.Second), nil
	}
}

// recordFailure guarda el error en la tienda; solo credenciales inválidas la pasan a estado error.
func (e *SyncEngine) recordFailure(ctx context.Context, store *entity.ExternalStore, cause error) {
	store.LastError = cause.Error()
	if errors.Is(cause, domain.ErrUnauthorized) {
		store.Status = entity.StoreStatusError
	}
	store.UpdatedAt = e.now().UTC()
	if err := e.stores.Update(ctx, store); err != nil {
		e.log.Error().Err(err).Str("store_id", store.ID).Msg("no se pudo registrar el error de la tienda")
	}
}

// SyncAllActive sincroniza todas las tiendas activas con auto-sync. El fallo de una no bloquea al resto.
func (e *SyncEngine) SyncAllActive(ctx context.Context) (map[string]*SyncResult, error) {
	return e.syncWhere(ctx, func(*entity.ExternalStore) bool { return true })
}

// SyncDue igual que SyncAllActive pero solo las tiendas cuyo intervalo ya venció.
func (e *SyncEngine) SyncDue(ctx context.Context) (map[string]*SyncResult, error) {
	now := e.now()
	return e.syncWhere(ctx, func(s *entity.ExternalStore) bool { return s.SyncDue(now) })
}

func (e *SyncEngine) syncWhere(ctx context.Context, keep func(*entity.ExternalStore) bool) (map[string]*SyncResult, error) {
	stores, err := e.stores.ListAutoSync(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar tiendas", Err: err}
	}
	results := make(map[string]*SyncResult, len(stores))
	for _, s := range stores {
		if !keep(s) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.syncStore(ctx, s, 0)
		if err != nil {
			res = &SyncResult{StoreID: s.ID, Err: err}
		}
		results[s.ID] = res
	}
	return results, nil
}

// TestConnection comprueba credenciales y alcance de una tienda guardada.
func (e *SyncEngine) TestConnection(ctx context.Context, storeID string) error {
	store, err := e.stores.GetByID(ctx, storeID)
	if err != nil {
		return &domain.PersistenceError{Op: "obtener tienda", Err: err}
	}
	if store == nil {
		return &domain.NotFoundError{Entity: "tienda", ID: storeID}
	}
	return e.source.TestConnection(ctx, store)
}
