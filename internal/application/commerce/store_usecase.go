package commerce

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

// DefaultSyncInterval minutos entre sincronizaciones automáticas.
const DefaultSyncInterval = 60

// StoreUseCase alta y mantenimiento de las conexiones con tiendas.
type StoreUseCase struct {
	repo   repository.StoreRepository
	source OrderSource
	now    func() time.Time
}

// NewStoreUseCase construye el caso de uso.
func NewStoreUseCase(repo repository.StoreRepository, source OrderSource) *StoreUseCase {
	return &StoreUseCase{repo: repo, source: source, now: time.Now}
}

// Create valida y guarda la tienda. No prueba la conexión.
func (uc *StoreUseCase) Create(ctx context.Context, in dto.CreateStoreRequest) (*dto.StoreResponse, error) {
	store, err := storeFromRequest(in)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	store.ID = uuid.New().String()
	store.CreatedAt = now
	store.UpdatedAt = now
	if err := uc.repo.Create(ctx, store); err != nil {
		return nil, &domain.PersistenceError{Op: "crear tienda", Err: err}
	}
	return ToStoreResponse(store), nil
}

// Update reemplaza los datos editables. Un secreto vacío conserva el guardado.
func (uc *StoreUseCase) Update(ctx context.Context, id string, in dto.CreateStoreRequest) (*dto.StoreResponse, error) {
	current, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ConsumerSecret) == "" {
		in.ConsumerSecret = current.ConsumerSecret
	}
	store, err := storeFromRequest(in)
	if err != nil {
		return nil, err
	}
	store.ID = current.ID
	store.LastSyncAt = current.LastSyncAt
	store.LastError = current.LastError
	store.CreatedAt = current.CreatedAt
	store.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, store); err != nil {
		return nil, &domain.PersistenceError{Op: "actualizar tienda", Err: err}
	}
	return ToStoreResponse(store), nil
}

// GetByID devuelve la tienda sin el secreto.
func (uc *StoreUseCase) GetByID(ctx context.Context, id string) (*dto.StoreResponse, error) {
	s, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToStoreResponse(s), nil
}

// List todas las tiendas.
func (uc *StoreUseCase) List(ctx context.Context) ([]*dto.StoreResponse, error) {
	list, err := uc.repo.List(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "listar tiendas", Err: err}
	}
	out := make([]*dto.StoreResponse, 0, len(list))
	for _, s := range list {
		out = append(out, ToStoreResponse(s))
	}
	return out, nil
}

// Delete falla con ConflictError si la tienda tiene pedidos sincronizados.
func (uc *StoreUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.get(ctx, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

// TestCredentials prueba una conexión sin guardarla.
func (uc *StoreUseCase) TestCredentials(ctx context.Context, in dto.CreateStoreRequest) error {
	store, err := storeFromRequest(in)
	if err != nil {
		return err
	}
	return uc.source.TestConnection(ctx, store)
}

func (uc *StoreUseCase) get(ctx context.Context, id string) (*entity.ExternalStore, error) {
	s, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener tienda", Err: err}
	}
	if s == nil {
		return nil, &domain.NotFoundError{Entity: "tienda", ID: id}
	}
	return s, nil
}

func storeFromRequest(in dto.CreateStoreRequest) (*entity.ExternalStore, error) {
	var reasons []string
	s := &entity.ExternalStore{
		Name:           strings.TrimSpace(in.Name),
		StoreURL:       strings.TrimRight(strings.TrimSpace(in.StoreURL), "/"),
		ConsumerKey:    strings.TrimSpace(in.ConsumerKey),
		ConsumerSecret: strings.TrimSpace(in.ConsumerSecret),
		AutoSync:       in.AutoSync,
		SyncInterval:   in.SyncInterval,
		Status:         entity.StoreStatus(in.Status),
	}
	if s.Name == "" {
		reasons = append(reasons, "el nombre de la tienda es obligatorio")
	}
	if u, err := url.Parse(s.StoreURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		reasons = append(reasons, "la URL de la tienda debe ser http(s)://host")
	}
	if s.ConsumerKey == "" || s.ConsumerSecret == "" {
		reasons = append(reasons, "consumer key y consumer secret son obligatorios")
	}
	if s.SyncInterval == 0 {
		s.SyncInterval = DefaultSyncInterval
	}
	if s.SyncInterval < 0 {
		reasons = append(reasons, "el intervalo de sincronización debe ser positivo")
	}
	switch s.Status {
	case "":
		s.Status = entity.StoreStatusActive
	case entity.StoreStatusActive, entity.StoreStatusInactive:
	default:
		reasons = append(reasons, "estado de tienda no válido: "+string(s.Status))
	}
	if in.SyncFrom != "" {
		t, err := time.Parse("2006-01-02", in.SyncFrom)
		if err != nil {
			reasons = append(reasons, "sync_from debe tener formato YYYY-MM-DD")
		} else {
			s.SyncFrom = &t
		}
	}
	if len(reasons) > 0 {
		return nil, domain.NewValidationError(reasons...)
	}
	return s, nil
}

// ToStoreResponse mapea la entidad al DTO sin el secreto.
func ToStoreResponse(s *entity.ExternalStore) *dto.StoreResponse {
	r := &dto.StoreResponse{
		ID:           s.ID,
		Name:         s.Name,
		StoreURL:     s.StoreURL,
		ConsumerKey:  s.ConsumerKey,
		AutoSync:     s.AutoSync,
		SyncInterval: s.SyncInterval,
		LastSyncAt:   s.LastSyncAt,
		LastError:    s.LastError,
		Status:       string(s.Status),
	}
	if s.SyncFrom != nil {
		r.SyncFrom = s.SyncFrom.Format("2006-01-02")
	}
	return r
}
