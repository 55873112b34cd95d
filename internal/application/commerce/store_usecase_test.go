package commerce_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/memory"
)

// stubSource OrderSource que devuelve siempre el mismo resultado.
type stubSource struct {
	err    error
	tested *entity.ExternalStore
}

func (s *stubSource) FetchOrders(context.Context, *entity.ExternalStore, commerce.OrderQuery) ([]json.RawMessage, error) {
	return nil, s.err
}

func (s *stubSource) TestConnection(_ context.Context, store *entity.ExternalStore) error {
	s.tested = store
	return s.err
}

func validStoreRequest() dto.CreateStoreRequest {
	return dto.CreateStoreRequest{
		Name:           "Bottega Online",
		StoreURL:       "https://bottega.example.it/",
		ConsumerKey:    "ck_1",
		ConsumerSecret: "cs_1",
		SyncFrom:       "2025-01-01",
		AutoSync:       true,
	}
}

func TestStoreUseCase_CreateAplicaDefaults(t *testing.T) {
	db := memory.NewDB()
	uc := commerce.NewStoreUseCase(db.Stores(), &stubSource{})

	resp, err := uc.Create(context.Background(), validStoreRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "https://bottega.example.it", resp.StoreURL)
	assert.Equal(t, commerce.DefaultSyncInterval, resp.SyncInterval)
	assert.Equal(t, string(entity.StoreStatusActive), resp.Status)
	assert.Equal(t, "2025-01-01", resp.SyncFrom)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "cs_1", "el secreto no sale en la respuesta")
}

func TestStoreUseCase_CreateValidaTodo(t *testing.T) {
	uc := commerce.NewStoreUseCase(memory.NewDB().Stores(), &stubSource{})
	_, err := uc.Create(context.Background(), dto.CreateStoreRequest{
		StoreURL:     "ftp://bottega",
		SyncInterval: -5,
		Status:       "error",
		SyncFrom:     "01/01/2025",
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Reasons, 6)
}

func TestStoreUseCase_UpdateConservaSecreto(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	uc := commerce.NewStoreUseCase(db.Stores(), &stubSource{})
	created, err := uc.Create(ctx, validStoreRequest())
	require.NoError(t, err)

	req := validStoreRequest()
	req.Name = "Bottega 2"
	req.ConsumerSecret = ""
	req.Status = string(entity.StoreStatusInactive)
	_, err = uc.Update(ctx, created.ID, req)
	require.NoError(t, err)

	s, err := db.Stores().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bottega 2", s.Name)
	assert.Equal(t, "cs_1", s.ConsumerSecret)
	assert.Equal(t, entity.StoreStatusInactive, s.Status)

	_, err = uc.Update(ctx, "nope", req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreUseCase_DeleteConPedidosEsConflicto(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	uc := commerce.NewStoreUseCase(db.Stores(), &stubSource{})
	created, err := uc.Create(ctx, validStoreRequest())
	require.NoError(t, err)

	o, err := commerce.NormalizeOrder(created.ID, raw(t, wooOrder(1, "2025-03-01T08:00:00", nil)))
	require.NoError(t, err)
	_, err = db.Orders().Upsert(ctx, o)
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, created.ID), domain.ErrConflict)
	require.NoError(t, db.Orders().Delete(ctx, o.ID))
	assert.NoError(t, uc.Delete(ctx, created.ID))
	assert.ErrorIs(t, uc.Delete(ctx, created.ID), domain.ErrNotFound)
}

func TestStoreUseCase_TestCredentials(t *testing.T) {
	src := &stubSource{err: &domain.ExternalAPIError{Op: "probar conexión", StatusCode: 401, Unauthorized: true}}
	uc := commerce.NewStoreUseCase(memory.NewDB().Stores(), src)

	err := uc.TestCredentials(context.Background(), validStoreRequest())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	require.NotNil(t, src.tested)
	assert.Equal(t, "ck_1", src.tested.ConsumerKey)

	src.tested = nil
	err = uc.TestCredentials(context.Background(), dto.CreateStoreRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, src.tested, "no se llama a la API con datos inválidos")
}
