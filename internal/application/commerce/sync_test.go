package commerce_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/memory"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/woocommerce"
)

// fakeShop servidor WooCommerce mínimo que registra las peticiones a /orders.
type fakeShop struct {
	mu      sync.Mutex
	orders  []any
	status  int
	queries []map[string]string
	srv     *httptest.Server
}

func newFakeShop(t *testing.T, orders ...any) *fakeShop {
	t.Helper()
	f := &fakeShop{orders: orders, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		f.queries = append(f.queries, q)
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.orders)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeShop) setStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

func (f *fakeShop) lastQuery() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

type syncFixture struct {
	db     *memory.DB
	engine *commerce.SyncEngine
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db := memory.NewDB()
	engine := commerce.NewSyncEngine(db.Stores(), db.Orders(), woocommerce.NewClient(2*time.Second),
		commerce.SyncConfig{PageSize: 20, LookbackDays: 30}, nil).
		WithClock(func() time.Time { return fixedNow })
	return &syncFixture{db: db, engine: engine}
}

func (f *syncFixture) addStore(t *testing.T, id, url string) *entity.ExternalStore {
	t.Helper()
	s := &entity.ExternalStore{
		ID:             id,
		Name:           "Negozio " + id,
		StoreURL:       url,
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AutoSync:       true,
		SyncInterval:   60,
		Status:         entity.StoreStatusActive,
	}
	require.NoError(t, f.db.Stores().Create(context.Background(), s))
	return s
}

func (f *syncFixture) store(t *testing.T, id string) *entity.ExternalStore {
	t.Helper()
	s, err := f.db.Stores().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (f *syncFixture) countOrders(t *testing.T, storeID string) int {
	t.Helper()
	n, err := f.db.Orders().Count(context.Background(), repository.OrderFilter{StoreID: storeID})
	require.NoError(t, err)
	return n
}

func TestSyncStore_DobleSincronizacionNoDuplica(t *testing.T) {
	ctx := context.Background()
	shop := newFakeShop(t,
		wooOrder(101, "2025-03-01T08:00:00", individualMeta()),
		wooOrder(102, "2025-03-02T09:00:00", businessMeta()),
	)
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	first, err := f.engine.SyncStore(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Synced)
	assert.Equal(t, 2, first.TotalFetched)
	assert.Empty(t, first.Errors)
	assert.Equal(t, "20", shop.lastQuery()["per_page"])
	assert.Equal(t, "2025-02-08T09:30:00Z", shop.lastQuery()["after"], "sin pedidos ni sync_from: now − 30 días")

	second, err := f.engine.SyncStore(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Synced)
	assert.Equal(t, 2, f.countOrders(t, "s1"), "el upsert por (tienda, id externo) no duplica")
	assert.Equal(t, "2025-03-02T09:00:01Z", shop.lastQuery()["after"], "último pedido + 1 s")

	s := f.store(t, "s1")
	require.NotNil(t, s.LastSyncAt)
	assert.Equal(t, fixedNow, *s.LastSyncAt)
	assert.Empty(t, s.LastError)
}

func TestSyncStore_ConservaElVinculoConLaFactura(t *testing.T) {
	ctx := context.Background()
	shop := newFakeShop(t, wooOrder(101, "2025-03-01T08:00:00", individualMeta()))
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	_, err := f.engine.SyncStore(ctx, "s1", 0)
	require.NoError(t, err)
	o, err := f.db.Orders().GetByExternalID(ctx, "s1", "101")
	require.NoError(t, err)
	require.NoError(t, f.db.Orders().LinkInvoice(ctx, o.ID, "inv-1"))

	_, err = f.engine.SyncStore(ctx, "s1", 0)
	require.NoError(t, err)
	again, err := f.db.Orders().GetByExternalID(ctx, "s1", "101")
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)
	assert.Equal(t, "inv-1", again.InvoiceID)
}

func TestSyncStore_UsaSyncFromSinPedidosPrevios(t *testing.T) {
	shop := newFakeShop(t)
	f := newSyncFixture(t)
	s := f.addStore(t, "s1", shop.srv.URL)
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	s.SyncFrom = &from
	require.NoError(t, f.db.Stores().Update(context.Background(), s))

	res, err := f.engine.SyncStore(context.Background(), "s1", 500)
	require.NoError(t, err)
	assert.Zero(t, res.Synced)
	assert.Equal(t, "2024-01-15T00:00:00Z", shop.lastQuery()["after"])
	assert.Equal(t, "100", shop.lastQuery()["per_page"], "page size acotado al máximo de la API")
}

func TestSyncStore_ErroresPorPedidoNoAbortan(t *testing.T) {
	shop := newFakeShop(t,
		wooOrder(101, "2025-03-01T08:00:00", individualMeta()),
		wooOrder(0, "2025-03-01T08:00:00", nil),
		wooOrder(103, "fecha-rota", nil),
	)
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	res, err := f.engine.SyncStore(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 3, res.TotalFetched)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Pedido #"), res.Errors[0])
	assert.Contains(t, res.Errors[1], "Pedido #103")
	assert.Equal(t, "2 pedidos con errores", f.store(t, "s1").LastError)
}

func TestSyncStore_CredencialesInvalidasMarcanError(t *testing.T) {
	ctx := context.Background()
	shop := newFakeShop(t, wooOrder(101, "2025-03-01T08:00:00", individualMeta()))
	shop.setStatus(http.StatusUnauthorized)
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	_, err := f.engine.SyncStore(ctx, "s1", 0)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	s := f.store(t, "s1")
	assert.Equal(t, entity.StoreStatusError, s.Status)
	assert.NotEmpty(t, s.LastError)
	assert.Nil(t, s.LastSyncAt)

	shop.setStatus(http.StatusOK)
	_, err = f.engine.SyncStore(ctx, "s1", 0)
	require.NoError(t, err)
	s = f.store(t, "s1")
	assert.Equal(t, entity.StoreStatusActive, s.Status, "una sincronización correcta reactiva la tienda")
	assert.Empty(t, s.LastError)
}

func TestSyncStore_FalloTransitorioNoCambiaEstado(t *testing.T) {
	shop := newFakeShop(t)
	shop.setStatus(http.StatusServiceUnavailable)
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	_, err := f.engine.SyncStore(context.Background(), "s1", 0)
	require.ErrorIs(t, err, domain.ErrExternalAPI)
	s := f.store(t, "s1")
	assert.Equal(t, entity.StoreStatusActive, s.Status)
	assert.Contains(t, s.LastError, "503")
}

func TestSyncStore_TiendaInexistente(t *testing.T) {
	f := newSyncFixture(t)
	_, err := f.engine.SyncStore(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncAllActive_UnaTiendaCaidaNoBloqueaAlResto(t *testing.T) {
	ok := newFakeShop(t, wooOrder(1, "2025-03-01T08:00:00", individualMeta()))
	down := newFakeShop(t)
	down.setStatus(http.StatusInternalServerError)

	f := newSyncFixture(t)
	f.addStore(t, "a", down.srv.URL)
	f.addStore(t, "b", ok.srv.URL)
	inactive := f.addStore(t, "c", ok.srv.URL)
	inactive.Status = entity.StoreStatusInactive
	require.NoError(t, f.db.Stores().Update(context.Background(), inactive))

	results, err := f.engine.SyncAllActive(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results["a"].Err, domain.ErrExternalAPI)
	assert.NoError(t, results["b"].Err)
	assert.Equal(t, 1, results["b"].Synced)
	assert.NotContains(t, results, "c")
}

func TestSyncDue_RespetaElIntervalo(t *testing.T) {
	shop := newFakeShop(t)
	f := newSyncFixture(t)
	recent := f.addStore(t, "recent", shop.srv.URL)
	last := fixedNow.Add(-10 * time.Minute)
	recent.LastSyncAt = &last
	require.NoError(t, f.db.Stores().Update(context.Background(), recent))
	f.addStore(t, "never", shop.srv.URL)

	results, err := f.engine.SyncDue(context.Background())
	require.NoError(t, err)
	assert.Contains(t, results, "never")
	assert.NotContains(t, results, "recent")
}

func TestTestConnection_TiendaGuardada(t *testing.T) {
	shop := newFakeShop(t)
	f := newSyncFixture(t)
	f.addStore(t, "s1", shop.srv.URL)

	assert.NoError(t, f.engine.TestConnection(context.Background(), "s1"))
	shop.setStatus(http.StatusUnauthorized)
	assert.ErrorIs(t, f.engine.TestConnection(context.Background(), "s1"), domain.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.TestConnection(context.Background(), "nope"), domain.ErrNotFound)
}
