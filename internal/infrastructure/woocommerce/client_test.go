package woocommerce_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/woocommerce"
)

func storeFor(url string) *entity.ExternalStore {
	return &entity.ExternalStore{ID: "s1", StoreURL: url + "/", ConsumerKey: "ck_test", ConsumerSecret: "cs_test"}
}

func TestFetchOrders_ParametrosYAutenticacion(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer srv.Close()

	after := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	orders, err := woocommerce.NewClient(time.Second).FetchOrders(context.Background(), storeFor(srv.URL),
		commerce.OrderQuery{After: after, PerPage: 25})
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	require.NotNil(t, got)
	assert.Equal(t, "/wp-json/wc/v3/orders", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "25", q.Get("per_page"))
	assert.Equal(t, "date", q.Get("orderby"))
	assert.Equal(t, "desc", q.Get("order"))
	assert.Equal(t, "2024-01-15T00:00:00Z", q.Get("after"))
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "ck_test", user)
	assert.Equal(t, "cs_test", pass)
}

func TestFetchOrders_CredencialesInvalidas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := woocommerce.NewClient(time.Second).FetchOrders(context.Background(), storeFor(srv.URL), commerce.OrderQuery{PerPage: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, err, domain.ErrExternalAPI)
}

func TestFetchOrders_StatusInesperado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := woocommerce.NewClient(time.Second).FetchOrders(context.Background(), storeFor(srv.URL), commerce.OrderQuery{PerPage: 10})
	require.ErrorIs(t, err, domain.ErrExternalAPI)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "boom")
}

func TestFetchOrders_CuerpoNoArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"x"}`))
	}))
	defer srv.Close()

	_, err := woocommerce.NewClient(time.Second).FetchOrders(context.Background(), storeFor(srv.URL), commerce.OrderQuery{PerPage: 10})
	assert.ErrorIs(t, err, domain.ErrExternalAPI)
}

func TestFetchOrders_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := woocommerce.NewClient(20*time.Millisecond).FetchOrders(context.Background(), storeFor(srv.URL), commerce.OrderQuery{PerPage: 10})
	assert.ErrorIs(t, err, domain.ErrExternalAPI)
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/v3/system_status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if _, pass, _ := r.BasicAuth(); pass != "cs_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := woocommerce.NewClient(time.Second)
	assert.NoError(t, c.TestConnection(context.Background(), storeFor(srv.URL)))

	bad := storeFor(srv.URL)
	bad.ConsumerSecret = "wrong"
	assert.ErrorIs(t, c.TestConnection(context.Background(), bad), domain.ErrUnauthorized)
}

func TestBaseURL(t *testing.T) {
	u, err := woocommerce.BaseURL("https://shop.example.it/")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.it/wp-json/wc/v3", u)

	_, err = woocommerce.BaseURL("shop.example.it")
	assert.Error(t, err)
}
