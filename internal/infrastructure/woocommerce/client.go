// Package woocommerce implementa commerce.OrderSource sobre la API REST v3 de WooCommerce.
package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

const (
	apiPath = "/wp-json/wc/v3"

	// DefaultTimeout tiempo máximo por petición; sin reintentos.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bytes del cuerpo de error que se incluyen en el mensaje.
	maxErrorBody = 512
)

var _ commerce.OrderSource = (*Client)(nil)

// Client cliente HTTP de la tienda con autenticación Basic (consumer key / secret).
type Client struct {
	httpClient *http.Client
}

// NewClient construye el cliente. timeout <= 0 usa DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// FetchOrders GET /orders?per_page=N&orderby=date&order=desc&after=… Devuelve cada pedido sin decodificar.
func (c *Client) FetchOrders(ctx context.Context, store *entity.ExternalStore, q commerce.OrderQuery) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("orderby", "date")
	params.Set("order", "desc")
	if !q.After.IsZero() {
		params.Set("after", q.After.UTC().Format(commerce.AfterLayout))
	}

	body, err := c.get(ctx, store, "orders", params, "obtener pedidos")
	if err != nil {
		return nil, err
	}
	var orders []json.RawMessage
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, &domain.ExternalAPIError{Op: "obtener pedidos", Err: fmt.Errorf("respuesta no es un array JSON: %w", err)}
	}
	return orders, nil
}

// TestConnection GET /system_status: 200 conecta, 401 credenciales, otro código inesperado.
func (c *Client) TestConnection(ctx context.Context, store *entity.ExternalStore) error {
	_, err := c.get(ctx, store, "system_status", nil, "probar conexión")
	return err
}

func (c *Client) get(ctx context.Context, store *entity.ExternalStore, endpoint string, params url.Values, op string) ([]byte, error) {
	endpointURL, err := BaseURL(store.StoreURL)
	if err != nil {
		return nil, &domain.ExternalAPIError{Op: op, Err: err}
	}
	endpointURL += "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		endpointURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, &domain.ExternalAPIError{Op: op, Err: err}
	}
	req.SetBasicAuth(store.ConsumerKey, store.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExternalAPIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ExternalAPIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("leer respuesta: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &domain.ExternalAPIError{Op: op, StatusCode: resp.StatusCode, Unauthorized: true}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &domain.ExternalAPIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", snippet(body))}
	}
	return body, nil
}

// BaseURL {store_url}/wp-json/wc/v3 sin barra final.
func BaseURL(storeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(storeURL))
	if err != nil {
		return "", fmt.Errorf("URL de tienda no válida: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL de tienda no válida: %q", storeURL)
	}
	return strings.TrimRight(u.String(), "/") + apiPath, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "…"
	}
	if s == "" {
		s = "cuerpo vacío"
	}
	return s
}
