package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/fatture-rf/internal/application/dto"
	"github.com/jhoicas/fatture-rf/internal/bootstrap"
	apphttp "github.com/jhoicas/fatture-rf/internal/interfaces/http"
	"github.com/jhoicas/fatture-rf/pkg/config"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

const testPassword = "segreto-di-prova"

type apiFixture struct {
	app   *fiber.App
	token string
}

func testConfig(t *testing.T, hash string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Name: "fatture-rf"},
		DB:  config.DBConfig{Driver: "memory"},
		JWT: config.JWTConfig{Secret: testJWTSecret, Expiration: testExpMin, Issuer: testIssuer},
		Auth: config.AuthConfig{
			OperatorEmail:        testOperator,
			OperatorPasswordHash: hash,
		},
		Business: config.BusinessConfig{
			Name:       "Mario Bianchi",
			VATNumber:  "09876543210",
			TaxCode:    "BNCMRA80A01H501U",
			Address:    "Via Appia 10",
			City:       "Roma",
			Province:   "RM",
			PostalCode: "00100",
			Country:    "IT",
		},
		Invoicing: config.InvoicingConfig{
			Prefix:              "FATT",
			DefaultPaymentTerms: "30 giorni data fattura",
			WithholdingRate:     decimal.NewFromInt(20),
			FlatRateRegime:      true,
			FlatTaxRate:         decimal.NewFromInt(15),
			Currency:            "EUR",
			XMLOutputDir:        t.TempDir(),
			SchemaPath:          "",
		},
		Sync: config.SyncConfig{PageSize: 50, HTTPTimeoutSeconds: 2, DefaultLookbackDays: 30},
	}
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	c, err := bootstrap.New(context.Background(), testConfig(t, string(hash)), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	app := fiber.New()
	apphttp.Router(app, c.RouterDeps())
	f := &apiFixture{app: app}

	var login dto.LoginResponse
	resp := f.do(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: testOperator, Password: testPassword}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.token = login.Token
	return f
}

// do envía body como JSON y decodifica la respuesta en out si no es nil.
func (f *apiFixture) do(t *testing.T, method, path string, body, out any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (f *apiFixture) createClient(t *testing.T) dto.ClientResponse {
	t.Helper()
	var client dto.ClientResponse
	resp := f.do(t, http.MethodPost, "/api/clients/", dto.CreateClientRequest{
		BusinessName: "Rossi S.r.l.",
		VATNumber:    "IT12345678901",
		SDICode:      "m5uxcr1",
		Address:      "Via Roma 1",
		City:         "Milano",
		Province:     "MI",
		PostalCode:   "20121",
		Country:      "IT",
	}, &client)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return client
}

func (f *apiFixture) createInvoice(t *testing.T, clientID string) dto.InvoiceResponse {
	t.Helper()
	var inv dto.InvoiceResponse
	resp := f.do(t, http.MethodPost, "/api/invoices/", dto.CreateInvoiceRequest{
		ClientID: clientID,
		Items: []dto.LineItemRequest{
			{Description: "Consulenza", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
		},
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return inv
}

func TestLogin_CredencialesIncorrectas(t *testing.T) {
	f := newAPI(t)
	f.token = ""
	var out dto.ErrorResponse
	resp := f.do(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: testOperator, Password: "sbagliata"}, &out)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", out.Code)
}

func TestRutasProtegidas_SinToken(t *testing.T) {
	f := newAPI(t)
	f.token = ""
	resp := f.do(t, http.MethodGet, "/api/invoices/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFactura_CrearYDescargarXML(t *testing.T) {
	f := newAPI(t)
	client := f.createClient(t)
	assert.Equal(t, "12345678901", client.VATNumber)
	assert.Equal(t, "M5UXCR1", client.SDICode)

	inv := f.createInvoice(t, client.ID)
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "FATT/"), inv.InvoiceNumber)
	assert.True(t, strings.HasSuffix(inv.InvoiceNumber, "/0001"), inv.InvoiceNumber)
	assert.Equal(t, "draft", inv.Status)
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)), "total: %s", inv.Total)

	var next dto.NextNumberResponse
	resp := f.do(t, http.MethodGet, "/api/invoices/next-number", nil, &next)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasSuffix(next.Number, "/0002"), next.Number)

	resp = f.do(t, http.MethodGet, "/api/invoices/"+inv.ID+"/xml", nil, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "IT09876543210_FATT_")
	assert.Len(t, resp.Header.Get("X-Document-Digest"), 64)
	assert.NotEmpty(t, resp.Header.Get("X-Document-Warning"), "sin esquema configurado se avisa")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FatturaElettronica")
	assert.Contains(t, string(body), "RF19")
}

func TestFactura_GuardarXMLRegistraDigest(t *testing.T) {
	f := newAPI(t)
	inv := f.createInvoice(t, f.createClient(t).ID)

	var doc dto.FiscalDocumentResponse
	resp := f.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/xml", nil, &doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, doc.Path)

	var got dto.InvoiceResponse
	f.do(t, http.MethodGet, "/api/invoices/"+inv.ID, nil, &got)
	assert.Equal(t, doc.Digest, got.XMLDigest)
	assert.Equal(t, doc.Path, got.XMLFilePath)
}

func TestFactura_MapeoDeErrores(t *testing.T) {
	f := newAPI(t)
	client := f.createClient(t)
	inv := f.createInvoice(t, client.ID)

	var out dto.ErrorResponse
	resp := f.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/status", dto.ChangeStatusRequest{Status: "paid"}, &out)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "draft → paid no está permitido")
	assert.Equal(t, "VALIDATION", out.Code)

	resp = f.do(t, http.MethodGet, "/api/invoices/inexistente", nil, &out)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", out.Code)

	resp = f.do(t, http.MethodPost, "/api/invoices/", dto.CreateInvoiceRequest{
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      client.ID,
		Items:         []dto.LineItemRequest{{Description: "Altro", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}},
	}, &out)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "número repetido")

	resp = f.do(t, http.MethodPost, "/api/invoices/", dto.CreateInvoiceRequest{ClientID: client.ID}, &out)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out.Details)
}

func TestFactura_HistorialConOperador(t *testing.T) {
	f := newAPI(t)
	inv := f.createInvoice(t, f.createClient(t).ID)

	resp := f.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/status", dto.ChangeStatusRequest{Status: "sent"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history []dto.StatusHistoryResponse
	f.do(t, http.MethodGet, "/api/invoices/"+inv.ID+"/history", nil, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "sent", history[1].NewStatus)
	assert.Equal(t, testOperator, history[1].Actor)
}

func TestCliente_DuplicadoYBorradoConFacturas(t *testing.T) {
	f := newAPI(t)
	client := f.createClient(t)
	f.createInvoice(t, client.ID)

	var out dto.ErrorResponse
	resp := f.do(t, http.MethodPost, "/api/clients/", dto.CreateClientRequest{
		BusinessName: "Altra Rossi", VATNumber: "12345678901", SDICode: "0000000", Country: "IT",
	}, &out)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/clients/"+client.ID, nil, &out)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "cliente con facturas")
}

// shopServer tienda WooCommerce falsa; status 0 responde con orders.
func shopServer(t *testing.T, status *atomic.Int32, orders ...map[string]any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(status.Load()); code != 0 {
			w.WriteHeader(code)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/system_status") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(orders)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func shopOrder() map[string]any {
	created := time.Now().UTC().Add(-time.Hour).Format("2006-01-02T15:04:05")
	return map[string]any{
		"id":               501,
		"number":           "501",
		"status":           "completed",
		"currency":         "EUR",
		"date_created":     created,
		"date_created_gmt": created,
		"discount_total":   "0.00",
		"total_tax":        "0.00",
		"total":            "100.00",
		"payment_method":   "bacs",
		"billing": map[string]any{
			"first_name": "Mario", "last_name": "Rossi", "company": "Rossi S.r.l.",
			"address_1": "Via Roma 1", "city": "Milano", "state": "MI", "postcode": "20121",
			"country": "IT", "email": "mario@example.it",
		},
		"meta_data": []map[string]any{
			{"id": 1, "key": "_billing_vat_number", "value": "IT12345678901"},
			{"id": 2, "key": "_billing_sdi", "value": "M5UXCR1"},
		},
		"line_items": []map[string]any{
			{"id": 11, "name": "Consulenza", "quantity": 1, "subtotal": "100.00", "total": "100.00"},
		},
		"fee_lines":    []map[string]any{},
		"coupon_lines": []map[string]any{},
	}
}

func (f *apiFixture) createStore(t *testing.T, url string) dto.StoreResponse {
	t.Helper()
	return f.createStoreWith(t, dto.CreateStoreRequest{Name: "Negozio", StoreURL: url})
}

func (f *apiFixture) createStoreWith(t *testing.T, req dto.CreateStoreRequest) dto.StoreResponse {
	t.Helper()
	req.ConsumerKey, req.ConsumerSecret = "ck_test", "cs_test"
	var store dto.StoreResponse
	resp := f.do(t, http.MethodPost, "/api/stores/", req, &store)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return store
}

func TestTienda_SincronizarYConvertirPedido(t *testing.T) {
	f := newAPI(t)
	var status atomic.Int32
	store := f.createStore(t, shopServer(t, &status, shopOrder()))

	var res dto.SyncResultResponse
	resp := f.do(t, http.MethodPost, "/api/stores/"+store.ID+"/sync", nil, &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, res.Errors)

	var orders []dto.OrderResponse
	f.do(t, http.MethodGet, "/api/orders/?store_id="+store.ID, nil, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, "501", orders[0].OrderNumber)

	var conv dto.ConvertOrderResponse
	resp = f.do(t, http.MethodPost, "/api/orders/"+orders[0].ID+"/invoice", nil, &conv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, conv.ClientCreated)
	assert.NotEmpty(t, conv.InvoiceNumber)

	var out dto.ErrorResponse
	resp = f.do(t, http.MethodPost, "/api/orders/"+orders[0].ID+"/invoice", nil, &out)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "pedido ya facturado")

	var stats dto.OrderStatsResponse
	resp = f.do(t, http.MethodGet, "/api/stores/"+store.ID+"/stats", nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/stores/"+store.ID, nil, &out)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "tienda con pedidos")
}

func TestTienda_CredencialesRechazadas(t *testing.T) {
	f := newAPI(t)
	var status atomic.Int32
	store := f.createStore(t, shopServer(t, &status))
	status.Store(http.StatusUnauthorized)

	var out dto.ErrorResponse
	resp := f.do(t, http.MethodPost, "/api/stores/"+store.ID+"/sync", nil, &out)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "STORE_UNAUTHORIZED", out.Code)

	var got dto.StoreResponse
	f.do(t, http.MethodGet, "/api/stores/"+store.ID, nil, &got)
	assert.Equal(t, "error", got.Status)

	var test dto.ConnectionTestResponse
	resp = f.do(t, http.MethodGet, "/api/stores/"+store.ID+"/test", nil, &test)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, test.OK)
	assert.Equal(t, "Credenciales de la API no válidas", test.Message)

	status.Store(0)
	f.do(t, http.MethodGet, "/api/stores/"+store.ID+"/test", nil, &test)
	assert.True(t, test.OK)
	assert.Equal(t, "Conexión correcta", test.Message)
}

func TestTienda_SyncAllYValidacion(t *testing.T) {
	f := newAPI(t)
	var status atomic.Int32
	url := shopServer(t, &status, shopOrder())
	auto := f.createStoreWith(t, dto.CreateStoreRequest{Name: "Automatico", StoreURL: url, AutoSync: true})
	manual := f.createStoreWith(t, dto.CreateStoreRequest{Name: "Manuale", StoreURL: url})
	require.False(t, manual.AutoSync)

	var results []dto.SyncResultResponse
	resp := f.do(t, http.MethodPost, "/api/stores/sync-all", nil, &results)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, results, 1, "solo tiendas activas con auto-sync")
	assert.Equal(t, auto.ID, results[0].StoreID)
	assert.Equal(t, 1, results[0].Synced)

	var orders []dto.OrderResponse
	f.do(t, http.MethodGet, "/api/orders/?store_id="+manual.ID, nil, &orders)
	assert.Empty(t, orders, "la tienda sin auto-sync no se sincroniza")

	var out dto.ErrorResponse
	resp = f.do(t, http.MethodPost, "/api/stores/", dto.CreateStoreRequest{StoreURL: "ftp://x"}, &out)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", out.Code)
}
