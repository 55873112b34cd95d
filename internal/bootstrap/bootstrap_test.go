package bootstrap_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fatture-rf/internal/bootstrap"
	"github.com/jhoicas/fatture-rf/pkg/config"
)

func TestNew_Memoria(t *testing.T) {
	cfg := &config.Config{
		DB:        config.DBConfig{Driver: "memory"},
		JWT:       config.JWTConfig{Secret: "s"},
		Invoicing: config.InvoicingConfig{Prefix: "FATT", XMLOutputDir: "/tmp/xml"},
	}
	c, err := bootstrap.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	deps := c.RouterDeps()
	assert.Equal(t, "/tmp/xml", deps.XMLOutputDir)
	assert.Equal(t, "s", deps.JWTSecret)
	assert.NotNil(t, deps.Converter)
	assert.NotNil(t, deps.SyncEngine)

	n, err := c.Ledger.GenerateNextNumber(context.Background(), "FATT", 2025)
	require.NoError(t, err)
	assert.Equal(t, "FATT/2025/0001", n)
}

func TestNew_DriverDesconocido(t *testing.T) {
	_, err := bootstrap.New(context.Background(), &config.Config{DB: config.DBConfig{Driver: "sqlite"}}, nil)
	assert.Error(t, err)
}

func TestSettingsYBusinessDesdeConfig(t *testing.T) {
	cfg := &config.Config{
		Business: config.BusinessConfig{Name: "Mario Bianchi", VATNumber: "09876543210", PEC: "mario@pec.it", Country: "IT"},
		Invoicing: config.InvoicingConfig{
			Prefix:           "FT",
			ApplyWithholding: true,
			WithholdingRate:  decimal.NewFromInt(20),
			FlatRateRegime:   true,
			Currency:         "EUR",
		},
	}
	s := bootstrap.SettingsFromConfig(cfg)
	assert.Equal(t, "FT", s.InvoicePrefix)
	assert.True(t, s.ApplyWithholding)
	assert.True(t, s.WithholdingRate.Equal(decimal.NewFromInt(20)))

	b := bootstrap.BusinessFromConfig(cfg)
	assert.Equal(t, "mario@pec.it", b.PECEmail)
	assert.True(t, b.FlatRateRegime, "el régimen viene de la sección de facturación")
}
