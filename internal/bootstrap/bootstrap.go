// Package bootstrap arma el grafo de dependencias compartido por la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/fatture-rf/internal/application/auth"
	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/application/commerce"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/fatturapa"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/fatture-rf/internal/infrastructure/pdf"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/postgres"
	"github.com/jhoicas/fatture-rf/internal/infrastructure/woocommerce"
	httpRouter "github.com/jhoicas/fatture-rf/internal/interfaces/http"
	"github.com/jhoicas/fatture-rf/pkg/config"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

// Container casos de uso listos para usar.
type Container struct {
	Config     *config.Config
	Ledger     *billing.Ledger
	AuthUC     *auth.AuthUseCase
	ClientUC   *billing.ClientUseCase
	InvoiceUC  *billing.InvoiceUseCase
	DocumentUC *billing.FiscalDocumentUseCase
	InvoicePDF *billing.PDFUseCase
	StoreUC    *commerce.StoreUseCase
	OrderUC    *commerce.OrderUseCase
	SyncEngine *commerce.SyncEngine
	Converter  *commerce.Converter

	close func()
}

type stores struct {
	tx       billing.TxRunner
	clients  repository.ClientRepository
	invoices repository.InvoiceRepository
	shops    repository.StoreRepository
	orders   repository.OrderRepository
	close    func()
}

// New abre el almacenamiento indicado por DB_DRIVER y construye los casos de uso.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.Nop()
	}
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	business := BusinessFromConfig(cfg)
	ledger := billing.NewLedger(st.tx, st.invoices, SettingsFromConfig(cfg))
	timeout := time.Duration(cfg.Sync.HTTPTimeoutSeconds) * time.Second
	source := woocommerce.NewClient(timeout)

	return &Container{
		Config: cfg,
		Ledger: ledger,
		AuthUC: auth.NewAuthUseCase(
			auth.OperatorConfig{Email: cfg.Auth.OperatorEmail, PasswordHash: cfg.Auth.OperatorPasswordHash},
			auth.JWTConfig{Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer},
		),
		ClientUC:  billing.NewClientUseCase(st.clients, st.invoices),
		InvoiceUC: billing.NewInvoiceUseCase(ledger),
		DocumentUC: billing.NewFiscalDocumentUseCase(ledger, st.clients, business,
			fatturapa.NewBuilder(), fatturapa.NewSchemaChecker(cfg.Invoicing.SchemaPath), log),
		InvoicePDF: billing.NewPDFUseCase(ledger, st.clients, business, infrapdf.NewMarotoPDFGenerator()),
		StoreUC:    commerce.NewStoreUseCase(st.shops, source),
		OrderUC:    commerce.NewOrderUseCase(st.orders),
		SyncEngine: commerce.NewSyncEngine(st.shops, st.orders, source, commerce.SyncConfig{
			PageSize:     cfg.Sync.PageSize,
			LookbackDays: cfg.Sync.DefaultLookbackDays,
		}, log),
		Converter: commerce.NewConverter(ledger, log),
		close:     st.close,
	}, nil
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.DB.Driver {
	case "memory":
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		db := memory.NewDB()
		return &stores{
			tx:       db,
			clients:  db.Clients(),
			invoices: db.Invoices(),
			shops:    db.Stores(),
			orders:   db.Orders(),
			close:    func() {},
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		return &stores{
			tx:       postgres.NewTxRunner(pool),
			clients:  postgres.NewClientRepository(pool),
			invoices: postgres.NewInvoiceRepository(pool),
			shops:    postgres.NewStoreRepository(pool),
			orders:   postgres.NewOrderRepository(pool),
			close:    pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("DB_DRIVER desconocido %q", cfg.DB.Driver)
	}
}

// Close libera el pool de conexiones.
func (c *Container) Close() {
	if c.close != nil {
		c.close()
	}
}

// RouterDeps dependencias del router HTTP.
func (c *Container) RouterDeps() httpRouter.RouterDeps {
	return httpRouter.RouterDeps{
		AuthUC:       c.AuthUC,
		ClientUC:     c.ClientUC,
		InvoiceUC:    c.InvoiceUC,
		DocumentUC:   c.DocumentUC,
		InvoicePDF:   c.InvoicePDF,
		StoreUC:      c.StoreUC,
		OrderUC:      c.OrderUC,
		SyncEngine:   c.SyncEngine,
		Converter:    c.Converter,
		XMLOutputDir: c.Config.Invoicing.XMLOutputDir,
		JWTSecret:    c.Config.JWT.Secret,
	}
}

// SettingsFromConfig preferencias de facturación.
func SettingsFromConfig(cfg *config.Config) billing.Settings {
	in := cfg.Invoicing
	return billing.Settings{
		InvoicePrefix:        in.Prefix,
		DefaultPaymentTerms:  in.DefaultPaymentTerms,
		DefaultPaymentMethod: in.DefaultPaymentMethod,
		DefaultNotes:         in.DefaultNotes,
		ApplyWithholding:     in.ApplyWithholding,
		WithholdingRate:      in.WithholdingRate,
		FlatRateRegime:       in.FlatRateRegime,
		FlatTaxRate:          in.FlatTaxRate,
		Currency:             in.Currency,
		XMLOutputDir:         in.XMLOutputDir,
		SchemaPath:           in.SchemaPath,
	}
}

// BusinessFromConfig identidad fiscal del emisor.
func BusinessFromConfig(cfg *config.Config) entity.BusinessProfile {
	b := cfg.Business
	return entity.BusinessProfile{
		Name:           b.Name,
		VATNumber:      b.VATNumber,
		TaxCode:        b.TaxCode,
		Address:        b.Address,
		City:           b.City,
		Province:       b.Province,
		PostalCode:     b.PostalCode,
		Country:        b.Country,
		Email:          b.Email,
		PECEmail:       b.PEC,
		Phone:          b.Phone,
		IBAN:           b.IBAN,
		FlatRateRegime: cfg.Invoicing.FlatRateRegime,
	}
}
