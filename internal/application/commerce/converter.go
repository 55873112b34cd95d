package commerce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
	"github.com/jhoicas/fatture-rf/internal/domain/tax"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

// gatewayMethods nombre del método de pago por id de pasarela WooCommerce.
var gatewayMethods = map[string]string{
	"bacs":         "Bonifico bancario",
	"cod":          "Contanti",
	"cheque":       "Assegno",
	"paypal":       "PayPal",
	"ppcp-gateway": "PayPal",
	"stripe":       "Stripe",
}

// ConvertResult factura creada a partir del pedido.
type ConvertResult struct {
	Invoice       *entity.Invoice
	Client        *entity.Client
	ClientCreated bool
	Warnings      []string
}

// Converter crea facturas draft desde pedidos sincronizados.
type Converter struct {
	ledger *billing.Ledger
	log    *logger.Logger
	now    func() time.Time
}

// NewConverter construye el conversor sobre el libro de facturas.
func NewConverter(ledger *billing.Ledger, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{ledger: ledger, log: log.WithComponent("converter"), now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (c *Converter) WithClock(now func() time.Time) *Converter {
	c.now = now
	return c
}

// Convert crea la factura del pedido y los vincula en la misma transacción.
// La fila del pedido queda bloqueada: de dos conversiones simultáneas, la segunda ve el vínculo
// y devuelve ConflictError. Un vínculo a una factura ya borrada se limpia y se continúa.
func (c *Converter) Convert(ctx context.Context, orderID, actor string) (*ConvertResult, error) {
	var out *ConvertResult
	err := c.ledger.RunCreate(ctx, func(
		clientRepo repository.ClientRepository,
		invoiceRepo repository.InvoiceRepository,
		orderRepo repository.OrderRepository,
	) error {
		res, err := c.convertInTx(ctx, clientRepo, invoiceRepo, orderRepo, orderID, actor)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("order_id", orderID).Msg("conversión de pedido fallida")
		return nil, err
	}
	c.log.Info().
		Str("order_id", orderID).
		Str("invoice_number", out.Invoice.InvoiceNumber).
		Bool("client_created", out.ClientCreated).
		Msg("pedido facturado")
	return out, nil
}

func (c *Converter) convertInTx(
	ctx context.Context,
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
	orderID, actor string,
) (*ConvertResult, error) {
	order, err := orderRepo.GetByIDForUpdate(ctx, orderID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "bloquear pedido", Err: err}
	}
	if order == nil {
		return nil, &domain.NotFoundError{Entity: "pedido", ID: orderID}
	}

	if order.Invoiced() {
		existing, err := invoiceRepo.GetByID(ctx, order.InvoiceID)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "obtener factura vinculada", Err: err}
		}
		if existing != nil {
			return nil, &domain.ConflictError{
				Reason: fmt.Sprintf("el pedido #%s ya está facturado (%s)", order.OrderNumber, existing.InvoiceNumber),
			}
		}
		if err := orderRepo.ClearInvoiceLink(ctx, order.ID); err != nil {
			return nil, &domain.PersistenceError{Op: "limpiar vínculo obsoleto", Err: err}
		}
		order.InvoiceID = ""
	}

	client, created, err := c.resolveClient(ctx, clientRepo, order)
	if err != nil {
		return nil, err
	}

	in, warnings := c.invoiceInput(order, client.ID, actor)
	inv, err := c.ledger.CreateInTx(ctx, clientRepo, invoiceRepo, in)
	if err != nil {
		return nil, err
	}
	if err := orderRepo.LinkInvoice(ctx, order.ID, inv.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "vincular pedido", Err: err}
	}
	return &ConvertResult{Invoice: inv, Client: client, ClientCreated: created, Warnings: warnings}, nil
}

// resolveClient busca por P.IVA, después Codice Fiscale, después email; si no hay coincidencia lo crea.
func (c *Converter) resolveClient(
	ctx context.Context,
	repo repository.ClientRepository,
	order *entity.ExternalOrder,
) (*entity.Client, bool, error) {
	cust := order.Customer
	addr := cust.Billing
	country := firstNonEmpty(addr.Country, entity.DefaultCountry)
	lookups := []struct {
		value string
		find  func(context.Context, string) (*entity.Client, error)
	}{
		{billing.NormalizeVATNumber(country, cust.VATNumber), repo.FindByVATNumber},
		{cust.TaxCode, repo.FindByTaxCode},
		{cust.Email, repo.FindByEmail},
	}
	for _, l := range lookups {
		if strings.TrimSpace(l.value) == "" {
			continue
		}
		found, err := l.find(ctx, l.value)
		if err != nil {
			return nil, false, &domain.PersistenceError{Op: "buscar cliente", Err: err}
		}
		if found != nil {
			return found, false, nil
		}
	}

	now := c.now()
	client := &entity.Client{
		ID:                 uuid.New().String(),
		BusinessName:       firstNonEmpty(cust.DisplayName(), cust.Email),
		VATNumber:          cust.VATNumber,
		TaxCode:            cust.TaxCode,
		Email:              cust.Email,
		PECEmail:           cust.PECEmail,
		Phone:              cust.Phone,
		Address:            strings.TrimSpace(addr.Address1 + " " + addr.Address2),
		City:               addr.City,
		Province:           addr.Province,
		PostalCode:         addr.PostalCode,
		Country:            country,
		Kind:               cust.Kind,
		SDICode:            cust.SDICode,
		ExternalStoreID:    order.StoreID,
		ExternalCustomerID: cust.ExternalCustomerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := billing.PrepareClient(client); err != nil {
		return nil, false, err
	}
	if err := repo.Create(ctx, client); err != nil {
		return nil, false, &domain.PersistenceError{Op: "crear cliente", Err: err}
	}
	return client, true, nil
}

// invoiceInput líneas en el orden: productos a precio sin descuento, una línea de descuento negativa,
// marca da bollo y su descuento proporcional.
func (c *Converter) invoiceInput(order *entity.ExternalOrder, clientID, actor string) (billing.CreateInvoiceInput, []string) {
	rec := Reconcile(order.ItemsSubtotal, order.DiscountTotal, order.StampDuty, order.TaxTotal, hasFullWaiver(order.Coupons))
	unit := decimal.NewFromInt(1)

	items := make([]billing.ItemInput, 0, len(order.Items)+3)
	for _, it := range order.Items {
		desc := firstNonEmpty(it.Name, "Articolo "+it.SKU)
		qty, price := it.Quantity, it.UnitPrice
		switch {
		case !qty.IsPositive():
			qty, price = unit, it.Subtotal
		case !tax.LineTotal(tax.Line{Quantity: qty, UnitPrice: price}).Equal(it.Subtotal.Round(2)):
			// el precio unitario no es exacto: una sola línea por el subtotal del pedido
			desc = fmt.Sprintf("%s (x%s)", desc, qty.String())
			qty, price = unit, it.Subtotal
		}
		items = append(items, billing.ItemInput{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
		})
	}
	if rec.Discount.IsPositive() {
		items = append(items, billing.ItemInput{
			Description: discountDescription(order.Coupons),
			Quantity:    unit,
			UnitPrice:   rec.Discount.Neg(),
		})
	}
	if rec.StampAmount.IsPositive() {
		items = append(items, billing.ItemInput{
			Description: "Imposta di bollo",
			Quantity:    unit,
			UnitPrice:   rec.StampAmount,
		})
		if d := rec.StampDiscount(); d.IsPositive() {
			items = append(items, billing.ItemInput{
				Description: "Sconto su imposta di bollo",
				Quantity:    unit,
				UnitPrice:   d.Neg(),
			})
		}
	}

	var warnings []string
	settings := c.ledger.Settings()
	if order.Currency != "" && settings.Currency != "" && !strings.EqualFold(order.Currency, settings.Currency) {
		warnings = append(warnings, fmt.Sprintf("divisa del pedido %s distinta de %s: importes sin convertir", order.Currency, settings.Currency))
	}

	stamp := rec.StampAmount
	if rec.FullWaiver {
		stamp = decimal.Zero
	}
	zero := decimal.Zero
	// El tipo es el efectivo sobre los productos tras el descuento; el subtotal incluye el bollo,
	// así que tipo × subtotal no reproduce el IVA. El importe de la tienda es el que se persiste.
	taxRate := rec.TaxRate
	reportedTax := rec.Tax
	return billing.CreateInvoiceInput{
		InvoiceDate:     order.OrderDate,
		ClientID:        clientID,
		Items:           items,
		TaxRate:         &taxRate,
		ReportedTax:     &reportedTax,
		WithholdingRate: &zero,
		StampDuty:       stamp,
		PaymentMethod:   paymentMethodName(order),
		Notes:           fmt.Sprintf("Fattura generata da ordine WooCommerce #%s", order.OrderNumber),
		Status:          entity.InvoiceStatusDraft,
		ExternalOrderID: order.ID,
		Actor:           actor,
	}, warnings
}

func hasFullWaiver(coupons []entity.OrderCoupon) bool {
	for _, c := range coupons {
		if c.FullWaiver() {
			return true
		}
	}
	return false
}

func discountDescription(coupons []entity.OrderCoupon) string {
	if len(coupons) == 0 {
		return "Sconto"
	}
	parts := make([]string, 0, len(coupons))
	for _, c := range coupons {
		p := c.Code
		if c.DiscountType != "" {
			p += " (" + c.DiscountType + ")"
		}
		parts = append(parts, p)
	}
	return "Sconto coupon " + strings.Join(parts, ", ")
}

func paymentMethodName(order *entity.ExternalOrder) string {
	if name, ok := gatewayMethods[strings.ToLower(order.PaymentMethod)]; ok {
		return name
	}
	return order.PaymentMethodTitle
}
