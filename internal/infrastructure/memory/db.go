// Package memory implementa los repositorios en memoria. Sirve como backend
// DB_DRIVER=memory para desarrollo y como doble de pruebas de los casos de uso.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/fatture-rf/internal/application/billing"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ billing.TxRunner = (*DB)(nil)

// DB almacén compartido por todos los repos. Un único mutex serializa el acceso;
// RunBilling lo mantiene durante toda la función y restaura el estado si falla.
type DB struct {
	mu       sync.Mutex
	clients  map[string]entity.Client
	invoices map[string]entity.Invoice
	items    map[string][]entity.LineItem
	history  map[string][]entity.StatusHistoryEntry
	stores   map[string]entity.ExternalStore
	orders   map[string]entity.ExternalOrder
}

// NewDB crea un almacén vacío.
func NewDB() *DB {
	return &DB{
		clients:  map[string]entity.Client{},
		invoices: map[string]entity.Invoice{},
		items:    map[string][]entity.LineItem{},
		history:  map[string][]entity.StatusHistoryEntry{},
		stores:   map[string]entity.ExternalStore{},
		orders:   map[string]entity.ExternalOrder{},
	}
}

// Clients repo de clientes fuera de transacción.
func (db *DB) Clients() *ClientRepo { return &ClientRepo{db: db} }

// Invoices repo de facturas fuera de transacción.
func (db *DB) Invoices() *InvoiceRepo { return &InvoiceRepo{db: db} }

// Stores repo de tiendas.
func (db *DB) Stores() *StoreRepo { return &StoreRepo{db: db} }

// Orders repo de pedidos fuera de transacción.
func (db *DB) Orders() *OrderRepo { return &OrderRepo{db: db} }

// RunBilling ejecuta fn con repos que operan bajo el lock ya tomado.
func (db *DB) RunBilling(ctx context.Context, fn func(
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.snapshot()
	err := fn(&ClientRepo{db: db, locked: true}, &InvoiceRepo{db: db, locked: true}, &OrderRepo{db: db, locked: true})
	if err != nil {
		db.restore(snap)
	}
	return err
}

type snapshot struct {
	clients  map[string]entity.Client
	invoices map[string]entity.Invoice
	items    map[string][]entity.LineItem
	history  map[string][]entity.StatusHistoryEntry
	orders   map[string]entity.ExternalOrder
}

func (db *DB) snapshot() snapshot {
	s := snapshot{
		clients:  make(map[string]entity.Client, len(db.clients)),
		invoices: make(map[string]entity.Invoice, len(db.invoices)),
		items:    make(map[string][]entity.LineItem, len(db.items)),
		history:  make(map[string][]entity.StatusHistoryEntry, len(db.history)),
		orders:   make(map[string]entity.ExternalOrder, len(db.orders)),
	}
	for k, v := range db.clients {
		s.clients[k] = v
	}
	for k, v := range db.invoices {
		s.invoices[k] = v
	}
	for k, v := range db.items {
		s.items[k] = append([]entity.LineItem(nil), v...)
	}
	for k, v := range db.history {
		s.history[k] = append([]entity.StatusHistoryEntry(nil), v...)
	}
	for k, v := range db.orders {
		s.orders[k] = cloneOrder(v)
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.clients = s.clients
	db.invoices = s.invoices
	db.items = s.items
	db.history = s.history
	db.orders = s.orders
}

// guard toma el lock salvo que el repo ya opere dentro de RunBilling.
func guard(db *DB, locked bool) func() {
	if locked {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
