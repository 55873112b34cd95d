package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo clientes en memoria.
type ClientRepo struct {
	db     *DB
	locked bool
}

func (r *ClientRepo) Create(_ context.Context, c *entity.Client) error {
	defer guard(r.db, r.locked)()
	if _, ok := r.db.clients[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.db.clients[c.ID] = *c
	return nil
}

func (r *ClientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	defer guard(r.db, r.locked)()
	c, ok := r.db.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ClientRepo) FindByVATNumber(_ context.Context, vat string) (*entity.Client, error) {
	return r.find(vat, func(c entity.Client) bool { return c.VATNumber == vat })
}

func (r *ClientRepo) FindByTaxCode(_ context.Context, taxCode string) (*entity.Client, error) {
	return r.find(taxCode, func(c entity.Client) bool { return strings.EqualFold(c.TaxCode, taxCode) })
}

func (r *ClientRepo) FindByEmail(_ context.Context, email string) (*entity.Client, error) {
	return r.find(email, func(c entity.Client) bool { return strings.EqualFold(c.Email, email) })
}

func (r *ClientRepo) List(_ context.Context, f repository.ClientFilter) ([]*entity.Client, error) {
	defer guard(r.db, r.locked)()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var list []*entity.Client
	for _, c := range r.db.clients {
		if f.Type != "" && c.ClientType != f.Type {
			continue
		}
		if search != "" && !containsAny(search, c.BusinessName, c.VATNumber, c.TaxCode, c.Email) {
			continue
		}
		c := c
		list = append(list, &c)
	}
	slices.SortFunc(list, func(a, b *entity.Client) int {
		if n := strings.Compare(a.BusinessName, b.BusinessName); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r *ClientRepo) Update(_ context.Context, c *entity.Client) error {
	defer guard(r.db, r.locked)()
	if _, ok := r.db.clients[c.ID]; !ok {
		return fmt.Errorf("update client: %w", domain.ErrNotFound)
	}
	r.db.clients[c.ID] = *c
	return nil
}

// Delete equivale a la FK RESTRICT de invoices.client_id.
func (r *ClientRepo) Delete(_ context.Context, id string) error {
	defer guard(r.db, r.locked)()
	for _, inv := range r.db.invoices {
		if inv.ClientID == id {
			return &domain.ConflictError{Reason: "el cliente tiene facturas y no puede borrarse"}
		}
	}
	delete(r.db.clients, id)
	return nil
}

func (r *ClientRepo) find(key string, match func(entity.Client) bool) (*entity.Client, error) {
	if key == "" {
		return nil, nil
	}
	defer guard(r.db, r.locked)()
	var found *entity.Client
	for _, c := range r.db.clients {
		if !match(c) {
			continue
		}
		if found == nil || c.CreatedAt.Before(found.CreatedAt) {
			c := c
			found = &c
		}
	}
	return found, nil
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
