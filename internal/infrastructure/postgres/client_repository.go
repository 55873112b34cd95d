package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

const clientColumns = `id, business_name, vat_number, tax_code, email, pec_email, phone, address, city,
	province, postal_code, country, client_type, kind, sdi_code, external_store_id, external_customer_id,
	created_at, updated_at`

// ClientRepo implementación de ClientRepository (usable con pool o tx).
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// Create persiste un nuevo cliente.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	query := `INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.BusinessName, c.VATNumber, c.TaxCode, c.Email, c.PECEmail, c.Phone, c.Address, c.City,
		c.Province, c.PostalCode, c.Country, c.ClientType, c.Kind, c.SDICode, c.ExternalStoreID,
		c.ExternalCustomerID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*entity.Client, error) {
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
}

// FindByVATNumber primer cliente con esa Partita IVA.
func (r *ClientRepo) FindByVATNumber(ctx context.Context, vat string) (*entity.Client, error) {
	if vat == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE vat_number = $1 ORDER BY created_at LIMIT 1`, vat)
}

// FindByTaxCode primer cliente con ese Codice Fiscale (sin distinguir mayúsculas).
func (r *ClientRepo) FindByTaxCode(ctx context.Context, taxCode string) (*entity.Client, error) {
	if taxCode == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE UPPER(tax_code) = UPPER($1) ORDER BY created_at LIMIT 1`, taxCode)
}

// FindByEmail primer cliente con ese email (sin distinguir mayúsculas).
func (r *ClientRepo) FindByEmail(ctx context.Context, email string) (*entity.Client, error) {
	if email == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE LOWER(email) = LOWER($1) ORDER BY created_at LIMIT 1`, email)
}

// List lista clientes filtrando por tipo y texto libre.
func (r *ClientRepo) List(ctx context.Context, f repository.ClientFilter) ([]*entity.Client, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("client_type = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(business_name ILIKE $%d OR vat_number ILIKE $%d OR tax_code ILIKE $%d OR email ILIKE $%d)", n, n, n, n))
	}
	query := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY business_name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	var list []*entity.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update actualiza un cliente.
func (r *ClientRepo) Update(ctx context.Context, c *entity.Client) error {
	query := `
		UPDATE clients SET business_name = $2, vat_number = $3, tax_code = $4, email = $5, pec_email = $6,
		    phone = $7, address = $8, city = $9, province = $10, postal_code = $11, country = $12,
		    client_type = $13, kind = $14, sdi_code = $15, external_store_id = $16,
		    external_customer_id = $17, updated_at = $18
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.BusinessName, c.VATNumber, c.TaxCode, c.Email, c.PECEmail, c.Phone, c.Address, c.City,
		c.Province, c.PostalCode, c.Country, c.ClientType, c.Kind, c.SDICode, c.ExternalStoreID,
		c.ExternalCustomerID, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

// Delete elimina un cliente; la FK de invoices lo impide si tiene facturas.
func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &domain.ConflictError{Reason: "el cliente tiene facturas y no puede borrarse"}
		}
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

func (r *ClientRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Client, error) {
	c, err := scanClient(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func scanClient(row pgx.Row) (*entity.Client, error) {
	var c entity.Client
	err := row.Scan(
		&c.ID, &c.BusinessName, &c.VATNumber, &c.TaxCode, &c.Email, &c.PECEmail, &c.Phone, &c.Address,
		&c.City, &c.Province, &c.PostalCode, &c.Country, &c.ClientType, &c.Kind, &c.SDICode,
		&c.ExternalStoreID, &c.ExternalCustomerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
