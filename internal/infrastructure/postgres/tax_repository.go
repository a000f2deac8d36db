package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

var _ repository.TaxRepository = (*TaxRepo)(nil)

// TaxRepo implementación de TaxRepository sobre PostgreSQL.
type TaxRepo struct {
	q Querier
}

// NewTaxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTaxRepository(q Querier) *TaxRepo {
	return &TaxRepo{q: q}
}

const taxColumns = `id, company_id, name, code, rate, usage, active, created_at, updated_at`

// Create persiste un impuesto del catálogo de la empresa.
func (r *TaxRepo) Create(ctx context.Context, tax *entity.Tax) error {
	if tax.ID == "" {
		tax.ID = uuid.NewString()
	}
	query := `
		INSERT INTO taxes (id, company_id, name, code, rate, usage, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		tax.ID, tax.CompanyID, tax.Name, tax.Code, tax.Rate, tax.Usage,
		tax.Active, tax.CreatedAt, tax.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: impuesto %s al %s (%s)", domain.ErrDuplicate,
				tax.Code, tax.Rate.StringFixed(2), tax.Usage)
		}
		return fmt.Errorf("insert tax: %w", err)
	}
	return nil
}

// GetByID obtiene un impuesto por ID.
func (r *TaxRepo) GetByID(ctx context.Context, id string) (*entity.Tax, error) {
	query := `SELECT ` + taxColumns + ` FROM taxes WHERE id = $1`
	tax, err := scanTax(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get tax: %w", err)
	}
	return tax, nil
}

// FindByCodeAndRate resuelve un impuesto activo por (código, tarifa, uso).
// Es la búsqueda con la que se casan los impuestos de un XML de proveedor.
func (r *TaxRepo) FindByCodeAndRate(ctx context.Context, companyID, code string, rate decimal.Decimal, usage string) (*entity.Tax, error) {
	query := `SELECT ` + taxColumns + ` FROM taxes
		WHERE company_id = $1 AND code = $2 AND rate = $3 AND usage = $4 AND active`
	tax, err := scanTax(r.q.QueryRow(ctx, query, companyID, code, rate, usage))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find tax by code and rate: %w", err)
	}
	return tax, nil
}

// ListByCompany lista los impuestos de la empresa.
func (r *TaxRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Tax, error) {
	query := `SELECT ` + taxColumns + ` FROM taxes WHERE company_id = $1 ORDER BY usage, code, rate`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list taxes: %w", err)
	}
	defer rows.Close()

	var taxes []*entity.Tax
	for rows.Next() {
		tax, err := scanTax(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tax: %w", err)
		}
		taxes = append(taxes, tax)
	}
	return taxes, rows.Err()
}

// Update actualiza un impuesto.
func (r *TaxRepo) Update(ctx context.Context, tax *entity.Tax) error {
	query := `
		UPDATE taxes
		SET name = $2, code = $3, rate = $4, usage = $5, active = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		tax.ID, tax.Name, tax.Code, tax.Rate, tax.Usage, tax.Active, tax.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tax: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTax(row interface{ Scan(dest ...any) error }) (*entity.Tax, error) {
	var t entity.Tax
	err := row.Scan(
		&t.ID, &t.CompanyID, &t.Name, &t.Code, &t.Rate, &t.Usage,
		&t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
