package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, name, COALESCE(trade_name, ''), id_type, identification,
	COALESCE(activity_code, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(phone_country_code, ''), COALESCE(province, ''), COALESCE(canton, ''),
	COALESCE(district, ''), COALESCE(neighborhood, ''), COALESCE(other_signs, ''),
	status, created_at, updated_at`

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	query := `
		INSERT INTO companies (
			id, name, trade_name, id_type, identification, activity_code,
			email, phone, phone_country_code, province, canton, district,
			neighborhood, other_signs, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		company.ID, company.Name, nullIfEmpty(company.TradeName),
		company.IDType, company.Identification, nullIfEmpty(company.ActivityCode),
		nullIfEmpty(company.Email), nullIfEmpty(company.Phone),
		nullIfEmpty(company.PhoneCountryCode), nullIfEmpty(company.Province),
		nullIfEmpty(company.Canton), nullIfEmpty(company.District),
		nullIfEmpty(company.Neighborhood), nullIfEmpty(company.OtherSigns),
		company.Status, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cédula %s", domain.ErrDuplicate, company.Identification)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `SELECT` + companyColumns + ` FROM companies WHERE id = $1`
	company, err := scanCompany(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return company, nil
}

// GetByIdentification obtiene una empresa por cédula.
func (r *CompanyRepo) GetByIdentification(ctx context.Context, identification string) (*entity.Company, error) {
	query := `SELECT` + companyColumns + ` FROM companies WHERE identification = $1`
	company, err := scanCompany(r.q.QueryRow(ctx, query, identification))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get company by identification: %w", err)
	}
	return company, nil
}

// Update actualiza los datos de la empresa.
func (r *CompanyRepo) Update(ctx context.Context, company *entity.Company) error {
	query := `
		UPDATE companies
		SET name = $2, trade_name = $3, id_type = $4, identification = $5,
		    activity_code = $6, email = $7, phone = $8, phone_country_code = $9,
		    province = $10, canton = $11, district = $12, neighborhood = $13,
		    other_signs = $14, status = $15, updated_at = $16
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		company.ID, company.Name, nullIfEmpty(company.TradeName),
		company.IDType, company.Identification, nullIfEmpty(company.ActivityCode),
		nullIfEmpty(company.Email), nullIfEmpty(company.Phone),
		nullIfEmpty(company.PhoneCountryCode), nullIfEmpty(company.Province),
		nullIfEmpty(company.Canton), nullIfEmpty(company.District),
		nullIfEmpty(company.Neighborhood), nullIfEmpty(company.OtherSigns),
		company.Status, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista empresas con paginación.
func (r *CompanyRepo) List(ctx context.Context, limit, offset int) ([]*entity.Company, error) {
	query := `SELECT` + companyColumns + ` FROM companies ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []*entity.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

func scanCompany(row interface{ Scan(dest ...any) error }) (*entity.Company, error) {
	var c entity.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.TradeName, &c.IDType, &c.Identification,
		&c.ActivityCode, &c.Email, &c.Phone, &c.PhoneCountryCode,
		&c.Province, &c.Canton, &c.District, &c.Neighborhood, &c.OtherSigns,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
