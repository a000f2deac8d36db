package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

var _ repository.PartyRepository = (*PartyRepo)(nil)

// PartyRepo implementación de PartyRepository sobre PostgreSQL
// (usable con pool o tx).
type PartyRepo struct {
	q Querier
}

// NewPartyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPartyRepository(q Querier) *PartyRepo {
	return &PartyRepo{q: q}
}

const partyColumns = `
	id, company_id, name, COALESCE(id_type, ''), COALESCE(identification, ''),
	COALESCE(foreign_id, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(phone_country_code, ''), COALESCE(province, ''), COALESCE(canton, ''),
	COALESCE(district, ''), COALESCE(neighborhood, ''), COALESCE(other_signs, ''),
	created_at, updated_at`

// Create persiste una contraparte nueva.
func (r *PartyRepo) Create(ctx context.Context, party *entity.Party) error {
	if party.ID == "" {
		party.ID = uuid.NewString()
	}
	query := `
		INSERT INTO parties (
			id, company_id, name, id_type, identification, foreign_id,
			email, phone, phone_country_code, province, canton, district,
			neighborhood, other_signs, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		party.ID, party.CompanyID, party.Name,
		nullIfEmpty(party.IDType), nullIfEmpty(party.Identification),
		nullIfEmpty(party.ForeignID), nullIfEmpty(party.Email),
		nullIfEmpty(party.Phone), nullIfEmpty(party.PhoneCountryCode),
		nullIfEmpty(party.Province), nullIfEmpty(party.Canton),
		nullIfEmpty(party.District), nullIfEmpty(party.Neighborhood),
		nullIfEmpty(party.OtherSigns),
		party.CreatedAt, party.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cédula %s", domain.ErrDuplicate, party.Identification)
		}
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}

// GetByID obtiene una contraparte por ID.
func (r *PartyRepo) GetByID(ctx context.Context, id string) (*entity.Party, error) {
	query := `SELECT` + partyColumns + ` FROM parties WHERE id = $1`
	party, err := scanParty(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	return party, nil
}

// GetByIdentification busca por cédula dentro de la empresa.
func (r *PartyRepo) GetByIdentification(ctx context.Context, companyID, identification string) (*entity.Party, error) {
	query := `SELECT` + partyColumns + ` FROM parties WHERE company_id = $1 AND identification = $2`
	party, err := scanParty(r.q.QueryRow(ctx, query, companyID, identification))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get party by identification: %w", err)
	}
	return party, nil
}

// ListByCompany lista contrapartes de la empresa con paginación.
func (r *PartyRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Party, error) {
	query := `SELECT` + partyColumns + ` FROM parties
		WHERE company_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	var parties []*entity.Party
	for rows.Next() {
		party, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, party)
	}
	return parties, rows.Err()
}

// Update actualiza los datos de la contraparte.
func (r *PartyRepo) Update(ctx context.Context, party *entity.Party) error {
	query := `
		UPDATE parties
		SET name = $2, id_type = $3, identification = $4, foreign_id = $5,
		    email = $6, phone = $7, phone_country_code = $8, province = $9,
		    canton = $10, district = $11, neighborhood = $12, other_signs = $13,
		    updated_at = $14
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		party.ID, party.Name,
		nullIfEmpty(party.IDType), nullIfEmpty(party.Identification),
		nullIfEmpty(party.ForeignID), nullIfEmpty(party.Email),
		nullIfEmpty(party.Phone), nullIfEmpty(party.PhoneCountryCode),
		nullIfEmpty(party.Province), nullIfEmpty(party.Canton),
		nullIfEmpty(party.District), nullIfEmpty(party.Neighborhood),
		nullIfEmpty(party.OtherSigns), party.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la contraparte.
func (r *PartyRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM parties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanParty(row interface{ Scan(dest ...any) error }) (*entity.Party, error) {
	var p entity.Party
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.IDType, &p.Identification,
		&p.ForeignID, &p.Email, &p.Phone, &p.PhoneCountryCode,
		&p.Province, &p.Canton, &p.District, &p.Neighborhood, &p.OtherSigns,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
