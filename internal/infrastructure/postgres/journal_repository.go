package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

var _ repository.JournalRepository = (*JournalRepo)(nil)
var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// JournalRepo implementación de JournalRepository sobre PostgreSQL.
type JournalRepo struct {
	q Querier
}

// NewJournalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewJournalRepository(q Querier) *JournalRepo {
	return &JournalRepo{q: q}
}

// Create persiste un punto de emisión.
func (r *JournalRepo) Create(ctx context.Context, journal *entity.Journal) error {
	if journal.ID == "" {
		journal.ID = uuid.NewString()
	}
	query := `
		INSERT INTO journals (id, company_id, name, branch, terminal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		journal.ID, journal.CompanyID, journal.Name,
		journal.Branch, journal.Terminal,
		journal.CreatedAt, journal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal: %w", err)
	}
	return nil
}

// GetByID obtiene un punto de emisión por ID.
func (r *JournalRepo) GetByID(ctx context.Context, id string) (*entity.Journal, error) {
	query := `
		SELECT id, company_id, name, branch, terminal, created_at, updated_at
		FROM journals WHERE id = $1`
	var j entity.Journal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.CompanyID, &j.Name, &j.Branch, &j.Terminal,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get journal: %w", err)
	}
	return &j, nil
}

// ListByCompany lista los puntos de emisión de la empresa.
func (r *JournalRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Journal, error) {
	query := `
		SELECT id, company_id, name, branch, terminal, created_at, updated_at
		FROM journals WHERE company_id = $1 ORDER BY branch, terminal`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	defer rows.Close()

	var journals []*entity.Journal
	for rows.Next() {
		var j entity.Journal
		if err := rows.Scan(
			&j.ID, &j.CompanyID, &j.Name, &j.Branch, &j.Terminal,
			&j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		journals = append(journals, &j)
	}
	return journals, rows.Err()
}

// Update actualiza un punto de emisión.
func (r *JournalRepo) Update(ctx context.Context, journal *entity.Journal) error {
	query := `
		UPDATE journals
		SET name = $2, branch = $3, terminal = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		journal.ID, journal.Name, journal.Branch, journal.Terminal, journal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SequenceRepo asigna consecutivos por (diario, tipo de documento) con un
// upsert atómico: dos llamadas concurrentes nunca reciben el mismo número.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// NextValue devuelve el próximo consecutivo y lo incrementa en una sola
// sentencia. Si no existe secuencia para (journalID, docType) la crea en 1.
func (r *SequenceRepo) NextValue(ctx context.Context, journalID, docType string) (int64, error) {
	query := `
		INSERT INTO sequences (id, journal_id, doc_type, next, updated_at)
		VALUES ($1, $2, $3, 2, now())
		ON CONFLICT (journal_id, doc_type)
		DO UPDATE SET next = sequences.next + 1, updated_at = now()
		RETURNING next - 1`
	var value int64
	err := r.q.QueryRow(ctx, query, uuid.NewString(), journalID, docType).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence value for %s/%s: %w", journalID, docType, err)
	}
	return value, nil
}
