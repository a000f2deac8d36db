package repository

import (
	"context"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// JournalRepository define el puerto de persistencia para puntos de emisión.
type JournalRepository interface {
	Create(ctx context.Context, journal *entity.Journal) error
	GetByID(ctx context.Context, id string) (*entity.Journal, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.Journal, error)
	Update(ctx context.Context, journal *entity.Journal) error
}

// SequenceRepository asigna consecutivos por diario y tipo de documento.
type SequenceRepository interface {
	// NextValue devuelve el próximo consecutivo y lo incrementa en una sola
	// operación atómica: dos llamadas concurrentes nunca devuelven el mismo
	// número. Si no existe secuencia para (journalID, docType) la crea en 1.
	NextValue(ctx context.Context, journalID, docType string) (int64, error)
}
