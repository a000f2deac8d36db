package repository

import (
	"context"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// PartyRepository define el puerto de persistencia para contrapartes.
type PartyRepository interface {
	Create(ctx context.Context, party *entity.Party) error
	GetByID(ctx context.Context, id string) (*entity.Party, error)

	// GetByIdentification busca por cédula dentro de la empresa. Es la
	// consulta con la que se resuelve el emisor de un XML de proveedor.
	GetByIdentification(ctx context.Context, companyID, identification string) (*entity.Party, error)

	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Party, error)
	Update(ctx context.Context, party *entity.Party) error
	Delete(ctx context.Context, id string) error
}
