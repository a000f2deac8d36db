package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// TaxRepository define el puerto de persistencia para impuestos.
type TaxRepository interface {
	Create(ctx context.Context, tax *entity.Tax) error
	GetByID(ctx context.Context, id string) (*entity.Tax, error)

	// FindByCodeAndRate resuelve un impuesto por (código, tarifa, uso).
	// Es la búsqueda con la que se casan los impuestos de un XML de
	// proveedor; si no hay coincidencia la importación completa falla.
	FindByCodeAndRate(ctx context.Context, companyID, code string, rate decimal.Decimal, usage string) (*entity.Tax, error)

	ListByCompany(ctx context.Context, companyID string) ([]*entity.Tax, error)
	Update(ctx context.Context, tax *entity.Tax) error
}
