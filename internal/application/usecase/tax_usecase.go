package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/application/dto"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// TaxUseCase aplica reglas de negocio para el catálogo de impuestos.
type TaxUseCase struct {
	repo repository.TaxRepository
}

// NewTaxUseCase construye el caso de uso.
func NewTaxUseCase(repo repository.TaxRepository) *TaxUseCase {
	return &TaxUseCase{repo: repo}
}

// Create registra un impuesto. La combinación (código, tarifa, uso) debe ser
// única dentro de la empresa: es la llave con la que se resuelven los
// impuestos de los XML importados.
func (uc *TaxUseCase) Create(ctx context.Context, companyID string, in dto.CreateTaxRequest) (*dto.TaxResponse, error) {
	if existing, _ := uc.repo.FindByCodeAndRate(ctx, companyID, in.Code, in.Rate, in.Usage); existing != nil {
		return nil, fmt.Errorf("%w: ya existe el impuesto código %s tarifa %s para %s",
			domain.ErrDuplicate, in.Code, in.Rate.String(), in.Usage)
	}
	now := time.Now()
	tax := &entity.Tax{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      in.Name,
		Code:      in.Code,
		Rate:      in.Rate,
		Usage:     in.Usage,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, tax); err != nil {
		return nil, err
	}
	return entityToTaxResponse(tax), nil
}

// List lista los impuestos de la empresa.
func (uc *TaxUseCase) List(ctx context.Context, companyID string) ([]dto.TaxResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.TaxResponse, 0, len(list))
	for _, t := range list {
		items = append(items, *entityToTaxResponse(t))
	}
	return items, nil
}

// Deactivate marca un impuesto como inactivo sin borrarlo: los comprobantes
// históricos siguen apuntando a él.
func (uc *TaxUseCase) Deactivate(ctx context.Context, companyID, id string) (*dto.TaxResponse, error) {
	tax, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tax.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	tax.Active = false
	tax.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, tax); err != nil {
		return nil, err
	}
	return entityToTaxResponse(tax), nil
}

func entityToTaxResponse(t *entity.Tax) *dto.TaxResponse {
	if t == nil {
		return nil
	}
	return &dto.TaxResponse{
		ID:        t.ID,
		CompanyID: t.CompanyID,
		Name:      t.Name,
		Code:      t.Code,
		Rate:      t.Rate,
		Usage:     t.Usage,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
