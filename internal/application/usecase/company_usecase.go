// Package usecase contiene los casos de uso de datos maestros: empresas,
// contrapartes, puntos de emisión e impuestos.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/application/dto"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// CompanyUseCase aplica reglas de negocio para empresas emisoras.
type CompanyUseCase struct {
	repo repository.CompanyRepository
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo}
}

// Create crea una nueva empresa. Genera ID y estado inicial. Devuelve
// domain.ErrDuplicate si la cédula ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	existing, _ := uc.repo.GetByIdentification(ctx, in.Identification)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	company := &entity.Company{
		ID:               uuid.NewString(),
		Name:             in.Name,
		TradeName:        in.TradeName,
		IDType:           in.IDType,
		Identification:   in.Identification,
		ActivityCode:     in.ActivityCode,
		Email:            in.Email,
		Phone:            in.Phone,
		PhoneCountryCode: in.PhoneCountryCode,
		Province:         in.Province,
		Canton:           in.Canton,
		District:         in.District,
		Neighborhood:     in.Neighborhood,
		OtherSigns:       in.OtherSigns,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if company.PhoneCountryCode == "" {
		company.PhoneCountryCode = "506"
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// GetByID obtiene una empresa por ID.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// Update actualiza los campos presentes en la petición.
func (uc *CompanyUseCase) Update(ctx context.Context, id string, in dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		company.Name = *in.Name
	}
	if in.TradeName != nil {
		company.TradeName = *in.TradeName
	}
	if in.ActivityCode != nil {
		company.ActivityCode = *in.ActivityCode
	}
	if in.Email != nil {
		company.Email = *in.Email
	}
	if in.Phone != nil {
		company.Phone = *in.Phone
	}
	if in.Status != nil {
		company.Status = *in.Status
	}
	company.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// List lista empresas con paginación.
func (uc *CompanyUseCase) List(ctx context.Context, limit, offset int) (*dto.CompanyListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyResponse, 0, len(list))
	for _, c := range list {
		items = append(items, *entityToCompanyResponse(c))
	}
	return &dto.CompanyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func entityToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:               c.ID,
		Name:             c.Name,
		TradeName:        c.TradeName,
		IDType:           c.IDType,
		Identification:   c.Identification,
		ActivityCode:     c.ActivityCode,
		Email:            c.Email,
		Phone:            c.Phone,
		PhoneCountryCode: c.PhoneCountryCode,
		Province:         c.Province,
		Canton:           c.Canton,
		District:         c.District,
		Neighborhood:     c.Neighborhood,
		OtherSigns:       c.OtherSigns,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
