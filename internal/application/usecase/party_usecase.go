package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/application/dto"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// PartyUseCase aplica reglas de negocio para contrapartes (clientes y proveedores).
type PartyUseCase struct {
	repo repository.PartyRepository
}

// NewPartyUseCase construye el caso de uso.
func NewPartyUseCase(repo repository.PartyRepository) *PartyUseCase {
	return &PartyUseCase{repo: repo}
}

// Create registra una contraparte. El teléfono se valida contra su código de
// país antes de guardar; devuelve domain.ErrDuplicate si la cédula ya existe
// para la empresa.
func (uc *PartyUseCase) Create(ctx context.Context, companyID string, in dto.CreatePartyRequest) (*dto.PartyResponse, error) {
	countryCode := in.PhoneCountryCode
	if countryCode == "" {
		countryCode = "506"
	}
	if err := dhacienda.ValidatePhone(countryCode, in.Phone); err != nil {
		return nil, err
	}
	existing, _ := uc.repo.GetByIdentification(ctx, companyID, in.Identification)
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	party := &entity.Party{
		ID:               uuid.NewString(),
		CompanyID:        companyID,
		Name:             in.Name,
		IDType:           in.IDType,
		Identification:   in.Identification,
		ForeignID:        in.ForeignID,
		Email:            in.Email,
		Phone:            in.Phone,
		PhoneCountryCode: countryCode,
		Province:         in.Province,
		Canton:           in.Canton,
		District:         in.District,
		Neighborhood:     in.Neighborhood,
		OtherSigns:       in.OtherSigns,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, party); err != nil {
		return nil, err
	}
	return entityToPartyResponse(party), nil
}

// GetByID obtiene una contraparte verificando que pertenece a la empresa.
func (uc *PartyUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.PartyResponse, error) {
	party, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if party.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return entityToPartyResponse(party), nil
}

// Update actualiza los campos presentes en la petición.
func (uc *PartyUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdatePartyRequest) (*dto.PartyResponse, error) {
	party, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if party.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if in.Name != nil {
		party.Name = *in.Name
	}
	if in.Email != nil {
		party.Email = *in.Email
	}
	if in.Phone != nil {
		party.Phone = *in.Phone
	}
	if in.PhoneCountryCode != nil {
		party.PhoneCountryCode = *in.PhoneCountryCode
	}
	if in.Province != nil {
		party.Province = *in.Province
	}
	if in.Canton != nil {
		party.Canton = *in.Canton
	}
	if in.District != nil {
		party.District = *in.District
	}
	if in.Neighborhood != nil {
		party.Neighborhood = *in.Neighborhood
	}
	if in.OtherSigns != nil {
		party.OtherSigns = *in.OtherSigns
	}
	if party.Phone != "" {
		if err := dhacienda.ValidatePhone(party.PhoneCountryCode, party.Phone); err != nil {
			return nil, err
		}
	}
	party.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, party); err != nil {
		return nil, err
	}
	return entityToPartyResponse(party), nil
}

// List lista las contrapartes de la empresa con paginación.
func (uc *PartyUseCase) List(ctx context.Context, companyID string, limit, offset int) (*dto.PartyListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PartyResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *entityToPartyResponse(p))
	}
	return &dto.PartyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina una contraparte de la empresa.
func (uc *PartyUseCase) Delete(ctx context.Context, companyID, id string) error {
	party, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if party.CompanyID != companyID {
		return domain.ErrForbidden
	}
	return uc.repo.Delete(ctx, id)
}

func entityToPartyResponse(p *entity.Party) *dto.PartyResponse {
	if p == nil {
		return nil
	}
	return &dto.PartyResponse{
		ID:               p.ID,
		CompanyID:        p.CompanyID,
		Name:             p.Name,
		IDType:           p.IDType,
		Identification:   p.Identification,
		ForeignID:        p.ForeignID,
		Email:            p.Email,
		Phone:            p.Phone,
		PhoneCountryCode: p.PhoneCountryCode,
		Province:         p.Province,
		Canton:           p.Canton,
		District:         p.District,
		Neighborhood:     p.Neighborhood,
		OtherSigns:       p.OtherSigns,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
