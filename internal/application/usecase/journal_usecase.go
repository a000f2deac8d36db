package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/application/dto"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// JournalUseCase aplica reglas de negocio para puntos de emisión (diarios).
type JournalUseCase struct {
	repo repository.JournalRepository
}

// NewJournalUseCase construye el caso de uso.
func NewJournalUseCase(repo repository.JournalRepository) *JournalUseCase {
	return &JournalUseCase{repo: repo}
}

// Create registra un punto de emisión. La sucursal y la terminal deben caber
// en los anchos del consecutivo (3 y 5 dígitos); una combinación repetida
// dentro de la empresa es un error.
func (uc *JournalUseCase) Create(ctx context.Context, companyID string, in dto.CreateJournalRequest) (*dto.JournalResponse, error) {
	if len(in.Branch) == 0 || len(in.Branch) > dhacienda.BranchWidth {
		return nil, fmt.Errorf("%w: sucursal debe tener entre 1 y %d dígitos", domain.ErrInvalidInput, dhacienda.BranchWidth)
	}
	if len(in.Terminal) == 0 || len(in.Terminal) > dhacienda.TerminalWidth {
		return nil, fmt.Errorf("%w: terminal debe tener entre 1 y %d dígitos", domain.ErrInvalidInput, dhacienda.TerminalWidth)
	}
	existing, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, j := range existing {
		if j.Branch == in.Branch && j.Terminal == in.Terminal {
			return nil, fmt.Errorf("%w: ya existe un diario para sucursal %s terminal %s", domain.ErrDuplicate, in.Branch, in.Terminal)
		}
	}
	now := time.Now()
	journal := &entity.Journal{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      in.Name,
		Branch:    in.Branch,
		Terminal:  in.Terminal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, journal); err != nil {
		return nil, err
	}
	return entityToJournalResponse(journal), nil
}

// GetByID obtiene un punto de emisión verificando que pertenece a la empresa.
func (uc *JournalUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.JournalResponse, error) {
	journal, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if journal.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return entityToJournalResponse(journal), nil
}

// List lista los puntos de emisión de la empresa.
func (uc *JournalUseCase) List(ctx context.Context, companyID string) ([]dto.JournalResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.JournalResponse, 0, len(list))
	for _, j := range list {
		items = append(items, *entityToJournalResponse(j))
	}
	return items, nil
}

func entityToJournalResponse(j *entity.Journal) *dto.JournalResponse {
	if j == nil {
		return nil
	}
	return &dto.JournalResponse{
		ID:        j.ID,
		CompanyID: j.CompanyID,
		Name:      j.Name,
		Branch:    j.Branch,
		Terminal:  j.Terminal,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
