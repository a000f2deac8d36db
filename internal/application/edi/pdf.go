package edi

import (
	"context"
	"fmt"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// PDFUseCase genera la representación gráfica (PDF) de un comprobante emitido.
// Solo se permite generar el PDF si el comprobante ya tiene clave numérica.
type PDFUseCase struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	partyRepo   repository.PartyRepository
	generator   PDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	partyRepo repository.PartyRepository,
	generator PDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		docRepo:     docRepo,
		companyRepo: companyRepo,
		partyRepo:   partyRepo,
		generator:   generator,
	}
}

// DownloadPDF recupera los datos del comprobante, verifica que ya fue numerado
// (tiene clave) y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el comprobante no existe.
//   - domain.ErrForbidden        si el comprobante no pertenece a la empresa del token.
//   - domain.ErrPrecondition     si el comprobante aún no tiene clave.
func (uc *PDFUseCase) DownloadPDF(ctx context.Context, companyID, documentID string) (pdfBytes []byte, filename string, err error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener comprobante: %w", err)
	}
	if doc.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if doc.Clave == "" {
		return nil, "", fmt.Errorf("%w: el comprobante aún no tiene clave, genérelo antes de descargar el PDF",
			domain.ErrPrecondition)
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener empresa: %w", err)
	}

	// El receptor es opcional (tiquetes).
	var receiver *entity.Party
	if doc.PartyID != "" {
		receiver, err = uc.partyRepo.GetByID(ctx, doc.PartyID)
		if err != nil {
			return nil, "", fmt.Errorf("pdf: obtener contraparte: %w", err)
		}
	}

	lines, err := uc.docRepo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener líneas: %w", err)
	}
	if len(lines) > 0 {
		doc.Lines = doc.Lines[:0]
		for _, line := range lines {
			doc.Lines = append(doc.Lines, *line)
		}
	}

	pdfBytes, err = uc.generator.Generate(ctx, doc, company, receiver)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("%s_%s.pdf", doc.DocType, doc.Clave)
	return pdfBytes, filename, nil
}
