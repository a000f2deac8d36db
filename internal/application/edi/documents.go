package edi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// DocumentUseCase registra borradores de comprobantes emitidos y los expone
// para consulta. La numeración y el XML llegan después, con SubmitUseCase.
type DocumentUseCase struct {
	docRepo     repository.DocumentRepository
	partyRepo   repository.PartyRepository
	journalRepo repository.JournalRepository
	taxRepo     repository.TaxRepository
	log         *logger.Logger
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	docRepo repository.DocumentRepository,
	partyRepo repository.PartyRepository,
	journalRepo repository.JournalRepository,
	taxRepo repository.TaxRepository,
	log *logger.Logger,
) *DocumentUseCase {
	return &DocumentUseCase{
		docRepo:     docRepo,
		partyRepo:   partyRepo,
		journalRepo: journalRepo,
		taxRepo:     taxRepo,
		log:         log,
	}
}

// CreateParams datos de entrada para registrar un comprobante emitido.
type CreateParams struct {
	CompanyID     string
	JournalID     string
	PartyID       string // vacío solo en tiquetes
	DocType       string
	CurrencyCode  string
	ActivityCode  string
	SaleCondition string
	PaymentMethod string
	CreditTerm    int

	ReferenceClave  string
	ReferenceCode   string
	ReferenceReason string

	Lines []entity.LineItem
}

// Create registra el borrador: valida contraparte y diario, resuelve los
// impuestos contra el catálogo de ventas y calcula los totales línea por
// línea. El comprobante queda listo para GenerateAndSubmit.
func (uc *DocumentUseCase) Create(ctx context.Context, params CreateParams) (*entity.Document, error) {
	if _, ok := hcat.DocTypeCodes[params.DocType]; !ok ||
		params.DocType == hcat.DocTypeCCE || params.DocType == hcat.DocTypeCPCE || params.DocType == hcat.DocTypeRCE {
		return nil, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, params.DocType)
	}
	if _, err := uc.journalRepo.GetByID(ctx, params.JournalID); err != nil {
		return nil, fmt.Errorf("diario %s: %w", params.JournalID, err)
	}
	if params.PartyID == "" && params.DocType != hcat.DocTypeTE {
		return nil, &domain.MissingFieldError{Field: "receptor"}
	}
	if params.PartyID != "" {
		party, err := uc.partyRepo.GetByID(ctx, params.PartyID)
		if err != nil {
			return nil, fmt.Errorf("contraparte %s: %w", params.PartyID, err)
		}
		if err := dhacienda.ValidatePhone(party.PhoneCountryCode, party.Phone); err != nil {
			return nil, err
		}
	}
	if (params.DocType == hcat.DocTypeNC || params.DocType == hcat.DocTypeND) && params.ReferenceClave == "" {
		return nil, &domain.MissingFieldError{Field: "clave de referencia"}
	}
	if len(params.Lines) == 0 {
		return nil, fmt.Errorf("%w: el comprobante no tiene líneas", domain.ErrInvalidInput)
	}

	now := time.Now()
	doc := &entity.Document{
		ID:              uuid.NewString(),
		CompanyID:       params.CompanyID,
		JournalID:       params.JournalID,
		PartyID:         params.PartyID,
		Direction:       entity.DirectionIssued,
		DocType:         params.DocType,
		Date:            now,
		CurrencyCode:    defaultStr(params.CurrencyCode, hcat.DefaultCurrency),
		CurrencyRate:    decimal.NewFromInt(1),
		ActivityCode:    params.ActivityCode,
		SaleCondition:   defaultStr(params.SaleCondition, hcat.SaleConditionContado),
		PaymentMethod:   defaultStr(params.PaymentMethod, hcat.PaymentMethodEfectivo),
		CreditTerm:      params.CreditTerm,
		ReferenceClave:  params.ReferenceClave,
		ReferenceCode:   params.ReferenceCode,
		ReferenceReason: params.ReferenceReason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if doc.ReferenceClave != "" {
		doc.ReferenceDocType = referenceDocType(doc.ReferenceClave)
	}

	totalTax := decimal.Zero
	total := decimal.Zero
	for i := range params.Lines {
		line := params.Lines[i]
		line.ID = uuid.NewString()
		line.DocumentID = doc.ID
		line.LineNumber = i + 1
		line.Subtotal = line.Quantity.Mul(line.UnitPrice).Sub(line.DiscountAmount)

		lineTax := decimal.Zero
		for j := range line.Taxes {
			tax, err := uc.taxRepo.FindByCodeAndRate(ctx, params.CompanyID,
				line.Taxes[j].Code, line.Taxes[j].Rate, entity.TaxUsageSale)
			if err != nil {
				return nil, &domain.UnknownTaxError{
					Code: line.Taxes[j].Code,
					Rate: line.Taxes[j].Rate.StringFixed(2),
				}
			}
			line.Taxes[j].TaxID = tax.ID
			if line.Taxes[j].Amount.IsZero() {
				line.Taxes[j].Amount = line.Subtotal.Mul(tax.Rate).Div(decimal.NewFromInt(100))
			}
			lineTax = lineTax.Add(line.Taxes[j].Amount)
		}
		line.Total = line.Subtotal.Add(lineTax)

		totalTax = totalTax.Add(lineTax)
		total = total.Add(line.Total)
		doc.Lines = append(doc.Lines, line)
	}
	doc.AmountTax = totalTax
	doc.AmountTotal = total

	if err := dhacienda.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := uc.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	for i := range doc.Lines {
		if err := uc.docRepo.CreateLine(ctx, &doc.Lines[i]); err != nil {
			return nil, err
		}
	}

	uc.log.Info().
		Str("documento", doc.ID).
		Str("tipo", doc.DocType).
		Str("total", doc.AmountTotal.StringFixed(2)).
		Msg("comprobante registrado")
	return doc, nil
}

// Get devuelve el comprobante con sus líneas.
func (uc *DocumentUseCase) Get(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	lines, err := uc.docRepo.GetLines(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		doc.Lines = append(doc.Lines, *line)
	}
	return doc, nil
}

// List devuelve los comprobantes de la empresa que cumplen el filtro.
func (uc *DocumentUseCase) List(ctx context.Context, filter repository.DocumentFilter) ([]*entity.Document, error) {
	return uc.docRepo.List(ctx, filter)
}

func defaultStr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// referenceDocType deduce el tipo del comprobante referenciado a partir de
// su clave (posiciones 29-30, el tipo dentro del consecutivo).
func referenceDocType(clave string) string {
	if len(clave) != dhacienda.ClaveWidth {
		return ""
	}
	code := clave[29:31]
	for docType, c := range hcat.DocTypeCodes {
		if c == code {
			return docType
		}
	}
	return ""
}
