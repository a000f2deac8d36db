package edi

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// SubmitUseCase orquesta la emisión completa de un comprobante:
//
//	consecutivo → clave → XML v4.3 → firma XAdES-EPES → entrega REST → Update DB
//
// Cada paso que falla deja el documento en estado error con el motivo, para
// que la corrida por lote lo reintente o un operador lo revise.
type SubmitUseCase struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	partyRepo   repository.PartyRepository
	journalRepo repository.JournalRepository
	seqRepo     repository.SequenceRepository

	sequences  *dhacienda.SequenceService
	xmlBuilder *infra.XMLBuilderService
	signer     hacienda.Signer
	cert       tls.Certificate
	api        infra.API
	log        *logger.Logger
}

// NewSubmitUseCase construye el caso de uso con todas sus dependencias.
func NewSubmitUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	partyRepo repository.PartyRepository,
	journalRepo repository.JournalRepository,
	seqRepo repository.SequenceRepository,
	sequences *dhacienda.SequenceService,
	xmlBuilder *infra.XMLBuilderService,
	signer hacienda.Signer,
	cert tls.Certificate,
	api infra.API,
	log *logger.Logger,
) *SubmitUseCase {
	return &SubmitUseCase{
		docRepo:     docRepo,
		companyRepo: companyRepo,
		partyRepo:   partyRepo,
		journalRepo: journalRepo,
		seqRepo:     seqRepo,
		sequences:   sequences,
		xmlBuilder:  xmlBuilder,
		signer:      signer,
		cert:        cert,
		api:         api,
		log:         log,
	}
}

// Generate numera, construye y firma el XML de un comprobante emitido que
// aún no lo tiene. Es idempotente: si el documento ya tiene XML no hace nada.
func (uc *SubmitUseCase) Generate(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsIssued() {
		return nil, fmt.Errorf("%w: solo los comprobantes emitidos se generan aquí", domain.ErrPrecondition)
	}
	if doc.HasXML() {
		return doc, nil
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	journal, err := uc.journalRepo.GetByID(ctx, doc.JournalID)
	if err != nil {
		return nil, err
	}
	var party *entity.Party
	if doc.PartyID != "" {
		party, err = uc.partyRepo.GetByID(ctx, doc.PartyID)
		if err != nil {
			return nil, err
		}
	} else if doc.DocType != hacienda.DocTypeTE {
		return nil, &domain.MissingFieldError{Field: "contraparte del comprobante"}
	}

	if doc.ActivityCode == "" {
		doc.ActivityCode = company.ActivityCode
	}
	if err := dhacienda.ValidateDocument(doc); err != nil {
		return nil, err
	}

	lines, err := uc.docRepo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		doc.Lines = doc.Lines[:0]
		for _, line := range lines {
			doc.Lines = append(doc.Lines, *line)
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Consecutivo y clave numérica
	// ═══════════════════════════════════════════════════════════════════════════
	if doc.FullSequence == "" {
		next, err := uc.seqRepo.NextValue(ctx, journal.ID, doc.DocType)
		if err != nil {
			return nil, err
		}
		full, err := uc.sequences.ComputeFullSequence(journal.Branch, journal.Terminal, doc.DocType, next)
		if err != nil {
			return nil, err
		}
		doc.FullSequence = full
	}
	if doc.Clave == "" {
		security, err := uc.sequences.RandomSecurityCode()
		if err != nil {
			return nil, err
		}
		clave, err := uc.sequences.ComputeClave(company.Identification, doc.Date, doc.FullSequence, hacienda.SituationNormal, security)
		if err != nil {
			return nil, err
		}
		doc.Clave = clave
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. XML v4.3
	// ═══════════════════════════════════════════════════════════════════════════
	issuer := infra.PartyFromCompany(company)
	var receiver infra.PartyInfo
	if party != nil {
		receiver = infra.PartyFromParty(party)
	}
	// En la factura electrónica los roles van invertidos en el XML.
	// TODO: confirmar con facturación si la inversión aplica solo a la FE o
	// también a la factura de compra.
	if doc.DocType == hacienda.DocTypeFE {
		issuer, receiver = receiver, issuer
	}

	xmlBytes, err := uc.xmlBuilder.Build(&infra.BuildContext{
		Document: doc,
		Issuer:   issuer,
		Receiver: receiver,
	})
	if err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Firma XAdES-EPES
	// ═══════════════════════════════════════════════════════════════════════════
	if len(uc.cert.Certificate) == 0 || uc.cert.PrivateKey == nil {
		return nil, &domain.MissingFieldError{Field: "certificado de firma"}
	}
	signedXML, err := uc.signer.Sign(xmlBytes, uc.cert)
	if err != nil {
		return nil, fmt.Errorf("firmando el comprobante %s: %w", doc.Clave, err)
	}

	doc.XMLDocument = signedXML
	doc.XMLFilename = dhacienda.XMLFilename(doc.DocType, doc.Clave)
	doc.StateSendInvoice = entity.SendStatePending
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("document_id", doc.ID).
		Str("clave", doc.Clave).
		Str("tipo", doc.DocType).
		Msg("comprobante generado y firmado")
	return doc, nil
}

// Submit entrega a la recepción un comprobante ya generado y firmado, y
// persiste la transición de estado que dicte la respuesta.
func (uc *SubmitUseCase) Submit(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := dhacienda.GuardSubmit(doc); err != nil {
		return nil, err
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	req := &infra.SubmitRequest{
		Clave:        doc.Clave,
		Date:         doc.Date,
		IssuerIDType: company.IDType,
		IssuerID:     company.Identification,
		XML:          doc.XMLDocument,
	}
	if doc.PartyID != "" {
		party, err := uc.partyRepo.GetByID(ctx, doc.PartyID)
		if err == nil && party.Identification != "" {
			req.ReceiverIDType = party.IDType
			req.ReceiverID = party.Identification
		}
	}

	result, err := uc.api.Submit(ctx, req)
	if err != nil {
		// Fallo de transporte: el documento queda intacto para reintentar.
		return nil, err
	}

	updated := dhacienda.ApplySubmitResponse(*doc, result.Status, result.Body)
	updated.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("clave", updated.Clave).
		Int("http_status", result.Status).
		Str("estado", dhacienda.LifecycleState(&updated)).
		Msg("comprobante entregado a la recepción")
	return &updated, nil
}

// GenerateAndSubmit encadena Generate y Submit para el flujo normal de emisión.
func (uc *SubmitUseCase) GenerateAndSubmit(ctx context.Context, documentID string) (*entity.Document, error) {
	if _, err := uc.Generate(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.Submit(ctx, documentID)
}
