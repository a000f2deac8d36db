package edi

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/config"
	"github.com/facturacr/hacienda-edi/pkg/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// ReceiverUseCase maneja los comprobantes recibidos de proveedores: importa
// el XML, lo cruza contra los catálogos de la empresa y responde con el
// Mensaje Receptor (aceptación, aceptación parcial o rechazo).
type ReceiverUseCase struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	partyRepo   repository.PartyRepository
	taxRepo     repository.TaxRepository
	seqRepo     repository.SequenceRepository
	tx          TxRunner

	sequences  *dhacienda.SequenceService
	xmlBuilder *infra.XMLBuilderService
	parser     *infra.XMLParserService
	signer     hacienda.Signer
	cert       tls.Certificate
	api        infra.API
	cfg        config.EDIConfig
	log        *logger.Logger
}

// NewReceiverUseCase construye el caso de uso.
func NewReceiverUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	partyRepo repository.PartyRepository,
	taxRepo repository.TaxRepository,
	seqRepo repository.SequenceRepository,
	tx TxRunner,
	sequences *dhacienda.SequenceService,
	xmlBuilder *infra.XMLBuilderService,
	parser *infra.XMLParserService,
	signer hacienda.Signer,
	cert tls.Certificate,
	api infra.API,
	cfg config.EDIConfig,
	log *logger.Logger,
) *ReceiverUseCase {
	return &ReceiverUseCase{
		docRepo:     docRepo,
		companyRepo: companyRepo,
		partyRepo:   partyRepo,
		taxRepo:     taxRepo,
		seqRepo:     seqRepo,
		tx:          tx,
		sequences:   sequences,
		xmlBuilder:  xmlBuilder,
		parser:      parser,
		signer:      signer,
		cert:        cert,
		api:         api,
		cfg:         cfg,
		log:         log,
	}
}

// ImportParams datos de entrada para importar un XML de proveedor.
type ImportParams struct {
	CompanyID string
	JournalID string
	XML       []byte
}

// Import interpreta el XML de un proveedor y lo registra como comprobante
// recibido. El proveedor tiene que existir en el padrón de la empresa y la
// resolución de impuestos es todo o nada: un impuesto que no exista en el
// catálogo de compras aborta la importación completa.
func (uc *ReceiverUseCase) Import(ctx context.Context, params ImportParams) (*entity.Document, error) {
	parsed, err := uc.parser.Parse(params.XML)
	if err != nil {
		return nil, err
	}

	company, err := uc.companyRepo.GetByID(ctx, params.CompanyID)
	if err != nil {
		return nil, err
	}
	if parsed.ReceiverID != company.Identification {
		return nil, fmt.Errorf("%w: el comprobante está dirigido a %s, no a esta empresa",
			domain.ErrPrecondition, parsed.ReceiverID)
	}

	if existing, err := uc.docRepo.GetByClave(ctx, params.CompanyID, parsed.Clave); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: la clave %s ya fue importada", domain.ErrDuplicate, parsed.Clave)
	}

	amountTax, _ := decimal.NewFromString(parsed.AmountTax)
	amountTotal, err := decimal.NewFromString(parsed.AmountTotal)
	if err != nil {
		return nil, fmt.Errorf("%w: TotalComprobante ilegible: %q", domain.ErrMalformedXML, parsed.AmountTotal)
	}

	doc := &entity.Document{
		ID:             uuid.NewString(),
		CompanyID:      params.CompanyID,
		JournalID:      params.JournalID,
		Direction:      entity.DirectionReceived,
		DocType:        parsed.DocType,
		Clave:          parsed.Clave,
		Date:           parsed.IssueDate,
		CurrencyCode:   parsed.CurrencyCode,
		AmountTaxXML:   amountTax,
		AmountTotalXML: amountTotal,
		XMLDocument:    params.XML,
		XMLFilename:    dhacienda.XMLFilename(parsed.DocType, parsed.Clave),
		Reimbursable:   uc.cfg.ReimbursableEmail != "" && parsed.IssuerEmail == uc.cfg.ReimbursableEmail,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if uc.cfg.LoadLineItems {
		lines, err := uc.buildLines(ctx, params.CompanyID, doc.ID, parsed)
		if err != nil {
			return nil, err
		}
		doc.Lines = lines
	}

	// Comprobante y líneas se confirman juntos: una importación a medias
	// dejaría la clave ocupada sin detalle. El proveedor debe estar
	// registrado de antemano; el XML no es fuente para darlo de alta.
	var party *entity.Party
	err = uc.tx.Run(ctx, func(docs repository.DocumentRepository, parties repository.PartyRepository) error {
		issuer, err := parties.GetByIdentification(ctx, params.CompanyID, parsed.IssuerID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: el proveedor con cédula %s no existe; regístrelo antes de importar",
				domain.ErrPrecondition, parsed.IssuerID)
		}
		if err != nil {
			return err
		}
		party = issuer
		doc.PartyID = party.ID
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		for i := range doc.Lines {
			if err := docs.CreateLine(ctx, &doc.Lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("clave", doc.Clave).
		Str("proveedor", party.Name).
		Str("total", amountTotal.StringFixed(2)).
		Msg("comprobante de proveedor importado")
	return doc, nil
}

// AttachXML adjunta a un comprobante emitido el XML ya firmado que el usuario
// sube manualmente. El XML se cruza contra el documento antes de guardarse:
// la cédula del receptor, la fecha de emisión y el consecutivo deben
// coincidir con lo registrado.
func (uc *ReceiverUseCase) AttachXML(ctx context.Context, documentID string, raw []byte) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsIssued() {
		return nil, fmt.Errorf("%w: el XML de un comprobante recibido se registra con la importación, no adjuntándolo", domain.ErrPrecondition)
	}

	parsed, err := uc.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	if doc.PartyID != "" {
		party, err := uc.partyRepo.GetByID(ctx, doc.PartyID)
		if err != nil {
			return nil, err
		}
		if parsed.ReceiverID != party.Identification {
			return nil, fmt.Errorf("%w: el receptor del XML (%s) no es el cliente del comprobante (%s)",
				domain.ErrPrecondition, parsed.ReceiverID, party.Identification)
		}
	}
	if !doc.Date.IsZero() {
		y1, m1, d1 := doc.Date.Date()
		y2, m2, d2 := parsed.IssueDate.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return nil, fmt.Errorf("%w: la fecha del XML (%s) no corresponde a la fecha del comprobante (%s)",
				domain.ErrPrecondition, parsed.IssueDate.Format("2006-01-02"), doc.Date.Format("2006-01-02"))
		}
	}
	if doc.FullSequence != "" && parsed.FullSequence != "" && parsed.FullSequence != doc.FullSequence {
		return nil, fmt.Errorf("%w: el consecutivo del XML (%s) no corresponde al del comprobante (%s)",
			domain.ErrPrecondition, parsed.FullSequence, doc.FullSequence)
	}
	if doc.Clave != "" && parsed.Clave != doc.Clave {
		return nil, fmt.Errorf("%w: la clave del XML no corresponde a la del comprobante", domain.ErrPrecondition)
	}

	// Un comprobante sin numerar adopta la numeración del XML firmado.
	if doc.Clave == "" {
		doc.Clave = parsed.Clave
	}
	if doc.FullSequence == "" {
		doc.FullSequence = parsed.FullSequence
	}
	if doc.Date.IsZero() {
		doc.Date = parsed.IssueDate
	}
	doc.XMLDocument = raw
	doc.XMLFilename = dhacienda.XMLFilename(doc.DocType, doc.Clave)
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("clave", doc.Clave).
		Str("archivo", doc.XMLFilename).
		Msg("xml firmado adjuntado al comprobante emitido")
	return doc, nil
}

// SendReceiverMessage genera, firma y entrega el Mensaje Receptor del
// comprobante recibido, con la clasificación dada ("1", "2" o "3").
func (uc *ReceiverUseCase) SendReceiverMessage(ctx context.Context, documentID, response string) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsIssued() {
		return nil, fmt.Errorf("%w: solo los comprobantes recibidos llevan mensaje receptor", domain.ErrPrecondition)
	}
	if response != "" {
		doc.StateInvoicePartner = response
	}
	if err := dhacienda.GuardReceiverMessage(doc, uc.cfg.BranchMR, uc.cfg.TerminalMR); err != nil {
		return nil, err
	}

	company, err := uc.companyRepo.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	party, err := uc.partyRepo.GetByID(ctx, doc.PartyID)
	if err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Consecutivo propio del mensaje (CCE, CPCE o RCE según la respuesta)
	// ═══════════════════════════════════════════════════════════════════════════
	mrType := hacienda.ReceiverMessageDocTypes[doc.StateInvoicePartner]
	if doc.ReceiverSequence == "" {
		next, err := uc.seqRepo.NextValue(ctx, doc.JournalID, mrType)
		if err != nil {
			return nil, err
		}
		full, err := uc.sequences.ComputeFullSequence(uc.cfg.BranchMR, uc.cfg.TerminalMR, mrType, next)
		if err != nil {
			return nil, err
		}
		doc.ReceiverSequence = full
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. XML del MensajeReceptor + firma
	// ═══════════════════════════════════════════════════════════════════════════
	xmlBytes, err := uc.xmlBuilder.BuildReceiverMessage(&infra.ReceiverMessageContext{
		Document:         doc,
		IssuerID:         party.Identification,
		ReceiverID:       company.Identification,
		ActivityCode:     company.ActivityCode,
		TaxCondition:     hacienda.TaxConditionCredit,
		ReceiverSequence: doc.ReceiverSequence,
	})
	if err != nil {
		return nil, err
	}
	if len(uc.cert.Certificate) == 0 || uc.cert.PrivateKey == nil {
		return nil, &domain.MissingFieldError{Field: "certificado de firma"}
	}
	signedXML, err := uc.signer.Sign(xmlBytes, uc.cert)
	if err != nil {
		return nil, fmt.Errorf("firmando el mensaje receptor de %s: %w", doc.Clave, err)
	}
	doc.ReceiverXML = signedXML
	doc.ReceiverFilename = dhacienda.ReceiverFilename(doc.Clave, doc.ReceiverSequence)

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Entrega a la recepción (emisor = proveedor, receptor = la empresa)
	// ═══════════════════════════════════════════════════════════════════════════
	result, err := uc.api.Submit(ctx, &infra.SubmitRequest{
		Clave:               doc.Clave,
		Date:                doc.Date,
		IssuerIDType:        party.IDType,
		IssuerID:            party.Identification,
		ReceiverIDType:      company.IDType,
		ReceiverID:          company.Identification,
		ConsecutivoReceptor: doc.ReceiverSequence,
		XML:                 signedXML,
	})
	if err != nil {
		return nil, err
	}

	updated := dhacienda.ApplyReceiverSubmitResponse(*doc, result.Status, result.Body)
	updated.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("clave", updated.Clave).
		Str("consecutivo_receptor", updated.ReceiverSequence).
		Str("estado_envio", updated.StateSendInvoice).
		Msg("mensaje receptor entregado")
	return &updated, nil
}

// buildLines convierte las líneas del XML en líneas del documento. Los
// impuestos se resuelven contra el catálogo de compras; cualquier impuesto
// sin coincidencia exacta (código y tarifa) aborta la importación.
func (uc *ReceiverUseCase) buildLines(ctx context.Context, companyID, documentID string, parsed *infra.ParsedInvoice) ([]entity.LineItem, error) {
	lines := make([]entity.LineItem, 0, len(parsed.Lines))
	for i, pl := range parsed.Lines {
		quantity, _ := decimal.NewFromString(pl.Quantity)
		unitPrice, _ := decimal.NewFromString(pl.UnitPrice)
		subtotal, _ := decimal.NewFromString(pl.Subtotal)
		total, _ := decimal.NewFromString(pl.Total)
		discount, _ := decimal.NewFromString(pl.DiscountAmount)

		line := entity.LineItem{
			ID:             uuid.NewString(),
			DocumentID:     documentID,
			LineNumber:     i + 1,
			Code:           pl.Code,
			Description:    pl.Description,
			Unit:           pl.Unit,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			Subtotal:       subtotal,
			Total:          total,
			DiscountAmount: discount,
			DiscountReason: pl.DiscountReason,
			AccountCode:    uc.cfg.DefaultExpenseAccount,
		}

		// Porcentaje de descuento respecto del bruto de la línea.
		gross := quantity.Mul(unitPrice)
		if discount.IsPositive() && gross.IsPositive() {
			line.DiscountPercent = discount.Div(gross).Mul(decimal.NewFromInt(100)).Round(2)
		}

		for _, pt := range pl.Taxes {
			rate, err := decimal.NewFromString(pt.Rate)
			if err != nil {
				return nil, fmt.Errorf("%w: tarifa ilegible en la línea %d: %q", domain.ErrMalformedXML, i+1, pt.Rate)
			}
			tax, err := uc.taxRepo.FindByCodeAndRate(ctx, companyID, pt.Code, rate, entity.TaxUsagePurchase)
			if err != nil {
				return nil, &domain.UnknownTaxError{Code: pt.Code, Rate: rate.StringFixed(2)}
			}
			amount, _ := decimal.NewFromString(pt.Amount)
			line.Taxes = append(line.Taxes, entity.LineTax{
				TaxID:  tax.ID,
				Code:   tax.Code,
				Rate:   tax.Rate,
				Amount: amount,
			})
		}
		lines = append(lines, line)
	}
	return lines, nil
}
