package http

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/facturacr/hacienda-edi/internal/application/dto"
	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// DocumentHandler maneja el ciclo de vida completo del comprobante electrónico:
// registro, numeración y envío a Hacienda, consulta de estado, importación de
// facturas de proveedor, Mensaje Receptor y descarga de XML/PDF.
type DocumentHandler struct {
	docUC      *edi.DocumentUseCase
	submitUC   *edi.SubmitUseCase
	statusUC   *edi.StatusUseCase
	receiverUC *edi.ReceiverUseCase
	pdfUC      *edi.PDFUseCase
	batchUC    *edi.BatchUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(
	docUC *edi.DocumentUseCase,
	submitUC *edi.SubmitUseCase,
	statusUC *edi.StatusUseCase,
	receiverUC *edi.ReceiverUseCase,
	pdfUC *edi.PDFUseCase,
	batchUC *edi.BatchUseCase,
) *DocumentHandler {
	return &DocumentHandler{
		docUC:      docUC,
		submitUC:   submitUC,
		statusUC:   statusUC,
		receiverUC: receiverUC,
		pdfUC:      pdfUC,
		batchUC:    batchUC,
	}
}

// Create registra un comprobante emitido en borrador.
// POST /api/documents
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.JournalID == "" || in.DocType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "journal_id y doc_type son requeridos"})
	}

	lines := make([]entity.LineItem, 0, len(in.Lines))
	for _, l := range in.Lines {
		line := entity.LineItem{
			Code:           l.Code,
			Description:    l.Description,
			Unit:           l.Unit,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
			DiscountReason: l.DiscountReason,
		}
		for _, t := range l.Taxes {
			line.Taxes = append(line.Taxes, entity.LineTax{Code: t.Code, Rate: t.Rate, Amount: t.Amount})
		}
		lines = append(lines, line)
	}

	doc, err := h.docUC.Create(c.Context(), edi.CreateParams{
		CompanyID:       companyID,
		JournalID:       in.JournalID,
		PartyID:         in.PartyID,
		DocType:         strings.ToUpper(in.DocType),
		CurrencyCode:    in.CurrencyCode,
		ActivityCode:    in.ActivityCode,
		SaleCondition:   in.SaleCondition,
		PaymentMethod:   in.PaymentMethod,
		CreditTerm:      in.CreditTerm,
		ReferenceClave:  in.ReferenceClave,
		ReferenceCode:   in.ReferenceCode,
		ReferenceReason: in.ReferenceReason,
		Lines:           lines,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDocument(doc))
}

// GetByID obtiene un comprobante con sus líneas.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	full, err := h.docUC.Get(c.Context(), doc.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromDocument(full))
}

// List lista comprobantes de la empresa del token.
// GET /api/documents?direction=issued|received&state=procesando&limit=50
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	filter := repository.DocumentFilter{
		CompanyID: companyID,
		Direction: c.Query("direction"),
		Limit:     50,
	}
	if state := c.Query("state"); state != "" {
		filter.States = strings.Split(state, ",")
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	docs, err := h.docUC.List(c.Context(), filter)
	if err != nil {
		return respondDomainError(c, err)
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.FromDocument(d))
	}
	return c.JSON(out)
}

// Submit asigna consecutivo y clave, firma el XML y lo presenta a Hacienda.
// POST /api/documents/:id/submit
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	out, err := h.submitUC.GenerateAndSubmit(c.Context(), doc.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromDocument(out))
}

// Status consulta en Hacienda el estado del comprobante ya presentado.
// POST /api/documents/:id/status
func (h *DocumentHandler) Status(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	out, err := h.statusUC.Query(c.Context(), doc.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromDocument(out))
}

// Import registra el XML de una factura de proveedor como comprobante recibido.
// POST /api/documents/import
func (h *DocumentHandler) Import(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ImportXMLRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.JournalID == "" || in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "journal_id y xml son requeridos"})
	}

	// El XML llega como texto plano o en base64.
	xmlBytes := []byte(in.XML)
	if !strings.Contains(in.XML, "<") {
		decoded, err := base64.StdEncoding.DecodeString(in.XML)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml no es XML ni base64 válido"})
		}
		xmlBytes = decoded
	}

	doc, err := h.receiverUC.Import(c.Context(), edi.ImportParams{
		CompanyID: companyID,
		JournalID: in.JournalID,
		XML:       xmlBytes,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromDocument(doc))
}

// AttachXML adjunta un XML firmado a un comprobante emitido, cruzándolo
// contra lo registrado (receptor, fecha y consecutivo).
// POST /api/documents/:id/xml
func (h *DocumentHandler) AttachXML(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	var in dto.AttachXMLRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.XML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml es requerido"})
	}
	xmlBytes := []byte(in.XML)
	if !strings.Contains(in.XML, "<") {
		decoded, err := base64.StdEncoding.DecodeString(in.XML)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "xml no es XML ni base64 válido"})
		}
		xmlBytes = decoded
	}
	out, err := h.receiverUC.AttachXML(c.Context(), doc.ID, xmlBytes)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromDocument(out))
}

// ReceiverMessage firma y presenta el Mensaje Receptor de un comprobante recibido.
// POST /api/documents/:id/receiver-message
func (h *DocumentHandler) ReceiverMessage(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	var in dto.ReceiverMessageRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Response != "" && in.Response != "1" && in.Response != "2" && in.Response != "3" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "response debe ser 1 (acepta), 2 (parcial) o 3 (rechaza)"})
	}
	out, err := h.receiverUC.SendReceiverMessage(c.Context(), doc.ID, in.Response)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.FromDocument(out))
}

// DownloadXML descarga el XML firmado del comprobante.
// GET /api/documents/:id/xml
func (h *DocumentHandler) DownloadXML(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	if !doc.HasXML() {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "el comprobante aún no tiene XML generado"})
	}
	return sendXML(c, doc.XMLFilename, doc.XMLDocument)
}

// DownloadResponse descarga la respuesta XML de Hacienda (MensajeHacienda).
// GET /api/documents/:id/respuesta
func (h *DocumentHandler) DownloadResponse(c *fiber.Ctx) error {
	doc, err := h.owned(c)
	if err != nil {
		return respondDomainError(c, err)
	}
	if len(doc.ResponseXML) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "hacienda aún no ha respondido este comprobante"})
	}
	return sendXML(c, doc.ResponseFilename, doc.ResponseXML)
}

// DownloadPDF descarga la representación gráfica del comprobante.
// GET /api/documents/:id/pdf
func (h *DocumentHandler) DownloadPDF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	pdfBytes, filename, err := h.pdfUC.DownloadPDF(c.Context(), companyID, id)
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// RunBatch ejecuta manualmente la tanda que normalmente corre el scheduler:
// presenta los Mensajes Receptores pendientes y consulta los comprobantes en
// trámite.
// POST /api/documents/batch
func (h *DocumentHandler) RunBatch(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	result, err := h.batchUC.Run(c.Context(), companyID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(result)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// owned carga el comprobante de :id y verifica que pertenece a la empresa del token.
func (h *DocumentHandler) owned(c *fiber.Ctx) (*entity.Document, error) {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return nil, domain.ErrUnauthorized
	}
	id := c.Params("id")
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	doc, err := h.docUC.Get(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if doc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}

func sendXML(c *fiber.Ctx, filename string, body []byte) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	if filename != "" {
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	}
	return c.Send(body)
}

// respondDomainError traduce errores de dominio a códigos HTTP.
func respondDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrPrecondition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PRECONDITION", Message: err.Error()})
	case errors.Is(err, domain.ErrMalformedXML), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrTransport):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "HACIENDA_UNAVAILABLE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
