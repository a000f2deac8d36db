package dto

import (
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// CreateDocumentRequest body para POST /api/documents.
type CreateDocumentRequest struct {
	JournalID     string `json:"journal_id"`
	PartyID       string `json:"party_id,omitempty"` // opcional en tiquetes
	DocType       string `json:"doc_type"`           // FE, TE, NC, ND, FEC, FEE
	CurrencyCode  string `json:"currency_code,omitempty"`
	ActivityCode  string `json:"activity_code,omitempty"`
	SaleCondition string `json:"sale_condition,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	CreditTerm    int    `json:"credit_term,omitempty"`

	// Referencia a otro comprobante (NC y ND).
	ReferenceClave  string `json:"reference_clave,omitempty"`
	ReferenceCode   string `json:"reference_code,omitempty"`
	ReferenceReason string `json:"reference_reason,omitempty"`

	Lines []DocumentLineRequest `json:"lines"`
}

// DocumentLineRequest línea de detalle del comprobante.
type DocumentLineRequest struct {
	Code           string          `json:"code,omitempty"` // código CAByS
	Description    string          `json:"description"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountReason string          `json:"discount_reason,omitempty"`

	Taxes []DocumentLineTaxRequest `json:"taxes,omitempty"`
}

// DocumentLineTaxRequest impuesto aplicado a la línea.
type DocumentLineTaxRequest struct {
	Code   string          `json:"code"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// ImportXMLRequest body para POST /api/documents/import: el XML del
// proveedor tal cual llegó (el handler acepta texto plano o base64).
type ImportXMLRequest struct {
	JournalID string `json:"journal_id"`
	XML       string `json:"xml"`
}

// AttachXMLRequest body para POST /api/documents/:id/xml: el XML firmado
// del comprobante emitido (texto plano o base64).
type AttachXMLRequest struct {
	XML string `json:"xml"`
}

// ReceiverMessageRequest body para POST /api/documents/:id/receiver-message.
type ReceiverMessageRequest struct {
	Response string `json:"response" validate:"omitempty,oneof=1 2 3"` // 1 acepta, 2 parcial, 3 rechaza
}

// DocumentResponse comprobante en respuestas.
type DocumentResponse struct {
	ID           string `json:"id"`
	CompanyID    string `json:"company_id"`
	JournalID    string `json:"journal_id"`
	PartyID      string `json:"party_id,omitempty"`
	Direction    string `json:"direction"`
	DocType      string `json:"doc_type"`
	Clave        string `json:"clave,omitempty"`
	FullSequence string `json:"full_sequence,omitempty"`
	Date         string `json:"date"`
	CurrencyCode string `json:"currency_code"`

	AmountTax   decimal.Decimal `json:"amount_tax"`
	AmountTotal decimal.Decimal `json:"amount_total"`

	StateTributacion    string `json:"state_tributacion,omitempty"`
	StateInvoicePartner string `json:"state_invoice_partner,omitempty"`
	StateSendInvoice    string `json:"state_send_invoice,omitempty"`
	ReturnMessage       string `json:"return_message,omitempty"`

	XMLFilename      string `json:"xml_filename,omitempty"`
	ResponseFilename string `json:"response_filename,omitempty"`
	ReceiverFilename string `json:"receiver_filename,omitempty"`

	Lines []DocumentLineResponse `json:"lines,omitempty"`
}

// DocumentLineResponse línea de detalle en la respuesta.
type DocumentLineResponse struct {
	ID          string          `json:"id"`
	LineNumber  int             `json:"line_number"`
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Total       decimal.Decimal `json:"total"`
}

// FromDocument convierte la entidad en respuesta HTTP.
func FromDocument(doc *entity.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:                  doc.ID,
		CompanyID:           doc.CompanyID,
		JournalID:           doc.JournalID,
		PartyID:             doc.PartyID,
		Direction:           doc.Direction,
		DocType:             doc.DocType,
		Clave:               doc.Clave,
		FullSequence:        doc.FullSequence,
		Date:                doc.Date.Format("2006-01-02"),
		CurrencyCode:        doc.CurrencyCode,
		AmountTax:           doc.AmountTax,
		AmountTotal:         doc.AmountTotal,
		StateTributacion:    doc.StateTributacion,
		StateInvoicePartner: doc.StateInvoicePartner,
		StateSendInvoice:    doc.StateSendInvoice,
		ReturnMessage:       doc.ReturnMessage,
		XMLFilename:         doc.XMLFilename,
		ResponseFilename:    doc.ResponseFilename,
		ReceiverFilename:    doc.ReceiverFilename,
	}
	for _, l := range doc.Lines {
		resp.Lines = append(resp.Lines, DocumentLineResponse{
			ID:          l.ID,
			LineNumber:  l.LineNumber,
			Code:        l.Code,
			Description: l.Description,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
			Total:       l.Total,
		})
	}
	return resp
}
