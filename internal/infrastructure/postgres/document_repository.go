package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository sobre PostgreSQL
// (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, company_id, journal_id, party_id, direction, doc_type,
	COALESCE(clave, ''), COALESCE(full_sequence, ''), date,
	currency_code, currency_rate,
	COALESCE(activity_code, ''), COALESCE(sale_condition, ''),
	COALESCE(payment_method, ''), credit_term,
	COALESCE(reference_clave, ''), COALESCE(reference_code, ''),
	COALESCE(reference_reason, ''), COALESCE(reference_doc_type, ''),
	amount_tax, amount_total, amount_tax_xml, amount_total_xml,
	COALESCE(state_tributacion, ''), COALESCE(state_invoice_partner, ''),
	COALESCE(state_send_invoice, ''), COALESCE(receiver_sequence, ''),
	xml_document, COALESCE(xml_filename, ''),
	response_xml, COALESCE(response_filename, ''),
	receiver_xml, COALESCE(receiver_filename, ''),
	COALESCE(return_message, ''), reimbursable, created_at, updated_at`

// Create persiste la cabecera del comprobante.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	query := `
		INSERT INTO documents (
			id, company_id, journal_id, party_id, direction, doc_type,
			clave, full_sequence, date, currency_code, currency_rate,
			activity_code, sale_condition, payment_method, credit_term,
			reference_clave, reference_code, reference_reason, reference_doc_type,
			amount_tax, amount_total, amount_tax_xml, amount_total_xml,
			state_tributacion, state_invoice_partner, state_send_invoice,
			receiver_sequence, xml_document, xml_filename,
			response_xml, response_filename, receiver_xml, receiver_filename,
			return_message, reimbursable, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33, $34, $35, $36, $37
		)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.JournalID, nullIfEmpty(doc.PartyID),
		doc.Direction, doc.DocType,
		nullIfEmpty(doc.Clave), nullIfEmpty(doc.FullSequence), doc.Date,
		doc.CurrencyCode, doc.CurrencyRate,
		nullIfEmpty(doc.ActivityCode), nullIfEmpty(doc.SaleCondition),
		nullIfEmpty(doc.PaymentMethod), doc.CreditTerm,
		nullIfEmpty(doc.ReferenceClave), nullIfEmpty(doc.ReferenceCode),
		nullIfEmpty(doc.ReferenceReason), nullIfEmpty(doc.ReferenceDocType),
		doc.AmountTax, doc.AmountTotal, doc.AmountTaxXML, doc.AmountTotalXML,
		nullIfEmpty(doc.StateTributacion), nullIfEmpty(doc.StateInvoicePartner),
		nullIfEmpty(doc.StateSendInvoice), nullIfEmpty(doc.ReceiverSequence),
		doc.XMLDocument, nullIfEmpty(doc.XMLFilename),
		doc.ResponseXML, nullIfEmpty(doc.ResponseFilename),
		doc.ReceiverXML, nullIfEmpty(doc.ReceiverFilename),
		nullIfEmpty(doc.ReturnMessage), doc.Reimbursable,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave %s", domain.ErrDuplicate, doc.Clave)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de detalle con sus impuestos.
func (r *DocumentRepo) CreateLine(ctx context.Context, line *entity.LineItem) error {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	query := `
		INSERT INTO document_lines (
			id, document_id, line_number, code, description, unit,
			quantity, unit_price, discount_amount, discount_percent,
			discount_reason, subtotal, total, account_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.DocumentID, line.LineNumber,
		nullIfEmpty(line.Code), line.Description, line.Unit,
		line.Quantity, line.UnitPrice, line.DiscountAmount, line.DiscountPercent,
		nullIfEmpty(line.DiscountReason), line.Subtotal, line.Total,
		nullIfEmpty(line.AccountCode),
	)
	if err != nil {
		return fmt.Errorf("insert document line: %w", err)
	}
	for _, tax := range line.Taxes {
		_, err := r.q.Exec(ctx, `
			INSERT INTO document_line_taxes (line_id, tax_id, code, rate, amount)
			VALUES ($1, $2, $3, $4, $5)`,
			line.ID, nullIfEmpty(tax.TaxID), tax.Code, tax.Rate, tax.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert line tax: %w", err)
		}
	}
	return nil
}

// Update persiste todos los campos del ciclo de vida del comprobante:
// consecutivo, clave, estados, XML generados y respuesta de Hacienda.
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents
		SET clave                 = COALESCE($2,  clave),
		    full_sequence         = COALESCE($3,  full_sequence),
		    state_tributacion     = $4,
		    state_invoice_partner = $5,
		    state_send_invoice    = $6,
		    receiver_sequence     = COALESCE($7,  receiver_sequence),
		    xml_document          = $8,
		    xml_filename          = COALESCE($9,  xml_filename),
		    response_xml          = $10,
		    response_filename     = COALESCE($11, response_filename),
		    receiver_xml          = $12,
		    receiver_filename     = COALESCE($13, receiver_filename),
		    return_message        = $14,
		    updated_at            = $15
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		doc.ID,
		nullIfEmpty(doc.Clave),
		nullIfEmpty(doc.FullSequence),
		nullIfEmpty(doc.StateTributacion),
		nullIfEmpty(doc.StateInvoicePartner),
		nullIfEmpty(doc.StateSendInvoice),
		nullIfEmpty(doc.ReceiverSequence),
		doc.XMLDocument,
		nullIfEmpty(doc.XMLFilename),
		doc.ResponseXML,
		nullIfEmpty(doc.ResponseFilename),
		doc.ReceiverXML,
		nullIfEmpty(doc.ReceiverFilename),
		nullIfEmpty(doc.ReturnMessage),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera del comprobante (las líneas se piden aparte
// con GetLines; las consultas de estado no las necesitan).
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByClave busca un comprobante por clave dentro de la empresa.
func (r *DocumentRepo) GetByClave(ctx context.Context, companyID, clave string) (*entity.Document, error) {
	query := `SELECT` + documentColumns + ` FROM documents WHERE company_id = $1 AND clave = $2`
	doc, err := scanDocument(r.q.QueryRow(ctx, query, companyID, clave))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document by clave: %w", err)
	}
	return doc, nil
}

// GetLines obtiene las líneas de detalle del comprobante con sus impuestos.
func (r *DocumentRepo) GetLines(ctx context.Context, documentID string) ([]*entity.LineItem, error) {
	query := `
		SELECT id, document_id, line_number, COALESCE(code, ''), description,
		       unit, quantity, unit_price, discount_amount, discount_percent,
		       COALESCE(discount_reason, ''), subtotal, total, COALESCE(account_code, '')
		FROM document_lines WHERE document_id = $1 ORDER BY line_number`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.LineItem
	for rows.Next() {
		var l entity.LineItem
		if err := rows.Scan(
			&l.ID, &l.DocumentID, &l.LineNumber, &l.Code, &l.Description,
			&l.Unit, &l.Quantity, &l.UnitPrice, &l.DiscountAmount, &l.DiscountPercent,
			&l.DiscountReason, &l.Subtotal, &l.Total, &l.AccountCode,
		); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, line := range lines {
		taxes, err := r.lineTaxes(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		line.Taxes = taxes
	}
	return lines, nil
}

// List devuelve los comprobantes que cumplen el filtro, los más antiguos
// primero. Es la consulta de las corridas por lote.
func (r *DocumentRepo) List(ctx context.Context, filter repository.DocumentFilter) ([]*entity.Document, error) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CompanyID != "" {
		where = append(where, "company_id = "+arg(filter.CompanyID))
	}
	if filter.Direction != "" {
		where = append(where, "direction = "+arg(filter.Direction))
	}
	if len(filter.States) > 0 {
		where = append(where, "state_tributacion = ANY("+arg(filter.States)+")")
	}
	if len(filter.SendStates) > 0 {
		where = append(where, "state_send_invoice = ANY("+arg(filter.SendStates)+")")
	}
	if filter.WithXMLOnly {
		where = append(where, "xml_document IS NOT NULL")
	}

	query := `SELECT` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) lineTaxes(ctx context.Context, lineID string) ([]entity.LineTax, error) {
	rows, err := r.q.Query(ctx, `
		SELECT COALESCE(tax_id, ''), code, rate, amount
		FROM document_line_taxes WHERE line_id = $1`, lineID)
	if err != nil {
		return nil, fmt.Errorf("list line taxes: %w", err)
	}
	defer rows.Close()

	var taxes []entity.LineTax
	for rows.Next() {
		var t entity.LineTax
		if err := rows.Scan(&t.TaxID, &t.Code, &t.Rate, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan line tax: %w", err)
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

// scanDocument funciona con QueryRow y con rows de Query.
func scanDocument(row interface{ Scan(dest ...any) error }) (*entity.Document, error) {
	var d entity.Document
	var partyID *string
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.JournalID, &partyID, &d.Direction, &d.DocType,
		&d.Clave, &d.FullSequence, &d.Date,
		&d.CurrencyCode, &d.CurrencyRate,
		&d.ActivityCode, &d.SaleCondition,
		&d.PaymentMethod, &d.CreditTerm,
		&d.ReferenceClave, &d.ReferenceCode,
		&d.ReferenceReason, &d.ReferenceDocType,
		&d.AmountTax, &d.AmountTotal, &d.AmountTaxXML, &d.AmountTotalXML,
		&d.StateTributacion, &d.StateInvoicePartner,
		&d.StateSendInvoice, &d.ReceiverSequence,
		&d.XMLDocument, &d.XMLFilename,
		&d.ResponseXML, &d.ResponseFilename,
		&d.ReceiverXML, &d.ReceiverFilename,
		&d.ReturnMessage, &d.Reimbursable, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.PartyID = derefStr(partyID)
	return &d, nil
}
