package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dirección del comprobante respecto de la empresa.
const (
	DirectionIssued   = "issued"   // Emitido por la empresa (FE, TE, NC, ND, FEE, FEC)
	DirectionReceived = "received" // Recibido de un proveedor (se responde con Mensaje Receptor)
)

// Estados internos del envío del Mensaje Receptor.
const (
	SendStatePending    = "pendiente"
	SendStateSent       = "enviado"
	SendStateProcesando = "procesando"
	SendStateError      = "error"
)

// Document representa un comprobante electrónico, emitido o recibido.
// StateTributacion usa el vocabulario de Hacienda tal cual lo devuelve el API
// (aceptado, rechazado, recibido, procesando, error, na, ne, firma_invalida).
type Document struct {
	ID        string
	CompanyID string
	JournalID string
	PartyID   string

	Direction string // issued | received
	DocType   string // FE, TE, NC, ND, FEC, FEE; en recibidos, el tipo del proveedor

	Clave        string    // Número electrónico de 50 dígitos (clave numérica)
	FullSequence string    // NumeroConsecutivo de 20 dígitos
	Date         time.Time // Fecha de emisión
	CurrencyCode string
	CurrencyRate decimal.Decimal

	ActivityCode  string // Código de actividad económica del emisor
	SaleCondition string
	PaymentMethod string
	CreditTerm    int // días de plazo cuando la condición es crédito

	// Referencia a otro comprobante (NC y ND).
	ReferenceClave   string
	ReferenceCode    string // CodigoReferencia (01 anula, 02 corrige monto, …)
	ReferenceReason  string
	ReferenceDocType string

	// Totales propios del documento.
	AmountTax   decimal.Decimal
	AmountTotal decimal.Decimal

	// Totales leídos del XML del proveedor; sirven para el cruce contra los
	// totales registrados antes de enviar el Mensaje Receptor.
	AmountTaxXML   decimal.Decimal
	AmountTotalXML decimal.Decimal

	// Ciclo de vida ante Hacienda.
	StateTributacion    string // estado del comprobante según Hacienda
	StateInvoicePartner string // respuesta del receptor: "1", "2" o "3"
	StateSendInvoice    string // estado de envío del Mensaje Receptor

	// Consecutivo de 20 dígitos del Mensaje Receptor (sucursal/terminal MR).
	ReceiverSequence string

	// Artefactos XML y sus nombres de archivo.
	XMLDocument      []byte // comprobante firmado (o recibido del proveedor)
	XMLFilename      string // "{tipo}_{clave}.xml"
	ResponseXML      []byte // respuesta de Hacienda (MensajeHacienda)
	ResponseFilename string // "respuesta_{clave}.xml"
	ReceiverXML      []byte // Mensaje Receptor firmado
	ReceiverFilename string // "ACH_{clave}-{consecutivo}.xml"

	// DetalleMensaje extraído de la respuesta de Hacienda (motivo de rechazo).
	ReturnMessage string

	Reimbursable bool // facturas de proveedor marcadas como gasto reembolsable
	Lines        []LineItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsIssued indica si el comprobante fue emitido por la empresa.
func (d *Document) IsIssued() bool { return d.Direction == DirectionIssued }

// HasXML indica si ya existe el XML del comprobante.
func (d *Document) HasXML() bool { return len(d.XMLDocument) > 0 }

// LineItem representa una línea de detalle (LineaDetalle).
type LineItem struct {
	ID         string
	DocumentID string
	LineNumber int

	Code        string // código CAByS
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal

	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountReason  string

	Subtotal decimal.Decimal // MontoTotal menos descuento
	Total    decimal.Decimal // MontoTotalLinea (con impuestos)

	// Cuenta contable asignada a la línea (importación de facturas de compra).
	AccountCode string

	Taxes []LineTax
}

// LineTax impuesto aplicado a una línea.
type LineTax struct {
	TaxID  string
	Code   string // código de impuesto de Hacienda (01 = IVA, …)
	Rate   decimal.Decimal
	Amount decimal.Decimal
}
