// Package hacienda contiene catálogos y reglas compartidas de factura
// electrónica de Costa Rica (Comprobantes Electrónicos v4.3, Ministerio de
// Hacienda).
package hacienda

// =============================================================================
// Tipos de comprobante electrónico y su código numérico dentro del
// consecutivo (posiciones 9-10 del NumeroConsecutivo de 20 dígitos).
// =============================================================================

const (
	DocTypeFE   = "FE"   // Factura Electrónica de venta
	DocTypeND   = "ND"   // Nota de Débito Electrónica
	DocTypeNC   = "NC"   // Nota de Crédito Electrónica
	DocTypeTE   = "TE"   // Tiquete Electrónico
	DocTypeCCE  = "CCE"  // Confirmación de aceptación (Mensaje Receptor)
	DocTypeCPCE = "CPCE" // Confirmación de aceptación parcial (Mensaje Receptor)
	DocTypeRCE  = "RCE"  // Confirmación de rechazo (Mensaje Receptor)
	DocTypeFEC  = "FEC"  // Factura Electrónica de Compra
	DocTypeFEE  = "FEE"  // Factura Electrónica de Exportación
)

// DocTypeCodes asigna el código de dos dígitos del consecutivo a cada tipo.
var DocTypeCodes = map[string]string{
	DocTypeFE:   "01",
	DocTypeND:   "02",
	DocTypeNC:   "03",
	DocTypeTE:   "04",
	DocTypeCCE:  "05",
	DocTypeCPCE: "06",
	DocTypeRCE:  "07",
	DocTypeFEC:  "08",
	DocTypeFEE:  "09",
}

// =============================================================================
// Estados devueltos por el API de Hacienda (ind-estado). El vocabulario es del
// ente tributario, no del sistema: se copian tal cual al documento.
// =============================================================================

const (
	StateAceptado      = "aceptado"
	StateRechazado     = "rechazado"
	StateRecibido      = "recibido"
	StateProcesando    = "procesando"
	StateError         = "error"
	StateNoAplica      = "na"
	StateNoEncontrado  = "ne"
	StateFirmaInvalida = "firma_invalida"
)

// TerminalStates estados desde los que no hay transición automática posible.
// "error" es semi-terminal: solo un reenvío manual lo saca de ahí.
var TerminalStates = map[string]bool{
	StateAceptado:      true,
	StateRechazado:     true,
	StateNoAplica:      true,
	StateFirmaInvalida: true,
}

// =============================================================================
// Respuesta del receptor (Mensaje Receptor, nodo <Mensaje>).
// =============================================================================

const (
	ReceiverAccepted          = "1" // Aceptado
	ReceiverPartiallyAccepted = "2" // Aceptado parcialmente
	ReceiverRejected          = "3" // Rechazado
)

// ReceiverMessageDocTypes tipo de comprobante MR según la clasificación elegida.
var ReceiverMessageDocTypes = map[string]string{
	ReceiverAccepted:          DocTypeCCE,
	ReceiverPartiallyAccepted: DocTypeCPCE,
	ReceiverRejected:          DocTypeRCE,
}

// ReceiverMessageLabels texto del DetalleMensaje por clasificación.
var ReceiverMessageLabels = map[string]string{
	ReceiverAccepted:          "Aceptado",
	ReceiverPartiallyAccepted: "Aceptado parcialmente",
	ReceiverRejected:          "Rechazado",
}

// =============================================================================
// Tipos de identificación (Anexos y Estructuras v4.3 - nota 6).
// =============================================================================

const (
	IDTypeCedulaFisica    = "01"
	IDTypeCedulaJuridica  = "02"
	IDTypeDIMEX           = "03"
	IDTypeNITE            = "04"
)

// =============================================================================
// Código de situación del comprobante (posición 42 de la clave).
// =============================================================================

const (
	SituationNormal      = "1"
	SituationContingency = "2"
	SituationNoInternet  = "3"
)

// =============================================================================
// Condición de venta y medios de pago (uso frecuente).
// =============================================================================

const (
	SaleConditionContado = "01"
	SaleConditionCredito = "02"

	PaymentMethodEfectivo      = "01"
	PaymentMethodTarjeta       = "02"
	PaymentMethodCheque        = "03"
	PaymentMethodTransferencia = "04"
)

// =============================================================================
// Códigos de impuesto (nota 8) y condición del impuesto en el MR.
// =============================================================================

const (
	TaxCodeIVA            = "01"
	TaxCodeSelectivo      = "02"
	TaxCodeUnicoCombustible = "03"

	// CondicionImpuesto del Mensaje Receptor: 01 = Genera crédito IVA.
	TaxConditionCredit = "01"
)

const (
	// CountryCodeCR prefijo de país de la clave (ISO numérico de Costa Rica).
	CountryCodeCR = "506"

	// DefaultCurrency moneda usada cuando el XML no trae CodigoMoneda.
	DefaultCurrency = "CRC"
)

// Unidades de medida de uso común en LineaDetalle/UnidadMedida.
const (
	UnitSp   = "Sp"  // Servicios profesionales
	UnitUnid = "Unid" // Unidad
	UnitKg   = "Kg"
	UnitL    = "L"
	UnitH    = "h"
)
