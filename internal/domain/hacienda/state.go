package hacienda

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/pkg/hacienda"
)

// TotalTolerance diferencia máxima admitida entre el total del XML del
// proveedor y el total registrado antes de responder con el Mensaje Receptor.
// Absorbe redondeos distintos entre sistemas emisores.
var TotalTolerance = decimal.NewFromInt(1)

// alreadyReceivedFragment texto con el que Hacienda indica que la clave ya
// fue presentada; en ese caso el estado pasa a procesando, no a error.
const alreadyReceivedFragment = "ya fue recibido anteriormente"

// IsTerminal indica si desde el estado no hay transición automática posible.
func IsTerminal(state string) bool {
	return hacienda.TerminalStates[state]
}

// TracksSendState indica si el ciclo de vida del documento se asienta en el
// estado de envío (StateSendInvoice) en lugar del estado de tributación:
// aplica a los comprobantes recibidos y a la factura electrónica de compra.
func TracksSendState(doc *entity.Document) bool {
	return !doc.IsIssued() || doc.DocType == hacienda.DocTypeFEC
}

// LifecycleState devuelve el estado sobre el que transcurre el ciclo del
// documento según TracksSendState.
func LifecycleState(doc *entity.Document) string {
	if TracksSendState(doc) {
		return doc.StateSendInvoice
	}
	return doc.StateTributacion
}

func setLifecycleState(doc *entity.Document, state string) {
	if TracksSendState(doc) {
		doc.StateSendInvoice = state
	} else {
		doc.StateTributacion = state
	}
}

// GuardReceiverMessage valida que el documento recibido esté en condiciones
// de generar y enviar su Mensaje Receptor. Devuelve el primer impedimento.
func GuardReceiverMessage(doc *entity.Document, branchMR, terminalMR string) error {
	switch doc.StateSendInvoice {
	case hacienda.StateAceptado, hacienda.StateRechazado, hacienda.StateNoAplica:
		return fmt.Errorf("%w: el comprobante ya fue %s", domain.ErrPrecondition, doc.StateSendInvoice)
	}
	if doc.StateInvoicePartner == "" {
		return &domain.MissingFieldError{Field: "respuesta del receptor"}
	}
	if _, ok := hacienda.ReceiverMessageDocTypes[doc.StateInvoicePartner]; !ok {
		return fmt.Errorf("%w: respuesta del receptor desconocida: %q", domain.ErrInvalidInput, doc.StateInvoicePartner)
	}
	if branchMR == "" {
		return &domain.MissingFieldError{Field: "sucursal para mensaje receptor"}
	}
	if terminalMR == "" {
		return &domain.MissingFieldError{Field: "terminal para mensaje receptor"}
	}
	if doc.AmountTotalXML.Sub(doc.AmountTotal).Abs().GreaterThan(TotalTolerance) {
		return fmt.Errorf("%w: el total del xml (%s) difiere del total registrado (%s) en más de %s",
			domain.ErrPrecondition,
			doc.AmountTotalXML.StringFixed(2),
			doc.AmountTotal.StringFixed(2),
			TotalTolerance.StringFixed(0))
	}
	return nil
}

// GuardSubmit valida que un comprobante emitido pueda enviarse a Hacienda.
func GuardSubmit(doc *entity.Document) error {
	if IsTerminal(LifecycleState(doc)) {
		return fmt.Errorf("%w: el comprobante ya fue %s", domain.ErrPrecondition, LifecycleState(doc))
	}
	if !doc.HasXML() {
		return &domain.MissingFieldError{Field: "xml del comprobante"}
	}
	if err := ValidateClave(doc.Clave); err != nil {
		return err
	}
	return nil
}

// ApplySubmitResponse traduce la respuesta HTTP de la recepción al estado del
// documento. Cualquier 2xx deja el comprobante en procesando; un rechazo cuyo
// cuerpo indica que la clave ya fue presentada también queda en procesando;
// el resto queda en error con el cuerpo como motivo. La transición se asienta
// en el estado que rige el ciclo del documento: tributación para los
// comprobantes emitidos, envío para la factura de compra.
func ApplySubmitResponse(doc entity.Document, status int, body string) entity.Document {
	switch {
	case status >= 200 && status < 300:
		setLifecycleState(&doc, hacienda.StateProcesando)
	case strings.Contains(body, alreadyReceivedFragment):
		setLifecycleState(&doc, hacienda.StateProcesando)
	default:
		setLifecycleState(&doc, hacienda.StateError)
		doc.ReturnMessage = body
	}
	return doc
}

// ApplyStatusResponse traduce la consulta de estado al documento. El valor de
// ind-estado se copia tal cual sobre el estado que rige el ciclo del
// documento. Un 400 marca el comprobante como no encontrado (ne); cualquier
// otro estado HTTP inesperado no modifica nada y el segundo retorno queda en
// false para que el llamador solo registre el incidente. La respuesta de un
// Mensaje Receptor en trámite se archiva con su nombre ACH.
func ApplyStatusResponse(doc entity.Document, httpStatus int, indEstado string, responseXML []byte) (entity.Document, bool) {
	switch {
	case httpStatus == 200:
		setLifecycleState(&doc, indEstado)
		if len(responseXML) > 0 {
			doc.ResponseXML = responseXML
			if doc.ReceiverSequence != "" {
				doc.ResponseFilename = ReceiverFilename(doc.Clave, doc.ReceiverSequence)
			} else {
				doc.ResponseFilename = ResponseFilename(doc.Clave)
			}
		}
		return doc, true
	case httpStatus == 400:
		setLifecycleState(&doc, hacienda.StateNoEncontrado)
		return doc, true
	default:
		return doc, false
	}
}

// ApplyReceiverSubmitResponse igual que ApplySubmitResponse pero sobre el
// estado de envío del Mensaje Receptor.
func ApplyReceiverSubmitResponse(doc entity.Document, status int, body string) entity.Document {
	switch {
	case status >= 200 && status < 300:
		doc.StateSendInvoice = hacienda.StateProcesando
	case strings.Contains(body, alreadyReceivedFragment):
		doc.StateSendInvoice = hacienda.StateProcesando
	default:
		doc.StateSendInvoice = hacienda.StateError
		doc.ReturnMessage = body
	}
	return doc
}

// XMLFilename nombre de archivo del comprobante: "{tipo}_{clave}.xml".
func XMLFilename(docType, clave string) string {
	return fmt.Sprintf("%s_%s.xml", docType, clave)
}

// ResponseFilename nombre del archivo de respuesta de Hacienda.
func ResponseFilename(clave string) string {
	return fmt.Sprintf("respuesta_%s.xml", clave)
}

// ReceiverFilename nombre del archivo del Mensaje Receptor:
// "ACH_{clave}-{consecutivo}.xml".
func ReceiverFilename(clave, receiverSequence string) string {
	return fmt.Sprintf("ACH_%s-%s.xml", clave, receiverSequence)
}

// ReceiverCompositeKey clave compuesta con la que se consulta el estado de un
// Mensaje Receptor: "{clave}-{consecutivo}".
func ReceiverCompositeKey(clave, receiverSequence string) string {
	return fmt.Sprintf("%s-%s", clave, receiverSequence)
}
