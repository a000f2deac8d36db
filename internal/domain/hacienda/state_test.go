package hacienda_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
)

func receivedDoc() *entity.Document {
	return &entity.Document{
		Direction:           entity.DirectionReceived,
		Clave:               "50605032400310112345600100001010000000042112345678",
		StateTributacion:    "",
		StateInvoicePartner: hcat.ReceiverAccepted,
		AmountTotal:         dec("1000.00"),
		AmountTotalXML:      dec("1000.00"),
	}
}

func TestGuardReceiverMessage_EstadoTerminalProhibido(t *testing.T) {
	// El trámite del Mensaje Receptor vive en el estado de envío.
	for _, state := range []string{hcat.StateAceptado, hcat.StateRechazado, hcat.StateNoAplica} {
		doc := receivedDoc()
		doc.StateSendInvoice = state

		err := hacienda.GuardReceiverMessage(doc, "001", "00001")
		require.Error(t, err, "estado %s no admite reenvío", state)
		assert.ErrorIs(t, err, domain.ErrPrecondition)
	}
}

func TestGuardReceiverMessage_ToleranciaDeTotales(t *testing.T) {
	doc := receivedDoc()
	doc.AmountTotalXML = dec("1001.00") // diferencia exactamente 1: dentro de tolerancia
	assert.NoError(t, hacienda.GuardReceiverMessage(doc, "001", "00001"))

	doc.AmountTotalXML = dec("1001.01") // fuera de tolerancia
	err := hacienda.GuardReceiverMessage(doc, "001", "00001")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestGuardReceiverMessage_CamposObligatorios(t *testing.T) {
	doc := receivedDoc()
	doc.StateInvoicePartner = ""
	var mf *domain.MissingFieldError
	err := hacienda.GuardReceiverMessage(doc, "001", "00001")
	require.Error(t, err)
	assert.True(t, errors.As(err, &mf), "falta la respuesta del receptor")

	doc = receivedDoc()
	err = hacienda.GuardReceiverMessage(doc, "", "00001")
	require.Error(t, err)
	assert.True(t, errors.As(err, &mf), "falta la sucursal MR")

	err = hacienda.GuardReceiverMessage(doc, "001", "")
	require.Error(t, err)
	assert.True(t, errors.As(err, &mf), "falta la terminal MR")
}

func TestApplySubmitResponse(t *testing.T) {
	doc := entity.Document{Direction: entity.DirectionIssued, DocType: "FE"}

	out := hacienda.ApplySubmitResponse(doc, 202, "")
	assert.Equal(t, hcat.StateProcesando, out.StateTributacion, "2xx deja el comprobante en procesando")

	out = hacienda.ApplySubmitResponse(doc, 400, "el comprobante con clave X ya fue recibido anteriormente")
	assert.Equal(t, hcat.StateProcesando, out.StateTributacion, "clave ya presentada no es un error")

	out = hacienda.ApplySubmitResponse(doc, 400, "XML inválido")
	assert.Equal(t, hcat.StateError, out.StateTributacion)
	assert.Equal(t, "XML inválido", out.ReturnMessage, "el cuerpo queda como motivo")
}

func TestApplySubmitResponse_FacturaCompra(t *testing.T) {
	// La FEC, aun emitida, transita por el estado de envío.
	doc := entity.Document{Direction: entity.DirectionIssued, DocType: "FEC"}

	out := hacienda.ApplySubmitResponse(doc, 202, "")
	assert.Equal(t, hcat.StateProcesando, out.StateSendInvoice)
	assert.Empty(t, out.StateTributacion)

	out = hacienda.ApplySubmitResponse(doc, 400, "XML inválido")
	assert.Equal(t, hcat.StateError, out.StateSendInvoice)
	assert.Empty(t, out.StateTributacion)
}

func TestApplyStatusResponse(t *testing.T) {
	doc := entity.Document{
		Direction: entity.DirectionIssued,
		DocType:   "FE",
		Clave:     "50605032400310112345600100001010000000042112345678",
	}

	// ind-estado se copia tal cual, incluso valores nuevos del API.
	out, changed := hacienda.ApplyStatusResponse(doc, 200, "aceptado", []byte("<resp/>"))
	assert.True(t, changed)
	assert.Equal(t, "aceptado", out.StateTributacion)
	assert.Equal(t, []byte("<resp/>"), out.ResponseXML)
	assert.Equal(t, "respuesta_"+doc.Clave+".xml", out.ResponseFilename)

	out, changed = hacienda.ApplyStatusResponse(doc, 400, "", nil)
	assert.True(t, changed)
	assert.Equal(t, hcat.StateNoEncontrado, out.StateTributacion, "400 marca no encontrado")

	out, changed = hacienda.ApplyStatusResponse(doc, 500, "", nil)
	assert.False(t, changed, "otros estados HTTP no modifican el documento")
	assert.Empty(t, out.StateTributacion)
}

func TestApplyStatusResponse_MensajeReceptor(t *testing.T) {
	doc := *receivedDoc()
	doc.ReceiverSequence = "00200002050000000001"

	out, changed := hacienda.ApplyStatusResponse(doc, 200, "aceptado", []byte("<resp/>"))
	assert.True(t, changed)
	assert.Equal(t, "aceptado", out.StateSendInvoice, "el trámite del MR vive en el estado de envío")
	assert.Empty(t, out.StateTributacion)
	assert.Equal(t, "ACH_"+doc.Clave+"-00200002050000000001.xml", out.ResponseFilename,
		"la respuesta se archiva con el nombre del acuse")

	out, changed = hacienda.ApplyStatusResponse(doc, 400, "", nil)
	assert.True(t, changed)
	assert.Equal(t, hcat.StateNoEncontrado, out.StateSendInvoice)
}

func TestGuardSubmit(t *testing.T) {
	doc := &entity.Document{
		Direction:        entity.DirectionIssued,
		DocType:          "FE",
		Clave:            "50605032400310112345600100001010000000042112345678",
		XMLDocument:      []byte("<FacturaElectronica/>"),
		StateTributacion: "",
	}
	assert.NoError(t, hacienda.GuardSubmit(doc))

	doc.StateTributacion = hcat.StateAceptado
	assert.ErrorIs(t, hacienda.GuardSubmit(doc), domain.ErrPrecondition)

	doc.StateTributacion = ""
	doc.XMLDocument = nil
	assert.Error(t, hacienda.GuardSubmit(doc), "sin XML no hay envío")
}

func TestNombresDeArchivo(t *testing.T) {
	clave := "50605032400310112345600100001010000000042112345678"
	assert.Equal(t, "FE_"+clave+".xml", hacienda.XMLFilename("FE", clave))
	assert.Equal(t, "respuesta_"+clave+".xml", hacienda.ResponseFilename(clave))
	assert.Equal(t, "ACH_"+clave+"-00100001050000000007.xml", hacienda.ReceiverFilename(clave, "00100001050000000007"))
	assert.Equal(t, clave+"-00100001050000000007", hacienda.ReceiverCompositeKey(clave, "00100001050000000007"))
}
