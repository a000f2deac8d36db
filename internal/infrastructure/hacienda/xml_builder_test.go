package hacienda_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleIssuer() infra.PartyInfo {
	return infra.PartyInfo{
		Name:           "Servicios Ticos S.A.",
		TradeName:      "ServiTicos",
		IDType:         "02",
		Identification: "3101123456",
		Email:          "facturas@serviticos.cr",
		Phone:          "22123456",
		Province:       "1",
		Canton:         "01",
		District:       "01",
	}
}

func sampleReceiver() infra.PartyInfo {
	return infra.PartyInfo{
		Name:           "Comercial El Roble Ltda.",
		IDType:         "02",
		Identification: "3102987654",
		Email:          "pagos@elroble.cr",
	}
}

func sampleDocument(docType string) *entity.Document {
	return &entity.Document{
		DocType:       docType,
		Clave:         "50605032400310112345600100001010000000042112345678",
		FullSequence:  "00100001010000000042",
		Date:          time.Date(2024, time.March, 5, 10, 30, 0, 0, time.FixedZone("CST", -6*3600)),
		ActivityCode:  "620100",
		CurrencyCode:  "CRC",
		SaleCondition: "01",
		PaymentMethod: "04",
		AmountTax:     dec("130.00"),
		AmountTotal:   dec("1130.00"),
		Lines: []entity.LineItem{
			{
				Code:        "8399000000000",
				Description: "Consultoría de software",
				Unit:        "Sp",
				Quantity:    dec("1"),
				UnitPrice:   dec("1000.00"),
				Subtotal:    dec("1000.00"),
				Total:       dec("1130.00"),
				Taxes: []entity.LineTax{
					{Code: "01", Rate: dec("13"), Amount: dec("130.00")},
				},
			},
		},
	}
}

func TestBuild_FacturaElectronica(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	xmlBytes, err := builder.Build(&infra.BuildContext{
		Document: sampleDocument("FE"),
		Issuer:   sampleIssuer(),
		Receiver: sampleReceiver(),
	})
	require.NoError(t, err)

	out := string(xmlBytes)
	assert.Contains(t, out, "<FacturaElectronica")
	assert.Contains(t, out, `xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica"`)
	assert.Contains(t, out, "<Clave>50605032400310112345600100001010000000042112345678</Clave>")
	assert.Contains(t, out, "<NumeroConsecutivo>00100001010000000042</NumeroConsecutivo>")
	assert.Contains(t, out, "<CodigoActividad>620100</CodigoActividad>")
	assert.Contains(t, out, "<FechaEmision>2024-03-05T10:30:00-06:00</FechaEmision>")
	assert.Contains(t, out, "<CodigoTarifa>08</CodigoTarifa>", "IVA 13% usa código de tarifa 08")
	assert.Contains(t, out, "<TotalComprobante>1130.00000</TotalComprobante>")

	// Emisor y receptor en el orden del esquema.
	emisorIdx := strings.Index(out, "<Emisor>")
	receptorIdx := strings.Index(out, "<Receptor>")
	require.True(t, emisorIdx >= 0 && receptorIdx >= 0)
	assert.Less(t, emisorIdx, receptorIdx)
}

func TestBuild_TelefonoInvalidoNoGeneraXML(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	issuer := sampleIssuer()
	issuer.Phone = "1234"
	_, err := builder.Build(&infra.BuildContext{
		Document: sampleDocument("FE"),
		Issuer:   issuer,
		Receiver: sampleReceiver(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	var invalid *domain.InvalidPhoneError
	assert.True(t, errors.As(err, &invalid))

	receiver := sampleReceiver()
	receiver.Phone = "1234"
	_, err = builder.Build(&infra.BuildContext{
		Document: sampleDocument("FE"),
		Issuer:   sampleIssuer(),
		Receiver: receiver,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuild_RaicesPorTipo(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	roots := map[string]string{
		"FE":  "FacturaElectronica",
		"TE":  "TiqueteElectronico",
		"NC":  "NotaCreditoElectronica",
		"ND":  "NotaDebitoElectronica",
		"FEC": "FacturaElectronicaCompra",
		"FEE": "FacturaElectronicaExportacion",
	}
	for docType, root := range roots {
		doc := sampleDocument(docType)
		xmlBytes, err := builder.Build(&infra.BuildContext{
			Document: doc,
			Issuer:   sampleIssuer(),
			Receiver: sampleReceiver(),
		})
		require.NoError(t, err, "tipo %s", docType)
		assert.Contains(t, string(xmlBytes), "<"+root, "raíz del tipo %s", docType)
	}

	_, err := builder.Build(&infra.BuildContext{Document: sampleDocument("ZZ")})
	assert.Error(t, err, "tipo sin esquema debe fallar")
}

func TestBuild_TiqueteSinReceptor(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	xmlBytes, err := builder.Build(&infra.BuildContext{
		Document: sampleDocument("TE"),
		Issuer:   sampleIssuer(),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(xmlBytes), "<Receptor>", "el tiquete admite omitir el receptor")
}

func TestBuild_NotaCreditoConReferencia(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	doc := sampleDocument("NC")
	doc.ReferenceClave = "50601012400310112345600100001010000000001112345678"
	doc.ReferenceDocType = "FE"
	doc.ReferenceCode = "01"
	doc.ReferenceReason = "Anulación de la factura"

	xmlBytes, err := builder.Build(&infra.BuildContext{
		Document: doc,
		Issuer:   sampleIssuer(),
		Receiver: sampleReceiver(),
	})
	require.NoError(t, err)

	out := string(xmlBytes)
	assert.Contains(t, out, "<InformacionReferencia>")
	assert.Contains(t, out, "<TipoDoc>01</TipoDoc>")
	assert.Contains(t, out, "<Numero>"+doc.ReferenceClave+"</Numero>")
	assert.Contains(t, out, "<Razon>Anulación de la factura</Razon>")
}

// El XML construido debe poder releerse con el parser propio: el formato que
// emitimos es el mismo que aceptamos de proveedores.
func TestBuild_RoundTripConParser(t *testing.T) {
	builder := infra.NewXMLBuilderService()
	parser := infra.NewXMLParserService()

	doc := sampleDocument("FE")
	xmlBytes, err := builder.Build(&infra.BuildContext{
		Document: doc,
		Issuer:   sampleIssuer(),
		Receiver: sampleReceiver(),
	})
	require.NoError(t, err)

	parsed, err := parser.Parse(xmlBytes)
	require.NoError(t, err, "el XML emitido debe ser legible por el parser")

	assert.Equal(t, doc.Clave, parsed.Clave)
	assert.Equal(t, "FE", parsed.DocType)
	assert.Equal(t, "3101123456", parsed.IssuerID)
	assert.Equal(t, "3102987654", parsed.ReceiverID)
	assert.Equal(t, "CRC", parsed.CurrencyCode)
	assert.Equal(t, "1130.00000", parsed.AmountTotal)
	assert.Equal(t, "130.00000", parsed.AmountTax)
	require.Len(t, parsed.Lines, 1)
	assert.Equal(t, "Consultoría de software", parsed.Lines[0].Description)
	require.Len(t, parsed.Lines[0].Taxes, 1)
	assert.Equal(t, "01", parsed.Lines[0].Taxes[0].Code)
	assert.True(t, doc.Date.Equal(parsed.IssueDate))
}

func TestBuildReceiverMessage(t *testing.T) {
	builder := infra.NewXMLBuilderService()

	doc := sampleDocument("FE")
	doc.StateInvoicePartner = "1"
	doc.AmountTaxXML = dec("130.00")
	doc.AmountTotalXML = dec("1130.00")

	xmlBytes, err := builder.BuildReceiverMessage(&infra.ReceiverMessageContext{
		Document:         doc,
		IssuerID:         "3101123456",
		ReceiverID:       "3102987654",
		ActivityCode:     "620100",
		TaxCondition:     "01",
		ReceiverSequence: "00200002050000000007",
	})
	require.NoError(t, err)

	out := string(xmlBytes)
	assert.Contains(t, out, "<MensajeReceptor")
	assert.Contains(t, out, `xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/mensajeReceptor"`)
	assert.Contains(t, out, "<Mensaje>1</Mensaje>")
	assert.Contains(t, out, "<DetalleMensaje>Aceptado</DetalleMensaje>")
	assert.Contains(t, out, "<MontoTotalImpuesto>130.00000</MontoTotalImpuesto>")
	assert.Contains(t, out, "<TotalFactura>1130.00000</TotalFactura>")
	assert.Contains(t, out, "<NumeroConsecutivoReceptor>00200002050000000007</NumeroConsecutivoReceptor>")

	doc.StateInvoicePartner = "9"
	_, err = builder.BuildReceiverMessage(&infra.ReceiverMessageContext{Document: doc})
	assert.Error(t, err, "clasificación desconocida debe fallar")
}
