package hacienda_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/domain"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
)

const testClave = "50605032400310112345600100001010000000042112345678"

// supplierXML arma una factura de proveedor mínima con namespace por defecto,
// como la producen los emisores reales.
func supplierXML(fechaEmision, extraLinea, extraResumen string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Clave>%s</Clave>
  <NumeroConsecutivo>00100001010000000042</NumeroConsecutivo>
  <FechaEmision>%s</FechaEmision>
  <Emisor>
    <Nombre>Proveedor S.A.</Nombre>
    <Identificacion><Tipo>02</Tipo><Numero>3101123456</Numero></Identificacion>
    <CorreoElectronico>fact@proveedor.cr</CorreoElectronico>
  </Emisor>
  <Receptor>
    <Nombre>Mi Empresa</Nombre>
    <Identificacion><Tipo>02</Tipo><Numero>3102987654</Numero></Identificacion>
  </Receptor>
  <DetalleServicio>
    <LineaDetalle>
      <NumeroLinea>1</NumeroLinea>
      <Cantidad>2.000</Cantidad>
      <UnidadMedida>Unid</UnidadMedida>
      <Detalle>Resmas de papel</Detalle>
      <PrecioUnitario>500.00000</PrecioUnitario>
      <MontoTotal>1000.00000</MontoTotal>
      %s
      <SubTotal>1000.00000</SubTotal>
      <Impuesto>
        <Codigo>01</Codigo>
        <CodigoTarifa>08</CodigoTarifa>
        <Tarifa>13.00</Tarifa>
        <Monto>130.00000</Monto>
      </Impuesto>
      <MontoTotalLinea>1130.00000</MontoTotalLinea>
    </LineaDetalle>
  </DetalleServicio>
  <ResumenFactura>
    %s
    <TotalImpuesto>130.00000</TotalImpuesto>
    <TotalComprobante>1130.00000</TotalComprobante>
  </ResumenFactura>
</FacturaElectronica>`, testClave, fechaEmision, extraLinea, extraResumen))
}

func TestParse_FacturaDeProveedor(t *testing.T) {
	parser := infra.NewXMLParserService()

	inv, err := parser.Parse(supplierXML("2024-03-05T10:30:00-06:00", "",
		"<CodigoTipoMoneda><CodigoMoneda>USD</CodigoMoneda><TipoCambio>520.00000</TipoCambio></CodigoTipoMoneda>"))
	require.NoError(t, err)

	assert.Equal(t, testClave, inv.Clave)
	assert.Equal(t, "FE", inv.DocType, "el tipo se deduce de la clave")
	assert.Equal(t, "3101123456", inv.IssuerID)
	assert.Equal(t, "Proveedor S.A.", inv.IssuerName)
	assert.Equal(t, "fact@proveedor.cr", inv.IssuerEmail)
	assert.Equal(t, "3102987654", inv.ReceiverID)
	assert.Equal(t, "USD", inv.CurrencyCode)
	assert.Equal(t, "1130.00000", inv.AmountTotal)
	assert.Equal(t, "130.00000", inv.AmountTax)

	require.Len(t, inv.Lines, 1)
	line := inv.Lines[0]
	assert.Equal(t, 1, line.LineNumber)
	assert.Equal(t, "2.000", line.Quantity)
	assert.Equal(t, "Unid", line.Unit)
	require.Len(t, line.Taxes, 1)
	assert.Equal(t, "01", line.Taxes[0].Code)
	assert.Equal(t, "13.00", line.Taxes[0].Rate)
}

func TestParse_MonedaPorDefectoCRC(t *testing.T) {
	parser := infra.NewXMLParserService()

	inv, err := parser.Parse(supplierXML("2024-03-05T10:30:00-06:00", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "CRC", inv.CurrencyCode, "sin CodigoMoneda se asume CRC")
}

func TestParse_NodosFaltantesSeReportanTodos(t *testing.T) {
	parser := infra.NewXMLParserService()

	raw := []byte(`<?xml version="1.0"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Emisor><Nombre>Sin identificación</Nombre></Emisor>
</FacturaElectronica>`)

	_, err := parser.Parse(raw)
	require.Error(t, err)

	var missing *domain.MissingNodesError
	require.True(t, errors.As(err, &missing))
	assert.ErrorIs(t, err, domain.ErrMalformedXML)
	// Todos los faltantes de una sola vez, no solo el primero.
	assert.Contains(t, missing.Nodes, "Clave")
	assert.Contains(t, missing.Nodes, "FechaEmision")
	assert.Contains(t, missing.Nodes, "Emisor/Identificacion/Numero")
	assert.Contains(t, missing.Nodes, "Receptor/Identificacion/Numero")
	assert.Contains(t, missing.Nodes, "ResumenFactura/TotalComprobante")
}

func TestParse_FormatosDeFecha(t *testing.T) {
	parser := infra.NewXMLParserService()

	cases := []string{
		"2024-03-05T10:30:00-06:00",
		"2024-03-05T10:30:00",
		"2024-03-05T10:30:00.123456",
		"2024-03-05T10:30:00.1234567890123-06:00", // fracción más larga que nanosegundos
	}
	for _, value := range cases {
		inv, err := parser.Parse(supplierXML(value, "", ""))
		require.NoError(t, err, "fecha %q", value)
		assert.Equal(t, 2024, inv.IssueDate.Year())
		assert.Equal(t, 5, inv.IssueDate.Day())
	}

	_, err := parser.Parse(supplierXML("05/03/2024", "", ""))
	require.Error(t, err)
	var invalid *domain.InvalidDateError
	assert.True(t, errors.As(err, &invalid))
}

func TestParse_DescuentoAnidadoTienePrecedencia(t *testing.T) {
	parser := infra.NewXMLParserService()

	// Nodo Descuento y MontoDescuento plano a la vez: manda el anidado.
	extra := `<MontoDescuento>50.00000</MontoDescuento>
      <Descuento><MontoDescuento>100.00000</MontoDescuento><NaturalezaDescuento>Promoción</NaturalezaDescuento></Descuento>`
	inv, err := parser.Parse(supplierXML("2024-03-05T10:30:00-06:00", extra, ""))
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "100.00000", inv.Lines[0].DiscountAmount)
	assert.Equal(t, "Promoción", inv.Lines[0].DiscountReason)
}

func TestParse_NamespaceConPrefijo(t *testing.T) {
	parser := infra.NewXMLParserService()

	// Algunos emisores declaran el esquema con prefijo en vez de por defecto.
	raw := []byte(`<?xml version="1.0"?>
<inv:FacturaElectronica xmlns:inv="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <inv:Clave>` + testClave + `</inv:Clave>
  <inv:FechaEmision>2024-03-05T10:30:00-06:00</inv:FechaEmision>
  <inv:Emisor><inv:Identificacion><inv:Tipo>02</inv:Tipo><inv:Numero>3101123456</inv:Numero></inv:Identificacion></inv:Emisor>
  <inv:Receptor><inv:Identificacion><inv:Tipo>02</inv:Tipo><inv:Numero>3102987654</inv:Numero></inv:Identificacion></inv:Receptor>
  <inv:ResumenFactura><inv:TotalComprobante>1130.00000</inv:TotalComprobante></inv:ResumenFactura>
</inv:FacturaElectronica>`)

	inv, err := parser.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, testClave, inv.Clave)
	assert.Equal(t, "3101123456", inv.IssuerID)
}

func TestParse_ClaveInvalida(t *testing.T) {
	parser := infra.NewXMLParserService()

	bad := []byte(`<?xml version="1.0"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Clave>123</Clave>
  <FechaEmision>2024-03-05T10:30:00-06:00</FechaEmision>
  <Emisor><Identificacion><Numero>3101123456</Numero></Identificacion></Emisor>
  <Receptor><Identificacion><Numero>3102987654</Numero></Identificacion></Receptor>
  <ResumenFactura><TotalComprobante>1130.00000</TotalComprobante></ResumenFactura>
</FacturaElectronica>`)

	_, err := parser.Parse(bad)
	assert.ErrorIs(t, err, domain.ErrMalformedXML, "clave que no mide 50 dígitos")
}

func TestParseResponseMessage(t *testing.T) {
	parser := infra.NewXMLParserService()

	raw := []byte(`<?xml version="1.0"?>
<MensajeHacienda xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/mensajeHacienda">
  <Clave>` + testClave + `</Clave>
  <Mensaje>3</Mensaje>
  <DetalleMensaje>Rechazado: la cédula del receptor no coincide</DetalleMensaje>
</MensajeHacienda>`)

	msg, err := parser.ParseResponseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Rechazado: la cédula del receptor no coincide", msg)

	msg, err = parser.ParseResponseMessage([]byte(`<MensajeHacienda/>`))
	require.NoError(t, err)
	assert.Empty(t, msg, "sin DetalleMensaje devuelve vacío")
}
