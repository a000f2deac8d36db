package hacienda

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
)

// XMLBuilderService construye el XML v4.3 del comprobante (sin firma XAdES).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del comprobante según el esquema v4.3 de su tipo.
// Los esquemas usan un único namespace por defecto, sin prefijos.
func (s *XMLBuilderService) Build(ctx *BuildContext) ([]byte, error) {
	if ctx == nil || ctx.Document == nil {
		return nil, fmt.Errorf("hacienda: falta el documento en el contexto")
	}
	doc := ctx.Document
	rootDef, ok := rootByDocType[doc.DocType]
	if !ok {
		return nil, fmt.Errorf("hacienda: tipo de documento sin esquema: %q", doc.DocType)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: rootDef.Local},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: rootDef.NS},
			{Name: xml.Name{Local: "xmlns:xsd"}, Value: nsXsd},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: nsXsi},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	issueDate := doc.Date
	if ctx.IssueDate != nil {
		issueDate = *ctx.IssueDate
	}

	writeEl(enc, "Clave", doc.Clave)
	writeEl(enc, "CodigoActividad", doc.ActivityCode)
	writeEl(enc, "NumeroConsecutivo", doc.FullSequence)
	writeEl(enc, "FechaEmision", issueDate.Format("2006-01-02T15:04:05-07:00"))

	if err := dhacienda.ValidatePhone(ctx.Issuer.PhoneCountryCode, ctx.Issuer.Phone); err != nil {
		return nil, err
	}
	writeParty(enc, "Emisor", ctx.Issuer)
	// El tiquete electrónico no exige receptor; los demás tipos sí.
	if doc.DocType != hcat.DocTypeTE || ctx.Receiver.Identification != "" || ctx.Receiver.ForeignID != "" {
		if err := dhacienda.ValidatePhone(ctx.Receiver.PhoneCountryCode, ctx.Receiver.Phone); err != nil {
			return nil, err
		}
		writeParty(enc, "Receptor", ctx.Receiver)
	}

	saleCondition := doc.SaleCondition
	if saleCondition == "" {
		saleCondition = hcat.SaleConditionContado
	}
	writeEl(enc, "CondicionVenta", saleCondition)
	if saleCondition == hcat.SaleConditionCredito && doc.CreditTerm > 0 {
		writeEl(enc, "PlazoCredito", strconv.Itoa(doc.CreditTerm))
	}
	method := doc.PaymentMethod
	if method == "" {
		method = hcat.PaymentMethodEfectivo
	}
	writeEl(enc, "MedioPago", method)

	if err := s.writeDetalleServicio(enc, ctx); err != nil {
		return nil, err
	}
	if err := s.writeResumen(enc, ctx); err != nil {
		return nil, err
	}

	// Referencia al comprobante afectado (notas de crédito y débito).
	if doc.ReferenceClave != "" {
		startEl(enc, "InformacionReferencia")
		writeEl(enc, "TipoDoc", referenceDocTypeCode(doc.ReferenceDocType))
		writeEl(enc, "Numero", doc.ReferenceClave)
		writeEl(enc, "Fecha", issueDate.Format("2006-01-02T15:04:05-07:00"))
		writeEl(enc, "Codigo", doc.ReferenceCode)
		writeEl(enc, "Razon", doc.ReferenceReason)
		endEl(enc, "InformacionReferencia")
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReceiverMessage genera el XML del Mensaje Receptor (aceptación,
// aceptación parcial o rechazo de un comprobante recibido).
func (s *XMLBuilderService) BuildReceiverMessage(ctx *ReceiverMessageContext) ([]byte, error) {
	if ctx == nil || ctx.Document == nil {
		return nil, fmt.Errorf("hacienda: falta el documento en el contexto")
	}
	doc := ctx.Document
	label, ok := hcat.ReceiverMessageLabels[doc.StateInvoicePartner]
	if !ok {
		return nil, fmt.Errorf("hacienda: respuesta del receptor desconocida: %q", doc.StateInvoicePartner)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "MensajeReceptor"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsMR},
			{Name: xml.Name{Local: "xmlns:xsd"}, Value: nsXsd},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: nsXsi},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeEl(enc, "Clave", doc.Clave)
	writeEl(enc, "NumeroCedulaEmisor", ctx.IssuerID)
	writeEl(enc, "FechaEmisionDoc", doc.Date.Format("2006-01-02T15:04:05-07:00"))
	writeEl(enc, "Mensaje", doc.StateInvoicePartner)
	writeEl(enc, "DetalleMensaje", label)
	if doc.AmountTaxXML.IsPositive() {
		writeAmount(enc, "MontoTotalImpuesto", doc.AmountTaxXML)
	}
	if ctx.ActivityCode != "" {
		writeEl(enc, "CodigoActividad", ctx.ActivityCode)
	}
	if ctx.TaxCondition != "" {
		writeEl(enc, "CondicionImpuesto", ctx.TaxCondition)
	}
	writeAmount(enc, "TotalFactura", doc.AmountTotalXML)
	writeEl(enc, "NumeroCedulaReceptor", ctx.ReceiverID)
	writeEl(enc, "NumeroConsecutivoReceptor", ctx.ReceiverSequence)

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *XMLBuilderService) writeDetalleServicio(enc *xml.Encoder, ctx *BuildContext) error {
	doc := ctx.Document
	if len(doc.Lines) == 0 {
		return fmt.Errorf("hacienda: el comprobante no tiene líneas de detalle")
	}
	startEl(enc, "DetalleServicio")
	for i, line := range doc.Lines {
		startEl(enc, "LineaDetalle")
		writeEl(enc, "NumeroLinea", strconv.Itoa(i+1))
		if line.Code != "" {
			writeEl(enc, "Codigo", line.Code)
		}
		writeEl(enc, "Cantidad", line.Quantity.StringFixed(3))
		writeEl(enc, "UnidadMedida", line.Unit)
		writeEl(enc, "Detalle", line.Description)
		writeAmount(enc, "PrecioUnitario", line.UnitPrice)
		writeAmount(enc, "MontoTotal", line.Quantity.Mul(line.UnitPrice))
		if line.DiscountAmount.IsPositive() {
			startEl(enc, "Descuento")
			writeAmount(enc, "MontoDescuento", line.DiscountAmount)
			if line.DiscountReason != "" {
				writeEl(enc, "NaturalezaDescuento", line.DiscountReason)
			}
			endEl(enc, "Descuento")
		}
		writeAmount(enc, "SubTotal", line.Subtotal)
		var netTax decimal.Decimal
		for _, tax := range line.Taxes {
			startEl(enc, "Impuesto")
			writeEl(enc, "Codigo", tax.Code)
			writeEl(enc, "CodigoTarifa", codigoTarifa(tax.Rate))
			writeEl(enc, "Tarifa", tax.Rate.StringFixed(2))
			writeAmount(enc, "Monto", tax.Amount)
			endEl(enc, "Impuesto")
			netTax = netTax.Add(tax.Amount)
		}
		if len(line.Taxes) > 0 {
			writeAmount(enc, "ImpuestoNeto", netTax)
		}
		writeAmount(enc, "MontoTotalLinea", line.Total)
		endEl(enc, "LineaDetalle")
	}
	endEl(enc, "DetalleServicio")
	return nil
}

func (s *XMLBuilderService) writeResumen(enc *xml.Encoder, ctx *BuildContext) error {
	doc := ctx.Document
	a := dhacienda.Aggregate(doc.Lines)

	currency := doc.CurrencyCode
	if currency == "" {
		currency = hcat.DefaultCurrency
	}

	startEl(enc, "ResumenFactura")
	startEl(enc, "CodigoTipoMoneda")
	writeEl(enc, "CodigoMoneda", currency)
	rate := doc.CurrencyRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	writeEl(enc, "TipoCambio", rate.StringFixed(5))
	endEl(enc, "CodigoTipoMoneda")

	writeAmount(enc, "TotalServGravados", a.ServiceTaxed)
	writeAmount(enc, "TotalServExentos", a.ServiceUntaxed)
	writeAmount(enc, "TotalServExonerado", a.ServiceExempt)
	writeAmount(enc, "TotalMercanciasGravadas", a.ProductTaxed)
	writeAmount(enc, "TotalMercanciasExentas", a.ProductUntaxed)
	writeAmount(enc, "TotalMercExonerada", a.ProductExempt)
	writeAmount(enc, "TotalGravado", a.TotalTaxed())
	writeAmount(enc, "TotalExento", a.TotalUntaxed())
	writeAmount(enc, "TotalExonerado", a.ServiceExempt.Add(a.ProductExempt))
	writeAmount(enc, "TotalVenta", a.TotalSale())
	writeAmount(enc, "TotalDescuentos", a.Discount)
	writeAmount(enc, "TotalVentaNeta", a.TotalNetSale())
	writeAmount(enc, "TotalImpuesto", a.Tax)
	writeAmount(enc, "TotalOtrosCargos", a.OtherCharges)
	writeAmount(enc, "TotalComprobante", a.GrandTotal())
	endEl(enc, "ResumenFactura")
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func startEl(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func endEl(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, value string) {
	startEl(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	endEl(enc, local)
}

// writeAmount montos con cinco decimales, punto decimal, sin separador de miles.
func writeAmount(enc *xml.Encoder, local string, d decimal.Decimal) {
	writeEl(enc, local, d.StringFixed(5))
}

func writeParty(enc *xml.Encoder, local string, p PartyInfo) {
	startEl(enc, local)
	writeEl(enc, "Nombre", p.Name)
	if p.Identification != "" {
		startEl(enc, "Identificacion")
		writeEl(enc, "Tipo", p.IDType)
		writeEl(enc, "Numero", p.Identification)
		endEl(enc, "Identificacion")
	} else if p.ForeignID != "" {
		writeEl(enc, "IdentificacionExtranjero", p.ForeignID)
	}
	if p.TradeName != "" {
		writeEl(enc, "NombreComercial", p.TradeName)
	}
	if p.Province != "" {
		startEl(enc, "Ubicacion")
		writeEl(enc, "Provincia", p.Province)
		writeEl(enc, "Canton", p.Canton)
		writeEl(enc, "Distrito", p.District)
		if p.Neighborhood != "" {
			writeEl(enc, "Barrio", p.Neighborhood)
		}
		if p.OtherSigns != "" {
			writeEl(enc, "OtrasSenas", p.OtherSigns)
		}
		endEl(enc, "Ubicacion")
	}
	if p.Phone != "" {
		code := p.PhoneCountryCode
		if code == "" {
			code = hcat.CountryCodeCR
		}
		startEl(enc, "Telefono")
		writeEl(enc, "CodigoPais", code)
		writeEl(enc, "NumTelefono", p.Phone)
		endEl(enc, "Telefono")
	}
	if p.Email != "" {
		writeEl(enc, "CorreoElectronico", p.Email)
	}
	endEl(enc, local)
}

// codigoTarifa código de tarifa de IVA según la tarifa porcentual (nota 8 bis).
func codigoTarifa(rate decimal.Decimal) string {
	switch rate.StringFixed(2) {
	case "0.00":
		return "01"
	case "1.00":
		return "02"
	case "2.00":
		return "03"
	case "4.00":
		return "04"
	case "8.00":
		return "07"
	case "13.00":
		return "08"
	default:
		return "08"
	}
}

// referenceDocTypeCode código del tipo de documento referenciado.
func referenceDocTypeCode(docType string) string {
	if code, ok := hcat.DocTypeCodes[docType]; ok {
		return code
	}
	// 99 = otros, cuando el documento afectado no es un comprobante electrónico.
	return "99"
}
