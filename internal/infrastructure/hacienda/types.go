// Package hacienda implementa la generación, interpretación y entrega de
// comprobantes electrónicos v4.3 (Costa Rica).
package hacienda

import (
	"time"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// Namespaces oficiales de los esquemas v4.3.
const (
	nsBase = "https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/"

	NsFE  = nsBase + "facturaElectronica"
	NsTE  = nsBase + "tiqueteElectronico"
	NsNC  = nsBase + "notaCreditoElectronica"
	NsND  = nsBase + "notaDebitoElectronica"
	NsFEC = nsBase + "facturaElectronicaCompra"
	NsFEE = nsBase + "facturaElectronicaExportacion"
	NsMR  = nsBase + "mensajeReceptor"

	nsXsi = "http://www.w3.org/2001/XMLSchema-instance"
	nsXsd = "http://www.w3.org/2001/XMLSchema"
)

// rootByDocType raíz y namespace del comprobante según su tipo.
var rootByDocType = map[string]struct {
	Local string
	NS    string
}{
	"FE":  {"FacturaElectronica", NsFE},
	"TE":  {"TiqueteElectronico", NsTE},
	"NC":  {"NotaCreditoElectronica", NsNC},
	"ND":  {"NotaDebitoElectronica", NsND},
	"FEC": {"FacturaElectronicaCompra", NsFEC},
	"FEE": {"FacturaElectronicaExportacion", NsFEE},
}

// PartyInfo datos de una parte (emisor o receptor) ya resueltos para el XML.
// Se construye desde Company o Party según la dirección del comprobante; en
// la factura de compra los roles se intercambian en el punto de llamada.
type PartyInfo struct {
	Name             string
	TradeName        string
	IDType           string
	Identification   string
	ForeignID        string
	Email            string
	Phone            string
	PhoneCountryCode string
	Province         string
	Canton           string
	District         string
	Neighborhood     string
	OtherSigns       string
}

// PartyFromCompany arma el PartyInfo del emisor desde la empresa.
func PartyFromCompany(c *entity.Company) PartyInfo {
	return PartyInfo{
		Name:             c.Name,
		TradeName:        c.TradeName,
		IDType:           c.IDType,
		Identification:   c.Identification,
		Email:            c.Email,
		Phone:            c.Phone,
		PhoneCountryCode: c.PhoneCountryCode,
		Province:         c.Province,
		Canton:           c.Canton,
		District:         c.District,
		Neighborhood:     c.Neighborhood,
		OtherSigns:       c.OtherSigns,
	}
}

// PartyFromParty arma el PartyInfo de la contraparte.
func PartyFromParty(p *entity.Party) PartyInfo {
	return PartyInfo{
		Name:             p.Name,
		IDType:           p.IDType,
		Identification:   p.Identification,
		ForeignID:        p.ForeignID,
		Email:            p.Email,
		Phone:            p.Phone,
		PhoneCountryCode: p.PhoneCountryCode,
		Province:         p.Province,
		Canton:           p.Canton,
		District:         p.District,
		Neighborhood:     p.Neighborhood,
		OtherSigns:       p.OtherSigns,
	}
}

// BuildContext datos necesarios para construir el XML de un comprobante.
type BuildContext struct {
	Document *entity.Document
	Issuer   PartyInfo
	Receiver PartyInfo

	// IssueDate permite fijar la fecha del XML; si es nil se usa Document.Date.
	IssueDate *time.Time
}

// ReceiverMessageContext datos para construir un Mensaje Receptor.
type ReceiverMessageContext struct {
	Document *entity.Document

	ReceiverID       string // cédula de la empresa que responde
	IssuerID         string // cédula del emisor del comprobante original
	ActivityCode     string
	TaxCondition     string // CondicionImpuesto (01 = genera crédito IVA)
	ReceiverSequence string // consecutivo de 20 dígitos del mensaje
}

// ParsedInvoice resultado de interpretar el XML de un proveedor.
type ParsedInvoice struct {
	Clave        string
	DocType      string // deducido de la posición 30-31 de la clave
	FullSequence string // NumeroConsecutivo de 20 dígitos
	IssueDate    time.Time
	CurrencyCode string

	IssuerName     string
	IssuerID       string
	IssuerIDType   string
	IssuerEmail    string
	IssuerPhone    string
	ReceiverID     string
	ReceiverIDType string

	AmountTax   string // TotalImpuesto, texto del XML
	AmountTotal string // TotalComprobante, texto del XML

	Lines []ParsedLine
}

// ParsedLine línea de detalle leída del XML de un proveedor.
type ParsedLine struct {
	LineNumber  int
	Code        string
	Description string
	Unit        string
	Quantity    string
	UnitPrice   string
	Subtotal    string
	Total       string

	DiscountAmount string
	DiscountReason string

	Taxes []ParsedTax
}

// ParsedTax impuesto de una línea leída del XML.
type ParsedTax struct {
	Code   string
	Rate   string
	Amount string
}
