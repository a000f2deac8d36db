package hacienda

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/facturacr/hacienda-edi/internal/domain"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
)

// issueDateLayouts formatos aceptados para FechaEmision, en orden de intento.
// Los emisores reales producen variantes con y sin zona, y con fracciones de
// segundo de largo arbitrario.
var issueDateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
}

// XMLParserService interpreta XML de comprobantes recibidos de proveedores.
// Los documentos reales llegan con el namespace del esquema como namespace
// por defecto, con prefijo propio o sin declarar; el parser resuelve los
// nodos por nombre local más namespace del elemento raíz, de modo que las
// tres variantes se leen igual.
type XMLParserService struct{}

// NewXMLParserService crea el servicio.
func NewXMLParserService() *XMLParserService {
	return &XMLParserService{}
}

// Parse interpreta el XML de un comprobante de proveedor. Los nodos
// obligatorios ausentes se reportan todos juntos en MissingNodesError.
func (s *XMLParserService) Parse(raw []byte) (*ParsedInvoice, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin elemento raíz", domain.ErrMalformedXML)
	}
	ns := root.NamespaceURI()

	var missing []string
	text := func(path ...string) string {
		el := findPath(root, ns, path...)
		if el == nil {
			return ""
		}
		return strings.TrimSpace(el.Text())
	}
	requiredText := func(path ...string) string {
		el := findPath(root, ns, path...)
		if el == nil {
			missing = append(missing, strings.Join(path, "/"))
			return ""
		}
		return strings.TrimSpace(el.Text())
	}

	inv := &ParsedInvoice{
		Clave:          requiredText("Clave"),
		FullSequence:   text("NumeroConsecutivo"),
		IssuerName:     text("Emisor", "Nombre"),
		IssuerID:       requiredText("Emisor", "Identificacion", "Numero"),
		IssuerIDType:   text("Emisor", "Identificacion", "Tipo"),
		IssuerEmail:    text("Emisor", "CorreoElectronico"),
		IssuerPhone:    text("Emisor", "Telefono", "NumTelefono"),
		ReceiverID:     requiredText("Receptor", "Identificacion", "Numero"),
		ReceiverIDType: text("Receptor", "Identificacion", "Tipo"),
		AmountTax:      text("ResumenFactura", "TotalImpuesto"),
		AmountTotal:    requiredText("ResumenFactura", "TotalComprobante"),
	}

	rawDate := requiredText("FechaEmision")
	if len(missing) > 0 {
		return nil, &domain.MissingNodesError{Nodes: missing}
	}

	issued, err := parseIssueDate(rawDate)
	if err != nil {
		return nil, err
	}
	inv.IssueDate = issued

	if err := dhacienda.ValidateClave(inv.Clave); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	inv.DocType = docTypeFromClave(inv.Clave)

	inv.CurrencyCode = text("ResumenFactura", "CodigoTipoMoneda", "CodigoMoneda")
	if inv.CurrencyCode == "" {
		// Algunos emisores omiten el nodo cuando facturan en colones.
		inv.CurrencyCode = hcat.DefaultCurrency
	}

	if detalle := findPath(root, ns, "DetalleServicio"); detalle != nil {
		for _, lineEl := range childrenNamed(detalle, ns, "LineaDetalle") {
			inv.Lines = append(inv.Lines, parseLine(lineEl, ns))
		}
	}

	return inv, nil
}

// ParseResponseMessage extrae el DetalleMensaje de una respuesta de Hacienda
// (MensajeHacienda). Devuelve cadena vacía si el nodo no existe.
func (s *XMLParserService) ParseResponseMessage(raw []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("%w: respuesta sin elemento raíz", domain.ErrMalformedXML)
	}
	if el := findPath(root, root.NamespaceURI(), "DetalleMensaje"); el != nil {
		return strings.TrimSpace(el.Text()), nil
	}
	return "", nil
}

func parseLine(el *etree.Element, ns string) ParsedLine {
	text := func(path ...string) string {
		child := findPath(el, ns, path...)
		if child == nil {
			return ""
		}
		return strings.TrimSpace(child.Text())
	}

	line := ParsedLine{
		Code:        text("Codigo"),
		Description: text("Detalle"),
		Unit:        text("UnidadMedida"),
		Quantity:    text("Cantidad"),
		UnitPrice:   text("PrecioUnitario"),
		Subtotal:    text("SubTotal"),
		Total:       text("MontoTotalLinea"),
	}
	line.LineNumber, _ = strconv.Atoi(text("NumeroLinea"))

	// El descuento anidado (nodo Descuento) manda sobre el monto plano
	// MontoDescuento que usaban esquemas anteriores.
	if nested := findPath(el, ns, "Descuento"); nested != nil {
		line.DiscountAmount = strings.TrimSpace(findText(nested, ns, "MontoDescuento"))
		line.DiscountReason = strings.TrimSpace(findText(nested, ns, "NaturalezaDescuento"))
	} else {
		line.DiscountAmount = text("MontoDescuento")
		line.DiscountReason = text("NaturalezaDescuento")
	}

	for _, taxEl := range childrenNamed(el, ns, "Impuesto") {
		line.Taxes = append(line.Taxes, ParsedTax{
			Code:   strings.TrimSpace(findText(taxEl, ns, "Codigo")),
			Rate:   strings.TrimSpace(findText(taxEl, ns, "Tarifa")),
			Amount: strings.TrimSpace(findText(taxEl, ns, "Monto")),
		})
	}
	return line
}

func parseIssueDate(value string) (time.Time, error) {
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	// Fracciones de segundo de más de nueve dígitos: se truncan y se reintenta.
	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		frac := value[dot+1:]
		digits := 0
		for digits < len(frac) && frac[digits] >= '0' && frac[digits] <= '9' {
			digits++
		}
		if digits > 9 {
			trimmed := value[:dot+1+9] + frac[digits:]
			for _, layout := range issueDateLayouts {
				if t, err := time.Parse(layout, trimmed); err == nil {
					return t, nil
				}
			}
		}
	}
	return time.Time{}, &domain.InvalidDateError{Value: value}
}

// docTypeFromClave deduce el tipo de comprobante del código en las
// posiciones 30-31 de la clave (dentro del consecutivo).
func docTypeFromClave(clave string) string {
	code := clave[29:31]
	for docType, c := range hcat.DocTypeCodes {
		if c == code {
			return docType
		}
	}
	return ""
}

// ── navegación por nombre local + namespace ──────────────────────────────────

// findPath desciende por los nombres locales dados exigiendo que cada
// elemento pertenezca al namespace del raíz (o no declare ninguno).
func findPath(el *etree.Element, ns string, path ...string) *etree.Element {
	current := el
	for _, name := range path {
		var next *etree.Element
		for _, child := range current.ChildElements() {
			if localName(child) == name && matchesNS(child, ns) {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

func findText(el *etree.Element, ns string, path ...string) string {
	child := findPath(el, ns, path...)
	if child == nil {
		return ""
	}
	return child.Text()
}

func childrenNamed(el *etree.Element, ns, name string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if localName(child) == name && matchesNS(child, ns) {
			out = append(out, child)
		}
	}
	return out
}

func localName(el *etree.Element) string {
	return el.Tag
}

func matchesNS(el *etree.Element, ns string) bool {
	elNS := el.NamespaceURI()
	return elNS == ns || elNS == ""
}
