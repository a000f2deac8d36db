package hacienda

import (
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// ServiceUnits unidades de medida que clasifican una línea como servicio
// para el ResumenFactura. Todo lo demás se trata como mercancía.
var ServiceUnits = map[string]bool{
	"Sp":  true,
	"Spe": true,
	"St":  true,
	"Sta": true,
	"h":   true,
}

// Amounts montos del ResumenFactura, desglosados en servicios y mercancías,
// gravados y exentos.
type Amounts struct {
	ServiceTaxed   decimal.Decimal // TotalServGravados
	ServiceUntaxed decimal.Decimal // TotalServExentos
	ProductTaxed   decimal.Decimal // TotalMercanciasGravadas
	ProductUntaxed decimal.Decimal // TotalMercanciasExentas

	// TODO: desglosar exonerados y otros cargos cuando las líneas traigan
	// exoneración; hoy se emiten siempre en cero.
	ServiceExempt decimal.Decimal // TotalServExonerado
	ProductExempt decimal.Decimal // TotalMercExonerada
	OtherCharges  decimal.Decimal // TotalOtrosCargos

	Discount decimal.Decimal // TotalDescuentos
	Tax      decimal.Decimal // TotalImpuesto
}

// TotalTaxed TotalGravado del resumen.
func (a Amounts) TotalTaxed() decimal.Decimal { return a.ServiceTaxed.Add(a.ProductTaxed) }

// TotalUntaxed TotalExento del resumen.
func (a Amounts) TotalUntaxed() decimal.Decimal { return a.ServiceUntaxed.Add(a.ProductUntaxed) }

// TotalSale TotalVenta del resumen (antes de descuentos).
func (a Amounts) TotalSale() decimal.Decimal {
	return a.TotalTaxed().Add(a.TotalUntaxed()).Add(a.ServiceExempt).Add(a.ProductExempt)
}

// TotalNetSale TotalVentaNeta (venta menos descuentos).
func (a Amounts) TotalNetSale() decimal.Decimal { return a.TotalSale().Sub(a.Discount) }

// GrandTotal TotalComprobante (venta neta más impuestos y otros cargos).
func (a Amounts) GrandTotal() decimal.Decimal {
	return a.TotalNetSale().Add(a.Tax).Add(a.OtherCharges)
}

// Aggregate clasifica las líneas del comprobante en los montos del
// ResumenFactura. Una línea es servicio si su unidad de medida está en
// ServiceUnits, y gravada si tiene al menos un impuesto con tarifa mayor
// que cero. El subtotal de línea ya viene neto de descuento, por lo que la
// base se reconstruye sumando el descuento de vuelta.
func Aggregate(lines []entity.LineItem) Amounts {
	var a Amounts
	for _, line := range lines {
		base := line.Subtotal.Add(line.DiscountAmount)
		taxed := lineIsTaxed(line)
		service := ServiceUnits[line.Unit]

		switch {
		case service && taxed:
			a.ServiceTaxed = a.ServiceTaxed.Add(base)
		case service && !taxed:
			a.ServiceUntaxed = a.ServiceUntaxed.Add(base)
		case !service && taxed:
			a.ProductTaxed = a.ProductTaxed.Add(base)
		default:
			a.ProductUntaxed = a.ProductUntaxed.Add(base)
		}

		a.Discount = a.Discount.Add(line.DiscountAmount)
		for _, tax := range line.Taxes {
			a.Tax = a.Tax.Add(tax.Amount)
		}
	}
	return a
}

func lineIsTaxed(line entity.LineItem) bool {
	for _, tax := range line.Taxes {
		if tax.Rate.IsPositive() {
			return true
		}
	}
	return false
}
