package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usos de impuesto: determinan contra qué catálogo se resuelven los
// impuestos de un XML (ventas en emitidos, compras en recibidos).
const (
	TaxUsageSale     = "sale"
	TaxUsagePurchase = "purchase"
)

// Tax representa un impuesto registrado en la empresa. Los XML de proveedor
// se resuelven contra este catálogo por (código, tarifa, uso).
type Tax struct {
	ID        string
	CompanyID string
	Name      string
	Code      string // código de Hacienda (01 = IVA, …)
	Rate      decimal.Decimal
	Usage     string // sale | purchase
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
