package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTaxRequest entrada para registrar un impuesto del catálogo.
type CreateTaxRequest struct {
	Name  string          `json:"name" validate:"required,min=1,max=100"`
	Code  string          `json:"code" validate:"required"` // código de Hacienda (01 = IVA, …)
	Rate  decimal.Decimal `json:"rate"`
	Usage string          `json:"usage" validate:"required,oneof=sale purchase"`
}

// TaxResponse salida de un impuesto.
type TaxResponse struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Rate      decimal.Decimal `json:"rate"`
	Usage     string          `json:"usage"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
