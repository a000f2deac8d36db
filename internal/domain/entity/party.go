package entity

import "time"

// Party representa una contraparte comercial: cliente en comprobantes
// emitidos, proveedor en comprobantes recibidos.
type Party struct {
	ID        string
	CompanyID string
	Name      string

	IDType         string // 01 física, 02 jurídica, 03 DIMEX, 04 NITE
	Identification string // cédula sin guiones
	ForeignID      string // identificación extranjera (FEE)

	Email            string
	Phone            string // número nacional, validado contra el código de país
	PhoneCountryCode string // "506" por defecto

	// Ubicación según el catálogo de Hacienda.
	Province     string
	Canton       string
	District     string
	Neighborhood string
	OtherSigns   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
