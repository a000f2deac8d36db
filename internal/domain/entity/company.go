package entity

import "time"

// Company representa la empresa emisora (tenant del sistema).
type Company struct {
	ID             string
	Name           string
	TradeName      string // nombre comercial
	IDType         string // 01 física, 02 jurídica
	Identification string // cédula sin guiones
	ActivityCode   string // actividad económica por defecto

	Email            string
	Phone            string
	PhoneCountryCode string

	Province     string
	Canton       string
	District     string
	Neighborhood string
	OtherSigns   string

	Status    string // active, suspended, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}
