package dto

import "time"

// CreatePartyRequest entrada para registrar una contraparte (cliente o proveedor).
type CreatePartyRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	IDType         string `json:"id_type" validate:"required,oneof=01 02 03 04"`
	Identification string `json:"identification" validate:"required,min=9,max=12"`
	ForeignID      string `json:"foreign_id"` // solo facturas de exportación

	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phone_country_code"`

	Province     string `json:"province"`
	Canton       string `json:"canton"`
	District     string `json:"district"`
	Neighborhood string `json:"neighborhood"`
	OtherSigns   string `json:"other_signs"`
}

// UpdatePartyRequest entrada para actualizar una contraparte (campos opcionales).
type UpdatePartyRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone"`
	PhoneCountryCode *string `json:"phone_country_code"`
	Province         *string `json:"province"`
	Canton           *string `json:"canton"`
	District         *string `json:"district"`
	Neighborhood     *string `json:"neighborhood"`
	OtherSigns       *string `json:"other_signs"`
}

// PartyResponse salida de una contraparte.
type PartyResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"company_id"`
	Name           string `json:"name"`
	IDType         string `json:"id_type"`
	Identification string `json:"identification"`
	ForeignID      string `json:"foreign_id,omitempty"`

	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phone_country_code,omitempty"`

	Province     string `json:"province,omitempty"`
	Canton       string `json:"canton,omitempty"`
	District     string `json:"district,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	OtherSigns   string `json:"other_signs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartyListResponse lista paginada de contrapartes.
type PartyListResponse struct {
	Items []PartyResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
