package dto

import "time"

// CreateCompanyRequest entrada para crear una empresa emisora.
type CreateCompanyRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	TradeName      string `json:"trade_name"`
	IDType         string `json:"id_type" validate:"required,oneof=01 02 03 04"`
	Identification string `json:"identification" validate:"required,min=9,max=12"`
	ActivityCode   string `json:"activity_code"`

	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phone_country_code"`

	Province     string `json:"province"`
	Canton       string `json:"canton"`
	District     string `json:"district"`
	Neighborhood string `json:"neighborhood"`
	OtherSigns   string `json:"other_signs"`
}

// UpdateCompanyRequest entrada para actualizar una empresa (campos opcionales).
type UpdateCompanyRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	TradeName    *string `json:"trade_name"`
	ActivityCode *string `json:"activity_code"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Status       *string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TradeName      string `json:"trade_name,omitempty"`
	IDType         string `json:"id_type"`
	Identification string `json:"identification"`
	ActivityCode   string `json:"activity_code,omitempty"`

	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PhoneCountryCode string `json:"phone_country_code,omitempty"`

	Province     string `json:"province,omitempty"`
	Canton       string `json:"canton,omitempty"`
	District     string `json:"district,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	OtherSigns   string `json:"other_signs,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyListResponse lista paginada de empresas.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
