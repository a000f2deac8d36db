package dto

import "time"

// CreateJournalRequest entrada para registrar un punto de emisión.
type CreateJournalRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Branch   string `json:"branch" validate:"required,numeric,max=3"`   // sucursal
	Terminal string `json:"terminal" validate:"required,numeric,max=5"` // punto de venta
}

// JournalResponse salida de un punto de emisión.
type JournalResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Branch    string    `json:"branch"`
	Terminal  string    `json:"terminal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
