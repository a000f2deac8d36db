package entity

import "time"

// Journal representa un punto de emisión: la combinación sucursal/terminal
// desde la que se numeran comprobantes. El consecutivo por tipo de documento
// vive en Sequence y se incrementa de forma atómica en el repositorio.
type Journal struct {
	ID        string
	CompanyID string
	Name      string
	Branch    string // sucursal, 3 dígitos
	Terminal  string // terminal o punto de venta, 5 dígitos
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sequence consecutivo por diario y tipo de documento.
type Sequence struct {
	ID        string
	JournalID string
	DocType   string // FE, TE, NC, ND, FEC, FEE, CCE, CPCE, RCE
	Next      int64  // próximo número a asignar (>= 1)
	UpdatedAt time.Time
}
