package repository

import (
	"context"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// DocumentFilter criterios de selección para las corridas por lote.
type DocumentFilter struct {
	CompanyID   string
	Direction   string   // issued | received; vacío = ambas
	States      []string // estados de tributación a incluir
	SendStates  []string // estados de envío del Mensaje Receptor a incluir
	WithXMLOnly bool     // solo documentos que ya tienen XML
	Limit       int
}

// DocumentRepository define el puerto de persistencia para comprobantes y sus líneas.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateLine(ctx context.Context, line *entity.LineItem) error

	// Update persiste todos los campos del ciclo de vida: estados, XML
	// generados, respuesta de Hacienda y nombres de archivo.
	Update(ctx context.Context, doc *entity.Document) error

	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByClave(ctx context.Context, companyID, clave string) (*entity.Document, error)
	GetLines(ctx context.Context, documentID string) ([]*entity.LineItem, error)

	// List devuelve los documentos que cumplen el filtro, los más antiguos
	// primero, hasta filter.Limit.
	List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error)
}
