// Package edi contiene los casos de uso del ciclo de vida de comprobantes
// electrónicos: emisión, envío, consulta de estado, importación de facturas
// de proveedor y respuesta con Mensaje Receptor.
package edi

import (
	"context"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
)

// TxRunner ejecuta fn con repositorios atados a una misma transacción: o se
// confirma todo o no queda nada escrito. Lo usa la importación de facturas
// de proveedor, que verifica la contraparte y crea comprobante y líneas
// juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(docs repository.DocumentRepository, parties repository.PartyRepository) error) error
}

// Notifier puerto de salida para avisos por correo (aceptaciones y rechazos).
// La implementación SMTP vive en infrastructure/mail; puede ser nil.
type Notifier interface {
	// NotifyRejection avisa que Hacienda rechazó un comprobante, con el
	// DetalleMensaje como motivo.
	NotifyRejection(ctx context.Context, doc *entity.Document, reason string) error
	// NotifyAcceptance avisa que Hacienda aceptó un comprobante.
	NotifyAcceptance(ctx context.Context, doc *entity.Document) error
}

// PDFGenerator puerto de salida para la representación impresa del comprobante.
type PDFGenerator interface {
	Generate(ctx context.Context, doc *entity.Document, issuer *entity.Company, receiver *entity.Party) ([]byte, error)
}
