package edi

import (
	"context"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// statusQuerier y receiverSender son los dos casos de uso que la corrida por
// lote encadena; se declaran como interfaces para poder probarla con mocks.
type statusQuerier interface {
	Query(ctx context.Context, documentID string) (*entity.Document, error)
}

type receiverSender interface {
	SendReceiverMessage(ctx context.Context, documentID, response string) (*entity.Document, error)
}

// BatchResult resumen de una corrida por lote.
type BatchResult struct {
	Queried int // consultas de estado ejecutadas
	Sent    int // mensajes receptor enviados
	Failed  int // documentos cuyo procesamiento falló (se reintentan luego)
}

// BatchUseCase procesa documentos pendientes en tandas acotadas: consulta el
// estado de los que están en trámite y envía los mensajes receptor que
// faltan. Un documento que falla se registra y no detiene al resto.
type BatchUseCase struct {
	docRepo  repository.DocumentRepository
	status   statusQuerier
	receiver receiverSender
	maxDocs  int
	log      *logger.Logger
}

// NewBatchUseCase construye el caso de uso. maxDocs acota cada tanda; con
// cero o negativo se usan 10.
func NewBatchUseCase(
	docRepo repository.DocumentRepository,
	status statusQuerier,
	receiver receiverSender,
	maxDocs int,
	log *logger.Logger,
) *BatchUseCase {
	if maxDocs <= 0 {
		maxDocs = 10
	}
	return &BatchUseCase{
		docRepo:  docRepo,
		status:   status,
		receiver: receiver,
		maxDocs:  maxDocs,
		log:      log,
	}
}

// Run ejecuta una tanda completa para la empresa dada.
func (uc *BatchUseCase) Run(ctx context.Context, companyID string) (*BatchResult, error) {
	result := &BatchResult{}

	// 1. Mensajes receptor pendientes de envío.
	pendingMR, err := uc.docRepo.List(ctx, repository.DocumentFilter{
		CompanyID:  companyID,
		Direction:  entity.DirectionReceived,
		SendStates: []string{entity.SendStatePending},
		Limit:      uc.maxDocs,
	})
	if err != nil {
		return nil, err
	}
	for _, doc := range pendingMR {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := uc.receiver.SendReceiverMessage(ctx, doc.ID, ""); err != nil {
			result.Failed++
			uc.log.Warn().Err(err).Str("clave", doc.Clave).Msg("no se pudo enviar el mensaje receptor")
			continue
		}
		result.Sent++
	}

	// 2. Comprobantes emitidos en trámite: se consulta su estado ante Hacienda.
	inProgress, err := uc.docRepo.List(ctx, repository.DocumentFilter{
		CompanyID: companyID,
		Direction: entity.DirectionIssued,
		States: []string{
			hcat.StateProcesando,
			hcat.StateRecibido,
			hcat.StateNoEncontrado,
			hcat.StateError,
		},
		WithXMLOnly: true,
		Limit:       uc.maxDocs,
	})
	if err != nil {
		return nil, err
	}
	for _, doc := range inProgress {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := uc.status.Query(ctx, doc.ID); err != nil {
			result.Failed++
			uc.log.Warn().Err(err).Str("clave", doc.Clave).Msg("no se pudo consultar el estado")
			continue
		}
		result.Queried++
	}

	// 3. Documentos cuyo ciclo corre sobre el estado de envío (mensajes
	// receptor presentados y facturas de compra): su trámite también se
	// consulta ante Hacienda.
	inFlightSend, err := uc.docRepo.List(ctx, repository.DocumentFilter{
		CompanyID: companyID,
		SendStates: []string{
			hcat.StateProcesando,
			hcat.StateNoEncontrado,
			hcat.StateError,
		},
		WithXMLOnly: true,
		Limit:       uc.maxDocs,
	})
	if err != nil {
		return nil, err
	}
	for _, doc := range inFlightSend {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := uc.status.Query(ctx, doc.ID); err != nil {
			result.Failed++
			uc.log.Warn().Err(err).Str("clave", doc.Clave).Msg("no se pudo consultar el estado del envío")
			continue
		}
		result.Queried++
	}

	uc.log.Info().
		Int("consultados", result.Queried).
		Int("enviados", result.Sent).
		Int("fallidos", result.Failed).
		Msg("corrida por lote completada")
	return result, nil
}
