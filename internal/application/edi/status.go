package edi

import (
	"context"
	"time"

	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	"github.com/facturacr/hacienda-edi/internal/domain/repository"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

// StatusUseCase consulta el estado de comprobantes ya entregados y aplica la
// transición correspondiente. El vocabulario de estados es el de Hacienda:
// el valor de ind-estado se copia tal cual, sin normalizar.
type StatusUseCase struct {
	docRepo  repository.DocumentRepository
	api      infra.API
	parser   *infra.XMLParserService
	notifier Notifier // puede ser nil
	log      *logger.Logger
}

// NewStatusUseCase construye el caso de uso.
func NewStatusUseCase(
	docRepo repository.DocumentRepository,
	api infra.API,
	parser *infra.XMLParserService,
	notifier Notifier,
	log *logger.Logger,
) *StatusUseCase {
	return &StatusUseCase{
		docRepo:  docRepo,
		api:      api,
		parser:   parser,
		notifier: notifier,
		log:      log,
	}
}

// Query consulta el estado del documento ante Hacienda y persiste el
// resultado. Para comprobantes recibidos la consulta usa la clave compuesta
// del Mensaje Receptor ("{clave}-{consecutivo}").
func (uc *StatusUseCase) Query(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	key := doc.Clave
	if !doc.IsIssued() && doc.ReceiverSequence != "" {
		key = dhacienda.ReceiverCompositeKey(doc.Clave, doc.ReceiverSequence)
	}

	result, err := uc.api.QueryStatus(ctx, key)
	if err != nil {
		return nil, err
	}

	updated, changed := dhacienda.ApplyStatusResponse(*doc, result.HTTPStatus, result.IndEstado, result.ResponseXML)
	if !changed {
		// Estados HTTP inesperados solo se registran; el documento no cambia.
		uc.log.Warn().
			Str("clave", doc.Clave).
			Int("http_status", result.HTTPStatus).
			Msg("consulta de estado con respuesta inesperada")
		return doc, nil
	}

	newState := dhacienda.LifecycleState(&updated)

	// Con rechazo o error, el DetalleMensaje de la respuesta explica el motivo.
	if len(updated.ResponseXML) > 0 &&
		(newState == hcat.StateRechazado || newState == hcat.StateError) {
		if reason, perr := uc.parser.ParseResponseMessage(updated.ResponseXML); perr == nil && reason != "" {
			updated.ReturnMessage = reason
		}
	}

	updated.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("clave", updated.Clave).
		Str("estado", newState).
		Msg("estado ante Hacienda actualizado")

	// Los avisos salen solo en la transición, no en cada consulta posterior.
	if uc.notifier != nil && newState != dhacienda.LifecycleState(doc) {
		switch newState {
		case hcat.StateRechazado:
			if nerr := uc.notifier.NotifyRejection(ctx, &updated, updated.ReturnMessage); nerr != nil {
				uc.log.Warn().Err(nerr).Str("clave", updated.Clave).Msg("no se pudo enviar el aviso de rechazo")
			}
		case hcat.StateAceptado:
			if nerr := uc.notifier.NotifyAcceptance(ctx, &updated); nerr != nil {
				uc.log.Warn().Err(nerr).Str("clave", updated.Clave).Msg("no se pudo enviar el aviso de aceptación")
			}
		}
	}

	return &updated, nil
}
