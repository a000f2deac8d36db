package edi_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

type stubProcessor struct {
	mu       sync.Mutex
	queried  []string
	sent     []string
	failWith map[string]error
}

func (s *stubProcessor) Query(_ context.Context, documentID string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[documentID]; err != nil {
		return nil, err
	}
	s.queried = append(s.queried, documentID)
	return &entity.Document{ID: documentID}, nil
}

func (s *stubProcessor) SendReceiverMessage(_ context.Context, documentID, _ string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[documentID]; err != nil {
		return nil, err
	}
	s.sent = append(s.sent, documentID)
	return &entity.Document{ID: documentID}, nil
}

func pendingReceived(n int) []*entity.Document {
	docs := make([]*entity.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, &entity.Document{
			ID:               fmt.Sprintf("mr-%02d", i),
			CompanyID:        "co-1",
			Direction:        entity.DirectionReceived,
			StateSendInvoice: entity.SendStatePending,
		})
	}
	return docs
}

func inProgressIssued(n int) []*entity.Document {
	docs := make([]*entity.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, &entity.Document{
			ID:               fmt.Sprintf("fe-%02d", i),
			CompanyID:        "co-1",
			Direction:        entity.DirectionIssued,
			StateTributacion: "procesando",
			XMLDocument:      []byte("<FacturaElectronica/>"),
		})
	}
	return docs
}

func TestRun_RespetaElTamanoDeTanda(t *testing.T) {
	docRepo := newMockDocRepo(pendingReceived(15)...)
	proc := &stubProcessor{}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 10, logger.Nop())

	result, err := uc.Run(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 10, result.Sent, "la tanda no procesa más de maxDocs documentos")
	assert.Len(t, proc.sent, 10)
}

func TestRun_ConsultaLosDocumentosEnTramite(t *testing.T) {
	docs := append(pendingReceived(2), inProgressIssued(3)...)
	docRepo := newMockDocRepo(docs...)
	proc := &stubProcessor{}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 10, logger.Nop())

	result, err := uc.Run(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 3, result.Queried)
	assert.Equal(t, 0, result.Failed)
}

func TestRun_ConsultaElMensajeReceptorEnTramite(t *testing.T) {
	// Un MR ya presentado queda con el trámite en el estado de envío y sin
	// estado de tributación; la corrida igualmente tiene que consultarlo.
	doc := &entity.Document{
		ID:               "mr-tramite",
		CompanyID:        "co-1",
		Direction:        entity.DirectionReceived,
		StateSendInvoice: "procesando",
		ReceiverSequence: "2",
		XMLDocument:      []byte("<MensajeReceptor/>"),
	}
	docRepo := newMockDocRepo(doc)
	proc := &stubProcessor{}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 10, logger.Nop())

	result, err := uc.Run(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Queried, "el MR en trámite entra en la corrida de fondo")
	assert.Equal(t, []string{"mr-tramite"}, proc.queried)
	assert.Zero(t, result.Sent)
}

func TestRun_UnFalloNoDetieneLaTanda(t *testing.T) {
	docs := append(pendingReceived(3), inProgressIssued(2)...)
	docRepo := newMockDocRepo(docs...)
	proc := &stubProcessor{failWith: map[string]error{
		"mr-01": errors.New("recepción caída"),
		"fe-00": errors.New("recepción caída"),
	}}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 10, logger.Nop())

	result, err := uc.Run(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Queried)
	assert.Equal(t, 2, result.Failed)
}

func TestRun_ContextoCanceladoCortaLaCorrida(t *testing.T) {
	docRepo := newMockDocRepo(pendingReceived(5)...)
	proc := &stubProcessor{}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 10, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Run(ctx, "co-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SinPendientesNoHaceNada(t *testing.T) {
	docRepo := newMockDocRepo()
	proc := &stubProcessor{}
	uc := edi.NewBatchUseCase(docRepo, proc, proc, 0, logger.Nop())

	result, err := uc.Run(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Zero(t, result.Sent+result.Queried+result.Failed)
}
