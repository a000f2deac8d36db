package edi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/application/edi"
	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	dhacienda "github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	infra "github.com/facturacr/hacienda-edi/internal/infrastructure/hacienda"
	"github.com/facturacr/hacienda-edi/pkg/config"
	"github.com/facturacr/hacienda-edi/pkg/logger"
)

const supplierClave = "50605032400310199999900100001010000000042112345678"

func supplierInvoiceXML() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Clave>` + supplierClave + `</Clave>
  <FechaEmision>2024-03-05T10:30:00-06:00</FechaEmision>
  <Emisor>
    <Nombre>Proveedor S.A.</Nombre>
    <Identificacion><Tipo>02</Tipo><Numero>3101999999</Numero></Identificacion>
    <CorreoElectronico>fact@proveedor.cr</CorreoElectronico>
  </Emisor>
  <Receptor>
    <Identificacion><Tipo>02</Tipo><Numero>3101123456</Numero></Identificacion>
  </Receptor>
  <DetalleServicio>
    <LineaDetalle>
      <NumeroLinea>1</NumeroLinea>
      <Cantidad>2.000</Cantidad>
      <UnidadMedida>Unid</UnidadMedida>
      <Detalle>Resmas de papel</Detalle>
      <PrecioUnitario>500.00000</PrecioUnitario>
      <MontoTotal>1000.00000</MontoTotal>
      <SubTotal>1000.00000</SubTotal>
      <Impuesto><Codigo>01</Codigo><Tarifa>13.00</Tarifa><Monto>130.00000</Monto></Impuesto>
      <MontoTotalLinea>1130.00000</MontoTotalLinea>
    </LineaDetalle>
  </DetalleServicio>
  <ResumenFactura>
    <TotalImpuesto>130.00000</TotalImpuesto>
    <TotalComprobante>1130.00000</TotalComprobante>
  </ResumenFactura>
</FacturaElectronica>`)
}

func purchaseIVA13() *entity.Tax {
	return &entity.Tax{ID: "tax-1", CompanyID: "co-1", Code: "01", Rate: dec("13"), Usage: entity.TaxUsagePurchase}
}

func newReceiverUseCase(docRepo *mockDocRepo, partyRepo *mockPartyRepo, taxRepo *mockTaxRepo, api *mockAPI, cfg config.EDIConfig) *edi.ReceiverUseCase {
	return edi.NewReceiverUseCase(
		docRepo,
		&mockCompanyRepo{company: testCompany()},
		partyRepo,
		taxRepo,
		newMockSeqRepo(),
		stubTxRunner{docs: docRepo, parties: partyRepo},
		dhacienda.NewSequenceService(),
		infra.NewXMLBuilderService(),
		infra.NewXMLParserService(),
		fakeSigner{},
		testCert(),
		api,
		cfg,
		logger.Nop(),
	)
}

func defaultEDIConfig() config.EDIConfig {
	return config.EDIConfig{BranchMR: "2", TerminalMR: "2", MaxDocuments: 10, LoadLineItems: true}
}

func supplierParty() *entity.Party {
	return &entity.Party{
		ID:             "prov-1",
		CompanyID:      "co-1",
		Name:           "Proveedor S.A.",
		IDType:         "02",
		Identification: "3101999999",
	}
}

func TestImport_FacturaDeProveedor(t *testing.T) {
	docRepo := newMockDocRepo()
	partyRepo := newMockPartyRepo(supplierParty())
	uc := newReceiverUseCase(docRepo, partyRepo, &mockTaxRepo{taxes: []*entity.Tax{purchaseIVA13()}}, &mockAPI{}, defaultEDIConfig())

	doc, err := uc.Import(context.Background(), edi.ImportParams{
		CompanyID: "co-1",
		JournalID: "j-1",
		XML:       supplierInvoiceXML(),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.DirectionReceived, doc.Direction)
	assert.Equal(t, supplierClave, doc.Clave)
	assert.Equal(t, "FE", doc.DocType)
	assert.True(t, doc.AmountTotalXML.Equal(dec("1130.00000")))
	assert.Equal(t, "FE_"+supplierClave+".xml", doc.XMLFilename)
	assert.Equal(t, "prov-1", doc.PartyID, "el comprobante queda ligado al proveedor del padrón")

	require.Len(t, doc.Lines, 1)
	require.Len(t, doc.Lines[0].Taxes, 1)
	assert.Equal(t, "tax-1", doc.Lines[0].Taxes[0].TaxID, "el impuesto se resuelve contra el catálogo de compras")
}

func TestImport_ProveedorInexistente(t *testing.T) {
	docRepo := newMockDocRepo()
	partyRepo := newMockPartyRepo()
	uc := newReceiverUseCase(docRepo, partyRepo, &mockTaxRepo{taxes: []*entity.Tax{purchaseIVA13()}}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.Import(context.Background(), edi.ImportParams{
		CompanyID: "co-1",
		JournalID: "j-1",
		XML:       supplierInvoiceXML(),
	})
	require.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Contains(t, err.Error(), "3101999999", "el error nombra la cédula del proveedor faltante")

	// El XML no da de alta proveedores ni deja documento a medias.
	assert.Empty(t, partyRepo.created)
	assert.Empty(t, docRepo.docs)
}

func TestImport_ImpuestoDesconocidoAbortaTodo(t *testing.T) {
	docRepo := newMockDocRepo()
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.Import(context.Background(), edi.ImportParams{
		CompanyID: "co-1",
		JournalID: "j-1",
		XML:       supplierInvoiceXML(),
	})
	require.Error(t, err)

	var unknown *domain.UnknownTaxError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "01", unknown.Code)

	// Todo o nada: no queda documento a medias.
	assert.Empty(t, docRepo.docs)
}

func TestImport_ClaveDuplicada(t *testing.T) {
	docRepo := newMockDocRepo(&entity.Document{ID: "previo", CompanyID: "co-1", Clave: supplierClave})
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(), &mockTaxRepo{taxes: []*entity.Tax{purchaseIVA13()}}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.Import(context.Background(), edi.ImportParams{CompanyID: "co-1", JournalID: "j-1", XML: supplierInvoiceXML()})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestImport_ReceptorAjeno(t *testing.T) {
	uc := newReceiverUseCase(newMockDocRepo(), newMockPartyRepo(), &mockTaxRepo{taxes: []*entity.Tax{purchaseIVA13()}}, &mockAPI{}, defaultEDIConfig())

	foreign := []byte(`<?xml version="1.0"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Clave>` + supplierClave + `</Clave>
  <FechaEmision>2024-03-05T10:30:00-06:00</FechaEmision>
  <Emisor><Identificacion><Numero>3101999999</Numero></Identificacion></Emisor>
  <Receptor><Identificacion><Numero>3109999999</Numero></Identificacion></Receptor>
  <ResumenFactura><TotalComprobante>1130.00000</TotalComprobante></ResumenFactura>
</FacturaElectronica>`)

	_, err := uc.Import(context.Background(), edi.ImportParams{CompanyID: "co-1", JournalID: "j-1", XML: foreign})
	assert.ErrorIs(t, err, domain.ErrPrecondition, "comprobante dirigido a otra cédula")
}

func receivedDocument() *entity.Document {
	return &entity.Document{
		ID:                  "rec-1",
		CompanyID:           "co-1",
		JournalID:           "j-1",
		PartyID:             "p-1",
		Direction:           entity.DirectionReceived,
		DocType:             "FE",
		Clave:               supplierClave,
		Date:                time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC),
		StateInvoicePartner: "1",
		StateSendInvoice:    entity.SendStatePending,
		AmountTotal:         dec("1130.00"),
		AmountTotalXML:      dec("1130.00"),
		AmountTaxXML:        dec("130.00"),
		XMLDocument:         []byte("<FacturaElectronica/>"),
	}
}

func TestSendReceiverMessage_Acepta(t *testing.T) {
	docRepo := newMockDocRepo(receivedDocument())
	api := &mockAPI{submitResult: &infra.SubmitResult{Status: 202}}
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(testParty()), &mockTaxRepo{}, api, defaultEDIConfig())

	doc, err := uc.SendReceiverMessage(context.Background(), "rec-1", "")
	require.NoError(t, err)

	assert.Len(t, doc.ReceiverSequence, 20)
	assert.Equal(t, "05", doc.ReceiverSequence[8:10], "aceptación usa el tipo CCE")
	assert.Equal(t, "procesando", doc.StateSendInvoice)
	assert.Equal(t, "ACH_"+doc.Clave+"-"+doc.ReceiverSequence+".xml", doc.ReceiverFilename)
	assert.NotEmpty(t, doc.ReceiverXML)

	require.Len(t, api.submitCalls, 1)
	call := api.submitCalls[0]
	assert.Equal(t, doc.ReceiverSequence, call.ConsecutivoReceptor)
	assert.Equal(t, "3102987654", call.IssuerID, "el emisor del mensaje es el proveedor original")
	assert.Equal(t, "3101123456", call.ReceiverID)
}

func TestSendReceiverMessage_RechazoUsaRCE(t *testing.T) {
	docRepo := newMockDocRepo(receivedDocument())
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	doc, err := uc.SendReceiverMessage(context.Background(), "rec-1", "3")
	require.NoError(t, err)
	assert.Equal(t, "07", doc.ReceiverSequence[8:10], "rechazo usa el tipo RCE")
	assert.Contains(t, string(doc.ReceiverXML), "<Mensaje>3</Mensaje>")
}

func TestSendReceiverMessage_GuardasDeDominio(t *testing.T) {
	// Totales fuera de tolerancia.
	doc := receivedDocument()
	doc.AmountTotalXML = dec("1200.00")
	uc := newReceiverUseCase(newMockDocRepo(doc), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())
	_, err := uc.SendReceiverMessage(context.Background(), "rec-1", "")
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	// Mensaje Receptor ya aceptado por Hacienda.
	doc = receivedDocument()
	doc.StateSendInvoice = "aceptado"
	uc = newReceiverUseCase(newMockDocRepo(doc), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())
	_, err = uc.SendReceiverMessage(context.Background(), "rec-1", "")
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	// Sin sucursal/terminal MR configuradas.
	uc = newReceiverUseCase(newMockDocRepo(receivedDocument()), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, config.EDIConfig{LoadLineItems: true})
	_, err = uc.SendReceiverMessage(context.Background(), "rec-1", "")
	var mf *domain.MissingFieldError
	assert.True(t, errors.As(err, &mf))
}

func issuedXML(consecutivo, receptor string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <Clave>` + supplierClave + `</Clave>
  <NumeroConsecutivo>` + consecutivo + `</NumeroConsecutivo>
  <FechaEmision>2024-03-05T10:30:00-06:00</FechaEmision>
  <Emisor><Identificacion><Tipo>02</Tipo><Numero>3101123456</Numero></Identificacion></Emisor>
  <Receptor><Identificacion><Tipo>02</Tipo><Numero>` + receptor + `</Numero></Identificacion></Receptor>
  <ResumenFactura><TotalComprobante>1130.00000</TotalComprobante></ResumenFactura>
</FacturaElectronica>`)
}

func TestAttachXML_CruzaYAdjunta(t *testing.T) {
	doc := &entity.Document{
		ID:           "doc-1",
		CompanyID:    "co-1",
		PartyID:      "p-1",
		Direction:    entity.DirectionIssued,
		DocType:      "FE",
		Clave:        supplierClave,
		FullSequence: "00100001010000000042",
		Date:         time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC),
	}
	docRepo := newMockDocRepo(doc)
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	out, err := uc.AttachXML(context.Background(), "doc-1", issuedXML("00100001010000000042", "3102987654"))
	require.NoError(t, err)
	assert.True(t, out.HasXML())
	assert.Equal(t, "FE_"+supplierClave+".xml", out.XMLFilename)
}

func TestAttachXML_ConsecutivoAjeno(t *testing.T) {
	doc := &entity.Document{
		ID:           "doc-1",
		CompanyID:    "co-1",
		PartyID:      "p-1",
		Direction:    entity.DirectionIssued,
		DocType:      "FE",
		Clave:        supplierClave,
		FullSequence: "00100001010000000099",
		Date:         time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC),
	}
	uc := newReceiverUseCase(newMockDocRepo(doc), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.AttachXML(context.Background(), "doc-1", issuedXML("00100001010000000042", "3102987654"))
	assert.ErrorIs(t, err, domain.ErrPrecondition, "el consecutivo del XML no es el del comprobante")
}

func TestAttachXML_ReceptorNoEsElCliente(t *testing.T) {
	doc := &entity.Document{
		ID:        "doc-1",
		CompanyID: "co-1",
		PartyID:   "p-1",
		Direction: entity.DirectionIssued,
		DocType:   "FE",
		Date:      time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC),
	}
	uc := newReceiverUseCase(newMockDocRepo(doc), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.AttachXML(context.Background(), "doc-1", issuedXML("00100001010000000042", "3101555555"))
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestAttachXML_SoloEmitidos(t *testing.T) {
	uc := newReceiverUseCase(newMockDocRepo(receivedDocument()), newMockPartyRepo(testParty()), &mockTaxRepo{}, &mockAPI{}, defaultEDIConfig())

	_, err := uc.AttachXML(context.Background(), "rec-1", issuedXML("00100001010000000042", "3101123456"))
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestSendReceiverMessage_ClaveYaPresentada(t *testing.T) {
	docRepo := newMockDocRepo(receivedDocument())
	api := &mockAPI{submitResult: &infra.SubmitResult{Status: 400, Body: "el documento ya fue recibido anteriormente"}}
	uc := newReceiverUseCase(docRepo, newMockPartyRepo(testParty()), &mockTaxRepo{}, api, defaultEDIConfig())

	doc, err := uc.SendReceiverMessage(context.Background(), "rec-1", "")
	require.NoError(t, err)
	assert.Equal(t, "procesando", doc.StateSendInvoice, "clave repetida no es un error de envío")
}
