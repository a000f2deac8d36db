package hacienda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
	"github.com/facturacr/hacienda-edi/internal/domain/hacienda"
)

func validDoc() *entity.Document {
	return &entity.Document{
		DocType:      "FE",
		ActivityCode: "620100",
		AmountTax:    dec("130.00"),
		AmountTotal:  dec("1130.00"),
		Lines: []entity.LineItem{
			{Unit: "Sp", Subtotal: dec("1000.00"), Taxes: iva13("1000.00")},
		},
	}
}

func TestValidateDocument_Valido(t *testing.T) {
	assert.NoError(t, hacienda.ValidateDocument(validDoc()))
}

func TestValidateDocument_AcumulaErrores(t *testing.T) {
	doc := validDoc()
	doc.DocType = ""
	doc.ActivityCode = ""
	doc.AmountTotal = dec("9999.00")

	err := hacienda.ValidateDocument(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, hacienda.ErrInvalidDocument)
	// errors.Join: los tres problemas deben aparecer en el mensaje.
	assert.Contains(t, err.Error(), "tipo de documento")
	assert.Contains(t, err.Error(), "actividad económica")
	assert.Contains(t, err.Error(), "total del comprobante")
}

func TestValidateDocument_SinLineas(t *testing.T) {
	doc := validDoc()
	doc.Lines = nil
	assert.ErrorIs(t, hacienda.ValidateDocument(doc), hacienda.ErrInvalidDocument)
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, hacienda.ValidatePhone("506", "22123456"), "fijo de San José válido")
	assert.NoError(t, hacienda.ValidatePhone("", "22123456"), "sin código de país asume 506")
	assert.NoError(t, hacienda.ValidatePhone("506", ""), "teléfono vacío es opcional")

	err := hacienda.ValidatePhone("506", "12345")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
