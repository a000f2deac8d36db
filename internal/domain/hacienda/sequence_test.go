package hacienda_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacr/hacienda-edi/internal/domain/hacienda"
	hcat "github.com/facturacr/hacienda-edi/pkg/hacienda"
)

// ──────────────────────────────────────────────────────────────────────────────
// El consecutivo de 20 dígitos y la clave de 50 son la identidad del
// comprobante ante Hacienda: un dígito corrido y el comprobante se rechaza.
// Estos tests fijan el layout exacto de ambos.
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeFullSequence_LayoutExacto(t *testing.T) {
	svc := hacienda.NewSequenceService()

	full, err := svc.ComputeFullSequence("1", "1", hcat.DocTypeFE, 42)
	require.NoError(t, err, "componentes válidos no deben fallar")

	assert.Len(t, full, 20, "el consecutivo debe tener 20 dígitos")
	assert.Equal(t, "00100001010000000042", full,
		"sucursal(3) + terminal(5) + tipo(2) + consecutivo(10)")
}

func TestComputeFullSequence_CodigosPorTipo(t *testing.T) {
	svc := hacienda.NewSequenceService()

	cases := map[string]string{
		hcat.DocTypeFE:   "01",
		hcat.DocTypeND:   "02",
		hcat.DocTypeNC:   "03",
		hcat.DocTypeTE:   "04",
		hcat.DocTypeCCE:  "05",
		hcat.DocTypeCPCE: "06",
		hcat.DocTypeRCE:  "07",
		hcat.DocTypeFEC:  "08",
		hcat.DocTypeFEE:  "09",
	}
	for docType, code := range cases {
		full, err := svc.ComputeFullSequence("002", "00003", docType, 1)
		require.NoError(t, err)
		assert.Equal(t, code, full[8:10], "código del tipo %s", docType)
	}
}

func TestComputeFullSequence_RechazaDesbordes(t *testing.T) {
	svc := hacienda.NewSequenceService()

	_, err := svc.ComputeFullSequence("1234", "1", hcat.DocTypeFE, 1)
	assert.Error(t, err, "sucursal de más de 3 dígitos no debe truncarse en silencio")

	_, err = svc.ComputeFullSequence("1", "123456", hcat.DocTypeFE, 1)
	assert.Error(t, err, "terminal de más de 5 dígitos no debe truncarse en silencio")

	_, err = svc.ComputeFullSequence("1", "1", hcat.DocTypeFE, 10_000_000_000)
	assert.Error(t, err, "consecutivo de más de 10 dígitos no debe truncarse en silencio")

	_, err = svc.ComputeFullSequence("1", "1", "XX", 1)
	assert.Error(t, err, "tipo de documento desconocido debe fallar")

	_, err = svc.ComputeFullSequence("00A", "1", hcat.DocTypeFE, 1)
	assert.Error(t, err, "sucursal no numérica debe fallar")

	_, err = svc.ComputeFullSequence("1", "1", hcat.DocTypeFE, 0)
	assert.Error(t, err, "consecutivo cero no es válido")
}

func TestComputeClave_LayoutExacto(t *testing.T) {
	svc := hacienda.NewSequenceService()

	full, err := svc.ComputeFullSequence("1", "1", hcat.DocTypeFE, 42)
	require.NoError(t, err)

	date := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.FixedZone("CST", -6*3600))
	clave, err := svc.ComputeClave("3101123456", date, full, hcat.SituationNormal, "12345678")
	require.NoError(t, err)

	assert.Len(t, clave, 50, "la clave debe tener 50 dígitos")
	assert.Equal(t, "506", clave[:3], "prefijo de país")
	assert.Equal(t, "050324", clave[3:9], "fecha en formato DDMMAA")
	assert.Equal(t, "003101123456", clave[9:21], "cédula del emisor a 12 dígitos")
	assert.Equal(t, full, clave[21:41], "consecutivo completo")
	assert.Equal(t, "1", clave[41:42], "código de situación")
	assert.Equal(t, "12345678", clave[42:], "código de seguridad")

	assert.NoError(t, hacienda.ValidateClave(clave))
}

func TestComputeClave_Invalidos(t *testing.T) {
	svc := hacienda.NewSequenceService()
	date := time.Now()

	_, err := svc.ComputeClave("", date, "00100001010000000042", "1", "12345678")
	assert.Error(t, err, "cédula vacía debe fallar")

	_, err = svc.ComputeClave("3101123456", date, "123", "1", "12345678")
	assert.Error(t, err, "consecutivo de largo incorrecto debe fallar")

	_, err = svc.ComputeClave("3101123456", date, "00100001010000000042", "9", "12345678")
	assert.Error(t, err, "situación desconocida debe fallar")

	_, err = svc.ComputeClave("3101123456", date, "00100001010000000042", "1", "1234")
	assert.Error(t, err, "código de seguridad corto debe fallar")
}

func TestRandomSecurityCode_OchoDigitos(t *testing.T) {
	svc := hacienda.NewSequenceService()
	for i := 0; i < 20; i++ {
		code, err := svc.RandomSecurityCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.Regexp(t, `^\d{8}$`, code)
	}
}

func TestValidateClave(t *testing.T) {
	assert.Error(t, hacienda.ValidateClave("123"), "largo incorrecto")
	assert.Error(t, hacienda.ValidateClave("5060503243101123456000100001010000000042112345678X"), "caracteres no numéricos")
	assert.NoError(t, hacienda.ValidateClave("50605032400310112345600100001010000000042112345678"))
}
