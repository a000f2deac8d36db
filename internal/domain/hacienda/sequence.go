// Package hacienda: cálculo del consecutivo y la clave numérica de los
// comprobantes electrónicos de Costa Rica (Anexos y Estructuras v4.3).
// El consecutivo tiene 20 dígitos y la clave 50; ambos se validan de forma
// estricta: un componente que no quepa en su ancho es un error, nunca se
// trunca en silencio.

package hacienda

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/facturacr/hacienda-edi/pkg/hacienda"
)

// Anchos de los componentes del consecutivo y la clave.
const (
	BranchWidth   = 3
	TerminalWidth = 5
	DocTypeWidth  = 2
	SequenceWidth = 10

	FullSequenceWidth = BranchWidth + TerminalWidth + DocTypeWidth + SequenceWidth // 20
	ClaveWidth        = 50
	IssuerIDWidth     = 12
	SecurityWidth     = 8
)

// SequenceService calcula consecutivos y claves numéricas.
type SequenceService struct{}

// NewSequenceService crea el servicio.
func NewSequenceService() *SequenceService {
	return &SequenceService{}
}

// ComputeFullSequence arma el NumeroConsecutivo de 20 dígitos:
// sucursal(3) + terminal(5) + tipo de documento(2) + consecutivo(10).
func (s *SequenceService) ComputeFullSequence(branch, terminal, docType string, sequence int64) (string, error) {
	b, err := padNumeric("sucursal", branch, BranchWidth)
	if err != nil {
		return "", err
	}
	t, err := padNumeric("terminal", terminal, TerminalWidth)
	if err != nil {
		return "", err
	}
	code, ok := hacienda.DocTypeCodes[docType]
	if !ok {
		return "", fmt.Errorf("hacienda: tipo de documento desconocido: %q", docType)
	}
	if sequence < 1 {
		return "", fmt.Errorf("hacienda: consecutivo inválido: %d", sequence)
	}
	seq := strconv.FormatInt(sequence, 10)
	if len(seq) > SequenceWidth {
		return "", fmt.Errorf("hacienda: consecutivo %d excede los %d dígitos", sequence, SequenceWidth)
	}
	full := b + t + code + strings.Repeat("0", SequenceWidth-len(seq)) + seq
	if len(full) != FullSequenceWidth {
		return "", fmt.Errorf("hacienda: consecutivo resultante con largo %d, esperado %d", len(full), FullSequenceWidth)
	}
	return full, nil
}

// ComputeClave arma la clave numérica de 50 dígitos:
// país(3) + día(2) + mes(2) + año(2) + cédula del emisor(12) +
// consecutivo(20) + situación(1) + código de seguridad(8).
// La fecha se toma en la zona horaria del emisor (Costa Rica).
func (s *SequenceService) ComputeClave(issuerID string, date time.Time, fullSequence, situation, security string) (string, error) {
	issuer, err := padNumeric("cédula del emisor", issuerID, IssuerIDWidth)
	if err != nil {
		return "", err
	}
	if len(fullSequence) != FullSequenceWidth || !isNumeric(fullSequence) {
		return "", fmt.Errorf("hacienda: consecutivo inválido para la clave: %q", fullSequence)
	}
	switch situation {
	case hacienda.SituationNormal, hacienda.SituationContingency, hacienda.SituationNoInternet:
	default:
		return "", fmt.Errorf("hacienda: código de situación desconocido: %q", situation)
	}
	if len(security) != SecurityWidth || !isNumeric(security) {
		return "", fmt.Errorf("hacienda: código de seguridad inválido: %q", security)
	}

	clave := hacienda.CountryCodeCR +
		date.Format("020106") +
		issuer +
		fullSequence +
		situation +
		security
	if len(clave) != ClaveWidth {
		return "", fmt.Errorf("hacienda: clave resultante con largo %d, esperado %d", len(clave), ClaveWidth)
	}
	return clave, nil
}

// RandomSecurityCode genera el código de seguridad de 8 dígitos de la clave.
func (s *SequenceService) RandomSecurityCode() (string, error) {
	max := big.NewInt(100000000) // 8 dígitos
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("hacienda: generando código de seguridad: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// ValidateClave comprueba que la clave tenga 50 dígitos numéricos.
func ValidateClave(clave string) error {
	if len(clave) != ClaveWidth || !isNumeric(clave) {
		return fmt.Errorf("hacienda: clave numérica inválida: %q", clave)
	}
	return nil
}

// padNumeric rellena con ceros a la izquierda hasta width. Valores vacíos,
// no numéricos o más anchos que width son un error.
func padNumeric(name, value string, width int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("hacienda: %s es obligatorio", name)
	}
	if !isNumeric(v) {
		return "", fmt.Errorf("hacienda: %s debe ser numérico: %q", name, value)
	}
	if len(v) > width {
		return "", fmt.Errorf("hacienda: %s %q excede los %d dígitos", name, value, width)
	}
	return strings.Repeat("0", width-len(v)) + v, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
