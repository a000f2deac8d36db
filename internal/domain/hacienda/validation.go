// Validaciones de dominio previas a la generación del XML. Agrupan todos
// los problemas encontrados con errors.Join en lugar de cortar en el primero.
package hacienda

import (
	"errors"
	"fmt"

	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"

	"github.com/facturacr/hacienda-edi/internal/domain"
	"github.com/facturacr/hacienda-edi/internal/domain/entity"
)

// ErrInvalidDocument agrupa errores de validación del comprobante.
var ErrInvalidDocument = errors.New("comprobante inválido")

// ValidateDocument valida el comprobante y sus líneas antes de generar XML.
// Comprueba que los totales registrados coincidan con la suma de las líneas.
func ValidateDocument(doc *entity.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: comprobante nulo", ErrInvalidDocument)
	}
	var errs []error

	if len(doc.Lines) == 0 {
		errs = append(errs, fmt.Errorf("%w: el comprobante debe tener al menos una línea", ErrInvalidDocument))
	} else {
		var sumSubtotal, sumTax decimal.Decimal
		for _, line := range doc.Lines {
			sumSubtotal = sumSubtotal.Add(line.Subtotal)
			for _, tax := range line.Taxes {
				sumTax = sumTax.Add(tax.Amount)
			}
		}
		sumTax = sumTax.Round(2)
		if !doc.AmountTax.Equal(sumTax) {
			errs = append(errs, fmt.Errorf("total de impuestos (%s) no coincide con la suma por líneas (%s)", doc.AmountTax.String(), sumTax.String()))
		}
		expectedTotal := sumSubtotal.Add(sumTax).Round(2)
		if !doc.AmountTotal.Equal(expectedTotal) {
			errs = append(errs, fmt.Errorf("total del comprobante (%s) no coincide con líneas + impuestos (%s)", doc.AmountTotal.String(), expectedTotal.String()))
		}
	}

	if doc.DocType == "" {
		errs = append(errs, fmt.Errorf("%w: falta el tipo de documento", ErrInvalidDocument))
	}
	if doc.ActivityCode == "" {
		errs = append(errs, fmt.Errorf("%w: falta el código de actividad económica", ErrInvalidDocument))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}

// ValidatePhone valida un teléfono contra su código de país. Costa Rica
// ("506") por defecto cuando no hay código.
func ValidatePhone(countryCode, number string) error {
	if number == "" {
		return nil
	}
	if countryCode == "" {
		countryCode = "506"
	}
	region := phonenumbers.GetRegionCodeForCountryCode(atoiSafe(countryCode))
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return &domain.InvalidPhoneError{Number: number}
	}
	return nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
