package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	// ErrPrecondition el documento no cumple las condiciones para la operación
	// solicitada (ya está en estado terminal, faltan datos obligatorios, etc.).
	ErrPrecondition = errors.New("condición previa no cumplida")

	// ErrMalformedXML el XML no pudo interpretarse como comprobante electrónico.
	ErrMalformedXML = errors.New("xml de comprobante malformado")

	// ErrTransport fallo de comunicación con el API de Hacienda.
	ErrTransport = errors.New("error de comunicación con hacienda")
)

// MissingNodesError el XML carece de nodos obligatorios. Se reportan todos
// los faltantes de una vez, no solo el primero.
type MissingNodesError struct {
	Nodes []string
}

func (e *MissingNodesError) Error() string {
	return fmt.Sprintf("faltan nodos obligatorios en el xml: %s", strings.Join(e.Nodes, ", "))
}

func (e *MissingNodesError) Unwrap() error { return ErrMalformedXML }

// MissingFieldError falta un campo obligatorio en el documento o la configuración.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("falta el campo obligatorio: %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrPrecondition }

// UnknownTaxError el impuesto del XML no corresponde a ningún impuesto
// registrado (por código y tarifa).
type UnknownTaxError struct {
	Code string
	Rate string
}

func (e *UnknownTaxError) Error() string {
	return fmt.Sprintf("impuesto no registrado: código %s tarifa %s", e.Code, e.Rate)
}

func (e *UnknownTaxError) Unwrap() error { return ErrMalformedXML }

// InvalidDateError la fecha de emisión no coincide con ningún formato aceptado.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("fecha de emisión inválida: %q", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return ErrMalformedXML }

// UnexpectedStatusError respuesta HTTP de Hacienda fuera de lo esperado.
type UnexpectedStatusError struct {
	Status int
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("hacienda respondió %d: %s", e.Status, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error { return ErrTransport }

// InvalidPhoneError el teléfono no es válido para su código de país.
type InvalidPhoneError struct {
	Number string
}

func (e *InvalidPhoneError) Error() string {
	return fmt.Sprintf("número de teléfono inválido: %s", e.Number)
}

func (e *InvalidPhoneError) Unwrap() error { return ErrInvalidInput }
