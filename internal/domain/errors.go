package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrExternalAPI  = errors.New("error en la API externa")
	ErrPersistence  = errors.New("error de persistencia")
)

// ValidationError datos fiscales o de entrada faltantes o mal formados. Se detecta antes de cualquier escritura.
type ValidationError struct {
	Reasons []string
}

// NewValidationError construye el error con uno o más motivos legibles.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrInvalidInput.Error()
	}
	return strings.Join(e.Reasons, "; ")
}

// Is permite errors.Is(err, domain.ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NotFoundError entidad referenciada inexistente (cliente, factura, pedido, tienda).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError número de factura duplicado, pedido ya facturado, borrado bloqueado por referencias.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ExternalAPIError fallo de red, de autenticación o status inesperado de la tienda.
type ExternalAPIError struct {
	Op           string
	StatusCode   int
	Unauthorized bool
	Err          error
}

func (e *ExternalAPIError) Error() string {
	switch {
	case e.Unauthorized:
		return fmt.Sprintf("%s: credenciales de la API no válidas (HTTP %d)", e.Op, e.StatusCode)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: respuesta inesperada (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: respuesta inesperada (HTTP %d)", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

func (e *ExternalAPIError) Is(target error) bool {
	if target == ErrExternalAPI {
		return true
	}
	return e.Unauthorized && target == ErrUnauthorized
}

// PersistenceError fallo de escritura en la capa de almacenamiento.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
