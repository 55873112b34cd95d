// Package invoicing contiene las reglas puras del libro de facturas:
// máquina de estados y formato de numeración.
package invoicing

import (
	"fmt"

	"github.com/jhoicas/fatture-rf/internal/domain"
	"github.com/jhoicas/fatture-rf/internal/domain/entity"
)

// overdue admite cobro o anulación: una factura vencida sigue pendiente.
var transitions = map[entity.InvoiceStatus][]entity.InvoiceStatus{
	entity.InvoiceStatusDraft:     {entity.InvoiceStatusSent, entity.InvoiceStatusCancelled},
	entity.InvoiceStatusSent:      {entity.InvoiceStatusPaid, entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled, entity.InvoiceStatusSubmitted},
	entity.InvoiceStatusOverdue:   {entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled},
	entity.InvoiceStatusSubmitted: {entity.InvoiceStatusAccepted, entity.InvoiceStatusRejected},
}

// ValidStatus indica si s es un estado conocido.
func ValidStatus(s entity.InvoiceStatus) bool {
	switch s {
	case entity.InvoiceStatusDraft, entity.InvoiceStatusSent, entity.InvoiceStatusPaid,
		entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled, entity.InvoiceStatusSubmitted,
		entity.InvoiceStatusAccepted, entity.InvoiceStatusRejected:
		return true
	}
	return false
}

// Terminal indica que desde s no hay transiciones posibles.
func Terminal(s entity.InvoiceStatus) bool {
	return len(transitions[s]) == 0
}

// AllowedTransitions estados alcanzables desde s.
func AllowedTransitions(s entity.InvoiceStatus) []entity.InvoiceStatus {
	out := make([]entity.InvoiceStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// CanTransition indica si from → to está permitido.
func CanTransition(from, to entity.InvoiceStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition devuelve ValidationError si el cambio no está permitido.
func CheckTransition(from, to entity.InvoiceStatus) error {
	if !ValidStatus(to) {
		return domain.NewValidationError(fmt.Sprintf("estado desconocido: %q", to))
	}
	if !CanTransition(from, to) {
		return domain.NewValidationError(fmt.Sprintf("transición de estado no permitida: %s → %s", from, to))
	}
	return nil
}
