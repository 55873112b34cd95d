package invoicing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/fatture-rf/internal/domain/entity"
	"github.com/jhoicas/fatture-rf/internal/domain/invoicing"
)

func TestCanTransition_Permitidas(t *testing.T) {
	allowed := [][2]entity.InvoiceStatus{
		{entity.InvoiceStatusDraft, entity.InvoiceStatusSent},
		{entity.InvoiceStatusDraft, entity.InvoiceStatusCancelled},
		{entity.InvoiceStatusSent, entity.InvoiceStatusPaid},
		{entity.InvoiceStatusSent, entity.InvoiceStatusOverdue},
		{entity.InvoiceStatusSent, entity.InvoiceStatusCancelled},
		{entity.InvoiceStatusSent, entity.InvoiceStatusSubmitted},
		{entity.InvoiceStatusSubmitted, entity.InvoiceStatusAccepted},
		{entity.InvoiceStatusSubmitted, entity.InvoiceStatusRejected},
	}
	for _, tr := range allowed {
		assert.True(t, invoicing.CanTransition(tr[0], tr[1]), "%s → %s debe permitirse", tr[0], tr[1])
		assert.NoError(t, invoicing.CheckTransition(tr[0], tr[1]))
	}
}

func TestCanTransition_Rechazadas(t *testing.T) {
	rejected := [][2]entity.InvoiceStatus{
		{entity.InvoiceStatusPaid, entity.InvoiceStatusDraft},
		{entity.InvoiceStatusDraft, entity.InvoiceStatusPaid},
		{entity.InvoiceStatusCancelled, entity.InvoiceStatusSent},
		{entity.InvoiceStatusAccepted, entity.InvoiceStatusRejected},
		{entity.InvoiceStatusRejected, entity.InvoiceStatusSubmitted},
		{entity.InvoiceStatusDraft, entity.InvoiceStatusSubmitted},
	}
	for _, tr := range rejected {
		assert.False(t, invoicing.CanTransition(tr[0], tr[1]), "%s → %s debe rechazarse", tr[0], tr[1])
		assert.Error(t, invoicing.CheckTransition(tr[0], tr[1]))
	}
	assert.Error(t, invoicing.CheckTransition(entity.InvoiceStatusDraft, "archived"), "estado desconocido")
}

// Una factura vencida sigue pendiente de cobro: puede cobrarse o anularse, nada más.
func TestCanTransition_VencidaSoloCobroOAnulacion(t *testing.T) {
	assert.NoError(t, invoicing.CheckTransition(entity.InvoiceStatusOverdue, entity.InvoiceStatusPaid))
	assert.NoError(t, invoicing.CheckTransition(entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled))
	assert.ElementsMatch(t,
		[]entity.InvoiceStatus{entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled},
		invoicing.AllowedTransitions(entity.InvoiceStatusOverdue))

	for _, to := range []entity.InvoiceStatus{
		entity.InvoiceStatusDraft, entity.InvoiceStatusSent, entity.InvoiceStatusSubmitted,
		entity.InvoiceStatusAccepted, entity.InvoiceStatusRejected,
	} {
		assert.Error(t, invoicing.CheckTransition(entity.InvoiceStatusOverdue, to), "overdue → %s", to)
	}
	assert.False(t, invoicing.Terminal(entity.InvoiceStatusOverdue))
}

func TestTerminal(t *testing.T) {
	for _, s := range []entity.InvoiceStatus{
		entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled,
		entity.InvoiceStatusAccepted, entity.InvoiceStatusRejected,
	} {
		assert.True(t, invoicing.Terminal(s), "%s es terminal", s)
	}
	assert.False(t, invoicing.Terminal(entity.InvoiceStatusDraft))
}

func TestNextNumber_UsaElMaximoNoElConteo(t *testing.T) {
	existing := []string{"FATT/2025/0001", "FATT/2025/0003", "FATT/2024/0099", "ALTRO/2025/0050"}
	highest := invoicing.MaxSequence(existing, "FATT", 2025)
	assert.Equal(t, 3, highest)
	assert.Equal(t, "FATT/2025/0004", invoicing.NextNumber("FATT", 2025, highest))
}

func TestNextNumber_PrimerNumeroDelAnio(t *testing.T) {
	assert.Equal(t, "FATT/2026/0001", invoicing.NextNumber("FATT", 2026, invoicing.MaxSequence(nil, "FATT", 2026)))
}

func TestParseSequence(t *testing.T) {
	seq, ok := invoicing.ParseSequence("FATT/2025/0042", "FATT", 2025)
	assert.True(t, ok)
	assert.Equal(t, 42, seq)

	_, ok = invoicing.ParseSequence("FATT/2025/00A2", "FATT", 2025)
	assert.False(t, ok)
	_, ok = invoicing.ParseSequence("FATT/2025/", "FATT", 2025)
	assert.False(t, ok)
}

func TestProgressiveID(t *testing.T) {
	assert.Equal(t, "50001", invoicing.ProgressiveID("FATT/2025/0001"))
	assert.Equal(t, "A1", invoicing.ProgressiveID("A/1"))
}
