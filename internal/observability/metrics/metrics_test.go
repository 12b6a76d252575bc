package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.ObserveChargeGenerated("MEMBERSHIP")
	m.ObserveChargeGenerated("MEMBERSHIP")
	m.ObserveChargeGenerated("PER_SESSION")
	m.ObserveChargeSkipped()
	m.ObserveChargeFailed()
	m.ObserveChargeTransition("PAID")
	m.ObserveLedgerEntry("INCOME")
	m.ObserveGenerationRun("ok")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.chargesGenerated.WithLabelValues("MEMBERSHIP")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.chargesGenerated.WithLabelValues("PER_SESSION")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.chargesSkipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.chargesFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.chargeTransitions.WithLabelValues("PAID")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ledgerEntries.WithLabelValues("INCOME")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.generationRuns.WithLabelValues("ok")))
}

func TestRegistryServesCounters(t *testing.T) {
	m := New()
	m.ObserveChargeGenerated("MEMBERSHIP")

	families, err := m.Registry().Gather()
	assert.NoError(t, err)

	var found bool
	for _, family := range families {
		if family.GetName() == "billing_charges_generated_total" {
			found = true
		}
	}
	assert.True(t, found)
}
