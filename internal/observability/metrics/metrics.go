// Package metrics exposes application-level Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics holds the counters exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	chargesGenerated  *prometheus.CounterVec
	chargesSkipped    prometheus.Counter
	chargesFailed     prometheus.Counter
	chargeTransitions *prometheus.CounterVec
	ledgerEntries     *prometheus.CounterVec
	generationRuns    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		chargesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_charges_generated_total",
			Help: "Charges created by generation runs, by charge type.",
		}, []string{"charge_type"}),
		chargesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_charges_skipped_total",
			Help: "Population entries skipped because the charge already existed.",
		}),
		chargesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_charges_failed_total",
			Help: "Population entries skipped because the payer was not eligible.",
		}),
		chargeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_charge_transitions_total",
			Help: "Charge state transitions, by target status.",
		}, []string{"to_status"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_ledger_entries_total",
			Help: "Ledger entries appended, by entry type.",
		}, []string{"entry_type"}),
		generationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_generation_runs_total",
			Help: "Charge generation runs, by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.chargesGenerated,
		m.chargesSkipped,
		m.chargesFailed,
		m.chargeTransitions,
		m.ledgerEntries,
		m.generationRuns,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveChargeGenerated(chargeType string) {
	m.chargesGenerated.WithLabelValues(chargeType).Inc()
}

func (m *Metrics) ObserveChargeSkipped() { m.chargesSkipped.Inc() }

func (m *Metrics) ObserveChargeFailed() { m.chargesFailed.Inc() }

func (m *Metrics) ObserveChargeTransition(toStatus string) {
	m.chargeTransitions.WithLabelValues(toStatus).Inc()
}

func (m *Metrics) ObserveLedgerEntry(entryType string) {
	m.ledgerEntries.WithLabelValues(entryType).Inc()
}

func (m *Metrics) ObserveGenerationRun(outcome string) {
	m.generationRuns.WithLabelValues(outcome).Inc()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
