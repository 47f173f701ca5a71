package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentsRecorded *prometheus.CounterVec
	paymentAmount    *prometheus.CounterVec
	casesOpened      *prometheus.CounterVec
	sweepErrors      prometheus.Counter
	noticesRendered  *prometheus.CounterVec
}

// New registers the domain instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revassure_payments_recorded_total",
			Help: "Payments recorded, by channel.",
		}, []string{"channel"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revassure_payment_amount_minor_units_total",
			Help: "Sum of recorded payment amounts in minor currency units, by channel.",
		}, []string{"channel"}),
		casesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revassure_ra_cases_opened_total",
			Help: "Revenue assurance cases opened, by rule code.",
		}, []string{"rule"}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revassure_sweep_meter_errors_total",
			Help: "Per-meter failures collected during detection sweeps.",
		}),
		noticesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revassure_dunning_notices_total",
			Help: "Dunning notices rendered, by aging bucket.",
		}, []string{"bucket"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.paymentsRecorded,
			m.paymentAmount,
			m.casesOpened,
			m.sweepErrors,
			m.noticesRendered,
		)
	}
	return m
}

func (m *Metrics) RecordPayment(channel string, amount int64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(channel).Inc()
	if amount > 0 {
		m.paymentAmount.WithLabelValues(channel).Add(float64(amount))
	}
}

func (m *Metrics) RecordCaseOpened(ruleCode string) {
	if m == nil {
		return
	}
	m.casesOpened.WithLabelValues(ruleCode).Inc()
}

func (m *Metrics) RecordSweepError() {
	if m == nil {
		return
	}
	m.sweepErrors.Inc()
}

func (m *Metrics) RecordNotice(bucket string) {
	if m == nil {
		return
	}
	m.noticesRendered.WithLabelValues(bucket).Inc()
}
