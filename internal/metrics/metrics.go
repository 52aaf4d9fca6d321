package metrics

import (
	"time"

	"UD_contest_bot/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registration progress and bot traffic.
type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	RegistrationsCompleted *prometheus.CounterVec
	StepsCompleted         *prometheus.CounterVec
	InputsRejected         *prometheus.CounterVec
	UpdatesHandled         *prometheus.CounterVec
	UpdateDuration         prometheus.Histogram
	FeedClients            prometheus.Gauge
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "contest_registrations_started_total",
			Help: "Total number of registration sessions started",
		}),
		RegistrationsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_registrations_completed_total",
			Help: "Total number of completed registrations",
		}, []string{"referred"}),
		StepsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_registration_steps_completed_total",
			Help: "Registration steps answered, by step",
		}, []string{"step"}),
		InputsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_registration_inputs_rejected_total",
			Help: "Inputs that did not fit the current step, by step",
		}, []string{"step"}),
		UpdatesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_bot_updates_total",
			Help: "Telegram updates handled, by kind and outcome",
		}, []string{"kind", "outcome"}),
		UpdateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "contest_bot_update_duration_seconds",
			Help:    "Time spent handling one Telegram update",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FeedClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "contest_feed_clients",
			Help: "Connected registration feed websocket clients",
		}),
	}
}

func (m *Metrics) RegistrationStarted() {
	m.RegistrationsStarted.Inc()
}

func (m *Metrics) RegistrationCompleted(referred bool) {
	label := "false"
	if referred {
		label = "true"
	}
	m.RegistrationsCompleted.WithLabelValues(label).Inc()
}

func (m *Metrics) StepCompleted(step model.Step) {
	m.StepsCompleted.WithLabelValues(string(step)).Inc()
}

func (m *Metrics) InputRejected(step model.Step) {
	m.InputsRejected.WithLabelValues(string(step)).Inc()
}

// ObserveUpdate records one handled update. Call with time.Now() taken before handling.
func (m *Metrics) ObserveUpdate(kind string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpdatesHandled.WithLabelValues(kind, outcome).Inc()
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) FeedClientConnected() {
	m.FeedClients.Inc()
}

func (m *Metrics) FeedClientDisconnected() {
	m.FeedClients.Dec()
}
