package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Funnel holds Prometheus metrics for signup-funnel observability.
// All step metrics carry the step id label so dashboards can segment
// drop-off by screen. Every method is nil-safe so callers can run without
// metrics in tests.
type Funnel struct {
	SessionsStarted   *prometheus.CounterVec
	StepAdvancedVec   *prometheus.CounterVec
	StepBlockedVec    *prometheus.CounterVec
	StepRetreatedVec  *prometheus.CounterVec
	RegisterSucceeded prometheus.Counter
	RegisterFailedVec *prometheus.CounterVec
	ExchangeFailed    prometheus.Counter
	SignupsCompleted  *prometheus.CounterVec
	SideEffectSeconds *prometheus.HistogramVec
}

// NewFunnel creates and registers the signup funnel metrics.
func NewFunnel(namespace string, reg prometheus.Registerer) *Funnel {
	if namespace == "" {
		namespace = "onboard"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := &Funnel{
		SessionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_sessions_started_total",
				Help:      "Signup sessions created",
			},
			[]string{"role", "country"},
		),
		StepAdvancedVec: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_step_advanced_total",
				Help:      "Forward transitions committed",
			},
			[]string{"step"},
		),
		StepBlockedVec: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_step_blocked_total",
				Help:      "Forward transitions blocked by validation",
			},
			[]string{"step"},
		),
		StepRetreatedVec: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_step_retreated_total",
				Help:      "Backward transitions",
			},
			[]string{"step"},
		),
		RegisterSucceeded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_registrations_total",
				Help:      "Successful account registrations",
			},
		),
		RegisterFailedVec: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_registration_failures_total",
				Help:      "Failed account registrations",
			},
			[]string{"reason"},
		),
		ExchangeFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signup_credential_exchange_failures_total",
				Help:      "Non-fatal credential exchange failures after registration",
			},
		),
		SignupsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_completed_total",
				Help:      "Sessions whose terminal step succeeded",
			},
			[]string{"role", "country"},
		),
		SideEffectSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "signup_side_effect_duration_seconds",
				Help:      "Latency of registration-backend calls",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		f.SessionsStarted,
		f.StepAdvancedVec,
		f.StepBlockedVec,
		f.StepRetreatedVec,
		f.RegisterSucceeded,
		f.RegisterFailedVec,
		f.ExchangeFailed,
		f.SignupsCompleted,
		f.SideEffectSeconds,
	)

	return f
}

func (f *Funnel) SessionStarted(role, country string) {
	if f == nil {
		return
	}
	f.SessionsStarted.WithLabelValues(role, country).Inc()
}

func (f *Funnel) StepAdvanced(step string) {
	if f == nil {
		return
	}
	f.StepAdvancedVec.WithLabelValues(step).Inc()
}

func (f *Funnel) StepBlocked(step string) {
	if f == nil {
		return
	}
	f.StepBlockedVec.WithLabelValues(step).Inc()
}

func (f *Funnel) StepRetreated(step string) {
	if f == nil {
		return
	}
	f.StepRetreatedVec.WithLabelValues(step).Inc()
}

func (f *Funnel) Registered() {
	if f == nil {
		return
	}
	f.RegisterSucceeded.Inc()
}

func (f *Funnel) RegisterFailed(reason string) {
	if f == nil {
		return
	}
	f.RegisterFailedVec.WithLabelValues(reason).Inc()
}

func (f *Funnel) ExchangeFailure() {
	if f == nil {
		return
	}
	f.ExchangeFailed.Inc()
}

func (f *Funnel) Completed(role, country string) {
	if f == nil {
		return
	}
	f.SignupsCompleted.WithLabelValues(role, country).Inc()
}

func (f *Funnel) ObserveSideEffect(operation string, start time.Time) {
	if f == nil {
		return
	}
	f.SideEffectSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
