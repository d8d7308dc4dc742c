package poetenclave

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for the ten EnclaveCore operations, in the same
// CounterVec/HistogramVec-plus-init()-registration shape the teacher's
// attestation package uses for its own IAS/quote metrics.
var (
	signupInfoTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poet_signup_info_total",
			Help: "Total number of signup info operations",
		},
		[]string{"operation", "result"},
	)

	waitTimerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poet_wait_timer_total",
			Help: "Total number of wait timer operations",
		},
		[]string{"operation", "result"},
	)

	waitTimerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poet_wait_timer_duration_seconds",
			Help:    "Duration drawn for created wait timers",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{},
	)

	waitCertificateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poet_wait_certificate_total",
			Help: "Total number of wait certificate operations",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	prometheus.MustRegister(signupInfoTotal)
	prometheus.MustRegister(waitTimerTotal)
	prometheus.MustRegister(waitTimerDuration)
	prometheus.MustRegister(waitCertificateTotal)
}

func observeResult(counter *prometheus.CounterVec, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	counter.WithLabelValues(operation, result).Inc()
}
