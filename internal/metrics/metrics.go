package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalystx_emails_total",
		Help: "Outgoing emails by kind and result",
	}, []string{"kind", "result"})

	OTPVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalystx_otp_verifications_total",
		Help: "OTP verification outcomes",
	}, []string{"result"})

	StatusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalystx_application_status_changes_total",
		Help: "Application decisions recorded by professors",
	}, []string{"status"})

	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalystx_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"route"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalystx_http_requests_total",
		Help: "Processed HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalystx_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CVFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalystx_cv_fetch_duration_seconds",
		Help:    "Time spent downloading and parsing CV documents",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		EmailsTotal,
		OTPVerificationsTotal,
		StatusChangesTotal,
		RateLimitedTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CVFetchDuration,
	}
}

// Register adds every collector to reg (or the default registry if nil), ignoring duplicates.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
