package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_job_runs_total",
			Help: "Total number of background job runs",
		},
		[]string{"job", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_job_duration_seconds",
			Help:    "Duration of background job runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	invoicesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "Total number of invoices created",
		},
	)

	remindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reminders_sent_total",
			Help: "Total number of payment reminders sent",
		},
		[]string{"state"},
	)

	rateRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_rate_refreshes_total",
			Help: "Total number of exchange rate refresh attempts",
		},
		[]string{"currency", "status"},
	)
)

// ObserveJobRun records the outcome and duration of one background job run
func ObserveJobRun(job string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	jobRunsTotal.WithLabelValues(job, status).Inc()
	jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// IncInvoicesCreated counts one created invoice
func IncInvoicesCreated() {
	invoicesCreatedTotal.Inc()
}

// IncReminderSent counts one delivered reminder by state
func IncReminderSent(state string) {
	remindersSentTotal.WithLabelValues(state).Inc()
}

// IncRateRefresh counts one exchange rate refresh attempt
func IncRateRefresh(currency string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	rateRefreshTotal.WithLabelValues(currency, status).Inc()
}
