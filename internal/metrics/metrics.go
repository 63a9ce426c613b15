package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyriff_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_generation_tasks_total",
			Help: "Total number of video generation tasks created",
		},
		[]string{"duration"},
	)

	TaskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_task_transitions_total",
			Help: "Task state transitions observed during synchronization",
		},
		[]string{"to"},
	)

	TaskRefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_task_refunds_total",
			Help: "Credit refunds issued for failed or timed out tasks",
		},
		[]string{"reason"},
	)

	LedgerMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_ledger_mutations_total",
			Help: "Successful wallet ledger mutations",
		},
		[]string{"wallet", "type"},
	)

	TipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skyriff_tips_total",
			Help: "Total number of tips paid",
		},
	)

	PromptUnlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_prompt_unlocks_total",
			Help: "Prompt unlock attempts by outcome",
		},
		[]string{"outcome"},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_withdrawals_total",
			Help: "Withdrawal requests by status transition",
		},
		[]string{"status"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_payments_total",
			Help: "Payment orders by final status",
		},
		[]string{"status"},
	)

	DailyClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_daily_claims_total",
			Help: "Subscription daily credit claims by outcome",
		},
		[]string{"outcome"},
	)

	VideoCacheJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyriff_video_cache_jobs_total",
			Help: "Background video cache mirror jobs by outcome",
		},
		[]string{"outcome"},
	)

	VideoCacheQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyriff_video_cache_queue_length",
			Help: "Current length of the video cache mirror queue",
		},
	)

	SettledLedgerRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skyriff_settled_ledger_rows_total",
			Help: "Pending ledger rows moved to settled by the unlock sweep",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerMutation(wallet, txType string) {
	LedgerMutationsTotal.WithLabelValues(wallet, txType).Inc()
}

func RecordTaskCreated(durationSec int) {
	TasksCreatedTotal.WithLabelValues(strconv.Itoa(durationSec)).Inc()
}

func RecordTaskTransition(to string) {
	TaskTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordTaskRefund(reason string) {
	TaskRefundsTotal.WithLabelValues(reason).Inc()
}

func RecordPromptUnlock(outcome string) {
	PromptUnlocksTotal.WithLabelValues(outcome).Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordPayment(status string) {
	PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordDailyClaim(outcome string) {
	DailyClaimsTotal.WithLabelValues(outcome).Inc()
}

func RecordVideoCacheJob(outcome string) {
	VideoCacheJobsTotal.WithLabelValues(outcome).Inc()
}
