package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LedgerMetrics struct {
	CommandsTotal       *prometheus.CounterVec
	CommandDuration     *prometheus.HistogramVec
	TransactionsPosted  *prometheus.CounterVec
	SummaryCacheLookups *prometheus.CounterVec
}

type BatchMetrics struct {
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LoansInArrear prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Ledger = LedgerMetrics{
		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_commands_total",
				Help: "Total number of loan commands by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_command_duration_seconds",
				Help:    "Histogram of loan command latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		TransactionsPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_transactions_posted_total",
				Help: "Total number of loan transactions posted by type.",
			},
			[]string{"type"},
		),
		SummaryCacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_summary_cache_lookups_total",
				Help: "Summary cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	Batch = BatchMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_arrears_job_runs_total",
				Help: "Total number of arrears job runs by status.",
			},
			[]string{"status"},
		),
		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loan_engine_arrears_job_duration_seconds",
				Help:    "Histogram of arrears job durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		LoansInArrear: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loan_engine_loans_in_arrears",
				Help: "Number of active loans in arrears at the last arrears job run.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanCommand(operation, outcome string, duration time.Duration) {
	Ledger.CommandsTotal.WithLabelValues(operation, outcome).Inc()
	Ledger.CommandDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordTransactionPosted(txType string) {
	Ledger.TransactionsPosted.WithLabelValues(txType).Inc()
}

func RecordSummaryCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	Ledger.SummaryCacheLookups.WithLabelValues(result).Inc()
}

func RecordArrearsRun(status string, duration time.Duration, inArrears int) {
	Batch.RunsTotal.WithLabelValues(status).Inc()
	Batch.RunDuration.Observe(duration.Seconds())
	if status == "success" {
		Batch.LoansInArrear.Set(float64(inArrears))
	}
}
