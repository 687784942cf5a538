package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AssessmentsProcessed counts completed risk assessments by resulting level
var AssessmentsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "riskcore_assessments_processed_total",
		Help: "Total number of risk assessments processed by the engine",
	},
	[]string{"risk_level"},
)

// AssessmentLatency records latency distribution for full assessments
var AssessmentLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "riskcore_assessment_latency_seconds",
		Help:    "Latency in seconds to score individual transactions",
		Buckets: prometheus.DefBuckets,
	},
)

// SanctionsHits counts transactions that matched a sanctioned entity
var SanctionsHits = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "riskcore_sanctions_hits_total",
		Help: "Total number of transactions with a sanctions list match",
	},
)

// Ledger store metrics
var (
	LedgerCustomers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskcore_ledger_customers",
			Help: "Number of customers currently tracked in the ledger store",
		},
	)

	LedgerEntriesEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskcore_ledger_entries_evicted_total",
			Help: "Number of ledger entries dropped by age-based eviction",
		},
	)
)

func init() {
	prometheus.MustRegister(AssessmentsProcessed, AssessmentLatency, SanctionsHits)
	prometheus.MustRegister(LedgerCustomers, LedgerEntriesEvicted)
}
