// Package risk provides the real-time transaction risk assessment engine:
// a stateful velocity tracker and a stateless AML screener whose outputs
// are aggregated with an externally supplied base fraud probability into a
// single verdict.
package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/amlcheck"
	"github.com/Aidin1998/riskcore/internal/risk/ledger"
	"github.com/Aidin1998/riskcore/internal/risk/model"
	"github.com/Aidin1998/riskcore/internal/risk/velocity"
	"github.com/Aidin1998/riskcore/pkg/metrics"
)

// recommendationPriority orders merged recommendation tags: sanctions
// blocks first, then manual review, then enhanced monitoring, then standard
// processing. Unknown tags sort between known ones and the standard tail.
var recommendationPriority = map[string]int{
	model.RecBlockTransactionImmediately:  0,
	model.RecReportToComplianceTeam:       1,
	model.RecImmediateManualReview:        2,
	model.RecImmediateVelocityReview:      3,
	model.RecTemporaryTransactionHold:     4,
	model.RecConsiderSAR:                  5,
	model.RecEnhancedDueDiligence:         6,
	model.RecEnhancedVelocityMonitoring:   7,
	model.RecAdditionalDocumentation:      8,
	model.RecCustomerVerificationRequired: 9,
	model.RecInvestigateBurstActivity:     10,
	model.RecRateLimitCustomer:            11,
	model.RecVerifyCustomerLocation:       12,
	model.RecCheckForAutomatedActivity:    13,
	model.RecMonitorCustomerPattern:       14,
	model.RecReviewTransactionHistory:     15,
	model.RecStandardProcessing:           100,
	model.RecStandardVelocityProcessing:   101,
}

// Engine owns the ledger store and both sub-assessors. Construct one per
// process with NewEngine; all methods are safe for concurrent use.
type Engine struct {
	cfg      *Config
	logger   *zap.SugaredLogger
	store    *ledger.Store
	assessor *velocity.Assessor
	screener *amlcheck.Screener
	now      func() time.Time

	minuteWindow time.Duration
	hourWindow   time.Duration
	dayWindow    time.Duration
	weekWindow   time.Duration

	sweepCancel context.CancelFunc
}

// NewEngine creates an engine using the wall clock.
func NewEngine(cfg *Config, logger *zap.SugaredLogger) (*Engine, error) {
	return NewEngineWithClock(cfg, logger, time.Now)
}

// NewEngineWithClock creates an engine with an injected clock for tests.
func NewEngineWithClock(cfg *Config, logger *zap.SugaredLogger, now func() time.Time) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	minute, hour, day, week := cfg.windowDurations()

	return &Engine{
		cfg:          cfg,
		logger:       logger,
		store:        ledger.NewWithClock(cfg.ledgerConfig(), logger, now),
		assessor:     velocity.NewAssessor(cfg.VelocityThresholds, cfg.VelocityWeights, logger),
		screener:     amlcheck.NewScreener(cfg.amlConfig(), logger),
		now:          now,
		minuteWindow: minute,
		hourWindow:   hour,
		dayWindow:    day,
		weekWindow:   week,
	}, nil
}

// Start launches the periodic ledger sweeper. Safe to skip in tests; the
// recording path also sweeps lazily.
func (e *Engine) Start() error {
	if e.sweepCancel != nil {
		return fmt.Errorf("engine already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.sweepCancel = cancel

	interval := time.Duration(e.cfg.Ledger.CleanupIntervalSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.store.Sweep()
			}
		}
	}()

	e.logger.Infow("risk engine started", "sweep_interval", interval)
	return nil
}

// Stop halts the background sweeper.
func (e *Engine) Stop() error {
	if e.sweepCancel != nil {
		e.sweepCancel()
		e.sweepCancel = nil
	}
	return nil
}

// AssessVelocity records the transaction in the customer's ledger and
// scores the updated window metrics. A non-nil error reports an internal
// failure; the returned result is then a MINIMAL stub so the caller can log
// and continue without dropping the transaction.
func (e *Engine) AssessVelocity(customerID string, tx model.Transaction) (result model.VelocityResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = model.MinimalVelocityResult()
			err = fmt.Errorf("velocity assessment failed: %v", r)
		}
	}()

	amount, _ := tx.Amount.Float64()
	e.store.Record(customerID, amount)
	return e.assessor.Assess(e.windowMetrics(customerID), amount, e.now()), nil
}

// AssessAML screens a single transaction against the AML rule checks. The
// history slices are optional caller-supplied context. As with velocity, an
// error comes with a MINIMAL stub result.
func (e *Engine) AssessAML(tx model.Transaction, txnHistory, accountHistory []model.HistoryEntry) (result model.AMLResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = model.MinimalAMLResult()
			err = fmt.Errorf("aml screening failed: %v", r)
		}
	}()

	return e.screener.Screen(tx, txnHistory, accountHistory, e.now()), nil
}

// Combine merges the base fraud probability with the sub-engine results
// into the final assessment. Manual-review signals always dominate the
// numeric blend: a review requirement or HIGH sub-level forces the verdict
// to HIGH regardless of the combined score.
func (e *Engine) Combine(baseFraud float64, amlRes model.AMLResult, velRes model.VelocityResult) model.RiskAssessment {
	baseFraud = clamp01(baseFraud)
	agg := e.cfg.Aggregation

	combined := baseFraud*agg.FraudWeight +
		amlRes.Score*agg.AMLWeight +
		velRes.Score*agg.VelocityWeight
	combined = clamp01(combined)

	level := e.combinedLevel(combined)
	isFraud := combined >= agg.FraudThreshold
	review := amlRes.RequiresManualReview || velRes.RequiresReview

	if review || amlRes.Level == model.RiskLevelHigh || velRes.Level == model.RiskLevelHigh {
		level = model.RiskLevelHigh
		isFraud = true
	}

	assessment := model.RiskAssessment{
		ID:           uuid.New().String(),
		IsFraud:      isFraud,
		OverallScore: round4(combined),
		RiskLevel:    level,
		Flags:        mergeFlags(amlRes.Flags, velRes.Flags),
		Recommendations: mergeRecommendations(
			amlRes.Recommendations,
			velRes.Recommendations,
		),
		ComponentScores: map[string]float64{
			"base_fraud": round4(baseFraud),
			"aml":        amlRes.Score,
			"velocity":   velRes.Score,
		},
		RequiresManualReview: review,
		Confidence:           round4(math.Abs(combined-0.5) * 2),
		AssessedAt:           e.now(),
	}

	metrics.AssessmentsProcessed.WithLabelValues(string(level)).Inc()
	return assessment
}

// AssessTransaction runs the full pipeline: record + velocity, AML, then
// aggregation. A failing sub-engine degrades to a MINIMAL stub and is
// logged; the transaction is always scored.
func (e *Engine) AssessTransaction(customerID string, tx model.Transaction, baseFraud float64, txnHistory, accountHistory []model.HistoryEntry) model.RiskAssessment {
	start := e.now()

	velRes, err := e.AssessVelocity(customerID, tx)
	if err != nil {
		e.logger.Warnw("velocity assessment degraded to minimal stub",
			"customer_id", customerID,
			"error", err,
		)
	}

	amlRes, err := e.AssessAML(tx, txnHistory, accountHistory)
	if err != nil {
		e.logger.Warnw("aml screening degraded to minimal stub",
			"customer_id", customerID,
			"error", err,
		)
	}

	assessment := e.Combine(baseFraud, amlRes, velRes)
	metrics.AssessmentLatency.Observe(e.now().Sub(start).Seconds())
	return assessment
}

// HeuristicBaseScore is the fallback base fraud probability used when the
// caller supplies none: a coarse amount/timing/merchant blend kept for
// parity with the model-less deployment mode.
func (e *Engine) HeuristicBaseScore(tx model.Transaction, merchantRisk float64) float64 {
	score := 0.0
	if tx.Amount.GreaterThan(decimal.NewFromInt(500)) {
		score += 0.3
	}
	if tx.HourOfDay < 6 || tx.HourOfDay > 22 {
		score += 0.2
	}
	score += clamp01(merchantRisk) * 0.4
	return clamp01(score)
}

// CustomerSummary reports the customer's 24h ledger aggregates plus recent
// minute/hour activity. Unknown customers yield a zero summary.
func (e *Engine) CustomerSummary(customerID string) model.CustomerSummary {
	day := e.store.Window(customerID, e.dayWindow)
	hour := e.store.Window(customerID, e.hourWindow)
	minute := e.store.Window(customerID, e.minuteWindow)

	return model.CustomerSummary{
		CustomerID:           customerID,
		TotalTransactions24h: day.Count,
		TotalAmount24h:       day.Total,
		AvgAmount24h:         round4(day.Avg),
		MaxAmount24h:         day.Max,
		TransactionRate24h:   round4(day.Rate),
		RecentActivity: model.CustomerActivity{
			LastHourCount:    hour.Count,
			LastMinuteCount:  minute.Count,
			LastHourAmount:   hour.Total,
			LastMinuteAmount: minute.Total,
		},
	}
}

// TrackedCustomers exposes the ledger store population, mainly for health
// reporting.
func (e *Engine) TrackedCustomers() int {
	return e.store.Customers()
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) windowMetrics(customerID string) velocity.Metrics {
	return velocity.Metrics{
		Minute: e.store.Window(customerID, e.minuteWindow),
		Hour:   e.store.Window(customerID, e.hourWindow),
		Day:    e.store.Window(customerID, e.dayWindow),
		Week:   e.store.Window(customerID, e.weekWindow),
	}
}

func (e *Engine) combinedLevel(score float64) model.RiskLevel {
	agg := e.cfg.Aggregation
	switch {
	case score >= agg.HighThreshold:
		return model.RiskLevelHigh
	case score >= agg.MediumThreshold:
		return model.RiskLevelMedium
	case score >= agg.LowThreshold:
		return model.RiskLevelLow
	default:
		return model.RiskLevelMinimal
	}
}

// mergeFlags unions the sub-engine flag lists, preserving first-seen order.
func mergeFlags(lists ...[]string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// mergeRecommendations unions the sub-engine recommendation lists,
// de-duplicated and sorted by the documented priority order.
func mergeRecommendations(lists ...[]string) []string {
	merged := mergeFlags(lists...)
	sort.SliceStable(merged, func(i, j int) bool {
		return recommendationRank(merged[i]) < recommendationRank(merged[j])
	})
	return merged
}

func recommendationRank(tag string) int {
	if rank, ok := recommendationPriority[tag]; ok {
		return rank
	}
	return 50
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
