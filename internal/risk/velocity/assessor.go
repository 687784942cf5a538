// Package velocity quantifies how anomalous a customer's transaction rate
// and volume are relative to configured limits, across sliding minute, hour
// and day windows.
package velocity

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/ledger"
	"github.com/Aidin1998/riskcore/internal/risk/model"
)

// Thresholds holds the per-window count and amount limits plus the risk
// level cut-points. Shared read-only across all scoring calls.
type Thresholds struct {
	MaxTransactionsPerMinute int     `yaml:"max_transactions_per_minute"`
	MaxTransactionsPerHour   int     `yaml:"max_transactions_per_hour"`
	MaxTransactionsPerDay    int     `yaml:"max_transactions_per_day"`
	MaxAmountPerMinute       float64 `yaml:"max_amount_per_minute"`
	MaxAmountPerHour         float64 `yaml:"max_amount_per_hour"`
	MaxAmountPerDay          float64 `yaml:"max_amount_per_day"`
	HighVelocityThreshold    float64 `yaml:"high_velocity_threshold"`
	MediumVelocityThreshold  float64 `yaml:"medium_velocity_threshold"`
	LowVelocityThreshold     float64 `yaml:"low_velocity_threshold"`
}

// Weights blends the component scores into the overall velocity score.
type Weights struct {
	Frequency float64 `yaml:"frequency"`
	Volume    float64 `yaml:"volume"`
	Pattern   float64 `yaml:"pattern"`
}

// Metrics carries the per-window ledger aggregates the assessor scores.
// The engine fills it from the ledger store after recording the current
// transaction, so the transaction under assessment is included.
type Metrics struct {
	Minute ledger.WindowStats
	Hour   ledger.WindowStats
	Day    ledger.WindowStats
	Week   ledger.WindowStats
}

// Assessor derives a velocity risk score from window metrics. It is
// stateless and safe for concurrent use.
type Assessor struct {
	thresholds Thresholds
	weights    Weights
	logger     *zap.SugaredLogger
}

// NewAssessor creates a velocity assessor.
func NewAssessor(thresholds Thresholds, weights Weights, logger *zap.SugaredLogger) *Assessor {
	return &Assessor{
		thresholds: thresholds,
		weights:    weights,
		logger:     logger,
	}
}

// velocityRecommendations maps score cut-offs and flags to recommendation
// tags in a fixed, auditable order.
var velocityRecommendations = []struct {
	minScore float64
	flag     string
	tags     []string
}{
	{minScore: 0.8, tags: []string{model.RecImmediateVelocityReview, model.RecTemporaryTransactionHold}},
	{minScore: 0.6, tags: []string{model.RecEnhancedVelocityMonitoring, model.RecCustomerVerificationRequired}},
	{flag: model.FlagBurstPattern, tags: []string{model.RecInvestigateBurstActivity}},
	{flag: model.FlagHighFrequencyMinute, tags: []string{model.RecRateLimitCustomer}},
	{flag: model.FlagOffHoursActivity, tags: []string{model.RecVerifyCustomerLocation}},
	{flag: model.FlagRapidFireTransactions, tags: []string{model.RecCheckForAutomatedActivity}},
}

// Assess scores the supplied window metrics. The current transaction amount
// and the assessment time feed the pattern checks. Always returns a
// best-effort result; unseen customers score zero across the board.
func (a *Assessor) Assess(m Metrics, amount float64, now time.Time) model.VelocityResult {
	frequency := a.frequencyRisk(m)
	volume := a.volumeRisk(m)
	pattern := a.patternRisk(m, amount, now)

	overall := frequency*a.weights.Frequency +
		volume*a.weights.Volume +
		pattern*a.weights.Pattern
	overall = clamp01(overall)

	level := a.riskLevel(overall)
	flags := a.flags(m, now)
	recs := a.recommendations(overall, flags)

	if level == model.RiskLevelHigh {
		a.logger.Infow("high velocity risk detected",
			"score", overall,
			"flags", flags,
		)
	}

	return model.VelocityResult{
		Score:           round4(overall),
		Level:           level,
		Flags:           flags,
		Recommendations: recs,
		Metrics:         metricsMap(m),
		Components: model.VelocityComponents{
			FrequencyRisk: round4(frequency),
			VolumeRisk:    round4(volume),
			PatternRisk:   round4(pattern),
		},
		RequiresReview: overall >= 0.7,
	}
}

// frequencyRisk scores transaction counts against the per-window maxima.
// A window contributes only once its limit is exceeded; the contribution is
// min(count/max, 2)/2, and the worst window wins.
func (a *Assessor) frequencyRisk(m Metrics) float64 {
	risk := 0.0
	risk = math.Max(risk, overLimit(float64(m.Minute.Count), float64(a.thresholds.MaxTransactionsPerMinute)))
	risk = math.Max(risk, overLimit(float64(m.Hour.Count), float64(a.thresholds.MaxTransactionsPerHour)))
	risk = math.Max(risk, overLimit(float64(m.Day.Count), float64(a.thresholds.MaxTransactionsPerDay)))
	return clamp01(risk)
}

// volumeRisk applies the same shape to total amounts.
func (a *Assessor) volumeRisk(m Metrics) float64 {
	risk := 0.0
	risk = math.Max(risk, overLimit(m.Minute.Total, a.thresholds.MaxAmountPerMinute))
	risk = math.Max(risk, overLimit(m.Hour.Total, a.thresholds.MaxAmountPerHour))
	risk = math.Max(risk, overLimit(m.Day.Total, a.thresholds.MaxAmountPerDay))
	return clamp01(risk)
}

func overLimit(observed, limit float64) float64 {
	if limit <= 0 || observed <= limit {
		return 0
	}
	return math.Min(observed/limit, 2.0) / 2.0
}

// patternRisk is additive over four independent anomaly checks, capped at 1.
func (a *Assessor) patternRisk(m Metrics, amount float64, now time.Time) float64 {
	risk := 0.0

	// Burst: the minute-window rate is more than 5x the hourly implied
	// per-minute average.
	if m.Minute.Count > 0 && m.Hour.Count > 0 {
		burstRatio := float64(m.Minute.Count) / math.Max(float64(m.Hour.Count)/60.0, 1.0)
		if burstRatio > 5 {
			risk += 0.3
		}
	}

	// Repeated activity during off-hours.
	hour := now.Hour()
	if (hour < 6 || hour > 22) && m.Minute.Count > 3 {
		risk += 0.2
	}

	// Current transaction well above the recent average.
	if m.Minute.Avg > 0 && amount > m.Minute.Avg*3 {
		risk += 0.2
	}

	// Escalating amounts: the minute average has outgrown the hour average.
	if m.Hour.Avg > 0 && m.Minute.Avg > m.Hour.Avg*2 {
		risk += 0.3
	}

	return clamp01(risk)
}

func (a *Assessor) riskLevel(score float64) model.RiskLevel {
	switch {
	case score >= a.thresholds.HighVelocityThreshold:
		return model.RiskLevelHigh
	case score >= a.thresholds.MediumVelocityThreshold:
		return model.RiskLevelMedium
	case score >= a.thresholds.LowVelocityThreshold:
		return model.RiskLevelLow
	default:
		return model.RiskLevelMinimal
	}
}

// flags emits one flag per individual threshold breach.
func (a *Assessor) flags(m Metrics, now time.Time) []string {
	flags := []string{}

	if m.Minute.Count > a.thresholds.MaxTransactionsPerMinute {
		flags = append(flags, model.FlagHighFrequencyMinute)
	}
	if m.Hour.Count > a.thresholds.MaxTransactionsPerHour {
		flags = append(flags, model.FlagHighFrequencyHour)
	}
	if m.Day.Count > a.thresholds.MaxTransactionsPerDay {
		flags = append(flags, model.FlagHighFrequencyDay)
	}

	if m.Minute.Total > a.thresholds.MaxAmountPerMinute {
		flags = append(flags, model.FlagHighVolumeMinute)
	}
	if m.Hour.Total > a.thresholds.MaxAmountPerHour {
		flags = append(flags, model.FlagHighVolumeHour)
	}
	if m.Day.Total > a.thresholds.MaxAmountPerDay {
		flags = append(flags, model.FlagHighVolumeDay)
	}

	if m.Minute.Count >= 5 {
		flags = append(flags, model.FlagBurstPattern)
	}

	hour := now.Hour()
	if (hour < 6 || hour > 22) && m.Minute.Count > 0 {
		flags = append(flags, model.FlagOffHoursActivity)
	}

	// More than one transaction every two seconds inside the minute window.
	if m.Minute.Rate > 0.5 {
		flags = append(flags, model.FlagRapidFireTransactions)
	}

	return flags
}

func (a *Assessor) recommendations(score float64, flags []string) []string {
	flagSet := make(map[string]bool, len(flags))
	for _, f := range flags {
		flagSet[f] = true
	}

	recs := []string{}
	for _, rule := range velocityRecommendations {
		if rule.flag != "" {
			if flagSet[rule.flag] {
				recs = append(recs, rule.tags...)
			}
			continue
		}
		if score >= rule.minScore {
			recs = append(recs, rule.tags...)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, model.RecStandardVelocityProcessing)
	}
	return recs
}

// metricsMap renders per-window aggregates under the key names existing
// consumers depend on.
func metricsMap(m Metrics) map[string]float64 {
	out := make(map[string]float64, 20)
	put := func(name string, w ledger.WindowStats) {
		out[name+"_count"] = float64(w.Count)
		out[name+"_total_amount"] = w.Total
		out[name+"_avg_amount"] = w.Avg
		out[name+"_max_amount"] = w.Max
		out[name+"_rate"] = w.Rate
	}
	put("minute_window", m.Minute)
	put("hour_window", m.Hour)
	put("day_window", m.Day)
	put("week_window", m.Week)
	return out
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
