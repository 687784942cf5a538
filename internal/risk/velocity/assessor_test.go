package velocity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/ledger"
	"github.com/Aidin1998/riskcore/internal/risk/model"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		MaxTransactionsPerMinute: 10,
		MaxTransactionsPerHour:   100,
		MaxTransactionsPerDay:    500,
		MaxAmountPerMinute:       50000,
		MaxAmountPerHour:         200000,
		MaxAmountPerDay:          1000000,
		HighVelocityThreshold:    0.8,
		MediumVelocityThreshold:  0.5,
		LowVelocityThreshold:     0.3,
	}
}

func newTestAssessor() *Assessor {
	return NewAssessor(defaultThresholds(), Weights{Frequency: 0.4, Volume: 0.4, Pattern: 0.2}, zap.NewNop().Sugar())
}

func noon() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func window(count int, total float64) ledger.WindowStats {
	stats := ledger.WindowStats{Count: count, Total: total, Max: total}
	if count > 0 {
		stats.Avg = total / float64(count)
		stats.Rate = 0.1
	}
	return stats
}

func TestAssess_EmptyMetrics(t *testing.T) {
	result := newTestAssessor().Assess(Metrics{}, 100, noon())

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, model.RiskLevelMinimal, result.Level)
	assert.Empty(t, result.Flags)
	assert.Equal(t, []string{model.RecStandardVelocityProcessing}, result.Recommendations)
	assert.False(t, result.RequiresReview)
}

func TestAssess_MinuteFrequencyBreach(t *testing.T) {
	m := Metrics{
		Minute: window(15, 1500),
		Hour:   window(15, 1500),
		Day:    window(15, 1500),
	}
	result := newTestAssessor().Assess(m, 100, noon())

	// 15 transactions against a limit of 10: min(1.5, 2) / 2.
	assert.Equal(t, 0.75, result.Components.FrequencyRisk)
	assert.Contains(t, result.Flags, model.FlagHighFrequencyMinute)
	assert.Contains(t, result.Flags, model.FlagBurstPattern)
	assert.Contains(t, result.Recommendations, model.RecRateLimitCustomer)
	assert.Contains(t, result.Recommendations, model.RecInvestigateBurstActivity)
}

func TestAssess_CountAtLimitDoesNotContribute(t *testing.T) {
	m := Metrics{
		Minute: window(10, 1000),
		Hour:   window(10, 1000),
		Day:    window(10, 1000),
	}
	result := newTestAssessor().Assess(m, 100, noon())
	assert.Equal(t, 0.0, result.Components.FrequencyRisk)
	assert.NotContains(t, result.Flags, model.FlagHighFrequencyMinute)
}

func TestAssess_VolumeBreach(t *testing.T) {
	m := Metrics{
		Minute: window(2, 100000),
		Hour:   window(2, 100000),
		Day:    window(2, 100000),
	}
	result := newTestAssessor().Assess(m, 50000, noon())

	// 100000 against a limit of 50000: min(2, 2) / 2.
	assert.Equal(t, 1.0, result.Components.VolumeRisk)
	assert.Contains(t, result.Flags, model.FlagHighVolumeMinute)
}

func TestAssess_ContributionCapsAtDoubleTheLimit(t *testing.T) {
	m := Metrics{Minute: window(100, 1000)}
	result := newTestAssessor().Assess(m, 10, noon())
	assert.Equal(t, 1.0, result.Components.FrequencyRisk)
}

func TestAssess_RapidFire(t *testing.T) {
	m := Metrics{
		Minute: ledger.WindowStats{Count: 4, Total: 400, Avg: 100, Max: 100, Rate: 1.0},
		Hour:   window(4, 400),
	}
	result := newTestAssessor().Assess(m, 100, noon())

	assert.Contains(t, result.Flags, model.FlagRapidFireTransactions)
	assert.Contains(t, result.Recommendations, model.RecCheckForAutomatedActivity)
}

func TestAssess_OffHoursActivity(t *testing.T) {
	twoAM := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	m := Metrics{
		Minute: window(4, 400),
		Hour:   window(4, 400),
	}
	result := newTestAssessor().Assess(m, 100, twoAM)

	assert.Contains(t, result.Flags, model.FlagOffHoursActivity)
	assert.Contains(t, result.Recommendations, model.RecVerifyCustomerLocation)
	assert.Greater(t, result.Components.PatternRisk, 0.0)
}

func TestAssess_HighRiskRequiresReview(t *testing.T) {
	m := Metrics{
		Minute: ledger.WindowStats{Count: 25, Total: 200000, Avg: 8000, Max: 50000, Rate: 2.0},
		Hour:   ledger.WindowStats{Count: 30, Total: 250000, Avg: 1000, Max: 50000, Rate: 0.1},
		Day:    ledger.WindowStats{Count: 30, Total: 250000, Avg: 1000, Max: 50000, Rate: 0.01},
	}
	result := newTestAssessor().Assess(m, 40000, noon())

	assert.GreaterOrEqual(t, result.Score, 0.8)
	assert.Equal(t, model.RiskLevelHigh, result.Level)
	assert.True(t, result.RequiresReview)
	assert.Contains(t, result.Recommendations, model.RecImmediateVelocityReview)
	assert.Contains(t, result.Recommendations, model.RecTemporaryTransactionHold)
}

func TestAssess_ScoreMonotonicInFrequency(t *testing.T) {
	a := newTestAssessor()
	prev := -1.0
	for _, count := range []int{5, 12, 15, 20, 40} {
		m := Metrics{Minute: window(count, float64(count)*100)}
		result := a.Assess(m, 100, noon())
		assert.GreaterOrEqual(t, result.Score, prev, "count=%d", count)
		prev = result.Score
	}
}

func TestAssess_MetricsKeys(t *testing.T) {
	result := newTestAssessor().Assess(Metrics{Minute: window(2, 200)}, 100, noon())

	assert.Equal(t, 2.0, result.Metrics["minute_window_count"])
	assert.Equal(t, 200.0, result.Metrics["minute_window_total_amount"])
	assert.Equal(t, 100.0, result.Metrics["minute_window_avg_amount"])
	assert.Contains(t, result.Metrics, "hour_window_rate")
	assert.Contains(t, result.Metrics, "day_window_max_amount")
	assert.Contains(t, result.Metrics, "week_window_count")
}
