package amlcheck

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/model"
)

func defaultTestConfig() Config {
	return Config{
		CTRThreshold:           decimal.NewFromInt(10000),
		RapidMovementThreshold: decimal.NewFromInt(50000),
		StructuringWindow:      24 * time.Hour,
		RapidMovementWindow:    6 * time.Hour,
		HighRiskCategories:     []string{"CASH_ADVANCE", "GAMBLING", "CRYPTOCURRENCY", "MONEY_TRANSFER"},
		HighRiskLocations:      []string{"OFFSHORE", "SANCTIONS_COUNTRY", "HIGH_RISK_JURISDICTION"},
		SanctionsList:          []string{"SANCTIONED_ENTITY_1", "BLOCKED_COUNTRY_CODE"},
		Weights:                Weights{Structuring: 0.20, RapidMovement: 0.20, SuspiciousPatterns: 0.35, Sanctions: 0.25},
		Levels:                 Levels{High: 0.6, Medium: 0.35, Low: 0.2},
	}
}

func newTestScreener() *Screener {
	return NewScreener(defaultTestConfig(), zap.NewNop().Sugar())
}

func tx(amount float64, hour int, category, location, customer, merchant string) model.Transaction {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.NewTransaction(decimal.NewFromFloat(amount), hour, category, location, customer, merchant, now, now)
}

func screenNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestScreen_CleanTransaction(t *testing.T) {
	result := newTestScreener().Screen(tx(100, 12, "GROCERY", "US", "Jane Doe", "Corner Store"), nil, nil, screenNow())

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, model.RiskLevelMinimal, result.Level)
	assert.Empty(t, result.Flags)
	assert.Equal(t, []string{model.RecStandardProcessing}, result.Recommendations)
	assert.False(t, result.RequiresManualReview)
}

func TestScreen_MultipleSignals(t *testing.T) {
	result := newTestScreener().Screen(tx(9900, 2, "GAMBLING", "OFFSHORE HAVEN", "Jane Doe", "Casino Ltd"), nil, nil, screenNow())

	assert.Contains(t, result.Flags, model.FlagAmountNearCTRThreshold)
	assert.Contains(t, result.Flags, model.FlagUnusualTiming)
	assert.Contains(t, result.Flags, model.FlagHighRiskMerchantCategory)
	assert.Contains(t, result.Flags, model.FlagHighRiskLocation)
	assert.Len(t, result.Flags, 4)

	// 0.4*0.20 structuring + 0.9*0.35 patterns.
	assert.InDelta(t, 0.395, result.Score, 1e-9)
	assert.Equal(t, model.RiskLevelMedium, result.Level)
	assert.Equal(t, 0.4, result.Components.Structuring)
	assert.Equal(t, 0.9, result.Components.SuspiciousPatterns)
}

func TestScreen_StructuringWithHistory(t *testing.T) {
	now := screenNow()
	history := []model.HistoryEntry{
		{Timestamp: now.Add(-1 * time.Hour), Amount: decimal.NewFromInt(4000)},
		{Timestamp: now.Add(-5 * time.Hour), Amount: decimal.NewFromInt(4000)},
		{Timestamp: now.Add(-20 * time.Hour), Amount: decimal.NewFromInt(4000)},
		// Outside the structuring window, must not count.
		{Timestamp: now.Add(-30 * time.Hour), Amount: decimal.NewFromInt(4000)},
	}
	result := newTestScreener().Screen(tx(9900, 12, "GROCERY", "US", "Jane Doe", "Store"), history, nil, now)

	assert.Contains(t, result.Flags, model.FlagAmountNearCTRThreshold)
	assert.Contains(t, result.Flags, model.FlagMultipleTxnsAboveThreshold)
	assert.Equal(t, 1.0, result.Components.Structuring)
	assert.Contains(t, result.Recommendations, model.RecMonitorCustomerPattern)
}

func TestScreen_RapidMovement(t *testing.T) {
	now := screenNow()
	history := make([]model.HistoryEntry, 5)
	for i := range history {
		history[i] = model.HistoryEntry{Timestamp: now.Add(-time.Duration(i+1) * time.Hour), Amount: decimal.NewFromInt(10000)}
	}
	result := newTestScreener().Screen(tx(60000, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, history, now)

	assert.Contains(t, result.Flags, model.FlagLargeSingleTransaction)
	assert.Contains(t, result.Flags, model.FlagRoundAmountTransaction)
	assert.Contains(t, result.Flags, model.FlagHighFrequencyTransactions)
	assert.InDelta(t, 0.9, result.Components.RapidMovement, 1e-9)
}

func TestScreen_RoundAmountBelowFloorIgnored(t *testing.T) {
	result := newTestScreener().Screen(tx(3000, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, nil, screenNow())
	assert.NotContains(t, result.Flags, model.FlagRoundAmountTransaction)
}

func TestScreen_RepeatedDigitAmount(t *testing.T) {
	result := newTestScreener().Screen(tx(7777, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, nil, screenNow())
	assert.Contains(t, result.Flags, model.FlagRepeatedDigitAmount)

	result = newTestScreener().Screen(tx(777, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, nil, screenNow())
	assert.NotContains(t, result.Flags, model.FlagRepeatedDigitAmount)
}

func TestScreen_SanctionsMatchDominates(t *testing.T) {
	result := newTestScreener().Screen(tx(100, 12, "GROCERY", "US", "SANCTIONED_ENTITY_1 Holdings", "Store"), nil, nil, screenNow())

	assert.Contains(t, result.Flags, model.FlagSanctionsMatch)
	assert.Equal(t, 1.0, result.Components.Sanctions)
	assert.True(t, result.RequiresManualReview)
	assert.Contains(t, result.Recommendations, model.RecBlockTransactionImmediately)
	assert.Contains(t, result.Recommendations, model.RecReportToComplianceTeam)
}

func TestScreen_SanctionsMatchIsCaseInsensitive(t *testing.T) {
	result := newTestScreener().Screen(tx(100, 12, "GROCERY", "US", "Jane Doe", "sanctioned_entity_1 llc"), nil, nil, screenNow())
	assert.Contains(t, result.Flags, model.FlagSanctionsMatch)
}

func TestScreen_SanctionedLocation(t *testing.T) {
	result := newTestScreener().Screen(tx(100, 12, "GROCERY", "BLOCKED_COUNTRY_CODE", "Jane Doe", "Store"), nil, nil, screenNow())

	assert.Contains(t, result.Flags, model.FlagSanctionsLocation)
	assert.NotContains(t, result.Flags, model.FlagSanctionsMatch)
	assert.Equal(t, 0.8, result.Components.Sanctions)
	assert.False(t, result.RequiresManualReview)
}

func TestScreen_HighScoreRequiresManualReview(t *testing.T) {
	now := screenNow()
	history := make([]model.HistoryEntry, 5)
	for i := range history {
		history[i] = model.HistoryEntry{Timestamp: now.Add(-time.Duration(i+1) * time.Hour), Amount: decimal.NewFromInt(4000)}
	}
	result := newTestScreener().Screen(
		tx(9900, 2, "GAMBLING", "OFFSHORE HAVEN", "SANCTIONED_ENTITY_1", "Casino"),
		history, history, now)

	assert.GreaterOrEqual(t, result.Score, 0.7)
	assert.Equal(t, model.RiskLevelHigh, result.Level)
	assert.True(t, result.RequiresManualReview)
	assert.Contains(t, result.Recommendations, model.RecImmediateManualReview)
	assert.Contains(t, result.Recommendations, model.RecConsiderSAR)
}

func TestScreen_ScoreMonotonicInAmount(t *testing.T) {
	s := newTestScreener()
	lowRisk := s.Screen(tx(100, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, nil, screenNow())
	highRisk := s.Screen(tx(60000, 12, "GROCERY", "US", "Jane Doe", "Store"), nil, nil, screenNow())
	assert.Greater(t, highRisk.Score, lowRisk.Score)
}
