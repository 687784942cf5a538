// Package amlcheck runs the stateless AML rule checks: structuring, rapid
// movement, suspicious patterns and sanctions screening. Each check is
// independent and yields a sub-score in [0,1] plus flags; the screener
// blends them into one component-weighted AML score.
package amlcheck

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/model"
	"github.com/Aidin1998/riskcore/pkg/metrics"
)

// Config holds the regulatory thresholds, screening lists and score
// blending for the AML checks. Loaded once at startup and shared read-only.
type Config struct {
	// CTRThreshold is the Currency Transaction Report dollar threshold;
	// amounts in [0.8*CTR, CTR) look like structuring.
	CTRThreshold decimal.Decimal
	// RapidMovementThreshold flags large single transfers.
	RapidMovementThreshold decimal.Decimal
	// StructuringWindow bounds the caller-supplied history scan for the
	// structuring check.
	StructuringWindow time.Duration
	// RapidMovementWindow bounds the history scan for the rapid movement
	// check.
	RapidMovementWindow time.Duration

	HighRiskCategories []string
	HighRiskLocations  []string
	SanctionsList      []string

	Weights Weights
	Levels  Levels
}

// Weights blends the four check sub-scores into the overall AML score.
type Weights struct {
	Structuring        float64 `yaml:"structuring"`
	RapidMovement      float64 `yaml:"rapid_movement"`
	SuspiciousPatterns float64 `yaml:"suspicious_patterns"`
	Sanctions          float64 `yaml:"sanctions"`
}

// Levels holds the AML risk level cut-points.
type Levels struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
	Low    float64 `yaml:"low"`
}

// Screener evaluates the AML rule checks for a single transaction. It holds
// no mutable state and is safe for concurrent use.
type Screener struct {
	cfg    Config
	logger *zap.SugaredLogger

	// Upper-cased copies of the screening lists, prepared once so the
	// hot path does no case conversion on configuration data.
	categories map[string]bool
	locations  []string
	sanctions  []string
}

// NewScreener creates an AML screener from validated configuration.
func NewScreener(cfg Config, logger *zap.SugaredLogger) *Screener {
	s := &Screener{
		cfg:        cfg,
		logger:     logger,
		categories: make(map[string]bool, len(cfg.HighRiskCategories)),
	}
	for _, c := range cfg.HighRiskCategories {
		s.categories[strings.ToUpper(c)] = true
	}
	for _, l := range cfg.HighRiskLocations {
		s.locations = append(s.locations, strings.ToUpper(l))
	}
	for _, e := range cfg.SanctionsList {
		s.sanctions = append(s.sanctions, strings.ToUpper(e))
	}
	return s
}

// amlRecommendations is the fixed-order rule table turning scores and flags
// into recommendation tags.
var amlRecommendations = []struct {
	minScore float64
	flag     string
	tags     []string
}{
	{minScore: 0.8, tags: []string{model.RecImmediateManualReview, model.RecConsiderSAR}},
	{minScore: 0.5, tags: []string{model.RecEnhancedDueDiligence, model.RecAdditionalDocumentation}},
	{flag: model.FlagSanctionsMatch, tags: []string{model.RecBlockTransactionImmediately, model.RecReportToComplianceTeam}},
	{flag: model.FlagAmountNearCTRThreshold, tags: []string{model.RecMonitorCustomerPattern, model.RecReviewTransactionHistory}},
	{flag: model.FlagMultipleTxnsAboveThreshold, tags: []string{model.RecMonitorCustomerPattern, model.RecReviewTransactionHistory}},
}

// Screen runs all four checks on a transaction. The history slices are
// optional; without them the history-based sub-checks simply contribute
// nothing. Screening never fails.
func (s *Screener) Screen(tx model.Transaction, txnHistory, accountHistory []model.HistoryEntry, now time.Time) model.AMLResult {
	structuring, structuringFlags := s.checkStructuring(tx, txnHistory, now)
	rapid, rapidFlags := s.checkRapidMovement(tx, accountHistory, now)
	patterns, patternFlags := s.checkSuspiciousPatterns(tx)
	sanctions, sanctionsFlags := s.checkSanctions(tx)

	overall := structuring*s.cfg.Weights.Structuring +
		rapid*s.cfg.Weights.RapidMovement +
		patterns*s.cfg.Weights.SuspiciousPatterns +
		sanctions*s.cfg.Weights.Sanctions
	overall = clamp01(overall)

	flags := []string{}
	flags = append(flags, structuringFlags...)
	flags = append(flags, rapidFlags...)
	flags = append(flags, patternFlags...)
	flags = append(flags, sanctionsFlags...)

	sanctioned := contains(flags, model.FlagSanctionsMatch)
	if sanctioned {
		metrics.SanctionsHits.Inc()
		s.logger.Warnw("sanctions match on transaction",
			"customer_name", tx.CustomerName,
			"merchant_name", tx.MerchantName,
		)
	}

	return model.AMLResult{
		Score:           round4(overall),
		Level:           s.riskLevel(overall),
		Flags:           flags,
		Recommendations: s.recommendations(overall, flags),
		Components: model.AMLComponents{
			Structuring:        round4(structuring),
			RapidMovement:      round4(rapid),
			SuspiciousPatterns: round4(patterns),
			Sanctions:          round4(sanctions),
		},
		RequiresManualReview: overall >= 0.7 || sanctioned,
	}
}

// checkStructuring detects transactions sized to stay under the CTR
// reporting threshold, alone or spread across the structuring window.
func (s *Screener) checkStructuring(tx model.Transaction, history []model.HistoryEntry, now time.Time) (float64, []string) {
	risk := 0.0
	flags := []string{}

	nearLow := s.cfg.CTRThreshold.Mul(decimal.NewFromFloat(0.8))
	if tx.Amount.GreaterThanOrEqual(nearLow) && tx.Amount.LessThan(s.cfg.CTRThreshold) {
		risk += 0.4
		flags = append(flags, model.FlagAmountNearCTRThreshold)
	}

	if len(history) > 0 {
		cutoff := now.Add(-s.cfg.StructuringWindow)
		recent := 0
		sum := tx.Amount
		for _, h := range history {
			if h.Timestamp.Before(cutoff) {
				continue
			}
			recent++
			sum = sum.Add(h.Amount)
		}
		if recent >= 3 && sum.GreaterThan(s.cfg.CTRThreshold) {
			risk += 0.6
			flags = append(flags, model.FlagMultipleTxnsAboveThreshold)
		}
	}

	return clamp01(risk), flags
}

// checkRapidMovement detects fast movement of large sums.
func (s *Screener) checkRapidMovement(tx model.Transaction, history []model.HistoryEntry, now time.Time) (float64, []string) {
	risk := 0.0
	flags := []string{}

	if tx.Amount.GreaterThan(s.cfg.RapidMovementThreshold) {
		risk += 0.3
		flags = append(flags, model.FlagLargeSingleTransaction)
	}

	// Round thousand-dollar amounts of $5,000 and up are a common
	// laundering shape.
	if tx.Amount.GreaterThanOrEqual(decimal.NewFromInt(5000)) &&
		tx.Amount.Mod(decimal.NewFromInt(1000)).IsZero() {
		risk += 0.2
		flags = append(flags, model.FlagRoundAmountTransaction)
	}

	if len(history) > 0 {
		cutoff := now.Add(-s.cfg.RapidMovementWindow)
		recent := 0
		for _, h := range history {
			if !h.Timestamp.Before(cutoff) {
				recent++
			}
		}
		if recent >= 5 {
			risk += 0.4
			flags = append(flags, model.FlagHighFrequencyTransactions)
		}
	}

	return clamp01(risk), flags
}

// checkSuspiciousPatterns scores timing, merchant, location and amount-shape
// signals from the transaction's own fields.
func (s *Screener) checkSuspiciousPatterns(tx model.Transaction) (float64, []string) {
	risk := 0.0
	flags := []string{}

	if tx.HourOfDay < 6 || tx.HourOfDay > 22 {
		risk += 0.2
		flags = append(flags, model.FlagUnusualTiming)
	}

	if s.categories[strings.ToUpper(tx.MerchantCategory)] {
		risk += 0.3
		flags = append(flags, model.FlagHighRiskMerchantCategory)
	}

	location := strings.ToUpper(tx.Location)
	for _, marker := range s.locations {
		if strings.Contains(location, marker) {
			risk += 0.4
			flags = append(flags, model.FlagHighRiskLocation)
			break
		}
	}

	if repeatedDigits(tx.Amount) {
		risk += 0.3
		flags = append(flags, model.FlagRepeatedDigitAmount)
	}

	return clamp01(risk), flags
}

// checkSanctions screens the transaction parties and location against the
// sanctioned-entity list. A name match short-circuits further scanning.
func (s *Screener) checkSanctions(tx model.Transaction) (float64, []string) {
	customer := strings.ToUpper(tx.CustomerName)
	merchant := strings.ToUpper(tx.MerchantName)
	location := strings.ToUpper(tx.Location)

	for _, entity := range s.sanctions {
		if strings.Contains(customer, entity) || strings.Contains(merchant, entity) {
			return 1.0, []string{model.FlagSanctionsMatch}
		}
	}

	for _, entity := range s.sanctions {
		if strings.Contains(location, entity) {
			return 0.8, []string{model.FlagSanctionsLocation}
		}
	}

	return 0, []string{}
}

func (s *Screener) riskLevel(score float64) model.RiskLevel {
	switch {
	case score >= s.cfg.Levels.High:
		return model.RiskLevelHigh
	case score >= s.cfg.Levels.Medium:
		return model.RiskLevelMedium
	case score >= s.cfg.Levels.Low:
		return model.RiskLevelLow
	default:
		return model.RiskLevelMinimal
	}
}

func (s *Screener) recommendations(score float64, flags []string) []string {
	flagSet := make(map[string]bool, len(flags))
	for _, f := range flags {
		flagSet[f] = true
	}

	recs := []string{}
	seen := map[string]bool{}
	add := func(tags []string) {
		for _, t := range tags {
			if !seen[t] {
				seen[t] = true
				recs = append(recs, t)
			}
		}
	}
	for _, rule := range amlRecommendations {
		if rule.flag != "" {
			if flagSet[rule.flag] {
				add(rule.tags)
			}
			continue
		}
		if score >= rule.minScore {
			add(rule.tags)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, model.RecStandardProcessing)
	}
	return recs
}

// repeatedDigits reports whether the integer dollar amount consists of a
// single repeated digit with at least four digits, e.g. 7777.
func repeatedDigits(amount decimal.Decimal) bool {
	digits := amount.Truncate(0).BigInt().String()
	if len(digits) < 4 {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
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
