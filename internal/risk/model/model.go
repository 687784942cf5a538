package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel represents the severity bucket assigned to an assessment
type RiskLevel string

const (
	RiskLevelMinimal RiskLevel = "MINIMAL"
	RiskLevelLow     RiskLevel = "LOW"
	RiskLevelMedium  RiskLevel = "MEDIUM"
	RiskLevelHigh    RiskLevel = "HIGH"
)

// Velocity flags
const (
	FlagHighFrequencyMinute   = "HIGH_FREQUENCY_MINUTE"
	FlagHighFrequencyHour     = "HIGH_FREQUENCY_HOUR"
	FlagHighFrequencyDay      = "HIGH_FREQUENCY_DAY"
	FlagHighVolumeMinute      = "HIGH_VOLUME_MINUTE"
	FlagHighVolumeHour        = "HIGH_VOLUME_HOUR"
	FlagHighVolumeDay         = "HIGH_VOLUME_DAY"
	FlagBurstPattern          = "BURST_PATTERN"
	FlagOffHoursActivity      = "OFF_HOURS_ACTIVITY"
	FlagRapidFireTransactions = "RAPID_FIRE_TRANSACTIONS"
)

// AML flags
const (
	FlagAmountNearCTRThreshold     = "AMOUNT_NEAR_CTR_THRESHOLD"
	FlagMultipleTxnsAboveThreshold = "MULTIPLE_TRANSACTIONS_ABOVE_THRESHOLD"
	FlagLargeSingleTransaction     = "LARGE_SINGLE_TRANSACTION"
	FlagRoundAmountTransaction     = "ROUND_AMOUNT_TRANSACTION"
	FlagHighFrequencyTransactions  = "HIGH_FREQUENCY_TRANSACTIONS"
	FlagUnusualTiming              = "UNUSUAL_TIMING"
	FlagHighRiskMerchantCategory   = "HIGH_RISK_MERCHANT_CATEGORY"
	FlagHighRiskLocation           = "HIGH_RISK_LOCATION"
	FlagRepeatedDigitAmount        = "REPEATED_DIGIT_AMOUNT"
	FlagSanctionsMatch             = "SANCTIONS_MATCH"
	FlagSanctionsLocation          = "SANCTIONS_LOCATION"
)

// Recommendation tags emitted by the sub-engines. The aggregator orders the
// merged set by the priority table in the risk package.
const (
	RecBlockTransactionImmediately = "BLOCK_TRANSACTION_IMMEDIATELY"
	RecReportToComplianceTeam      = "REPORT_TO_COMPLIANCE_TEAM"
	RecImmediateManualReview       = "IMMEDIATE_MANUAL_REVIEW_REQUIRED"
	RecConsiderSAR                 = "CONSIDER_SUSPICIOUS_ACTIVITY_REPORT"
	RecEnhancedDueDiligence        = "ENHANCED_DUE_DILIGENCE"
	RecAdditionalDocumentation     = "ADDITIONAL_DOCUMENTATION_REQUIRED"
	RecMonitorCustomerPattern      = "MONITOR_CUSTOMER_PATTERN"
	RecReviewTransactionHistory    = "REVIEW_TRANSACTION_HISTORY"
	RecStandardProcessing          = "STANDARD_PROCESSING"

	RecImmediateVelocityReview      = "IMMEDIATE_VELOCITY_REVIEW"
	RecTemporaryTransactionHold     = "TEMPORARY_TRANSACTION_HOLD"
	RecEnhancedVelocityMonitoring   = "ENHANCED_VELOCITY_MONITORING"
	RecCustomerVerificationRequired = "CUSTOMER_VERIFICATION_REQUIRED"
	RecInvestigateBurstActivity     = "INVESTIGATE_BURST_ACTIVITY"
	RecRateLimitCustomer            = "RATE_LIMIT_CUSTOMER"
	RecVerifyCustomerLocation       = "VERIFY_CUSTOMER_LOCATION"
	RecCheckForAutomatedActivity    = "CHECK_FOR_AUTOMATED_ACTIVITY"
	RecStandardVelocityProcessing   = "STANDARD_VELOCITY_PROCESSING"
)

// Transaction is the normalized, immutable input to every scoring call.
// Build one with NewTransaction so the optional fields carry their documented
// defaults before any scoring code sees them.
type Transaction struct {
	Amount           decimal.Decimal `json:"transaction_amount"`
	HourOfDay        int             `json:"transaction_hour"`
	MerchantCategory string          `json:"merchant_category"`
	Location         string          `json:"location"`
	CustomerName     string          `json:"customer_name"`
	MerchantName     string          `json:"merchant_name"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NewTransaction normalizes raw transaction fields once at ingestion.
// Negative amounts collapse to zero, an out-of-range hour defaults to noon,
// and a zero timestamp defaults to now. Scoring code downstream can rely on
// every field being present and in range.
func NewTransaction(amount decimal.Decimal, hour int, category, location, customerName, merchantName string, ts time.Time, now time.Time) Transaction {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if hour < 0 || hour > 23 {
		hour = 12
	}
	if ts.IsZero() {
		ts = now
	}
	return Transaction{
		Amount:           amount,
		HourOfDay:        hour,
		MerchantCategory: category,
		Location:         location,
		CustomerName:     customerName,
		MerchantName:     merchantName,
		Timestamp:        ts,
	}
}

// HistoryEntry is a caller-supplied prior transaction used by the stateless
// AML history checks (structuring and rapid movement).
type HistoryEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"transaction_amount"`
}

// VelocityComponents breaks a velocity score into its weighted parts.
type VelocityComponents struct {
	FrequencyRisk float64 `json:"frequency_risk"`
	VolumeRisk    float64 `json:"volume_risk"`
	PatternRisk   float64 `json:"pattern_risk"`
}

// VelocityResult is the outcome of a velocity assessment. Field names are
// wire-compatible with the existing consumers of the velocity endpoints.
type VelocityResult struct {
	Score           float64            `json:"velocity_risk_score"`
	Level           RiskLevel          `json:"velocity_risk_level"`
	Flags           []string           `json:"velocity_flags"`
	Recommendations []string           `json:"velocity_recommendations"`
	Metrics         map[string]float64 `json:"velocity_metrics"`
	Components      VelocityComponents `json:"velocity_component_scores"`
	RequiresReview  bool               `json:"requires_velocity_review"`
}

// AMLComponents breaks an AML score into its weighted parts.
type AMLComponents struct {
	Structuring        float64 `json:"structuring"`
	RapidMovement      float64 `json:"rapid_movement"`
	SuspiciousPatterns float64 `json:"suspicious_patterns"`
	Sanctions          float64 `json:"sanctions"`
}

// AMLResult is the outcome of an AML screening pass.
type AMLResult struct {
	Score                float64       `json:"aml_overall_risk_score"`
	Level                RiskLevel     `json:"aml_risk_level"`
	Flags                []string      `json:"aml_flags"`
	Recommendations      []string      `json:"aml_recommendations"`
	Components           AMLComponents `json:"aml_component_scores"`
	RequiresManualReview bool          `json:"requires_manual_review"`
}

// RiskAssessment is the aggregate verdict surfaced to callers. Produced
// fresh per request and never mutated after construction.
type RiskAssessment struct {
	ID                   string             `json:"assessment_id"`
	IsFraud              bool               `json:"is_fraud"`
	OverallScore         float64            `json:"combined_risk_score"`
	RiskLevel            RiskLevel          `json:"risk_level"`
	Flags                []string           `json:"flags"`
	Recommendations      []string           `json:"recommendations"`
	ComponentScores      map[string]float64 `json:"component_scores"`
	RequiresManualReview bool               `json:"requires_manual_review"`
	Confidence           float64            `json:"confidence"`
	AssessedAt           time.Time          `json:"prediction_timestamp"`
}

// CustomerActivity is the nested recent-activity block of a summary.
type CustomerActivity struct {
	LastHourCount    int     `json:"last_hour_count"`
	LastMinuteCount  int     `json:"last_minute_count"`
	LastHourAmount   float64 `json:"last_hour_amount"`
	LastMinuteAmount float64 `json:"last_minute_amount"`
}

// CustomerSummary reports a customer's 24h ledger aggregates.
type CustomerSummary struct {
	CustomerID           string           `json:"customer_id"`
	TotalTransactions24h int              `json:"total_transactions_24h"`
	TotalAmount24h       float64          `json:"total_amount_24h"`
	AvgAmount24h         float64          `json:"avg_amount_24h"`
	MaxAmount24h         float64          `json:"max_amount_24h"`
	TransactionRate24h   float64          `json:"transaction_rate_24h"`
	RecentActivity       CustomerActivity `json:"recent_activity"`
}

// MinimalVelocityResult is the stub substituted when a velocity assessment
// cannot be completed. The transaction is scored, never dropped.
func MinimalVelocityResult() VelocityResult {
	return VelocityResult{
		Score:           0,
		Level:           RiskLevelMinimal,
		Flags:           []string{},
		Recommendations: []string{RecStandardVelocityProcessing},
		Metrics:         map[string]float64{},
	}
}

// MinimalAMLResult is the stub substituted when AML screening cannot be
// completed.
func MinimalAMLResult() AMLResult {
	return AMLResult{
		Score:           0,
		Level:           RiskLevelMinimal,
		Flags:           []string{},
		Recommendations: []string{RecStandardProcessing},
	}
}
