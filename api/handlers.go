package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk/model"
	"github.com/Aidin1998/riskcore/pkg/metrics"
)

// transactionRequest is the wire shape shared by the assessment endpoints.
// Amount and hour are normalized rather than rejected when malformed: a
// scoring failure must degrade to a safe default instead of blocking the
// payment flow. Caller-supplied model scores are validated strictly since
// garbage there is a caller bug.
type transactionRequest struct {
	TransactionID     string          `json:"transaction_id"`
	CustomerID        string          `json:"customer_id" validate:"max=128"`
	Amount            decimal.Decimal `json:"transaction_amount"`
	Hour              *int            `json:"transaction_hour"`
	MerchantCategory  string          `json:"merchant_category"`
	Location          string          `json:"location"`
	CustomerName      string          `json:"customer_name"`
	MerchantName      string          `json:"merchant_name"`
	MerchantRiskScore float64         `json:"merchant_risk_score" validate:"min=0,max=1"`
	FraudProbability  *float64        `json:"fraud_probability" validate:"omitempty,min=0,max=1"`
	Timestamp         *time.Time      `json:"timestamp"`

	TransactionHistory []historyEntryRequest `json:"transaction_history"`
	AccountHistory     []historyEntryRequest `json:"account_history"`
}

type historyEntryRequest struct {
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"transaction_amount"`
}

func (r *transactionRequest) customerID() string {
	if r.CustomerID == "" {
		return "UNKNOWN"
	}
	return r.CustomerID
}

func (r *transactionRequest) toTransaction(now time.Time) model.Transaction {
	hour := 12
	if r.Hour != nil {
		hour = *r.Hour
	}
	ts := time.Time{}
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return model.NewTransaction(r.Amount, hour, r.MerchantCategory, r.Location,
		r.CustomerName, r.MerchantName, ts, now)
}

func toHistory(entries []historyEntryRequest) []model.HistoryEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.HistoryEntry{Timestamp: e.Timestamp, Amount: e.Amount})
	}
	return out
}

func (s *Server) bindTransaction(c *gin.Context) (*transactionRequest, bool) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return nil, false
	}
	return &req, true
}

// assessRisk runs the full pipeline: velocity, AML, then aggregation with
// the caller's base fraud probability (or the heuristic fallback).
func (s *Server) assessRisk(c *gin.Context) {
	req, ok := s.bindTransaction(c)
	if !ok {
		return
	}
	start := time.Now()
	now := s.engine.Now()
	tx := req.toTransaction(now)
	customerID := req.customerID()

	velRes, err := s.engine.AssessVelocity(customerID, tx)
	if err != nil {
		s.logger.Warn("velocity assessment failed, using minimal stub",
			zap.String("customer_id", customerID), zap.Error(err))
	}

	amlRes, err := s.engine.AssessAML(tx, toHistory(req.TransactionHistory), toHistory(req.AccountHistory))
	if err != nil {
		s.logger.Warn("aml screening failed, using minimal stub",
			zap.String("customer_id", customerID), zap.Error(err))
	}

	baseFraud := s.engine.HeuristicBaseScore(tx, req.MerchantRiskScore)
	modelUsed := "heuristic"
	if req.FraudProbability != nil {
		baseFraud = *req.FraudProbability
		modelUsed = "caller_supplied"
	}

	assessment := s.engine.Combine(baseFraud, amlRes, velRes)
	metrics.AssessmentLatency.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, gin.H{
		"assessment_id":            assessment.ID,
		"transaction_id":           req.TransactionID,
		"is_fraud":                 assessment.IsFraud,
		"fraud_probability":        baseFraud,
		"aml_risk_score":           amlRes.Score,
		"velocity_risk_score":      velRes.Score,
		"combined_risk_score":      assessment.OverallScore,
		"risk_level":               assessment.RiskLevel,
		"aml_risk_level":           amlRes.Level,
		"velocity_risk_level":      velRes.Level,
		"aml_flags":                amlRes.Flags,
		"velocity_flags":           velRes.Flags,
		"flags":                    assessment.Flags,
		"recommendations":          assessment.Recommendations,
		"component_scores":         assessment.ComponentScores,
		"requires_manual_review":   amlRes.RequiresManualReview,
		"requires_velocity_review": velRes.RequiresReview,
		"model_used":               modelUsed,
		"confidence":               assessment.Confidence,
		"prediction_timestamp":     assessment.AssessedAt.Format(time.RFC3339),
	})
}

// amlCheck is the dedicated AML screening endpoint.
func (s *Server) amlCheck(c *gin.Context) {
	req, ok := s.bindTransaction(c)
	if !ok {
		return
	}
	now := s.engine.Now()
	tx := req.toTransaction(now)

	amlRes, err := s.engine.AssessAML(tx, toHistory(req.TransactionHistory), toHistory(req.AccountHistory))
	if err != nil {
		s.logger.Warn("aml screening failed, using minimal stub", zap.Error(err))
	}

	status := "PASS"
	if amlRes.Score >= 0.5 {
		status = "REVIEW_REQUIRED"
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":       req.TransactionID,
		"aml_assessment":       amlRes,
		"assessment_timestamp": now.Format(time.RFC3339),
		"compliance_status":    status,
	})
}

// velocityCheck is the dedicated velocity monitoring endpoint. It records
// the transaction before scoring, like the full pipeline does.
func (s *Server) velocityCheck(c *gin.Context) {
	req, ok := s.bindTransaction(c)
	if !ok {
		return
	}
	now := s.engine.Now()
	tx := req.toTransaction(now)
	customerID := req.customerID()

	velRes, err := s.engine.AssessVelocity(customerID, tx)
	if err != nil {
		s.logger.Warn("velocity assessment failed, using minimal stub",
			zap.String("customer_id", customerID), zap.Error(err))
	}

	status := "NORMAL"
	if velRes.Score >= 0.5 {
		status = "REVIEW_REQUIRED"
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":       req.TransactionID,
		"customer_id":          customerID,
		"velocity_assessment":  velRes,
		"assessment_timestamp": now.Format(time.RFC3339),
		"velocity_status":      status,
	})
}

// velocitySummary reports a customer's recent ledger aggregates.
func (s *Server) velocitySummary(c *gin.Context) {
	customerID := c.Param("customer_id")
	summary := s.engine.CustomerSummary(customerID)

	c.JSON(http.StatusOK, gin.H{
		"velocity_summary":     summary,
		"assessment_timestamp": s.engine.Now().Format(time.RFC3339),
	})
}
