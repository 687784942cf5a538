package risk

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Aidin1998/riskcore/internal/risk/amlcheck"
	"github.com/Aidin1998/riskcore/internal/risk/ledger"
	"github.com/Aidin1998/riskcore/internal/risk/velocity"
)

// TimeWindowsConfig defines the sliding window lengths in seconds. The week
// window doubles as the ledger retention horizon.
type TimeWindowsConfig struct {
	MinuteWindowSeconds int `yaml:"minute_window"`
	HourWindowSeconds   int `yaml:"hour_window"`
	DayWindowSeconds    int `yaml:"day_window"`
	WeekWindowSeconds   int `yaml:"week_window"`
}

// AMLThresholdsConfig defines the regulatory dollar thresholds and history
// windows for the AML checks.
type AMLThresholdsConfig struct {
	CTRThreshold             float64 `yaml:"ctr_threshold"`
	RapidMovementThreshold   float64 `yaml:"rapid_movement_threshold"`
	StructuringWindowHours   int     `yaml:"structuring_window_hours"`
	RapidMovementWindowHours int     `yaml:"rapid_movement_window_hours"`
}

// AggregationConfig defines how the base fraud, AML and velocity scores
// blend into the final verdict, and the verdict cut-points.
type AggregationConfig struct {
	FraudWeight     float64 `yaml:"fraud_weight"`
	AMLWeight       float64 `yaml:"aml_weight"`
	VelocityWeight  float64 `yaml:"velocity_weight"`
	HighThreshold   float64 `yaml:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`
	LowThreshold    float64 `yaml:"low_threshold"`
	FraudThreshold  float64 `yaml:"fraud_threshold"`
}

// LedgerConfig defines ledger store retention mechanics.
type LedgerConfig struct {
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
	MaxEntriesPerCustomer  int `yaml:"max_entries_per_customer"`
	ShardCount             int `yaml:"shard_count"`
}

// Config is the complete engine configuration. Every field has a documented
// default so the engine is usable with zero configuration; there is no
// runtime reconfiguration.
type Config struct {
	TimeWindows        TimeWindowsConfig   `yaml:"time_windows"`
	VelocityThresholds velocity.Thresholds `yaml:"velocity_thresholds"`
	VelocityWeights    velocity.Weights    `yaml:"velocity_weights"`
	AMLThresholds      AMLThresholdsConfig `yaml:"aml_thresholds"`
	AMLWeights         amlcheck.Weights    `yaml:"aml_weights"`
	AMLLevels          amlcheck.Levels     `yaml:"aml_levels"`
	HighRiskCategories []string            `yaml:"high_risk_categories"`
	HighRiskLocations  []string            `yaml:"high_risk_locations"`
	SanctionsList      []string            `yaml:"sanctions_list"`
	Aggregation        AggregationConfig   `yaml:"aggregation"`
	Ledger             LedgerConfig        `yaml:"ledger"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		TimeWindows: TimeWindowsConfig{
			MinuteWindowSeconds: 60,
			HourWindowSeconds:   3600,
			DayWindowSeconds:    86400,
			WeekWindowSeconds:   604800,
		},
		VelocityThresholds: velocity.Thresholds{
			MaxTransactionsPerMinute: 10,
			MaxTransactionsPerHour:   100,
			MaxTransactionsPerDay:    500,
			MaxAmountPerMinute:       50000,
			MaxAmountPerHour:         200000,
			MaxAmountPerDay:          1000000,
			HighVelocityThreshold:    0.8,
			MediumVelocityThreshold:  0.5,
			LowVelocityThreshold:     0.3,
		},
		VelocityWeights: velocity.Weights{
			Frequency: 0.4,
			Volume:    0.4,
			Pattern:   0.2,
		},
		AMLThresholds: AMLThresholdsConfig{
			CTRThreshold:             10000,
			RapidMovementThreshold:   50000,
			StructuringWindowHours:   24,
			RapidMovementWindowHours: 6,
		},
		AMLWeights: amlcheck.Weights{
			Structuring:        0.20,
			RapidMovement:      0.20,
			SuspiciousPatterns: 0.35,
			Sanctions:          0.25,
		},
		AMLLevels: amlcheck.Levels{
			High:   0.6,
			Medium: 0.35,
			Low:    0.2,
		},
		HighRiskCategories: []string{"CASH_ADVANCE", "GAMBLING", "CRYPTOCURRENCY", "MONEY_TRANSFER"},
		HighRiskLocations:  []string{"OFFSHORE", "SANCTIONS_COUNTRY", "HIGH_RISK_JURISDICTION"},
		SanctionsList:      []string{"SANCTIONED_ENTITY_1", "BLOCKED_COUNTRY_CODE"},
		Aggregation: AggregationConfig{
			FraudWeight:     0.5,
			AMLWeight:       0.3,
			VelocityWeight:  0.2,
			HighThreshold:   0.8,
			MediumThreshold: 0.5,
			LowThreshold:    0.3,
			FraudThreshold:  0.5,
		},
		Ledger: LedgerConfig{
			CleanupIntervalSeconds: 300,
			MaxEntriesPerCustomer:  10000,
			ShardCount:             32,
		},
	}
}

// LoadConfig loads the engine configuration from a YAML file layered over
// the defaults. An empty path yields pure defaults; a missing or invalid
// file is an error so the process never starts in an undefined-risk state.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration.
func validateConfig(config *Config) error {
	w := config.TimeWindows
	if w.MinuteWindowSeconds <= 0 || w.HourWindowSeconds <= 0 || w.DayWindowSeconds <= 0 || w.WeekWindowSeconds <= 0 {
		return fmt.Errorf("time windows must be positive")
	}
	if !(w.MinuteWindowSeconds < w.HourWindowSeconds && w.HourWindowSeconds < w.DayWindowSeconds && w.DayWindowSeconds <= w.WeekWindowSeconds) {
		return fmt.Errorf("time windows must be ordered minute < hour < day <= week")
	}

	if config.AMLThresholds.CTRThreshold <= 0 {
		return fmt.Errorf("ctr_threshold must be positive")
	}
	if config.AMLThresholds.RapidMovementThreshold <= 0 {
		return fmt.Errorf("rapid_movement_threshold must be positive")
	}

	if len(config.SanctionsList) == 0 {
		return fmt.Errorf("sanctions_list must not be empty")
	}

	vw := config.VelocityWeights
	if vw.Frequency < 0 || vw.Volume < 0 || vw.Pattern < 0 || vw.Frequency+vw.Volume+vw.Pattern <= 0 {
		return fmt.Errorf("velocity weights must be non-negative and sum to a positive value")
	}
	aw := config.AMLWeights
	if aw.Structuring < 0 || aw.RapidMovement < 0 || aw.SuspiciousPatterns < 0 || aw.Sanctions < 0 ||
		aw.Structuring+aw.RapidMovement+aw.SuspiciousPatterns+aw.Sanctions <= 0 {
		return fmt.Errorf("aml weights must be non-negative and sum to a positive value")
	}
	gw := config.Aggregation
	if gw.FraudWeight < 0 || gw.AMLWeight < 0 || gw.VelocityWeight < 0 ||
		gw.FraudWeight+gw.AMLWeight+gw.VelocityWeight <= 0 {
		return fmt.Errorf("aggregation weights must be non-negative and sum to a positive value")
	}

	vt := config.VelocityThresholds
	if !(vt.LowVelocityThreshold <= vt.MediumVelocityThreshold && vt.MediumVelocityThreshold <= vt.HighVelocityThreshold) {
		return fmt.Errorf("velocity level thresholds must be ordered low <= medium <= high")
	}
	al := config.AMLLevels
	if !(al.Low <= al.Medium && al.Medium <= al.High) {
		return fmt.Errorf("aml level thresholds must be ordered low <= medium <= high")
	}

	if config.Ledger.ShardCount <= 0 {
		return fmt.Errorf("ledger shard_count must be positive")
	}
	if config.Ledger.MaxEntriesPerCustomer <= 0 {
		return fmt.Errorf("ledger max_entries_per_customer must be positive")
	}

	return nil
}

// windowDurations converts the configured window seconds to durations.
func (c *Config) windowDurations() (minute, hour, day, week time.Duration) {
	minute = time.Duration(c.TimeWindows.MinuteWindowSeconds) * time.Second
	hour = time.Duration(c.TimeWindows.HourWindowSeconds) * time.Second
	day = time.Duration(c.TimeWindows.DayWindowSeconds) * time.Second
	week = time.Duration(c.TimeWindows.WeekWindowSeconds) * time.Second
	return
}

// ledgerConfig derives the ledger store configuration. Retention follows
// the longest configured window.
func (c *Config) ledgerConfig() ledger.Config {
	_, _, _, week := c.windowDurations()
	return ledger.Config{
		MaxAge:                week,
		CleanupInterval:       time.Duration(c.Ledger.CleanupIntervalSeconds) * time.Second,
		MaxEntriesPerCustomer: c.Ledger.MaxEntriesPerCustomer,
		ShardCount:            c.Ledger.ShardCount,
	}
}

// amlConfig derives the AML screener configuration.
func (c *Config) amlConfig() amlcheck.Config {
	return amlcheck.Config{
		CTRThreshold:           decimal.NewFromFloat(c.AMLThresholds.CTRThreshold),
		RapidMovementThreshold: decimal.NewFromFloat(c.AMLThresholds.RapidMovementThreshold),
		StructuringWindow:      time.Duration(c.AMLThresholds.StructuringWindowHours) * time.Hour,
		RapidMovementWindow:    time.Duration(c.AMLThresholds.RapidMovementWindowHours) * time.Hour,
		HighRiskCategories:     c.HighRiskCategories,
		HighRiskLocations:      c.HighRiskLocations,
		SanctionsList:          c.SanctionsList,
		Weights:                c.AMLWeights,
		Levels:                 c.AMLLevels,
	}
}
