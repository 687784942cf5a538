package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risk-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, validateConfig(DefaultConfig()))
}

func TestLoadConfig_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "aml_thresholds: [not a map")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_OverridesLayerOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
aml_thresholds:
  ctr_threshold: 15000
velocity_thresholds:
  max_transactions_per_minute: 20
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15000.0, cfg.AMLThresholds.CTRThreshold)
	assert.Equal(t, 20, cfg.VelocityThresholds.MaxTransactionsPerMinute)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50000.0, cfg.AMLThresholds.RapidMovementThreshold)
	assert.Equal(t, 100, cfg.VelocityThresholds.MaxTransactionsPerHour)
}

func TestLoadConfig_EmptySanctionsListRejected(t *testing.T) {
	path := writeConfigFile(t, "sanctions_list: []\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "sanctions_list")
}

func TestLoadConfig_UnorderedWindowsRejected(t *testing.T) {
	path := writeConfigFile(t, `
time_windows:
  minute_window: 3600
  hour_window: 60
  day_window: 86400
  week_window: 604800
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "time windows")
}

func TestLoadConfig_NegativeWeightRejected(t *testing.T) {
	path := writeConfigFile(t, `
aggregation:
  fraud_weight: -0.5
  aml_weight: 0.3
  velocity_weight: 0.2
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "aggregation weights")
}

func TestLoadConfig_UnorderedLevelsRejected(t *testing.T) {
	path := writeConfigFile(t, `
aml_levels:
  high: 0.2
  medium: 0.35
  low: 0.6
`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "aml level")
}
