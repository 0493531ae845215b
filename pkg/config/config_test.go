package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 0, cfg.Serial.AverageSamples)
	assert.Equal(t, 1800, cfg.Strobe.Rate)
	assert.Equal(t, 4*time.Second, cfg.Vibration.CalibrationDuration)
	assert.Equal(t, 10*time.Second, cfg.Vibration.MeasurementDuration)
	assert.Equal(t, 4*time.Millisecond, cfg.Vibration.SamplePeriod)
	assert.Equal(t, "spectral", cfg.Vibration.Estimator)
	assert.Equal(t, 3000, cfg.Mock.RPM)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  average_samples: 4

strobe:
  rate: 300

vibration:
  calibration_duration: 2s
  measurement_duration: 5s
  sample_period: 2ms
  estimator: "zerocross"

mock:
  noise_level: 0.01
  vibration_hz: 50
  vibration_amp: 2.0
  sample_rate: 2ms
  rpm: 1500
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 4, cfg.Serial.AverageSamples)
	assert.Equal(t, 300, cfg.Strobe.Rate)
	assert.Equal(t, 2*time.Second, cfg.Vibration.CalibrationDuration)
	assert.Equal(t, 5*time.Second, cfg.Vibration.MeasurementDuration)
	assert.Equal(t, 2*time.Millisecond, cfg.Vibration.SamplePeriod)
	assert.Equal(t, "zerocross", cfg.Vibration.Estimator)
	assert.Equal(t, float64(50), cfg.Mock.VibrationHz)
	assert.Equal(t, 1500, cfg.Mock.RPM)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 1800, cfg.Strobe.Rate)                               // default
	assert.Equal(t, 10*time.Second, cfg.Vibration.MeasurementDuration)   // default
	assert.Equal(t, "spectral", cfg.Vibration.Estimator)                 // default
}

func TestLoad_NegativeAverageSamples(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial:\n  average_samples: -3\n")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Serial.AverageSamples)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Strobe.Rate = 7200

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 7200, loaded.Strobe.Rate)
}
