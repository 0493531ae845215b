package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Strobe    StrobeConfig    `yaml:"strobe"`
	Vibration VibrationConfig `yaml:"vibration"`
	Mock      MockConfig      `yaml:"mock"`
}

// SerialConfig contains serial port configuration for the sensor pod.
type SerialConfig struct {
	Port           string `yaml:"port"`
	AverageSamples int    `yaml:"average_samples"` // Number of raw readings averaged per sample (0 = disabled, default)
}

// StrobeConfig contains the persisted strobe setpoint. The rate is mirrored
// here on every user-confirmed change; phase is deliberately not persisted.
type StrobeConfig struct {
	Rate int `yaml:"rate"` // Flashes per minute
}

// VibrationConfig contains vibration measurement parameters.
type VibrationConfig struct {
	CalibrationDuration time.Duration `yaml:"calibration_duration"`
	MeasurementDuration time.Duration `yaml:"measurement_duration"`
	SamplePeriod        time.Duration `yaml:"sample_period"` // Interval between acquired samples
	Estimator           string        `yaml:"estimator"`     // "spectral" or "zerocross"
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	NoiseLevel   float64       `yaml:"noise_level"`   // Noise level (m/s^2)
	VibrationHz  float64       `yaml:"vibration_hz"`  // Simulated vibration frequency
	VibrationAmp float64       `yaml:"vibration_amp"` // Simulated vibration amplitude (m/s^2)
	SampleRate   time.Duration `yaml:"sample_rate"`   // Interval between generated samples
	RPM          int           `yaml:"rpm"`           // Simulated shaft speed for the tachometer
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:           "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			AverageSamples: 0,      // No averaging by default
		},
		Strobe: StrobeConfig{
			Rate: 1800, // 30 Hz
		},
		Vibration: VibrationConfig{
			CalibrationDuration: 4 * time.Second,
			MeasurementDuration: 10 * time.Second,
			SamplePeriod:        4 * time.Millisecond, // 250 samples per second
			Estimator:           "spectral",
		},
		Mock: MockConfig{
			NoiseLevel:   0.02,
			VibrationHz:  25.0,
			VibrationAmp: 1.5,
			SampleRate:   4 * time.Millisecond,
			RPM:          3000,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.AverageSamples < 0 {
		c.Serial.AverageSamples = 0
	}

	if c.Strobe.Rate == 0 {
		c.Strobe.Rate = def.Strobe.Rate
	}

	if c.Vibration.CalibrationDuration == 0 {
		c.Vibration.CalibrationDuration = def.Vibration.CalibrationDuration
	}
	if c.Vibration.MeasurementDuration == 0 {
		c.Vibration.MeasurementDuration = def.Vibration.MeasurementDuration
	}
	if c.Vibration.SamplePeriod == 0 {
		c.Vibration.SamplePeriod = def.Vibration.SamplePeriod
	}
	if c.Vibration.Estimator == "" {
		c.Vibration.Estimator = def.Vibration.Estimator
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.VibrationHz == 0 {
		c.Mock.VibrationHz = def.Mock.VibrationHz
	}
	if c.Mock.VibrationAmp == 0 {
		c.Mock.VibrationAmp = def.Mock.VibrationAmp
	}
	if c.Mock.RPM == 0 {
		c.Mock.RPM = def.Mock.RPM
	}
}
