package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultGateURL is the default delivery endpoint.
const DefaultGateURL = "https://api.stitchdata.com/v2/import/batch"

// Config holds CLI configuration for gateship.
type Config struct {
	Token   string
	GateURL string

	MaxBatchBytes   int
	MaxBatchRecords int
	BatchDelay      time.Duration
	HTTPTimeout     time.Duration

	OutputFile        string
	DryRun            bool
	DisableCollection bool
	MetricsAddr       string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		GateURL:         DefaultGateURL,
		MaxBatchBytes:   4000000,
		MaxBatchRecords: 20000,
		BatchDelay:      300 * time.Second,
		HTTPTimeout:     60 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.GateURL == "" {
		c.GateURL = DefaultGateURL
	}

	if c.MaxBatchBytes <= 0 {
		return fmt.Errorf("max-batch-bytes must be positive")
	}
	if c.MaxBatchRecords <= 0 {
		return fmt.Errorf("max-batch-records must be positive")
	}
	if c.BatchDelay <= 0 {
		return fmt.Errorf("batch-delay must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.DryRun && c.OutputFile == "" && c.Token == "" {
		return fmt.Errorf("token is required unless running with --dry-run or --output-file")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values when the corresponding flag has not been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
