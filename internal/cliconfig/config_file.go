package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to stay TOML
// friendly.
type FileConfig struct {
	Token             string `toml:"token"`
	GateURL           string `toml:"gate_url"`
	MaxBatchBytes     int    `toml:"max_batch_bytes"`
	MaxBatchRecords   int    `toml:"max_batch_records"`
	BatchDelay        string `toml:"batch_delay"`
	HTTPTimeout       string `toml:"http_timeout"`
	OutputFile        string `toml:"output_file"`
	DryRun            *bool  `toml:"dry_run"`
	DisableCollection *bool  `toml:"disable_collection"`
	MetricsAddr       string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// ~/.gateship/config.toml, if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".gateship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("token", fc.Token, &cfg.Token)
	s.setString("gate-url", fc.GateURL, &cfg.GateURL)
	s.setString("output-file", fc.OutputFile, &cfg.OutputFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)
	s.setInt("max-batch-records", fc.MaxBatchRecords, &cfg.MaxBatchRecords)

	if err := s.setDuration("batch-delay", fc.BatchDelay, &cfg.BatchDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setBool("dry-run", fc.DryRun, &cfg.DryRun)
	s.setBool("disable-collection", fc.DisableCollection, &cfg.DisableCollection)

	return nil
}

// FileExists reports whether p exists and is not a directory.
func FileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
