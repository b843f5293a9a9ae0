package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (GATESHIP_*). It respects flags that have been explicitly set (changed
// map). Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("token", os.Getenv("GATESHIP_TOKEN"), &cfg.Token)
	s.setString("gate-url", os.Getenv("GATESHIP_GATE_URL"), &cfg.GateURL)
	s.setString("output-file", os.Getenv("GATESHIP_OUTPUT_FILE"), &cfg.OutputFile)
	s.setString("metrics-addr", os.Getenv("GATESHIP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setIntFromString("max-batch-bytes", os.Getenv("GATESHIP_MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-records", os.Getenv("GATESHIP_MAX_BATCH_RECORDS"), &cfg.MaxBatchRecords); err != nil {
		return err
	}

	if err := s.setDuration("batch-delay", os.Getenv("GATESHIP_BATCH_DELAY"), &cfg.BatchDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("GATESHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setBoolFromString("dry-run", os.Getenv("GATESHIP_DRY_RUN"), &cfg.DryRun)
	s.setBoolFromString("disable-collection", os.Getenv("GATESHIP_DISABLE_COLLECTION"), &cfg.DisableCollection)

	return nil
}
