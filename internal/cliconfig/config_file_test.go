package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
token = "file-token"
gate_url = "https://gate.example.com/v2/import/batch"
max_batch_bytes = 1000000
max_batch_records = 5000
batch_delay = "2m"
disable_collection = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.Token != "file-token" {
		t.Errorf("Token = %q, want file-token", fc.Token)
	}
	if fc.MaxBatchBytes != 1000000 {
		t.Errorf("MaxBatchBytes = %d, want 1000000", fc.MaxBatchBytes)
	}
	if fc.DisableCollection == nil || !*fc.DisableCollection {
		t.Errorf("DisableCollection = %v, want true", fc.DisableCollection)
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("token = [what"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("LoadFileConfig() error = nil, want parse error")
	}
}

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Token:           "file-token",
				GateURL:         "https://gate.example.com",
				MaxBatchRecords: 5000,
				BatchDelay:      "5m",
				DryRun:          &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Token:           "file-token",
				GateURL:         "https://gate.example.com",
				MaxBatchRecords: 5000,
				BatchDelay:      5 * time.Minute,
				DryRun:          true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Token:   "file-token",
				GateURL: "https://file.example.com",
			},
			changed: map[string]bool{"token": true},
			initial: Config{
				Token:   "flag-token",
				GateURL: "",
			},
			expected: Config{
				Token:   "flag-token", // unchanged because the flag was set
				GateURL: "https://file.example.com",
			},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{BatchDelay: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyFileConfig() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() error = %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if FileExists(path) {
		t.Error("FileExists() = true for missing file")
	}
	if err := os.WriteFile(path, []byte("token = \"x\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for directory")
	}
}
