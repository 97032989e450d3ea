package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/timeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SpoolDir != filepath.Join(".", "spool") {
		t.Fatalf("SpoolDir = %q", cfg.SpoolDir)
	}
	if cfg.OutputDir != filepath.Join(".", "out") {
		t.Fatalf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Concurrency != runtime.NumCPU() {
		t.Fatalf("Concurrency = %d, want NumCPU", cfg.Concurrency)
	}
	if cfg.PollSeconds != 5 {
		t.Fatalf("PollSeconds = %d, want 5", cfg.PollSeconds)
	}
	if cfg.QuantumBits != timeline.DefaultQuantumBits {
		t.Fatalf("QuantumBits = %d", cfg.QuantumBits)
	}
	if cfg.FaultLimit != stats.DefaultFaultLimit {
		t.Fatalf("FaultLimit = %d", cfg.FaultLimit)
	}
	if cfg.Logs.Directory != filepath.Join(cfg.OutputDir, "logs") {
		t.Fatalf("Logs.Directory = %q", cfg.Logs.Directory)
	}
	if cfg.Logs.MaxSizeMB != 25 || cfg.Logs.MaxAgeDays != 7 || cfg.Logs.MaxBackups != 5 {
		t.Fatalf("log defaults = %+v", cfg.Logs)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	body := `
spoolDir: /srv/wibl/in
outputDir: /srv/wibl/out
concurrency: 3
pollSeconds: 30
quantumBits: 24
faultLimit: 50
logs:
  directory: /var/log/wibld
  maxSizeMB: 100
  maxAgeDays: 30
  maxBackups: 10
  compress: true
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SpoolDir != "/srv/wibl/in" || cfg.OutputDir != "/srv/wibl/out" {
		t.Fatalf("dirs = %q, %q", cfg.SpoolDir, cfg.OutputDir)
	}
	if cfg.Concurrency != 3 || cfg.PollSeconds != 30 {
		t.Fatalf("concurrency/poll = %d, %d", cfg.Concurrency, cfg.PollSeconds)
	}
	if cfg.QuantumBits != 24 || cfg.FaultLimit != 50 {
		t.Fatalf("quantum/faultLimit = %d, %d", cfg.QuantumBits, cfg.FaultLimit)
	}
	if cfg.Logs.Directory != "/var/log/wibld" || !cfg.Logs.Compress {
		t.Fatalf("logs = %+v", cfg.Logs)
	}
}

func TestLoadRejectsSharedSpoolAndOutput(t *testing.T) {
	body := "spoolDir: /srv/wibl\noutputDir: /srv/wibl\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("shared spool/output dir accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
