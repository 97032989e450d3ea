// Package config loads the daemon configuration file and fills in workable
// defaults for anything left unset.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/timeline"
)

type LogConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	SpoolDir    string    `yaml:"spoolDir"`
	OutputDir   string    `yaml:"outputDir"`
	Concurrency int       `yaml:"concurrency"`
	PollSeconds int       `yaml:"pollSeconds"`
	QuantumBits uint      `yaml:"quantumBits"`
	FaultLimit  int       `yaml:"faultLimit"`
	Logs        LogConfig `yaml:"logs"`
}

func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		candidate := filepath.Clean(filepath.Join(baseDir, p))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return filepath.Clean(p)
	}
	cfg.SpoolDir = resolvePath(cfg.SpoolDir)
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(".", "spool")
	}
	cfg.OutputDir = resolvePath(cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(".", "out")
	}
	if cfg.SpoolDir == cfg.OutputDir {
		return cfg, errors.New("spoolDir and outputDir must differ")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.PollSeconds <= 0 {
		cfg.PollSeconds = 5
	}
	if cfg.QuantumBits == 0 {
		cfg.QuantumBits = timeline.DefaultQuantumBits
	}
	if cfg.FaultLimit <= 0 {
		cfg.FaultLimit = stats.DefaultFaultLimit
	}
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.OutputDir, "logs")
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}
