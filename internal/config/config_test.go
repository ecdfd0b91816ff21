package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ListenAddr == "" || cfg.KEM.Algorithm != "kyber" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen_addr: ":7000"
metrics_addr: ""
log:
  level: debug
  format: json
kem:
  algorithm: frodo
  force_simulated: true
qkd:
  raw_bits: 1024
  error_rate: 0.05
integrity:
  passphrase: "test-passphrase"
  replay_ledger_size: 128
rate_limit:
  events_per_second: 10
  burst: 20
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.KEM.Algorithm != "frodo" || !cfg.KEM.ForceSimulated {
		t.Errorf("KEM = %+v", cfg.KEM)
	}
	if cfg.QKD.RawBits != 1024 || cfg.QKD.ErrorRate != 0.05 {
		t.Errorf("QKD = %+v", cfg.QKD)
	}
	if cfg.Integrity.Passphrase != "test-passphrase" || cfg.Integrity.ReplayLedgerSize != 128 {
		t.Errorf("Integrity = %+v", cfg.Integrity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvListenAddr, ":9999")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvHMACSecret, "env-passphrase")
	t.Setenv(EnvKEMAlgorithm, "frodo")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Integrity.Passphrase != "env-passphrase" || cfg.Integrity.SecretHex != "" {
		t.Errorf("Integrity = %+v", cfg.Integrity)
	}
	if cfg.KEM.Algorithm != "frodo" {
		t.Errorf("KEM.Algorithm = %q", cfg.KEM.Algorithm)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported algorithm", func(c *Config) { c.KEM.Algorithm = "rsa" }},
		{"error rate too high", func(c *Config) { c.QKD.ErrorRate = 1.0 }},
		{"negative error rate", func(c *Config) { c.QKD.ErrorRate = -0.1 }},
		{"negative raw bits", func(c *Config) { c.QKD.RawBits = -1 }},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}
