// Package config loads the CryptexQ server configuration from YAML with
// environment overrides for the values that differ per deployment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	"github.com/cryptexq/cryptexq-go/pkg/kem"
)

// Environment variables honored by Load, taking precedence over the file.
const (
	EnvListenAddr   = "CRYPTEXQ_LISTEN_ADDR"
	EnvLogLevel     = "CRYPTEXQ_LOG_LEVEL"
	EnvHMACSecret   = "CRYPTEXQ_HMAC_SECRET" // passphrase for the integrity key
	EnvKEMAlgorithm = "CRYPTEXQ_KEM_ALGORITHM"
)

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error|silent
	Format string `yaml:"format"` // text|json
}

// KEMConfig selects the KEM algorithm and backend.
type KEMConfig struct {
	// Algorithm is "kyber" or "frodo".
	Algorithm string `yaml:"algorithm"`

	// ForceSimulated skips the capability probe and runs the simulated
	// backends, for demos and tests.
	ForceSimulated bool `yaml:"force_simulated"`
}

// QKDConfig tunes the simulated quantum channel.
type QKDConfig struct {
	RawBits   int     `yaml:"raw_bits"`
	ErrorRate float64 `yaml:"error_rate"`
}

// IntegrityConfig controls the message integrity guard.
type IntegrityConfig struct {
	// SecretHex is a hex-encoded 32-byte HMAC key. Takes precedence over
	// Passphrase.
	SecretHex string `yaml:"secret_hex"`

	// Passphrase derives the HMAC key via HKDF-SHA256 when SecretHex is
	// empty. When both are empty a fresh key is generated per process.
	Passphrase string `yaml:"passphrase"`

	// ReplayLedgerSize bounds the recently-seen-tag ledger; 0 disables
	// replay detection.
	ReplayLedgerSize int `yaml:"replay_ledger_size"`
}

// RateLimitConfig bounds inbound events per connection.
type RateLimitConfig struct {
	EventsPerSecond float64 `yaml:"events_per_second"`
	Burst           int     `yaml:"burst"`
}

// Config is the full server configuration.
type Config struct {
	ListenAddr  string          `yaml:"listen_addr"`
	MetricsAddr string          `yaml:"metrics_addr"` // empty disables /metrics
	Log         LogConfig       `yaml:"log"`
	KEM         KEMConfig       `yaml:"kem"`
	QKD         QKDConfig       `yaml:"qkd"`
	Integrity   IntegrityConfig `yaml:"integrity"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:  ":5000",
		MetricsAddr: ":9400",
		Log:         LogConfig{Level: "info", Format: "text"},
		KEM:         KEMConfig{Algorithm: string(kem.Kyber512)},
		QKD: QKDConfig{
			RawBits:   constants.QKDDefaultRawBits,
			ErrorRate: constants.QKDDefaultErrorRate,
		},
		Integrity: IntegrityConfig{ReplayLedgerSize: 4096},
		RateLimit: RateLimitConfig{EventsPerSecond: 50, Burst: 100},
	}
}

// Load reads the YAML file at path (empty path skips the file), applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvHMACSecret); v != "" {
		cfg.Integrity.Passphrase = v
		cfg.Integrity.SecretHex = ""
	}
	if v := os.Getenv(EnvKEMAlgorithm); v != "" {
		cfg.KEM.Algorithm = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if !kem.Algorithm(c.KEM.Algorithm).Supported() {
		return fmt.Errorf("config: unsupported kem algorithm %q", c.KEM.Algorithm)
	}
	if c.QKD.ErrorRate < 0 || c.QKD.ErrorRate >= 1 {
		return fmt.Errorf("config: qkd error_rate %v outside [0,1)", c.QKD.ErrorRate)
	}
	if c.QKD.RawBits < 0 {
		return fmt.Errorf("config: qkd raw_bits must be non-negative")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr required")
	}
	return nil
}
