// Package config loads the bridge's YAML configuration file, applies
// environment variable overrides, and validates the result, following the
// load-then-override-then-validate shape of
// nerrad567/internal/infrastructure/config.Load.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bridge's root configuration structure.
type Config struct {
	Gateway     GatewayConfig     `yaml:"gateway"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment"`
	HomeGraph   HomeGraphConfig   `yaml:"home_graph"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GatewayConfig carries the TCP listener and per-connection protocol
// engine settings named in the configuration surface.
type GatewayConfig struct {
	ListenAddr           string        `yaml:"listen_addr"`
	HandshakeAuthTimeout time.Duration `yaml:"handshake_auth_timeout"`
	MaxReceiveBuffer     int           `yaml:"max_receive_buffer"`
}

// FulfillmentConfig carries the HTTPS fulfillment listener and router
// settings.
type FulfillmentConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	Domain       string        `yaml:"domain"`
	CertCacheDir string        `yaml:"cert_cache_dir"`
	SyncDebounce time.Duration `yaml:"sync_debounce"`
}

// HomeGraphConfig carries the path to the service-account credentials
// Home Graph API calls are authenticated with. The path is opaque to the
// core: it is handed to google.golang.org/api's option.WithCredentialsFile
// by the bootstrap and never parsed here.
type HomeGraphConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	AgentUserID     string `yaml:"agent_user_id"`
}

// LoggingConfig selects the zap encoder/level/sink internal/logging
// builds.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads path as YAML over top of defaultConfig, applies
// environment variable overrides, validates, and returns the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ListenAddr:           ":7373",
			HandshakeAuthTimeout: 10 * time.Second,
			MaxReceiveBuffer:     102400,
		},
		Fulfillment: FulfillmentConfig{
			ListenAddr:   ":https",
			CertCacheDir: "certs",
			SyncDebounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Environment variable names applying overrides, following the
// HOMED_SECTION_KEY naming convention of
// nerrad567/internal/infrastructure/config's GRAYLOGIC_SECTION_KEY.
const (
	envGatewayListenAddr   = "HOMED_GATEWAY_LISTEN_ADDR"
	envFulfillmentDomain   = "HOMED_FULFILLMENT_DOMAIN"
	envHomeGraphCreds      = "HOMED_HOMEGRAPH_CREDENTIALS_FILE"
	envHomeGraphAgentUser  = "HOMED_HOMEGRAPH_AGENT_USER_ID"
	envLoggingLevel        = "HOMED_LOGGING_LEVEL"
)

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envGatewayListenAddr); v != "" {
		cfg.Gateway.ListenAddr = v
	}
	if v := os.Getenv(envFulfillmentDomain); v != "" {
		cfg.Fulfillment.Domain = v
	}
	if v := os.Getenv(envHomeGraphCreds); v != "" {
		cfg.HomeGraph.CredentialsFile = v
	}
	if v := os.Getenv(envHomeGraphAgentUser); v != "" {
		cfg.HomeGraph.AgentUserID = v
	}
	if v := os.Getenv(envLoggingLevel); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for missing or out-of-range values.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.ListenAddr == "" {
		errs = append(errs, "gateway.listen_addr is required")
	}
	if c.Gateway.HandshakeAuthTimeout <= 0 {
		errs = append(errs, "gateway.handshake_auth_timeout must be positive")
	}
	if c.Gateway.MaxReceiveBuffer <= 0 {
		errs = append(errs, "gateway.max_receive_buffer must be positive")
	}
	if c.Fulfillment.SyncDebounce <= 0 {
		errs = append(errs, "fulfillment.sync_debounce must be positive")
	}
	if c.Fulfillment.Domain == "" {
		errs = append(errs, "fulfillment.domain is required (set HOMED_FULFILLMENT_DOMAIN)")
	}
	if c.HomeGraph.CredentialsFile == "" {
		errs = append(errs, "home_graph.credentials_file is required (set HOMED_HOMEGRAPH_CREDENTIALS_FILE)")
	}
	if c.HomeGraph.AgentUserID == "" {
		errs = append(errs, "home_graph.agent_user_id is required (set HOMED_HOMEGRAPH_AGENT_USER_ID)")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not recognized", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
