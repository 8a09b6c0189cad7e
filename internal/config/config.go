package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of one notification profile instance.
type Config struct {
	// ProfileName identifies this profile in logs and audit records.
	ProfileName string `yaml:"profile_name"`
	// GatewayURL is the SMS gateway endpoint. Mandatory.
	GatewayURL string `yaml:"gateway_url"`
	// ListenAddress is where the bridge HTTP API listens.
	ListenAddress string `yaml:"listen_addr"`
	// CountryCode is prepended to phone numbers that arrive without one.
	CountryCode string `yaml:"country_code"`
	// Message is the notification template for single-event batches.
	Message string `yaml:"message"`
	// ThrottledMessage is the template used when a batch carries
	// more than one event.
	ThrottledMessage string `yaml:"throttled_message"`
	// TestMode suppresses real transmission while still exercising
	// the formatting logic.
	TestMode bool `yaml:"test_mode"`
	// AuditLog is the path of the JSON-lines audit log. Empty disables auditing.
	AuditLog string `yaml:"audit_log"`
	// AckCallbackURL is the alarm framework endpoint that receives
	// acknowledged event batches. Empty means acknowledgments are only logged.
	AckCallbackURL string `yaml:"ack_callback_url"`
	// PendingTTL is how long a pending acknowledgment stays resolvable.
	PendingTTL time.Duration `yaml:"pending_ttl"`
	// PollInterval is the inbound polling period.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SweepInterval is the orphan reaping period.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// Timeout bounds every gateway HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for profile settings.
	DefaultConfigFilename = "sms-bridge-settings.yaml"

	// DefaultListenAddress is where the bridge API listens when unset.
	DefaultListenAddress = ":8085"

	// DefaultCountryCode is used when the profile does not configure one.
	DefaultCountryCode = "1"

	// DefaultProfileName is used when the profile does not configure one.
	DefaultProfileName = "sms-bridge"

	// DefaultMessage is the single-event notification template.
	DefaultMessage = "Alarm \"{{ (index .Events 0).DisplayPath }}\" requires attention."

	// DefaultThrottledMessage is the multi-event notification template.
	DefaultThrottledMessage = "{{ len .Events }} alarms require attention."

	// DefaultPendingTTL is how long codes stay resolvable when unset.
	DefaultPendingTTL = 5 * time.Minute

	// DefaultPollInterval is the inbound polling period when unset.
	DefaultPollInterval = time.Second

	// DefaultSweepInterval is the orphan reaping period when unset.
	DefaultSweepInterval = time.Minute

	// DefaultTimeout is the gateway request timeout when unset.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errGatewayURLRequired is returned when the gateway URL is missing.
	errGatewayURLRequired = errors.New("gateway URL must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
//
//nolint:cyclop // Defaulting is a flat list of checks; splitting would not help.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.GatewayURL == "" {
		return errGatewayURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.GatewayURL); err != nil {
		return fmt.Errorf("invalid gateway URL: %w", err)
	}

	if cfg.AckCallbackURL != "" {
		if _, err := url.ParseRequestURI(cfg.AckCallbackURL); err != nil {
			return fmt.Errorf("invalid ack callback URL: %w", err)
		}
	}

	if cfg.ProfileName == "" {
		cfg.ProfileName = DefaultProfileName
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}

	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}

	if cfg.ThrottledMessage == "" {
		cfg.ThrottledMessage = DefaultThrottledMessage
	}

	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return nil
}
