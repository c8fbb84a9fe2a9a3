package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Mail     Mail     `yaml:"mail"`
	Database Database `yaml:"database"`
	Ingest   Ingest   `yaml:"ingest"`
}

// Mail describes the account whose mailbox is drained.
type Mail struct {
	Protocol string `yaml:"protocol"` // "imap" or "pop3"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Mailbox  string `yaml:"mailbox"`

	// InsecureSkipVerify disables TLS certificate verification.
	// Only for servers with broken certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// MarkSeen sets the \Seen flag on messages after they are stored.
	MarkSeen bool `yaml:"mark_seen"`
}

// Database holds the document store settings.
type Database struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Ingest tunes the pipeline.
type Ingest struct {
	Concurrency     int `yaml:"concurrency"`
	IntervalSeconds int `yaml:"interval_seconds"` // 0 runs a single batch
}

// GetPort returns the configured port, defaulting to the standard
// implicit-TLS port for the protocol.
func (m *Mail) GetPort() int {
	if m.Port != 0 {
		return m.Port
	}
	if m.Protocol == "pop3" {
		return 995
	}
	return 993
}

// GetMailbox returns the mailbox name, defaulting to "INBOX".
func (m *Mail) GetMailbox() string {
	if m.Mailbox == "" {
		return "INBOX"
	}
	return m.Mailbox
}

// GetConcurrency returns the worker count, defaulting to 4.
func (i *Ingest) GetConcurrency() int {
	if i.Concurrency <= 0 {
		return 4
	}
	return i.Concurrency
}

// Interval returns the run interval. Zero means run once and exit.
func (i *Ingest) Interval() time.Duration {
	if i.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(i.IntervalSeconds) * time.Second
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		LogLevel: "info",
		Mail:     Mail{Protocol: "imap"},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mail.Protocol != "imap" && c.Mail.Protocol != "pop3" {
		return fmt.Errorf("mail.protocol must be imap or pop3")
	}
	if c.Mail.Host == "" {
		return fmt.Errorf("mail.host is required")
	}
	if c.Mail.Username == "" {
		return fmt.Errorf("mail.username is required")
	}
	if c.Mail.Password == "" {
		return fmt.Errorf("mail.password is required")
	}
	if c.Database.URI == "" {
		return fmt.Errorf("database.uri is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Database.Collection == "" {
		return fmt.Errorf("database.collection is required")
	}
	return nil
}
