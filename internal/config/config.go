package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// IngestConfig holds the configuration for the ingestion service.
type IngestConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	NumWorkers          int    `yaml:"num_workers"`
	MaxClients          int    `yaml:"max_clients"`
	SizeOfReportChannel int    `yaml:"size_of_report_channel"`
}

// QueueSize returns the hand-off queue capacity: twice the client limit, so
// the accept loop keeps a bounded head start over the worker pool.
func (c IngestConfig) QueueSize() int {
	return c.MaxClients * 2
}

// LoadgenConfig holds the configuration for the load generator.
type LoadgenConfig struct {
	Host       string  `yaml:"host"`
	Port       int     `yaml:"port"`
	NumClients int     `yaml:"num_clients"`
	TargetRate float64 `yaml:"target_rate"`
	Duration   float64 `yaml:"duration"`
}

// TelemetryConfig holds the NATS publishing configuration for aggregate
// snapshots.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the configuration for the HTTP stats API.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterConfig holds the configuration for the low-rate alerter.
type AlerterConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinRate       float64 `yaml:"min_rate"`
	CheckInterval string  `yaml:"check_interval"`
	WarmUp        string  `yaml:"warm_up"`
}

// SMTPConfig holds the configuration for the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Loadgen   LoadgenConfig   `yaml:"loadgen"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	API       APIConfig       `yaml:"api"`
	Alerter   AlerterConfig   `yaml:"alerter"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ingest.MaxClients <= 0 {
		c.Ingest.MaxClients = 10
	}
	if c.Ingest.NumWorkers <= 0 {
		c.Ingest.NumWorkers = min(runtime.NumCPU(), c.Ingest.MaxClients)
	}
	if c.Ingest.SizeOfReportChannel <= 0 {
		c.Ingest.SizeOfReportChannel = 1024
	}
	if c.Loadgen.NumClients <= 0 {
		c.Loadgen.NumClients = 1
	}
	if c.Loadgen.TargetRate <= 0 {
		c.Loadgen.TargetRate = 10000
	}
	if c.Loadgen.Duration <= 0 {
		c.Loadgen.Duration = 60
	}
}

func (c *Config) validate() error {
	if c.Ingest.Port <= 0 || c.Ingest.Port > 65535 {
		return fmt.Errorf("invalid ingest port: %d", c.Ingest.Port)
	}
	if c.Loadgen.Port <= 0 || c.Loadgen.Port > 65535 {
		return fmt.Errorf("invalid loadgen port: %d", c.Loadgen.Port)
	}
	return nil
}
