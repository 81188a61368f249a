// Package config loads and validates the process configuration from YAML,
// layering environment overrides for secrets on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Database  DatabaseConfig  `yaml:"database" validate:"required"`
	Redis     RedisConfig     `yaml:"redis"`
	Sources   SourcesConfig   `yaml:"sources" validate:"required"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Jobs      []JobConfig     `yaml:"jobs" validate:"dive"`
	Cases     CaseConfig      `yaml:"cases"`
	Retention RetentionConfig `yaml:"retention"`
	Defaults  ThresholdDefaults `yaml:"thresholds"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" validate:"required,gt=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	DB         int           `yaml:"db"`
	SummaryTTL time.Duration `yaml:"summary_ttl"`
}

// SourceConfig describes one upstream HTTP gateway.
type SourceConfig struct {
	BaseURL  string        `yaml:"base_url" validate:"required,url"`
	Token    string        `yaml:"token"`
	TokenEnv string        `yaml:"token_env"`
	Timeout  time.Duration `yaml:"timeout"`
	AppName  string        `yaml:"app_name"`
}

// SourcesConfig names the three gateway families the fetchers speak to.
type SourcesConfig struct {
	FNA      SourceConfig `yaml:"fna" validate:"required"`
	DNA      SourceConfig `yaml:"dna" validate:"required"`
	GNMSPing SourceConfig `yaml:"gnms_ping" validate:"required"`
}

type SchedulerConfig struct {
	FetchConcurrency        int           `yaml:"fetch_concurrency"`
	GracefulShutdownSeconds int           `yaml:"graceful_shutdown_seconds"`
	StoreRetryMax           int           `yaml:"store_retry_max"`
	StoreRetryBase          time.Duration `yaml:"store_retry_base"`
}

// JobConfig is one periodic collection or sweep job.
type JobConfig struct {
	Name            string `yaml:"name" validate:"required"`
	IntervalSeconds int    `yaml:"interval_seconds" validate:"required,gt=0"`
	Enabled         bool   `yaml:"enabled"`
}

type CaseConfig struct {
	StableWindow         time.Duration `yaml:"stable_window"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	ChangeFlagInterval   time.Duration `yaml:"change_flag_interval"`
	ClientIngestInterval time.Duration `yaml:"client_ingest_interval"`
}

type RetentionConfig struct {
	Grace    time.Duration `yaml:"grace"`
	Interval time.Duration `yaml:"interval"`
}

// Range is an inclusive [min, max] threshold pair.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ThresholdDefaults are the process-wide indicator tunables; per-maintenance
// overrides layer on top (pkg/thresholds).
type ThresholdDefaults struct {
	TxPower         Range    `yaml:"tx_power"`
	RxPower         Range    `yaml:"rx_power"`
	Temperature     Range    `yaml:"temperature"`
	Voltage         Range    `yaml:"voltage"`
	FanHealthy      []string `yaml:"fan_healthy"`
	PowerHealthy    []string `yaml:"power_healthy"`
}

// Load reads, defaults, env-overrides and validates the configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration; Load unmarshals over it so the
// YAML file only needs to state what differs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			SummaryTTL: 30 * time.Second,
		},
		Sources: SourcesConfig{
			FNA:      SourceConfig{Timeout: 30 * time.Second, TokenEnv: "FNA_TOKEN"},
			DNA:      SourceConfig{Timeout: 30 * time.Second, TokenEnv: "DNA_TOKEN"},
			GNMSPing: SourceConfig{Timeout: 60 * time.Second, TokenEnv: "GNMS_TOKEN", AppName: "maintcheck"},
		},
		Scheduler: SchedulerConfig{
			FetchConcurrency:        10,
			GracefulShutdownSeconds: 30,
			StoreRetryMax:           3,
			StoreRetryBase:          100 * time.Millisecond,
		},
		Jobs: DefaultJobs(),
		Cases: CaseConfig{
			StableWindow:         10 * time.Minute,
			SweepInterval:        time.Minute,
			ChangeFlagInterval:   5 * time.Minute,
			ClientIngestInterval: time.Minute,
		},
		Retention: RetentionConfig{
			Grace:    30 * 24 * time.Hour,
			Interval: time.Hour,
		},
		Defaults: ThresholdDefaults{
			TxPower:      Range{Min: -10, Max: 3},
			RxPower:      Range{Min: -15, Max: 0},
			Temperature:  Range{Min: 10, Max: 70},
			Voltage:      Range{Min: 3, Max: 3.6},
			FanHealthy:   []string{"OK", "Normal", "ok"},
			PowerHealthy: []string{"OK", "Normal", "ok"},
		},
	}
}

// DefaultJobs enables every collection type at a sensible interval; slow
// hardware inventories poll less often than reachability.
func DefaultJobs() []JobConfig {
	return []JobConfig{
		{Name: "transceiver", IntervalSeconds: 300, Enabled: true},
		{Name: "port_channel", IntervalSeconds: 300, Enabled: true},
		{Name: "uplink", IntervalSeconds: 300, Enabled: true},
		{Name: "version", IntervalSeconds: 3600, Enabled: true},
		{Name: "fan", IntervalSeconds: 600, Enabled: true},
		{Name: "power", IntervalSeconds: 600, Enabled: true},
		{Name: "error_count", IntervalSeconds: 300, Enabled: true},
		{Name: "static_acl", IntervalSeconds: 1800, Enabled: true},
		{Name: "dynamic_acl", IntervalSeconds: 600, Enabled: true},
		{Name: "mac_table", IntervalSeconds: 120, Enabled: true},
		{Name: "ping", IntervalSeconds: 60, Enabled: true},
		{Name: "interface_status", IntervalSeconds: 120, Enabled: true},
		{Name: "client_ping", IntervalSeconds: 60, Enabled: true},
		{Name: "arp", IntervalSeconds: 300, Enabled: true},
	}
}

func (c *Config) applyEnv() {
	for _, s := range []*SourceConfig{&c.Sources.FNA, &c.Sources.DNA, &c.Sources.GNMSPing} {
		if s.Token == "" && s.TokenEnv != "" {
			s.Token = os.Getenv(s.TokenEnv)
		}
	}
	if dsn := os.Getenv("MAINTCHECK_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if addr := os.Getenv("MAINTCHECK_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
}

// Contains reports whether status is in the healthy set, comparing
// case-insensitively with surrounding whitespace ignored.
func Contains(healthy []string, status string) bool {
	needle := normalizeStatus(status)
	for _, h := range healthy {
		if normalizeStatus(h) == needle {
			return true
		}
	}
	return false
}

func normalizeStatus(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
