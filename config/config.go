// Package config loads the skew estimator's YAML configuration, following
// the nested-struct/yaml-tag idiom spot/mode_alloc.go uses for the teacher's
// band/mode allocation table.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dxcluster/correlate"
	"dxcluster/skimmer"
	"dxcluster/window"
)

// WindowConfig sizes the spot ring buffer (spec §4.3, SPOTSWINDOW).
type WindowConfig struct {
	Capacity int `yaml:"capacity"`
}

// CorrelationConfig carries the six-predicate tolerances of spec §4.4 and
// the admission policy of §4.3.
type CorrelationConfig struct {
	MaxErrKHz   float64 `yaml:"max_err_khz"`
	MaxErrPPM   float64 `yaml:"max_err_ppm"`
	MaxApartSec int64   `yaml:"max_apart_seconds"`
	MinSNR      int     `yaml:"min_snr"`
	MinFreqKHz  float64 `yaml:"min_freq_khz"`
}

// SkimmersConfig bounds the table and selects the IIR coefficient strategy
// (spec §4.5, SPEC_FULL.md Open Questions).
type SkimmersConfig struct {
	Max         int    `yaml:"max"`
	Coefficient string `yaml:"coefficient"` // "sqrt" (default) or "linear"
}

// ActivityConfig carries the idle-demotion threshold (spec §4.6).
type ActivityConfig struct {
	InactiveAfter time.Duration `yaml:"inactive_after"`
}

// ReferenceConfig locates the reference-skimmer file and its daily refresh
// schedule (spec §4.2).
type ReferenceConfig struct {
	Path         string `yaml:"path"`
	RefreshHour  int    `yaml:"refresh_hour"`
	RefreshAfter int    `yaml:"refresh_minute_after"`
}

// TransportConfig configures the MQTT spot subscriber/publisher (spec §6,
// SPEC_FULL.md DOMAIN STACK).
type TransportConfig struct {
	BrokerURL      string `yaml:"broker_url"`
	TopicPrefix    string `yaml:"topic_prefix"`
	PublishTopic   string `yaml:"publish_topic"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

// ArchiveConfig configures the optional SQLite spot log (SPEC_FULL.md
// DOMAIN STACK; grounded on archive/archive.go).
type ArchiveConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// PublishConfig controls periodic snapshot publication (spec §4.9).
type PublishConfig struct {
	Enabled         *bool `yaml:"enabled"`
	IntervalSeconds int   `yaml:"interval_seconds"`
}

// Config is the top-level YAML document.
type Config struct {
	Mode        string            `yaml:"mode"` // "CW" (default) or "RTTY"
	Window      WindowConfig      `yaml:"window"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Skimmers    SkimmersConfig    `yaml:"skimmers"`
	Activity    ActivityConfig    `yaml:"activity"`
	Reference   ReferenceConfig   `yaml:"reference"`
	Transport   TransportConfig   `yaml:"transport"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Publish     PublishConfig     `yaml:"publish"`
}

func boolPtr(v bool) *bool { return &v }

// Load reads and parses the YAML file at path, applying the same
// pointer-typed optional-bool-defaults-true contract the teacher's
// config.Load establishes for GridDBCheckOnMiss.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "CW"
	}
	if cfg.Window.Capacity <= 0 {
		cfg.Window.Capacity = window.DefaultCapacity
	}
	if cfg.Correlation.MaxErrKHz <= 0 {
		cfg.Correlation.MaxErrKHz = 0.5
	}
	if cfg.Correlation.MaxErrPPM <= 0 {
		cfg.Correlation.MaxErrPPM = 60
	}
	if cfg.Correlation.MaxApartSec <= 0 {
		cfg.Correlation.MaxApartSec = 30
	}
	if cfg.Correlation.MinSNR <= 0 {
		cfg.Correlation.MinSNR = 6
	}
	if cfg.Correlation.MinFreqKHz <= 0 {
		cfg.Correlation.MinFreqKHz = 1800
	}
	if cfg.Skimmers.Max <= 0 {
		cfg.Skimmers.Max = 500
	}
	if cfg.Skimmers.Coefficient == "" {
		cfg.Skimmers.Coefficient = "sqrt"
	}
	if cfg.Activity.InactiveAfter <= 0 {
		cfg.Activity.InactiveAfter = 300 * time.Second
	}
	if cfg.Reference.Path == "" {
		cfg.Reference.Path = "reference"
	}
	if cfg.Transport.TopicPrefix == "" {
		cfg.Transport.TopicPrefix = "PROD_SPOT"
	}
	if cfg.Transport.PublishTopic == "" {
		cfg.Transport.PublishTopic = "SKEW_TEST_24H"
	}
	if cfg.Transport.ClientIDPrefix == "" {
		cfg.Transport.ClientIDPrefix = "skewd"
	}
	if cfg.Archive.Enabled == nil {
		cfg.Archive.Enabled = boolPtr(true)
	}
	if cfg.Archive.RetentionDays <= 0 {
		cfg.Archive.RetentionDays = 30
	}
	if cfg.Publish.Enabled == nil {
		cfg.Publish.Enabled = boolPtr(true)
	}
	if cfg.Publish.IntervalSeconds <= 0 {
		cfg.Publish.IntervalSeconds = 900
	}
}

// Tolerances converts the correlation section to a correlate.Tolerances.
func (c *Config) Tolerances() correlate.Tolerances {
	return correlate.Tolerances{
		MaxErrKHz: c.Correlation.MaxErrKHz,
		MaxErrPPM: c.Correlation.MaxErrPPM,
		MaxApart:  c.Correlation.MaxApartSec,
	}
}

// Admission converts the correlation/mode sections to a window.AdmissionPolicy.
func (c *Config) Admission() window.AdmissionPolicy {
	return window.AdmissionPolicy{
		MinSNR:  c.Correlation.MinSNR,
		MinFreq: c.Correlation.MinFreqKHz,
		Mode:    c.Mode,
	}
}

// Coefficient resolves the configured IIR strategy name to a
// skimmer.CoefficientFunc.
func (c *Config) Coefficient() skimmer.CoefficientFunc {
	if c.Skimmers.Coefficient == "linear" {
		return skimmer.LinearCoefficient
	}
	return skimmer.SqrtCoefficient
}
