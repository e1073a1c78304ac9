// Package config loads and validates the adapter's configuration.
// Loading is grounded on brokle-ai-brokle's internal/config (viper,
// YAML, mapstructure) generalized to the csp_billing_adapter document
// shape from config.py: a YAML file merged with plugin-supplied
// defaults, with user-supplied values always winning.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

const (
	// DefaultConfigFile is used when CSP_ADAPTER_CONFIG_FILE is unset.
	DefaultConfigFile = "/etc/csp_billing_adapter/config.yaml"

	// ConfigFileEnvVar overrides the config file path.
	ConfigFileEnvVar = "CSP_ADAPTER_CONFIG_FILE"

	// CustomerBillingIDEnvVar populates CSPConfig.CustomerBillingID in
	// fixed billing mode.
	CustomerBillingIDEnvVar = "CUSTOMER_BILLING_ID"
)

// UsageAggregation is the per-metric aggregation function.
type UsageAggregation string

const (
	AggregationAverage UsageAggregation = "average"
	AggregationMaximum UsageAggregation = "maximum"
)

// ConsumptionReporting selects how a metric's usage is translated into
// billing dimensions.
type ConsumptionReporting string

const (
	ConsumptionVolume ConsumptionReporting = "volume"
	ConsumptionTiered ConsumptionReporting = "tiered"
)

// Dimension is one entry in a metric's ordered dimension list.
type Dimension struct {
	Dimension string `mapstructure:"dimension" yaml:"dimension"`
	Min       *int64 `mapstructure:"min" yaml:"min,omitempty"`
	Max       *int64 `mapstructure:"max" yaml:"max,omitempty"`
}

// HasMin reports whether a minimum bound was configured.
func (d Dimension) HasMin() bool { return d.Min != nil }

// HasMax reports whether a maximum bound was configured.
func (d Dimension) HasMax() bool { return d.Max != nil }

// UsageMetric describes one entry of config.usage_metrics.
type UsageMetric struct {
	UsageAggregation    UsageAggregation     `mapstructure:"usage_aggregation" yaml:"usage_aggregation"`
	MinimumConsumption  *int64               `mapstructure:"minimum_consumption" yaml:"minimum_consumption,omitempty"`
	ConsumptionReporting ConsumptionReporting `mapstructure:"consumption_reporting" yaml:"consumption_reporting"`
	Dimensions          []Dimension          `mapstructure:"dimensions" yaml:"dimensions"`
}

// MinConsumption returns the configured floor, defaulting to 0.
func (m UsageMetric) MinConsumption() int64 {
	if m.MinimumConsumption == nil {
		return 0
	}
	return *m.MinimumConsumption
}

// LoggingConfig holds the one recognized logging option.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the typed, read-only-after-load view over the adapter's
// settings document.
type Config struct {
	BillingInterval   timeutil.BillingInterval `mapstructure:"billing_interval" yaml:"billing_interval"`
	ReportingInterval int                      `mapstructure:"reporting_interval" yaml:"reporting_interval"`
	QueryInterval     int                      `mapstructure:"query_interval" yaml:"query_interval"`

	UsageMetrics map[string]UsageMetric `mapstructure:"usage_metrics" yaml:"usage_metrics"`

	// Fixed mode only.
	BillingDates   []string `mapstructure:"billing_dates" yaml:"billing_dates,omitempty"`
	EndOfSupport   string   `mapstructure:"end_of_support" yaml:"end_of_support,omitempty"`

	ArchiveRetentionPeriod int `mapstructure:"archive_retention_period" yaml:"archive_retention_period"`
	ArchiveBytesLimit      int `mapstructure:"archive_bytes_limit" yaml:"archive_bytes_limit"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Namespace is logged as a field of the startup message; generalized
	// from the reference implementation's hardcoded
	// "neuvector-csp-billing-adapter". Archive locations do not use it.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`

	v *viper.Viper
}

// DumpYAML renders the effective, defaults-merged configuration as
// YAML for one-shot diagnostic logging at bootstrap — a direct
// yaml.v3 marshal alongside the viper-based loader above, the same
// split brokle-ai-brokle's seeder uses for its own YAML fixtures
// instead of going through viper.
func (c *Config) DumpYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// IsFixed reports whether billing_interval selects explicit-date mode.
func (c *Config) IsFixed() bool {
	return c.BillingInterval == timeutil.Fixed
}

// Get exposes a raw dot-path lookup over the loaded document, for
// parity with the reference implementation's dual mapping/attribute
// access (design note: "typed view" keeps this as an escape hatch
// rather than the primary access pattern).
func (c *Config) Get(key string) interface{} {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Defaults are the plugin-provided defaults merged under user values.
// Mirrors Config.load_defaults(data, hook): hook.load_defaults(defaults)
// followed by {**defaults, **data}.
type Defaults map[string]interface{}

func defaultSettings() Defaults {
	return Defaults{
		"reporting_interval":       3600,
		"query_interval":           300,
		"archive_retention_period": 6,
		"archive_bytes_limit":      0,
		"namespace":                "csp-billing-adapter",
		"logging": map[string]interface{}{
			"level": "info",
		},
	}
}

// Load reads the YAML document at path (or DefaultConfigFile, or the
// CSP_ADAPTER_CONFIG_FILE override) and merges it over the plugin
// defaults. extraDefaults lets a registered defaults-hook contribute
// additional values (e.g. a CSP plugin's own default dimensions).
func Load(path string, extraDefaults Defaults) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigFileEnvVar)
	}
	if path == "" {
		path = DefaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for key, val := range defaultSettings() {
		v.SetDefault(key, val)
	}
	for key, val := range extraDefaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	cfg.v = v

	return &cfg, nil
}

// Validate checks the invariants that config.py leaves to fail lazily
// at metering-test time: usage_metrics must be non-empty and every
// metric's consumption_reporting/dimensions must be well-formed enough
// to attempt a dry-run meter call.
func (c *Config) Validate() error {
	if len(c.UsageMetrics) == 0 {
		return fmt.Errorf("config: usage_metrics is required and must be non-empty")
	}

	for name, m := range c.UsageMetrics {
		switch m.ConsumptionReporting {
		case ConsumptionVolume, ConsumptionTiered:
		default:
			return fmt.Errorf("config: usage_metrics[%s].consumption_reporting must be %q or %q, got %q",
				name, ConsumptionVolume, ConsumptionTiered, m.ConsumptionReporting)
		}
		if len(m.Dimensions) == 0 {
			return fmt.Errorf("config: usage_metrics[%s].dimensions must be non-empty", name)
		}
	}

	if c.IsFixed() {
		if len(c.BillingDates) == 0 {
			return fmt.Errorf("config: billing_dates is required when billing_interval is \"fixed\"")
		}
		if c.EndOfSupport == "" {
			return fmt.Errorf("config: end_of_support is required when billing_interval is \"fixed\"")
		}
	}

	return nil
}

// FirstDimension returns the first configured dimension of the usage
// metric with the lexicographically smallest name, matching the bootstrap metering test's need for a single
// representative (metric, dimension) pair. Config.UsageMetrics order is
// not otherwise significant except within a metric's Dimensions slice.
func (c *Config) FirstDimension() (metric string, dim Dimension, ok bool) {
	names := make([]string, 0, len(c.UsageMetrics))
	for name := range c.UsageMetrics {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", Dimension{}, false
	}
	// Deterministic pick: lexicographically smallest metric name.
	min := names[0]
	for _, n := range names[1:] {
		if n < min {
			min = n
		}
	}
	metricCfg := c.UsageMetrics[min]
	if len(metricCfg.Dimensions) == 0 {
		return "", Dimension{}, false
	}
	return min, metricCfg.Dimensions[0], true
}
