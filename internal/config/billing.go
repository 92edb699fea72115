package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig is the file-based billing policy. It controls defaults the
// ledger applies when a caller leaves a field unset, plus the receivables
// aging buckets used by the outstanding-balance summary.
type BillingConfig struct {
	// DefaultTaxRatePercent is applied when an invoice request omits a tax rate.
	DefaultTaxRatePercent float64 `mapstructure:"default_tax_rate_percent"`

	// AllowOverpayment controls whether a payment may exceed the open balance.
	// When false, overpayments are rejected as validation errors instead of
	// being recorded with a negative balance.
	AllowOverpayment bool `mapstructure:"allow_overpayment"`

	AgingBuckets []AgingBucket `mapstructure:"aging_buckets"`
}

type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"min_days"`
	MaxDays *int   `mapstructure:"max_days"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultTaxRatePercent: 0,
		AllowOverpayment:      true,
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90+", MinDays: 91, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

// BillingConfigHolder holds the current billing policy and swaps it
// atomically when the config file changes on disk.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/clinicore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLINICORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &BillingConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(DefaultBillingConfig())
		return holder, nil
	}

	cfg, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.OnConfigChange(func(_ fsnotify.Event) {
		next, err := decodeBillingConfig(v)
		if err != nil {
			log.Printf("billing config reload failed, keeping previous: %v", err)
			return
		}
		holder.current.Store(next)
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed policy, used by tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Current() BillingConfig {
	if v, ok := h.current.Load().(BillingConfig); ok {
		return v
	}
	return DefaultBillingConfig()
}

func (h *BillingConfigHolder) Store(cfg BillingConfig) {
	h.current.Store(cfg)
}

// decodeBillingConfig unmarshals into a zero value so supplied buckets never
// alias the default slice; defaults fill in only for keys absent from the file.
func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return BillingConfig{}, err
	}

	defaults := DefaultBillingConfig()
	if !v.IsSet("default_tax_rate_percent") {
		cfg.DefaultTaxRatePercent = defaults.DefaultTaxRatePercent
	}
	if !v.IsSet("allow_overpayment") {
		cfg.AllowOverpayment = defaults.AllowOverpayment
	}
	if len(cfg.AgingBuckets) == 0 {
		cfg.AgingBuckets = defaults.AgingBuckets
	}
	return cfg, nil
}
