package config

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds operational billing tunables. It is loaded from an
// optional billing.yml and hot-reloaded on change.
type BillingConfig struct {
	// RecentActivityLimit caps the recent ledger/charge lists on the
	// finance dashboard.
	RecentActivityLimit int `mapstructure:"recentActivityLimit"`

	// GenerateInterval is the cadence of the periodic charge-generation run.
	GenerateInterval time.Duration `mapstructure:"generateInterval"`

	// SchedulerEnabled disables the background generation loop when false.
	SchedulerEnabled bool `mapstructure:"schedulerEnabled"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		RecentActivityLimit: 12,
		GenerateInterval:    time.Hour,
		SchedulerEnabled:    true,
	}
}

func (c BillingConfig) withDefaults() BillingConfig {
	defaults := DefaultBillingConfig()
	if c.RecentActivityLimit <= 0 || c.RecentActivityLimit > 100 {
		c.RecentActivityLimit = defaults.RecentActivityLimit
	}
	if c.GenerateInterval <= 0 {
		c.GenerateInterval = defaults.GenerateInterval
	}
	return c
}

// BillingConfigHolder exposes the current billing config and follows file edits.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/clubledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUBLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &BillingConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultBillingConfig())
		return holder, nil
	}

	cfg, err := unmarshalBilling(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.OnConfigChange(func(_ fsnotify.Event) {
		updated, err := unmarshalBilling(v)
		if err != nil {
			return
		}
		holder.current.Store(updated)
	})
	v.WatchConfig()

	return holder, nil
}

func (h *BillingConfigHolder) Current() BillingConfig {
	if v, ok := h.current.Load().(BillingConfig); ok {
		return v
	}
	return DefaultBillingConfig()
}

// Store replaces the current config. Used by tests.
func (h *BillingConfigHolder) Store(cfg BillingConfig) {
	h.current.Store(cfg.withDefaults())
}

func unmarshalBilling(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg.withDefaults(), nil
}
