package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// SchedulerConfig tunes the periodic sweep over recurring works.
type SchedulerConfig struct {
	RunInterval          time.Duration `mapstructure:"runInterval"`
	BatchSize            int           `mapstructure:"batchSize"`
	MaxGenerateBatchSize int           `mapstructure:"maxGenerateBatchSize"`
	MaxInvoiceBatchSize  int           `mapstructure:"maxInvoiceBatchSize"`
	JobTimeout           time.Duration `mapstructure:"jobTimeout"`
	EnabledJobs          []string      `mapstructure:"enabledJobs"`
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RunInterval:          time.Minute,
		BatchSize:            50,
		MaxGenerateBatchSize: 50,
		MaxInvoiceBatchSize:  25,
		JobTimeout:           30 * time.Second,
	}
}

// SchedulerConfigModule provides the hot-reloadable scheduler config holder.
var SchedulerConfigModule = fx.Provide(NewSchedulerConfigHolder)

// SchedulerConfigHolder holds the live scheduler config. The config file is
// optional; defaults apply when it is absent.
type SchedulerConfigHolder struct {
	current atomic.Value // holds SchedulerConfig
}

func NewSchedulerConfigHolder() (*SchedulerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("scheduler")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/praxis/config")
	v.AddConfigPath("/etc/praxis")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRAXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSchedulerConfig()
		v.SetDefault("scheduler.runInterval", defaults.RunInterval)
		v.SetDefault("scheduler.batchSize", defaults.BatchSize)
		v.SetDefault("scheduler.maxGenerateBatchSize", defaults.MaxGenerateBatchSize)
		v.SetDefault("scheduler.maxInvoiceBatchSize", defaults.MaxInvoiceBatchSize)
		v.SetDefault("scheduler.jobTimeout", defaults.JobTimeout)
	}

	var cfg SchedulerConfig
	if err := v.UnmarshalKey("scheduler", &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validateSchedulerConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SchedulerConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SchedulerConfig
		if err := v.UnmarshalKey("scheduler", &updated); err != nil {
			log.Printf("[scheduler-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validateSchedulerConfig(updated); err != nil {
			log.Printf("[scheduler-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[scheduler-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSchedulerConfigHolder wraps a fixed config, bypassing the file
// watcher. Used by tests and one-shot tools.
func NewStaticSchedulerConfigHolder(cfg SchedulerConfig) *SchedulerConfigHolder {
	holder := &SchedulerConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (h *SchedulerConfigHolder) Get() SchedulerConfig {
	return h.current.Load().(SchedulerConfig)
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	defaults := DefaultSchedulerConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxGenerateBatchSize <= 0 {
		c.MaxGenerateBatchSize = defaults.MaxGenerateBatchSize
	}
	if c.MaxInvoiceBatchSize <= 0 {
		c.MaxInvoiceBatchSize = defaults.MaxInvoiceBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func validateSchedulerConfig(cfg SchedulerConfig) error {
	if cfg.RunInterval < time.Second {
		return errors.New("scheduler.runInterval must be at least 1s")
	}
	return nil
}
