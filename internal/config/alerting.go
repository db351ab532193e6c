package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AlertThresholds controls when slot and feature usage alerts fire.
type AlertThresholds struct {
	WarningPct  float64 `mapstructure:"warningPct"`
	CriticalPct float64 `mapstructure:"criticalPct"`
}

func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		WarningPct:  0.8,
		CriticalPct: 1.0,
	}
}

// AlertThresholdHolder serves the current thresholds and hot-reloads them
// when the config file changes.
type AlertThresholdHolder struct {
	current atomic.Value // holds AlertThresholds
}

func NewAlertThresholdHolder() (*AlertThresholdHolder, error) {
	v := viper.New()

	v.SetConfigName("alerting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/megahub/config") // Volume-mounted config
	v.AddConfigPath("/etc/megahub")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("MEGAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultAlertThresholds()
		v.SetDefault("alerting.warningPct", defaults.WarningPct)
		v.SetDefault("alerting.criticalPct", defaults.CriticalPct)
	}

	var cfg AlertThresholds
	if err := v.UnmarshalKey("alerting", &cfg); err != nil {
		return nil, err
	}
	if cfg.WarningPct == 0 && cfg.CriticalPct == 0 {
		cfg = DefaultAlertThresholds()
	}
	if err := validateAlertThresholds(cfg); err != nil {
		return nil, err
	}

	holder := &AlertThresholdHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AlertThresholds
		if err := v.UnmarshalKey("alerting", &updated); err != nil {
			log.Printf("[alerting-config] reload failed: %v", err)
			return
		}
		if err := validateAlertThresholds(updated); err != nil {
			log.Printf("[alerting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[alerting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *AlertThresholdHolder) Get() AlertThresholds {
	return h.current.Load().(AlertThresholds)
}

// NewStaticAlertThresholdHolder returns a holder with fixed thresholds,
// used by tests and by callers that do not need reload.
func NewStaticAlertThresholdHolder(cfg AlertThresholds) *AlertThresholdHolder {
	holder := &AlertThresholdHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateAlertThresholds(cfg AlertThresholds) error {
	if cfg.WarningPct <= 0 || cfg.WarningPct > 1 {
		return errors.New("alerting.warningPct must be in (0, 1]")
	}
	if cfg.CriticalPct < cfg.WarningPct || cfg.CriticalPct > 1 {
		return errors.New("alerting.criticalPct must be in [warningPct, 1]")
	}
	return nil
}
