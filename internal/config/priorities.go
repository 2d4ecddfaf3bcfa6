package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PriorityConfig assigns a priority to new NBA records by definition id.
type PriorityConfig struct {
	Default     int            `mapstructure:"default"`
	Definitions map[string]int `mapstructure:"definitions"`
}

func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		Default:     0,
		Definitions: map[string]int{},
	}
}

// For returns the priority configured for the definition, or the default.
// Keys are matched case-insensitively because viper lowercases map keys.
func (c PriorityConfig) For(definitionID string) int {
	key := strings.ToLower(strings.TrimSpace(definitionID))
	if value, ok := c.Definitions[key]; ok {
		return value
	}
	return c.Default
}

type PriorityHolder struct {
	current atomic.Value // holds PriorityConfig
}

func NewPriorityHolder(cfg Config, log *zap.Logger) (*PriorityHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.PriorityConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nba")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/nbaflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NBAFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return loadPriorityHolder(v, log)
}

func loadPriorityHolder(v *viper.Viper, log *zap.Logger) (*PriorityHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.priorities")

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
		defaults := DefaultPriorityConfig()
		v.SetDefault("priorities.default", defaults.Default)
	}

	cfg, err := decodePriorities(v)
	if err != nil {
		return nil, err
	}

	holder := &PriorityHolder{}
	holder.current.Store(cfg)

	if !fileLoaded {
		log.Info("priority config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePriorities(v)
		if err != nil {
			log.Warn("priority config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("priority config reloaded", zap.String("file", e.Name), zap.Int("definitions", len(updated.Definitions)))
	})

	return holder, nil
}

func decodePriorities(v *viper.Viper) (PriorityConfig, error) {
	cfg := DefaultPriorityConfig()
	if err := v.UnmarshalKey("priorities", &cfg); err != nil {
		return PriorityConfig{}, err
	}
	if cfg.Definitions == nil {
		cfg.Definitions = map[string]int{}
	}
	normalized := make(map[string]int, len(cfg.Definitions))
	for key, value := range cfg.Definitions {
		normalized[strings.ToLower(strings.TrimSpace(key))] = value
	}
	cfg.Definitions = normalized
	if err := validatePriorities(cfg); err != nil {
		return PriorityConfig{}, err
	}
	return cfg, nil
}

func validatePriorities(cfg PriorityConfig) error {
	if cfg.Default < 0 {
		return errors.New("priorities.default cannot be negative")
	}
	for key, value := range cfg.Definitions {
		if key == "" {
			return errors.New("priorities.definitions contains an empty key")
		}
		if value < 0 {
			return fmt.Errorf("priorities.definitions.%s cannot be negative", key)
		}
	}
	return nil
}

// Get returns the current configuration. A nil holder yields defaults.
func (h *PriorityHolder) Get() PriorityConfig {
	if h == nil {
		return DefaultPriorityConfig()
	}
	return h.current.Load().(PriorityConfig)
}

// PriorityFor implements the lookup consumed by the calculation worker.
func (h *PriorityHolder) PriorityFor(definitionID string) int {
	return h.Get().For(definitionID)
}
