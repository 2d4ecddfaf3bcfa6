package calculation

import "time"

// Config controls the calculation worker loop.
type Config struct {
	ProcessTimeout    time.Duration
	ProcessedEventTTL time.Duration
	// DrainOnStop processes already queued events before the queue is closed
	// on shutdown. Whatever the stop deadline leaves behind is discarded.
	DrainOnStop bool
}

func DefaultConfig() Config {
	return Config{
		ProcessTimeout:    5 * time.Second,
		ProcessedEventTTL: 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = defaults.ProcessTimeout
	}
	if c.ProcessedEventTTL <= 0 {
		c.ProcessedEventTTL = defaults.ProcessedEventTTL
	}
	return c
}
