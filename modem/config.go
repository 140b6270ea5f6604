package modem

import (
	"log/slog"
	"time"
)

const (
	DefaultATTimeout     = 500 * time.Millisecond
	DefaultPollInterval  = time.Millisecond
	DefaultPromptTimeout = 5 * time.Second
	DefaultSMSTimeout    = 60 * time.Second
)

type Config struct {
	Dialer Dialer
	Clock  Clock
	Logger *slog.Logger
	// ATTimeout is the per-command budget used when a call sets none.
	ATTimeout time.Duration
	// PollInterval is how long the engine yields when no data is buffered.
	PollInterval time.Duration
	// PromptTimeout bounds the wait for the SMS input prompt.
	PromptTimeout time.Duration
	// SMSTimeout bounds the wait for the network to accept an SMS.
	SMSTimeout time.Duration
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = DefaultATTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PromptTimeout == 0 {
		c.PromptTimeout = DefaultPromptTimeout
	}
	if c.SMSTimeout == 0 {
		c.SMSTimeout = DefaultSMSTimeout
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.Clock = c
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.ATTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithPromptTimeout(d time.Duration) *ConfigBuilder {
	b.config.PromptTimeout = d
	return b
}

func (b *ConfigBuilder) WithSMSTimeout(d time.Duration) *ConfigBuilder {
	b.config.SMSTimeout = d
	return b
}

// Build applies defaults and validates the result.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
