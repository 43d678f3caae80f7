package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pubsync/pubsync-go/pkg/backoff"
	"github.com/pubsync/pubsync-go/pkg/interaction"
	"github.com/pubsync/pubsync-go/pkg/subscription"
	"github.com/pubsync/pubsync-go/pkg/transport"
)

// Default values for optional configuration fields.
const (
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultPushInterval    = 2 * time.Second
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
	DefaultReconnectTries  = 10
	DefaultResponseTimeout = subscription.DefaultResponseTimeout
)

// SimConfig is the root configuration of the simulator.
type SimConfig struct {
	LogLevel      string              `yaml:"log_level"`
	Interactive   bool                `yaml:"interactive"`
	ProtocolLog   string              `yaml:"protocol_log"`
	Engine        EngineConfig        `yaml:"engine"`
	Connection    ConnectionConfig    `yaml:"connection"`
	Publisher     PublisherConfig     `yaml:"publisher"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Subscriptions []SubscriptionEntry `yaml:"subscriptions"`
}

// EngineConfig holds subscription manager settings.
type EngineConfig struct {
	TickInterval    time.Duration             `yaml:"tick_interval"`
	ResponseTimeout time.Duration             `yaml:"response_timeout"`
	NormalBurst     int                       `yaml:"normal_burst"`
	NormalThrottle  time.Duration             `yaml:"normal_throttle"`
	ThrottleMode    subscription.ThrottleMode `yaml:"throttle_mode"`
}

// ConnectionConfig selects the publisher. An empty URL runs the in-process
// publisher.
type ConnectionConfig struct {
	URL            string        `yaml:"url"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReconnectTries int           `yaml:"reconnect_tries"`
}

// PublisherConfig drives the in-process publisher and the -serve mode.
type PublisherConfig struct {
	Listen       string        `yaml:"listen"`
	PushInterval time.Duration `yaml:"push_interval"`
	DropRate     float64       `yaml:"drop_rate"`
	WarnEvery    int           `yaml:"warn_every"`
	Restricted   []string      `yaml:"restricted"`
	Unavailable  []string      `yaml:"unavailable"`
	Seed         uint64        `yaml:"seed"`
}

// MetricsConfig holds Prometheus endpoint settings. An empty address
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// SubscriptionEntry preregisters a subscription at startup.
type SubscriptionEntry struct {
	ID              uint64            `yaml:"id"`
	Channel         string            `yaml:"channel"`
	Lane            subscription.Lane `yaml:"lane"`
	Retry           backoff.Algorithm `yaml:"retry"`
	Key             string            `yaml:"key"`
	ForbidResend    bool              `yaml:"forbid_resend"`
	ResponseTimeout time.Duration     `yaml:"response_timeout"`
	Activate        bool              `yaml:"activate"`
}

// Definition converts the entry to a subscription definition.
func (e SubscriptionEntry) Definition() subscription.Definition {
	return subscription.Definition{
		Channel:         e.Channel,
		Lane:            e.Lane,
		RetryAlgorithm:  e.Retry,
		ReferencableKey: e.Key,
		ForbidResend:    e.ForbidResend,
		ResponseTimeout: e.ResponseTimeout,
	}
}

// LoadConfig reads a YAML config file and expands environment variables.
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg SimConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

func (c *SimConfig) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Engine.TickInterval == 0 {
		c.Engine.TickInterval = DefaultTickInterval
	}
	if c.Engine.ResponseTimeout == 0 {
		c.Engine.ResponseTimeout = DefaultResponseTimeout
	}
	if c.Engine.NormalBurst == 0 {
		c.Engine.NormalBurst = subscription.DefaultNormalBurst
	}
	if c.Engine.NormalThrottle == 0 {
		c.Engine.NormalThrottle = subscription.DefaultNormalThrottleInterval
	}
	if c.Connection.ReconnectTries == 0 {
		c.Connection.ReconnectTries = DefaultReconnectTries
	}
	if c.Publisher.PushInterval == 0 {
		c.Publisher.PushInterval = DefaultPushInterval
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks the configuration for errors.
func (c *SimConfig) Validate() error {
	var errs []error
	if c.Engine.TickInterval < 0 {
		errs = append(errs, errors.New("engine.tick_interval must not be negative"))
	}
	if c.Engine.NormalBurst < 0 {
		errs = append(errs, errors.New("engine.normal_burst must not be negative"))
	}
	if c.Publisher.DropRate < 0 || c.Publisher.DropRate > 1 {
		errs = append(errs, fmt.Errorf("publisher.drop_rate %v outside [0,1]", c.Publisher.DropRate))
	}
	seen := make(map[uint64]bool, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		if s.ID == 0 {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: id is required", i))
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: duplicate id %d", i, s.ID))
		}
		seen[s.ID] = true
		if s.Channel == "" {
			errs = append(errs, fmt.Errorf("subscriptions[%d]: channel is required", i))
		}
	}
	return errors.Join(errs...)
}

// managerConfig builds the subscription manager configuration.
func (c *SimConfig) managerConfig() subscription.Config {
	cfg := subscription.DefaultConfig()
	cfg.ResponseTimeout = c.Engine.ResponseTimeout
	cfg.NormalBurst = c.Engine.NormalBurst
	cfg.NormalThrottleInterval = c.Engine.NormalThrottle
	cfg.ThrottleMode = c.Engine.ThrottleMode
	return cfg
}

// websocketConfig builds the client websocket configuration.
func (c *SimConfig) websocketConfig() transport.WebsocketConfig {
	cfg := transport.DefaultWebsocketConfig()
	cfg.URL = c.Connection.URL
	if c.Connection.WriteTimeout > 0 {
		cfg.WriteTimeout = c.Connection.WriteTimeout
	}
	if c.Connection.PingInterval != 0 {
		cfg.KeepAlive.PingInterval = c.Connection.PingInterval
	}
	return cfg
}

// serverConfig builds the simulated publisher configuration.
func (c PublisherConfig) serverConfig(logger *slog.Logger) interaction.ServerConfig {
	return interaction.ServerConfig{
		Restricted:   c.Restricted,
		Unavailable:  c.Unavailable,
		DropRate:     c.DropRate,
		WarnEvery:    c.WarnEvery,
		PushInterval: c.PushInterval,
		Seed:         c.Seed,
		Logger:       logger,
	}
}
