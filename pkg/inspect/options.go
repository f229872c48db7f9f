package inspect

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the inspector.
type Config struct {
	// EventBuffer is the number of events queued per websocket client.
	// Events arriving while the queue is full are dropped.
	// Default: 64
	EventBuffer int

	// WriteTimeout bounds each websocket write.
	// Default: 5s
	WriteTimeout time.Duration

	// CheckOrigin validates websocket origins. nil keeps the gorilla
	// same-origin check.
	CheckOrigin func(r *http.Request) bool

	// Gatherer backs GET /metrics.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// Logger for connection and encoding errors.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Option configures the inspector.
type Option func(*Config)

// WithEventBuffer sets the per-client event queue length.
func WithEventBuffer(n int) Option {
	return func(c *Config) {
		c.EventBuffer = n
	}
}

// WithWriteTimeout sets the websocket write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) {
		c.CheckOrigin = fn
	}
}

// WithGatherer sets the Prometheus gatherer served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func defaultConfig() Config {
	return Config{
		EventBuffer:  64,
		WriteTimeout: 5 * time.Second,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       slog.Default(),
	}
}
