// Package config holds the relay's runtime configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml"
)

// Defaults.
const (
	DefaultPort          = 9334
	DefaultQueueDepth    = 10
	DefaultPopTimeout    = 500 * time.Millisecond
	DefaultStatsInterval = 10 * time.Second
)

// Config stores all parameters gathered from the config file and CLI flags.
type Config struct {
	Host          string        `toml:"host"`           // interface to bind, empty = all
	Port          int           `toml:"port"`           // TCP relay port
	Verbose       bool          `toml:"verbose"`        // log per-packet traffic
	QueueDepth    int           `toml:"queue_depth"`    // per-session transmit queue slots
	PopTimeout    time.Duration `toml:"pop_timeout"`    // transmit loop liveness re-check interval
	WebSocketAddr string        `toml:"websocket_addr"` // optional ws ingress, empty = disabled
	StatsInterval time.Duration `toml:"stats_interval"` // 0 disables the reporter
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:          DefaultPort,
		QueueDepth:    DefaultQueueDepth,
		PopTimeout:    DefaultPopTimeout,
		StatsInterval: DefaultStatsInterval,
	}
}

// Load reads a TOML file on top of Default(). Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d: must be 0~65535", c.Port)
	case c.QueueDepth < 1:
		return fmt.Errorf("invalid queue depth %d: must be at least 1", c.QueueDepth)
	case c.PopTimeout <= 0:
		return fmt.Errorf("invalid pop timeout %v: must be positive", c.PopTimeout)
	case c.StatsInterval < 0:
		return fmt.Errorf("invalid stats interval %v", c.StatsInterval)
	}
	return nil
}

// Addr returns the host:port the TCP listener binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
