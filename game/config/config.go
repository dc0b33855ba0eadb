package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.uber.org/multierr"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults
const (
	DefaultHost          = "localhost"
	DefaultPort          = 8080
	DefaultLogLevel      = "info"
	DefaultMatchInterval = time.Second
	DefaultSendBuffer    = 32
	DefaultServiceName   = "battleship"
	DefaultNatsPrefix    = "battleship"
)

// Config holds everything the server needs to start
type Config struct {
	Host          string
	Port          int
	LogLevel      string
	MatchInterval time.Duration
	SendBuffer    int
	StaticDir     string

	// NatsURL enables lifecycle publishing when set
	NatsURL    string
	NatsPrefix string

	// ConsulAddr enables service registration when set
	ConsulAddr  string
	ServiceName string

	Ngrok NgrokConfig
}

// NgrokConfig controls the optional public tunnel
type NgrokConfig struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

// Default returns a config with every default applied
func Default() Config {
	return Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		LogLevel:      DefaultLogLevel,
		MatchInterval: DefaultMatchInterval,
		SendBuffer:    DefaultSendBuffer,
		NatsPrefix:    DefaultNatsPrefix,
		ServiceName:   DefaultServiceName,
	}
}

// Addr returns host:port for the HTTP listener
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the local URL the MCP proxy talks to
func (c Config) BaseURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Level parses LogLevel, falling back to info
func (c Config) Level() hclog.Level {
	if lvl := hclog.LevelFromString(c.LogLevel); lvl != hclog.NoLevel {
		return lvl
	}
	return hclog.Info
}

// Validate reports every problem at once
func (c Config) Validate() error {
	var err error

	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port))
	}
	if c.MatchInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: match interval must be positive, got %s", ErrInvalidConfig, c.MatchInterval))
	}
	if c.SendBuffer <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: send buffer must be positive, got %d", ErrInvalidConfig, c.SendBuffer))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		err = multierr.Append(err, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel))
	}
	if c.ConsulAddr != "" && c.ServiceName == "" {
		err = multierr.Append(err, fmt.Errorf("%w: service name required for consul registration", ErrInvalidConfig))
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		err = multierr.Append(err, fmt.Errorf("%w: ngrok enabled without an auth token", ErrInvalidConfig))
	}

	return err
}
