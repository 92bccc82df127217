// Package config loads ringbus settings from the environment, optionally seeded from .env files.
//
// Every variable is prefixed with [Prefix], so CAPACITY is read from RINGBUS_CAPACITY.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/saylorsolutions/ringbus/assert"
	"github.com/saylorsolutions/ringbus/slogx"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

const (
	Prefix     = "RINGBUS_"
	DefaultEnv = ".env"
)

var (
	ErrConfig = errors.New("invalid configuration")
)

type Config struct {
	Capacity    uint64        `env:"CAPACITY" envDefault:"1024"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"text"`
	LogFile     string        `env:"LOG_FILE"`
	ListenAddr  string        `env:"LISTEN_ADDR" envDefault:"127.0.0.1:7070"`
	TLSCert     string        `env:"TLS_CERT"`
	TLSKey      string        `env:"TLS_KEY"`
	TLSCA       string        `env:"TLS_CA"`
	QueueBound  int           `env:"QUEUE_BOUND" envDefault:"64"` // Zero means unbounded.
	MetricsAddr string        `env:"METRICS_ADDR"`
	WSAddr      string        `env:"WS_ADDR"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

// Load reads the given .env files into the process environment, without overriding variables that are already set, then parses the [Config].
// If no files are given, then [DefaultEnv] is loaded if it exists.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: failed to load %s: %v", ErrConfig, DefaultEnv, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("%w: failed to load env files: %v", ErrConfig, err)
	}
	return parse(env.Options{Prefix: Prefix})
}

// Parse reads a [Config] from the given variables instead of the process environment.
// Keys must include the [Prefix].
func Parse(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	conf, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks every setting, reporting all problems at once.
func (c Config) Validate() error {
	errs := assert.CollectErrors()
	errs.Check(c.Capacity > 0 && c.Capacity&(c.Capacity-1) == 0, "capacity must be a power of two, got %d", c.Capacity)
	_, err := slogx.ParseLevel(c.LogLevel)
	errs.Add(err)
	_, err = slogx.ParseFormat(c.LogFormat)
	errs.Add(err)
	errs.Check(len(c.ListenAddr) > 0, "listen address is required")
	errs.Check((len(c.TLSCert) == 0) == (len(c.TLSKey) == 0), "TLS cert and key must be set together")
	errs.Check(c.QueueBound >= 0, "queue bound must be >= 0, got %d", c.QueueBound)
	errs.Check(c.DialTimeout > 0, "dial timeout must be > 0, got %s", c.DialTimeout)
	if err := errs.Result(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// Logger creates a [slog.Logger] writing to w, and also to [Config.LogFile] as JSON if it's set.
// The returned close function must be called to close the log file.
func (c Config) Logger(w io.Writer) (*slog.Logger, func() error, error) {
	level, err := slogx.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := slogx.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	handler := slogx.Handler(w, level, format)
	if len(c.LogFile) == 0 {
		return slog.New(handler), func() error { return nil }, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slogx.MergeHandlers(handler, slogx.Handler(f, level, slogx.FormatJSON))), f.Close, nil
}

// ServerTLS loads the configured certificate and key, or returns nil if TLS isn't configured.
func (c Config) ServerTLS() (*tls.Config, error) {
	if len(c.TLSCert) == 0 {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.TLSCert, c.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientTLS trusts the configured CA bundle, or returns nil if none is configured.
func (c Config) ClientTLS() (*tls.Config, error) {
	if len(c.TLSCA) == 0 {
		return nil, nil
	}
	pem, err := os.ReadFile(c.TLSCA)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificates found in %s", ErrConfig, c.TLSCA)
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
