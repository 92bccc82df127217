package transport

import (
	"crypto/tls"
	"fmt"
	"github.com/saylorsolutions/ringbus/patterns/retry"
	"github.com/saylorsolutions/ringbus/slogx"
	"log/slog"
	"time"
)

var (
	// DefaultBound is the incoming queue length of a [Channel] unless changed with [Bound] or [Unbounded].
	DefaultBound = 64
	// DefaultDialRetry is used by [Dial] unless changed with [DialRetry].
	DefaultDialRetry = retry.Settings{
		TimeBetweenRetries: 100 * time.Millisecond,
		BackoffFactor:      2,
		MaxTries:           5,
	}
)

type options struct {
	bound        int
	maxFrameSize uint32
	tlsConfig    *tls.Config
	logger       *slog.Logger
	dialRetry    retry.Settings
}

func defaultOptions() *options {
	return &options{
		bound:        DefaultBound,
		maxFrameSize: DefaultMaxFrameSize,
		logger:       slogx.Discard(),
		dialRetry:    DefaultDialRetry.Copy(),
	}
}

func applyOptions(opts []Option) (*options, error) {
	conf := defaultOptions()
	for _, opt := range opts {
		if err := opt(conf); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// Option configures a [Channel], [Dial], or [Listen].
type Option func(conf *options) error

// Bound limits the number of received values waiting on [Channel.Recv].
// When full, the connection isn't read until there's room again.
func Bound(n int) Option {
	return func(conf *options) error {
		if n < 1 {
			return fmt.Errorf("invalid bound '%d'", n)
		}
		conf.bound = n
		return nil
	}
}

// Unbounded lets any number of received values wait on [Channel.Recv], so the connection is always read.
func Unbounded() Option {
	return func(conf *options) error {
		conf.bound = 0
		return nil
	}
}

// MaxFrameSize limits the encoded size of a single [Message].
func MaxFrameSize(size uint32) Option {
	return func(conf *options) error {
		if size == 0 {
			return fmt.Errorf("invalid max frame size '%d'", size)
		}
		conf.maxFrameSize = size
		return nil
	}
}

// TLS secures connections made with [Dial] or accepted by [Listen].
func TLS(conf *tls.Config) Option {
	return func(opts *options) error {
		if conf == nil {
			return fmt.Errorf("nil TLS config")
		}
		opts.tlsConfig = conf
		return nil
	}
}

func Logger(logger *slog.Logger) Option {
	return func(conf *options) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		conf.logger = logger
		return nil
	}
}

// DialRetry sets the backoff behavior of [Dial]. The context of the settings is replaced with the one passed to [Dial].
func DialRetry(settings retry.Settings) Option {
	return func(conf *options) error {
		conf.dialRetry = settings.Copy()
		return nil
	}
}
