package ringbus

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/ringbus/ring"
	"log/slog"
)

var (
	// DefaultCapacity is the number of slots used when [Capacity] isn't given to [New].
	DefaultCapacity uint64 = 1024
)

// LapPolicy decides what a [Subscriber] does when it finds that the slot it expected was already overwritten.
type LapPolicy int

const (
	LapSkip  LapPolicy = iota // LapSkip moves past the lost event, counting it in [Subscriber.Missed].
	LapError                  // LapError moves past the lost event, and reports it with [ErrLapped].
)

func (p LapPolicy) String() string {
	switch p {
	case LapSkip:
		return "skip"
	case LapError:
		return "error"
	default:
		return fmt.Sprintf("LapPolicy(%d)", int(p))
	}
}

type busConf struct {
	capacity   uint64
	limboSize  int
	logger     *slog.Logger
	registerer prometheus.Registerer
	lapPolicy  LapPolicy
}

// ConfigFunc configures a [Bus] in [New].
type ConfigFunc func(conf *busConf) error

// Capacity sets the number of ring slots, which must be a power of two.
func Capacity(size uint64) ConfigFunc {
	return func(conf *busConf) error {
		if size == 0 || size&(size-1) != 0 {
			return fmt.Errorf("%w: got %d", ring.ErrInvalidSize, size)
		}
		conf.capacity = size
		return nil
	}
}

// RecycleLimit bounds how many replaced events may wait on outstanding reads before they're left to the garbage collector.
func RecycleLimit(size int) ConfigFunc {
	return func(conf *busConf) error {
		if size < 1 {
			return fmt.Errorf("recycle limit must be >= 1, got %d", size)
		}
		conf.limboSize = size
		return nil
	}
}

// Logger sets the [slog.Logger] used by the [Bus]. Logging is discarded by default.
func Logger(logger *slog.Logger) ConfigFunc {
	return func(conf *busConf) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		conf.logger = logger
		return nil
	}
}

// Metrics registers the [Bus] metrics with the given registerer.
func Metrics(registerer prometheus.Registerer) ConfigFunc {
	return func(conf *busConf) error {
		if registerer == nil {
			return fmt.Errorf("nil metrics registerer")
		}
		conf.registerer = registerer
		return nil
	}
}

// DefaultLapPolicy sets the [LapPolicy] for subscribers that don't set their own with [OnLap].
func DefaultLapPolicy(policy LapPolicy) ConfigFunc {
	return func(conf *busConf) error {
		if policy != LapSkip && policy != LapError {
			return fmt.Errorf("unknown lap policy %d", int(policy))
		}
		conf.lapPolicy = policy
		return nil
	}
}

type subConf struct {
	lapPolicy LapPolicy
}

// SubscribeOption configures a [Subscriber] in [Subscribe].
type SubscribeOption func(conf *subConf)

// OnLap sets the [LapPolicy] of a single [Subscriber].
func OnLap(policy LapPolicy) SubscribeOption {
	return func(conf *subConf) {
		conf.lapPolicy = policy
	}
}
