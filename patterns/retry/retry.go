package retry

import (
	"context"
	"errors"
	"fmt"
	"github.com/saylorsolutions/ringbus/contextx"
	"github.com/valyala/fastrand"
	"time"
)

// Iteration is a function that is called for each attempt, returning whether a failure can be retried, and the error.
// When no error is returned, the loop will exit early with a nil error.
// Returning true with an error will attempt to retry the iteration.
// Returning false with an error will return early with the error.
type Iteration = func() (bool, error)

// Settings defines the backoff behavior for [WithSettings].
type Settings struct {
	Context            context.Context
	TimeBetweenRetries time.Duration // This sets the initial delay between retries.
	BackoffFactor      float64       // This value multiplies the delay between attempts, and should be >= 1.
	MaxDelay           time.Duration // This caps the delay between attempts when > 0.
	Jitter             float64       // This randomly shortens each delay by up to the given fraction, and should be in [0, 1).
	MaxTries           int           // This defines the maximum number of attempts, and should be > 1.
}

func (s Settings) Copy() Settings {
	return s
}

func (s Settings) validate() error {
	if s.MaxTries <= 1 {
		return fmt.Errorf("%w: max tries should be > 1", ErrInvalidSettings)
	}
	if s.BackoffFactor < 1 {
		return fmt.Errorf("%w: backoff factor should be >= 1", ErrInvalidSettings)
	}
	if s.TimeBetweenRetries < 0 || s.MaxDelay < 0 {
		return fmt.Errorf("%w: delays should be >= 0", ErrInvalidSettings)
	}
	if s.Jitter < 0 || s.Jitter >= 1 {
		return fmt.Errorf("%w: jitter should be in [0, 1)", ErrInvalidSettings)
	}
	return nil
}

var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrMaxRetries      = errors.New("max tries exceeded")
)

type maxRetriesError struct {
	loopErr error
}

func (e *maxRetriesError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMaxRetries, e.loopErr)
}

func (e *maxRetriesError) Unwrap() []error {
	return []error{ErrMaxRetries, e.loopErr}
}

// Do retries the given [Iteration] for a max of maxTries times.
// There is no delay between retries for this function.
func Do(maxTries int, iteration Iteration) error {
	return WithSettings(Settings{BackoffFactor: 1, MaxTries: maxTries}, iteration)
}

// WithSettings allows passing [Settings] to the retry loop to tune the operation.
// An error wrapping both [ErrMaxRetries] and the last failure is returned if every attempt failed.
func WithSettings(settings Settings, iteration Iteration) error {
	if err := settings.validate(); err != nil {
		return err
	}
	var (
		shouldRetry bool
		iterErr     error
		delay       = settings.TimeBetweenRetries
	)
	for i := 0; i < settings.MaxTries; i++ {
		if i > 0 && delay > 0 {
			if err := wait(settings.Context, settings.jittered(delay)); err != nil {
				return err
			}
			delay = time.Duration(float64(delay) * settings.BackoffFactor)
			if settings.MaxDelay > 0 && delay > settings.MaxDelay {
				delay = settings.MaxDelay
			}
		} else if contextx.IsDone(settings.Context) {
			return settings.Context.Err()
		}

		shouldRetry, iterErr = iteration()
		if iterErr != nil && shouldRetry {
			continue
		}
		return iterErr
	}
	return &maxRetriesError{iterErr}
}

func (s Settings) jittered(delay time.Duration) time.Duration {
	if s.Jitter == 0 {
		return delay
	}
	spread := uint32(float64(delay) * s.Jitter)
	if spread == 0 {
		return delay
	}
	return delay - time.Duration(fastrand.Uint32n(spread))
}

func wait(ctx context.Context, delay time.Duration) error {
	if ctx == nil {
		time.Sleep(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
