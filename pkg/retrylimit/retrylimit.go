// Package retrylimit combines an adaptive client-side rate limit with
// retries and exponential backoff.
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultConfig(), func(ctx context.Context) error {
//	    return fetch(ctx)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a rate limit that rises slowly while calls succeed and
// drops sharply when the remote side pushes back.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	cooldown  time.Duration
	lastError time.Time
}

// NewAdaptiveLimiter starts at initial requests per second and stays within
// [min, max]. Each success adds stepUp, each push-back multiplies by stepDown.
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}
	initial = clamp(initial, min, max)
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the limit unless the remote side pushed back recently.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.cooldown {
		a.setLocked(a.limiter.Limit() + a.stepUp)
	}
}

// Throttled lowers the limit after a 429 or a server error.
func (a *AdaptiveLimiter) Throttled() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.setLocked(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// Limit returns the current requests per second.
func (a *AdaptiveLimiter) Limit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) setLocked(l rate.Limit) {
	l = clamp(l, a.minLimit, a.maxLimit)
	if l == a.limiter.Limit() {
		return
	}
	a.limiter.SetLimit(l)
	a.limiter.SetBurst(burstFor(l))
}

func clamp(l, min, max rate.Limit) rate.Limit {
	switch {
	case l < min:
		return min
	case l > max:
		return max
	default:
		return l
	}
}

func burstFor(l rate.Limit) int {
	return max(1, int(l))
}

// StatusError is an HTTP response that was not 2xx.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

// Permanent wraps err so that Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Config controls Do.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	Logger       *zap.Logger
}

// DefaultConfig suits interactive lookups: few attempts, short waits.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// ErrAttemptsExhausted wraps the last error once MaxAttempts is reached.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Do runs fn until it succeeds, returns a permanent error, ctx ends or the
// attempts run out. lim may be nil.
func Do(ctx context.Context, lim *AdaptiveLimiter, cfg Config, fn func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	delay := cfg.InitialDelay
	var last error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		last = fn(ctx)
		if last == nil {
			if lim != nil {
				lim.Success()
			}
			return nil
		}
		if IsPermanent(last) {
			return last
		}
		if lim != nil && pushBack(last) {
			lim.Throttled()
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter && wait > 0 {
			wait += time.Duration(rand.Int64N(int64(wait)/4 + 1))
		}
		log.Debug("retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(last))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, cfg.MaxAttempts, last)
}

// pushBack reports whether err signals that the remote side is overloaded.
func pushBack(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusTooManyRequests || se.Code >= 500
}
