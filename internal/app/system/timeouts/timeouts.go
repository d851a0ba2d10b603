// Package timeouts holds the per-operation deadlines used with
// context.WithTimeout around database calls.
//
// Values are set once at startup from AppConfig via Configure; until then
// the defaults apply.
//
//   - Ping: health checks
//   - Short: single-document reads and the per-request user fetch
//   - Medium: list queries, analytics, single writes
//   - Long: transactions touching several collections (onboarding, deletes)
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Default timeout values.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// Config holds timeout overrides. Zero values keep the current setting.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

var defaults = Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong}

var active atomic.Pointer[Config]

func init() { Reset() }

// Ping returns the timeout for health checks.
func Ping() time.Duration { return active.Load().Ping }

// Short returns the timeout for single-document reads.
func Short() time.Duration { return active.Load().Short }

// Medium returns the timeout for list queries and single writes.
func Medium() time.Duration { return active.Load().Medium }

// Long returns the timeout for multi-collection transactions.
func Long() time.Duration { return active.Load().Long }

// Configure applies non-zero values from cfg. Call during startup.
func Configure(cfg Config) {
	next := *active.Load()
	pick := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	pick(&next.Ping, cfg.Ping)
	pick(&next.Short, cfg.Short)
	pick(&next.Medium, cfg.Medium)
	pick(&next.Long, cfg.Long)
	active.Store(&next)
}

// Reset restores the defaults. Used by tests.
func Reset() {
	d := defaults
	active.Store(&d)
}

// Current returns the active configuration.
func Current() Config { return *active.Load() }

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete workspace")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out", zap.String("operation", op), zap.Duration("timeout", d))
		}
		cancel()
	}
}
