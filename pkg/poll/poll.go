// Package poll provides the bounded wait used everywhere the tool watches a
// page for a condition: an interval, a maximum number of attempts, and a
// predicate that is checked once per attempt.
package poll

import (
	"context"
	"time"
)

// Outcome reports how a bounded wait ended.
type Outcome int

const (
	// TimedOut means every attempt was used without the predicate holding.
	TimedOut Outcome = iota
	// Matched means the predicate held on some attempt.
	Matched
)

func (o Outcome) String() string {
	if o == Matched {
		return "matched"
	}
	return "timed out"
}

// Config bounds a wait. The total wall-clock budget is roughly
// Interval * Attempts.
type Config struct {
	Interval time.Duration
	Attempts int
}

// Every returns a Config that checks once per interval for at most max.
func Every(interval, max time.Duration) Config {
	if interval <= 0 {
		interval = time.Second
	}
	n := int(max / interval)
	if n < 1 {
		n = 1
	}
	return Config{Interval: interval, Attempts: n}
}

// Budget is the approximate total time the wait may take.
func (c Config) Budget() time.Duration {
	return c.Interval * time.Duration(c.Attempts)
}

// Until checks pred up to cfg.Attempts times, sleeping cfg.Interval between
// checks. The predicate is evaluated before the first sleep. A cancelled
// context stops the wait and its error is returned.
func Until(ctx context.Context, cfg Config, pred func(context.Context) bool) (Outcome, error) {
	_, out, err := Value(ctx, cfg, func(ctx context.Context) (struct{}, bool) {
		return struct{}{}, pred(ctx)
	})
	return out, err
}

// Value is Until for predicates that also produce a result. The result of the
// first matching attempt is returned with Matched.
func Value[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, bool)) (T, Outcome, error) {
	var zero T
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, TimedOut, err
		}
		if v, ok := fn(ctx); ok {
			return v, Matched, nil
		}
		if i == attempts-1 {
			break
		}
		if err := Sleep(ctx, cfg.Interval); err != nil {
			return zero, TimedOut, err
		}
	}
	return zero, TimedOut, nil
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
