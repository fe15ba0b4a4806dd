// Package throttle counts failed login attempts per client and blocks a client
// once too many failures fall inside a rolling window.
package throttle

import (
	"context"
	"time"
)

const (
	DefaultWindow      = 10 * time.Minute
	DefaultMaxAttempts = 5
)

// Store keeps failure timestamps per key.
//
// Window returns the timestamps in [from, to] and may drop anything older than
// from, since nothing older can matter again.
type Store interface {
	Add(ctx context.Context, key string, at time.Time) error
	Window(ctx context.Context, key string, from, to time.Time) ([]time.Time, error)
	Clear(ctx context.Context, key string) error
}

type Throttle struct {
	Store       Store
	Window      time.Duration
	MaxAttempts int
}

func New(store Store, window time.Duration, maxAttempts int) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Throttle{Store: store, Window: window, MaxAttempts: maxAttempts}
}

// RecordAttempt stores one failed attempt for clientID.
func (t *Throttle) RecordAttempt(ctx context.Context, clientID string, at time.Time) error {
	return t.Store.Add(ctx, clientID, at)
}

// IsBlocked reports whether clientID has MaxAttempts or more failures within
// [now-Window, now].
func (t *Throttle) IsBlocked(ctx context.Context, clientID string, now time.Time) (bool, error) {
	n, err := t.Failures(ctx, clientID, now)
	if err != nil {
		return false, err
	}
	return n >= t.MaxAttempts, nil
}

// Failures counts the failures of clientID inside the window ending at now.
func (t *Throttle) Failures(ctx context.Context, clientID string, now time.Time) (int, error) {
	ts, err := t.Store.Window(ctx, clientID, now.Add(-t.Window), now)
	if err != nil {
		return 0, err
	}
	return len(ts), nil
}

// RetryAfter returns how long until clientID drops below the threshold, or 0
// when it is not blocked.
func (t *Throttle) RetryAfter(ctx context.Context, clientID string, now time.Time) (time.Duration, error) {
	ts, err := t.Store.Window(ctx, clientID, now.Add(-t.Window), now)
	if err != nil {
		return 0, err
	}
	if len(ts) < t.MaxAttempts {
		return 0, nil
	}
	// Timestamps are ascending; the block lifts when the oldest failure that
	// still keeps the count at MaxAttempts leaves the window.
	pivot := ts[len(ts)-t.MaxAttempts]
	d := pivot.Add(t.Window).Sub(now)
	if d <= 0 {
		return time.Second, nil
	}
	return d, nil
}

// Reset forgets every failure recorded for clientID.
func (t *Throttle) Reset(ctx context.Context, clientID string) error {
	return t.Store.Clear(ctx, clientID)
}
