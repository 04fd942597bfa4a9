// Package throttle bounds password guessing per identifier with a sliding
// window and a lockout. State is persisted, so it survives restarts.
//
// A storage failure never locks anybody out: checks fail open and writes
// are logged and dropped.
package throttle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/logging"
)

const (
	DefaultMaxAttempts   = 5
	DefaultWindow        = 15 * time.Minute
	DefaultBlockDuration = 30 * time.Minute

	// KeyPrefix namespaces throttle entries in the shared key-value table.
	KeyPrefix = "rate_limit:"
)

// Store persists raw entries. A ttl of zero means no expiry; stores without
// native expiry may ignore it. Get returns (nil, nil) for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	Attempts     int   `json:"attempts"`
	FirstAttempt int64 `json:"firstAttempt"`
	BlockedUntil int64 `json:"blockedUntil,omitempty"`
}

// Status is the outcome of a check.
type Status struct {
	Allowed           bool
	RemainingAttempts int
	// BlockedUntil is set only when Allowed is false.
	BlockedUntil time.Time
}

type Limiter struct {
	store         Store
	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration
	now           func() time.Time
	logger        logging.Logger

	mu sync.Mutex
}

type Option func(*Limiter)

func WithMaxAttempts(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

func WithBlockDuration(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.blockDuration = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func WithLogger(lg logging.Logger) Option {
	return func(l *Limiter) {
		l.logger = lg
	}
}

func New(s Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:         s,
		maxAttempts:   DefaultMaxAttempts,
		window:        DefaultWindow,
		blockDuration: DefaultBlockDuration,
		now:           time.Now,
		logger:        logging.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("module", "throttle")
	return l
}

func storageKey(id string) string {
	return KeyPrefix + strings.ToLower(strings.TrimSpace(id))
}

func (l *Limiter) load(ctx context.Context, key string) (*entry, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &e, nil
}

// ttl keeps an entry around as long as it can still matter.
func (l *Limiter) ttl(e *entry, now time.Time) time.Duration {
	until := time.UnixMilli(e.FirstAttempt).Add(l.window)
	if e.BlockedUntil > 0 {
		if b := time.UnixMilli(e.BlockedUntil); b.After(until) {
			until = b
		}
	}
	if d := until.Sub(now); d > 0 {
		return d
	}
	return time.Second
}

// Check reports whether id may attempt to authenticate now. It never
// increments the counter; expired entries are removed on the way.
func (l *Limiter) Check(ctx context.Context, id string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(ctx, storageKey(id))
}

func (l *Limiter) check(ctx context.Context, key string) Status {
	allowAll := Status{Allowed: true, RemainingAttempts: l.maxAttempts}

	e, err := l.load(ctx, key)
	if err != nil {
		l.logger.Warn(ctx, "throttle state unreadable, allowing attempt", "key", key, "error", err)
		return allowAll
	}
	if e == nil {
		return allowAll
	}

	now := l.now()

	if e.BlockedUntil > 0 {
		blockedUntil := time.UnixMilli(e.BlockedUntil).UTC()
		if now.Before(blockedUntil) {
			return Status{BlockedUntil: blockedUntil}
		}
		l.clear(ctx, key)
		return allowAll
	}

	if now.Sub(time.UnixMilli(e.FirstAttempt)) > l.window {
		l.clear(ctx, key)
		return allowAll
	}

	// entry written before the block was recorded
	if e.Attempts >= l.maxAttempts {
		return Status{BlockedUntil: now.Add(l.blockDuration).UTC()}
	}

	return Status{Allowed: true, RemainingAttempts: l.maxAttempts - e.Attempts}
}

// RecordAttempt counts one failed attempt for id. Reaching the limit blocks
// id for the block duration.
func (l *Limiter) RecordAttempt(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := storageKey(id)
	now := l.now()

	e, err := l.load(ctx, key)
	if err != nil {
		l.logger.Warn(ctx, "throttle state unreadable, starting over", "key", key, "error", err)
		e = nil
	}

	if e == nil || now.Sub(time.UnixMilli(e.FirstAttempt)) > l.window {
		e = &entry{Attempts: 1, FirstAttempt: now.UnixMilli()}
	} else {
		e.Attempts++
	}

	if e.Attempts >= l.maxAttempts {
		e.BlockedUntil = now.Add(l.blockDuration).UnixMilli()
		l.logger.Info(ctx, "identifier blocked", "key", key, "attempts", e.Attempts)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn(ctx, "encode throttle entry", "key", key, "error", err)
		return
	}
	if err := l.store.Set(ctx, key, raw, l.ttl(e, now)); err != nil {
		l.logger.Warn(ctx, "throttle state not saved", "key", key, "error", err)
	}
}

// Reset forgets every failed attempt of id.
func (l *Limiter) Reset(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clear(ctx, storageKey(id))
}

// RemainingAttempts is the number of failures id may still make before
// being blocked; zero while blocked.
func (l *Limiter) RemainingAttempts(ctx context.Context, id string) int {
	st := l.Check(ctx, id)
	if !st.Allowed {
		return 0
	}
	return st.RemainingAttempts
}

func (l *Limiter) clear(ctx context.Context, key string) {
	if err := l.store.Delete(ctx, key); err != nil {
		l.logger.Warn(ctx, "throttle state not cleared", "key", key, "error", err)
	}
}
