// Package slotmutex provides the short-lived, hour-bucketed admission filter that
// serializes concurrent reservation attempts on the same resource.
package slotmutex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/club-reservations/internal/scheduler"
)

// DefaultTTL bounds how long a bucket stays held when nobody releases it.
const DefaultTTL = 10 * time.Second

// ErrEmptyOwner is returned when an acquire or release omits the owner token.
var ErrEmptyOwner = errors.New("slotmutex: owner token is required")

// Store is the key-value backend holding bucket keys.
//
// AcquireAll must set every key to owner with the given TTL only if each key is
// absent or already owned by owner, and must do so atomically.
// ReleaseAll deletes only the keys still owned by owner.
type Store interface {
	AcquireAll(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, error)
	ReleaseAll(ctx context.Context, keys []string, owner string) error
}

// Options configures a Mutex.
type Options struct {
	TTL      time.Duration
	Location *time.Location
	Logger   *slog.Logger
}

// Mutex maps periods to bucket keys and delegates to a Store.
type Mutex struct {
	store    Store
	ttl      time.Duration
	location *time.Location
	logger   *slog.Logger
}

// New constructs a Mutex over store.
func New(store Store, opts Options) *Mutex {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Mutex{store: store, ttl: opts.TTL, location: opts.Location, logger: opts.Logger}
}

// TTL reports the configured bucket lifetime.
func (m *Mutex) TTL() time.Duration {
	return m.ttl
}

// Acquire claims every hour bucket of period on resourceID for owner.
// It returns false without error when any bucket is held by someone else.
func (m *Mutex) Acquire(ctx context.Context, period scheduler.Period, resourceID, owner string) (bool, error) {
	if m == nil || m.store == nil {
		return false, fmt.Errorf("slotmutex: store not configured")
	}
	if owner == "" {
		return false, ErrEmptyOwner
	}
	keys := Buckets(period, resourceID, m.location)
	if len(keys) == 0 {
		return false, scheduler.ErrInvalidPeriod
	}

	ok, err := m.store.AcquireAll(ctx, keys, owner, m.ttl)
	if err != nil {
		return false, fmt.Errorf("slotmutex: acquire: %w", err)
	}
	m.logger.DebugContext(ctx, "slot mutex acquire",
		"resource_id", resourceID,
		"owner", owner,
		"buckets", len(keys),
		"acquired", ok,
	)
	return ok, nil
}

// Release drops the buckets of period still held by owner.
func (m *Mutex) Release(ctx context.Context, period scheduler.Period, resourceID, owner string) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("slotmutex: store not configured")
	}
	if owner == "" {
		return ErrEmptyOwner
	}
	keys := Buckets(period, resourceID, m.location)
	if len(keys) == 0 {
		return nil
	}
	if err := m.store.ReleaseAll(ctx, keys, owner); err != nil {
		return fmt.Errorf("slotmutex: release: %w", err)
	}
	return nil
}
