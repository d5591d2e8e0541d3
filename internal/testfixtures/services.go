package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/club-reservations/internal/application"
	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/notify"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/slotmutex"
)

// ServiceFactory assists tests with constructing application services over a
// SQLite harness using deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock         *Clock
	IDGenerator   *IDGenerator
	Notifications *RecordingDispatcher
	Logger        *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:         NewClock(time.Time{}),
		IDGenerator:   NewIDGenerator("id"),
		Notifications: &RecordingDispatcher{},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewMutex builds an in-memory slot mutex on the factory clock.
func (f *ServiceFactory) NewMutex() *slotmutex.Mutex {
	return slotmutex.New(slotmutex.NewMemoryStore(f.Clock.NowFunc()), slotmutex.Options{Logger: f.Logger})
}

// NewGate builds an authority gate over the harness store.
func (f *ServiceFactory) NewGate(h *SQLiteHarness) *authority.Gate {
	return authority.NewGate(h.Store, f.Logger)
}

// NewReservationService wires a reservation service to the harness. A nil
// mutex gets a fresh in-memory one.
func (f *ServiceFactory) NewReservationService(h *SQLiteHarness, mutex *slotmutex.Mutex) *application.ReservationService {
	if mutex == nil {
		mutex = f.NewMutex()
	}
	return application.NewReservationService(application.ReservationServiceDeps{
		Reservations:  h.Store,
		Resources:     h.Store,
		Members:       h.Store,
		Gate:          f.NewGate(h),
		Mutex:         mutex,
		Notifications: f.Notifications,
		IDGenerator:   f.IDGenerator.NextFunc(),
		Now:           f.Clock.NowFunc(),
		Logger:        f.Logger,
	})
}

// NewResourceService wires a resource service to the harness.
func (f *ServiceFactory) NewResourceService(h *SQLiteHarness) *application.ResourceService {
	return application.NewResourceServiceWithLogger(
		h.Store,
		h.Store,
		f.NewGate(h),
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// NewReminderSweeper wires a reminder sweeper to the harness.
func (f *ServiceFactory) NewReminderSweeper(h *SQLiteHarness, lead time.Duration) *application.ReminderSweeper {
	return application.NewReminderSweeper(application.ReminderSweeperDeps{
		Reservations:  h.Store,
		Reminders:     h.Store,
		Resources:     h.Store,
		Members:       h.Store,
		Notifications: f.Notifications,
		Lead:          lead,
		Now:           f.Clock.NowFunc(),
		Logger:        f.Logger,
	})
}

// Notification is one recorded dispatch.
type Notification struct {
	Recipients []string
	Message    notify.Message
}

// RecordingDispatcher records dispatches synchronously.
type RecordingDispatcher struct {
	mu   sync.Mutex
	sent []Notification
}

// Dispatch implements application.NotificationDispatcher.
func (d *RecordingDispatcher) Dispatch(_ context.Context, recipients []persistence.ClubMember, msg notify.Message) {
	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
	}
	d.mu.Lock()
	d.sent = append(d.sent, Notification{Recipients: ids, Message: msg})
	d.mu.Unlock()
}

// Sent returns a copy of the recorded notifications.
func (d *RecordingDispatcher) Sent() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notification, len(d.sent))
	copy(out, d.sent)
	return out
}

// ByReservation returns the notifications about one reservation.
func (d *RecordingDispatcher) ByReservation(reservationID string) []Notification {
	var out []Notification
	for _, n := range d.Sent() {
		if n.Message.ReservationID == reservationID {
			out = append(out, n)
		}
	}
	return out
}
