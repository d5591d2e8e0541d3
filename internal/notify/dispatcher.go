package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/club-reservations/internal/persistence"
)

// DefaultTimeout bounds one asynchronous delivery.
const DefaultTimeout = 30 * time.Second

// Dispatcher delivers notifications in the background. Delivery failures are
// logged and never reach the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wraps notifier. A zero timeout uses DefaultTimeout.
func NewDispatcher(notifier Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, timeout: timeout, logger: logger}
}

// Dispatch sends msg to the distinct recipients without blocking.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []persistence.ClubMember, msg Message) {
	if d == nil || d.notifier == nil {
		return
	}
	recipients = distinct(recipients)
	if len(recipients) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, recipients, msg); err != nil {
			d.logger.WarnContext(ctx, "notification delivery failed",
				"template", string(msg.Template),
				"reservation_id", msg.ReservationID,
				"recipients", len(recipients),
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func distinct(members []persistence.ClubMember) []persistence.ClubMember {
	seen := make(map[string]struct{}, len(members))
	out := make([]persistence.ClubMember, 0, len(members))
	for _, m := range members {
		if m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
