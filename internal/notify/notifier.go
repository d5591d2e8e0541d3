package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/club-reservations/internal/persistence"
)

// Notifier delivers a message to club members.
type Notifier interface {
	Notify(ctx context.Context, recipients []persistence.ClubMember, msg Message) error
}

// LogNotifier writes notifications to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, recipients []persistence.ClubMember, msg Message) error {
	for _, r := range recipients {
		n.logger.InfoContext(ctx, "notification",
			"template", string(msg.Template),
			"reservation_id", msg.ReservationID,
			"club_member_id", r.ID,
			"subject", msg.Subject(),
		)
	}
	return nil
}

type multiNotifier []Notifier

// Multi fans a message out to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, recipients []persistence.ClubMember, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, recipients, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
