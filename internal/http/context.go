package http

import (
	"context"
	"log/slog"

	"github.com/example/club-reservations/internal/logging"
)

type contextKey string

const clubMemberContextKey contextKey = "club_member_id"

// ContextWithClubMemberID returns a derived context carrying the acting club member.
func ContextWithClubMemberID(ctx context.Context, clubMemberID string) context.Context {
	return context.WithValue(ctx, clubMemberContextKey, clubMemberID)
}

// ClubMemberIDFromContext extracts the acting club member if available.
func ClubMemberIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clubMemberContextKey).(string)
	return id, ok && id != ""
}

// LoggerFromContext returns the request logger installed by RequestLogger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
