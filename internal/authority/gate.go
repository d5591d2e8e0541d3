package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SubjectLookup resolves a club member into a Subject.
// Implementations return ErrUnknownMember when the member does not exist.
type SubjectLookup interface {
	LookupSubject(ctx context.Context, clubMemberID string) (Subject, error)
}

// Gate enforces requirements against subjects resolved from storage.
type Gate struct {
	lookup SubjectLookup
	logger *slog.Logger
}

// NewGate constructs a gate. A nil logger uses slog.Default.
func NewGate(lookup SubjectLookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{lookup: lookup, logger: logger}
}

// Resolve loads the subject for clubMemberID without checking any requirement.
func (g *Gate) Resolve(ctx context.Context, clubMemberID string) (Subject, error) {
	if g == nil || g.lookup == nil {
		return Subject{}, fmt.Errorf("authority: gate not configured")
	}
	if clubMemberID == "" {
		return Subject{}, ErrUnknownMember
	}
	return g.lookup.LookupSubject(ctx, clubMemberID)
}

// Authorize resolves clubMemberID and checks req within clubID.
// A membership in a different club is denied.
func (g *Gate) Authorize(ctx context.Context, clubMemberID, clubID string, req Requirement) (Subject, error) {
	subject, err := g.Resolve(ctx, clubMemberID)
	if err != nil {
		return Subject{}, err
	}
	if subject.ClubID != clubID {
		g.deny(ctx, subject, req, "club mismatch")
		return subject, ErrDenied
	}
	if err := Evaluate(subject, req); err != nil {
		if errors.Is(err, ErrDenied) {
			g.deny(ctx, subject, req, "requirement not met")
		}
		return subject, err
	}
	return subject, nil
}

// Member resolves clubMemberID and checks it is a confirmed member of clubID.
func (g *Gate) Member(ctx context.Context, clubMemberID, clubID string) (Subject, error) {
	subject, err := g.Resolve(ctx, clubMemberID)
	if err != nil {
		return Subject{}, err
	}
	if subject.ClubID != clubID || !subject.Confirmed {
		g.deny(ctx, subject, Requirement{}, "not a confirmed member")
		return subject, ErrDenied
	}
	return subject, nil
}

func (g *Gate) deny(ctx context.Context, subject Subject, req Requirement, reason string) {
	g.logger.InfoContext(ctx, "authorization denied",
		"club_member_id", subject.ClubMemberID,
		"club_id", subject.ClubID,
		"role", string(subject.Role),
		"requirement", req.String(),
		"reason", reason,
	)
}
