package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/example/club-reservations/internal/authority"
	"github.com/example/club-reservations/internal/persistence"
	"github.com/example/club-reservations/internal/reservation"
	"github.com/example/club-reservations/internal/scheduler"
)

// timeLayout is fixed width so lexicographic order matches chronological order.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlstore: parse time %q: %w", value, err)
	}
	return t, nil
}

func parsePeriod(start, end string) (scheduler.Period, error) {
	s, err := parseTime(start)
	if err != nil {
		return scheduler.Period{}, err
	}
	e, err := parseTime(end)
	if err != nil {
		return scheduler.Period{}, err
	}
	return scheduler.Period{Start: s, End: e}, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

type memberRow struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

type clubMemberRow struct {
	ID              string         `db:"id"`
	ClubID          string         `db:"club_id"`
	MemberID        string         `db:"member_id"`
	Role            string         `db:"role"`
	ClubAuthorityID sql.NullString `db:"club_authority_id"`
	Confirmed       bool           `db:"is_confirmed"`
}

func (r clubMemberRow) model() persistence.ClubMember {
	return persistence.ClubMember{
		ID:              r.ID,
		ClubID:          r.ClubID,
		MemberID:        r.MemberID,
		Role:            authority.Role(r.Role),
		ClubAuthorityID: stringPtr(r.ClubAuthorityID),
		Confirmed:       r.Confirmed,
	}
}

type contactRow struct {
	ClubMemberID string `db:"club_member_id"`
	MemberID     string `db:"member_id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
}

type resourceRow struct {
	ID        string `db:"id"`
	ClubID    string `db:"club_id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
}

func (r resourceRow) model() (persistence.Resource, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.Resource{}, err
	}
	return persistence.Resource{ID: r.ID, ClubID: r.ClubID, Name: r.Name, CreatedAt: created}, nil
}

type lockRow struct {
	ID          string `db:"id"`
	ResourceID  string `db:"resource_id"`
	PeriodStart string `db:"period_start"`
	PeriodEnd   string `db:"period_end"`
	CreatedAt   string `db:"created_at"`
}

func (r lockRow) model() (persistence.Lock, error) {
	period, err := parsePeriod(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return persistence.Lock{}, err
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.Lock{}, err
	}
	return persistence.Lock{ID: r.ID, ResourceID: r.ResourceID, Period: period, CreatedAt: created}, nil
}

type reservationRow struct {
	ID           string         `db:"id"`
	ResourceID   string         `db:"resource_id"`
	ClubMemberID string         `db:"club_member_id"`
	Title        string         `db:"title"`
	UsageNote    sql.NullString `db:"usage_note"`
	Sharing      bool           `db:"sharing"`
	PeriodStart  string         `db:"period_start"`
	PeriodEnd    string         `db:"period_end"`
	Status       string         `db:"status"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

func newReservationRow(r persistence.Reservation) reservationRow {
	return reservationRow{
		ID:           r.ID,
		ResourceID:   r.ResourceID,
		ClubMemberID: r.ClubMemberID,
		Title:        r.Title,
		UsageNote:    nullString(r.Usage),
		Sharing:      r.Sharing,
		PeriodStart:  formatTime(r.Period.Start),
		PeriodEnd:    formatTime(r.Period.End),
		Status:       string(r.Status),
		CreatedAt:    formatTime(r.CreatedAt),
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
}

func (r reservationRow) model() (persistence.Reservation, error) {
	period, err := parsePeriod(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return persistence.Reservation{}, err
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.Reservation{}, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return persistence.Reservation{}, err
	}
	return persistence.Reservation{
		ID:           r.ID,
		ResourceID:   r.ResourceID,
		ClubMemberID: r.ClubMemberID,
		Title:        r.Title,
		Usage:        stringPtr(r.UsageNote),
		Sharing:      r.Sharing,
		Period:       period,
		Status:       reservation.Status(r.Status),
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func reservationModels(rows []reservationRow) ([]persistence.Reservation, error) {
	out := make([]persistence.Reservation, 0, len(rows))
	for _, row := range rows {
		r, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

const reservationColumns = `id, resource_id, club_member_id, title, usage_note, sharing, period_start, period_end, status, created_at, updated_at`

const clubMemberColumns = `id, club_id, member_id, role, club_authority_id, is_confirmed`
