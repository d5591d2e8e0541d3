package scheduler

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidPeriod is returned when a period does not start strictly before it ends.
var ErrInvalidPeriod = errors.New("scheduler: invalid period")

// Period is a half-open time interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a validated period.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate reports ErrInvalidPeriod unless Start < End and both are set.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if !p.Start.Before(p.End) {
		return ErrInvalidPeriod
	}
	return nil
}

// Duration returns the length of the period.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Equal compares instants, ignoring location.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// UTC returns the period with both bounds converted to UTC.
func (p Period) UTC() Period {
	return Period{Start: p.Start.UTC(), End: p.End.UTC()}
}

// Overlaps reports whether two half-open periods share any instant.
// Adjacent periods, where one ends exactly when the other starts, do not overlap.
func Overlaps(a, b Period) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ConflictType describes what kind of record blocks a candidate period.
type ConflictType string

const (
	// ConflictTypeLock indicates an administrative lock covers the period.
	ConflictTypeLock ConflictType = "lock"
	// ConflictTypeReservation indicates an active reservation covers the period.
	ConflictTypeReservation ConflictType = "reservation"
)

// Conflict details a blocking record that callers can present to users.
type Conflict struct {
	Type       ConflictType
	ID         string
	ResourceID string
	Period     Period
	// Status is set for reservation conflicts only.
	Status string
}

// DetectConflicts returns the entries of existing that overlap candidate on the
// same resource, skipping excludeID, ordered by start time.
func DetectConflicts(existing []Conflict, resourceID string, candidate Period, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, entry := range existing {
		if entry.ResourceID != resourceID {
			continue
		}
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if !Overlaps(entry.Period, candidate) {
			continue
		}
		conflicts = append(conflicts, entry)
	}
	SortConflicts(conflicts)
	return conflicts
}

// SortConflicts orders conflicts by start, then end, with locks before
// reservations and then ID breaking remaining ties.
func SortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if !a.Period.Start.Equal(b.Period.Start) {
			return a.Period.Start.Before(b.Period.Start)
		}
		if !a.Period.End.Equal(b.Period.End) {
			return a.Period.End.Before(b.Period.End)
		}
		if a.Type != b.Type {
			return a.Type == ConflictTypeLock
		}
		return a.ID < b.ID
	})
}
