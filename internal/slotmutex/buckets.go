package slotmutex

import (
	"time"

	"github.com/example/club-reservations/internal/scheduler"
)

const keyTimeLayout = "20060102150405"

// Key formats the bucket key for the clock hour starting at hour.
func Key(resourceID string, hour time.Time) string {
	return resourceID + ":" + hour.Format(keyTimeLayout)
}

// Buckets returns the keys of every clock hour touched by period, evaluated in loc.
// The hour containing Start is always included; the hour starting exactly at End is not.
func Buckets(period scheduler.Period, resourceID string, loc *time.Location) []string {
	if period.Validate() != nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	start := period.Start.In(loc)
	hour := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, loc)

	var keys []string
	for hour.Before(period.End) {
		keys = append(keys, Key(resourceID, hour))
		hour = hour.Add(time.Hour)
	}
	return keys
}
