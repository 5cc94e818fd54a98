// Package suspension computes suspension timestamps and completion-date shifts.
// Every function is pure.
package suspension

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Dates are the completion dates of a case. Nil dates are left alone.
type Dates struct {
	Planned  *time.Time
	Ultimate *time.Time
}

// Begin returns the suspension start for a suspension beginning at now.
func Begin(now time.Time) time.Time {
	return now
}

// End returns the whole days a suspension started at start has lasted at now,
// rounded up. A clock that went backwards yields zero.
func End(start, now time.Time) int {
	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(float64(elapsed) / float64(day)))
}

// ShiftForExtension advances every date by extraDays calendar days.
// Non-positive extraDays leave the dates unchanged.
func ShiftForExtension(d Dates, extraDays int) Dates {
	if extraDays <= 0 {
		return cloneDates(d)
	}
	return ShiftDates(d, extraDays)
}

// ShiftDates moves every date by days calendar days, which may be negative.
func ShiftDates(d Dates, days int) Dates {
	return Dates{
		Planned:  shift(d.Planned, days),
		Ultimate: shift(d.Ultimate, days),
	}
}

func shift(t *time.Time, days int) *time.Time {
	if t == nil {
		return nil
	}
	v := t.AddDate(0, 0, days)
	return &v
}

func cloneDates(d Dates) Dates {
	return ShiftDates(d, 0)
}
