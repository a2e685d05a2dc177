// Package schedule holds the date arithmetic behind dosage-log generation
// and dashboard bucketing.  It is pure: callers pass "now" explicitly and
// no function touches the database or the clock.
package schedule

import (
	"fmt"
	"time"

	"github.com/shecares/shecares-backend/internal/model"
)

// SlotTimestamp resolves a "HH:MM" dose time onto the calendar day of the
// given reference time, in UTC.  It returns an error when the time string
// is malformed.
func SlotTimestamp(day time.Time, doseTime string) (time.Time, error) {
	t, err := time.Parse("15:04", doseTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dose time %q: %w", doseTime, err)
	}
	d := day.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// PlannedDose is one (medicine, slot) pair expanded to a concrete
// timestamp for a particular day.
type PlannedDose struct {
	Medicine    *model.Medicine
	Slot        model.Slot
	ScheduledAt time.Time
}

// ExpandDay computes the intended dose timestamps for every scheduled slot
// of every medicine on the calendar day of "day".  Slots with a missing or
// malformed dose time are silently skipped; a medicine with no usable
// slots contributes nothing.
func ExpandDay(meds []model.Medicine, day time.Time) []PlannedDose {
	planned := make([]PlannedDose, 0, len(meds))
	for i := range meds {
		m := &meds[i]
		for _, s := range m.Slots {
			if s.DoseTime == "" {
				continue
			}
			at, err := SlotTimestamp(day, s.DoseTime)
			if err != nil {
				continue
			}
			planned = append(planned, PlannedDose{Medicine: m, Slot: s.Slot, ScheduledAt: at})
		}
	}
	return planned
}

// upcomingWindow bounds how far ahead a pending log still counts as
// "upcoming" on the dashboard.
const upcomingWindow = 6 * time.Hour

// Buckets groups a day's logs into the dashboard display categories.
// Upcoming holds pending logs scheduled strictly after now and within the
// next six hours; Pending holds pending logs already due (scheduled at or
// before now).  Pending logs further than six hours out fall into no
// bucket.  Taken and Missed follow the log status directly.
type Buckets struct {
	Upcoming []model.DosageLog `json:"upcoming"`
	Pending  []model.DosageLog `json:"pending"`
	Taken    []model.DosageLog `json:"taken"`
	Missed   []model.DosageLog `json:"missed"`
}

// Bucketize categorizes logs relative to now.  Input order is preserved
// within each bucket.
func Bucketize(logs []model.DosageLog, now time.Time) Buckets {
	b := Buckets{
		Upcoming: []model.DosageLog{},
		Pending:  []model.DosageLog{},
		Taken:    []model.DosageLog{},
		Missed:   []model.DosageLog{},
	}
	for _, l := range logs {
		switch l.Status {
		case model.StatusTaken:
			b.Taken = append(b.Taken, l)
		case model.StatusMissed:
			b.Missed = append(b.Missed, l)
		case model.StatusPending:
			if l.ScheduledAt.After(now) {
				if l.ScheduledAt.Sub(now) <= upcomingWindow {
					b.Upcoming = append(b.Upcoming, l)
				}
			} else {
				b.Pending = append(b.Pending, l)
			}
		}
	}
	return b
}

// RemainingDays estimates how many full days of doses are left in a
// package: floor(remaining tablets / (tablets per dose × daily slots)).
// It never returns a negative value and returns 0 when the medicine has
// no schedule or no dose size.
func RemainingDays(totalTablets, consumedTablets, tabletsPerDose uint32, slotCount int) int {
	if tabletsPerDose == 0 || slotCount <= 0 {
		return 0
	}
	if consumedTablets >= totalTablets {
		return 0
	}
	remaining := int(totalTablets - consumedTablets)
	perDay := int(tabletsPerDose) * slotCount
	return remaining / perDay
}
