package models

import "time"

// DayOfWeek enumerates the weekly recurrence days for slots.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Days lists every day in week order.
var Days = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayDays and WeekendDays partition the week for classification queries.
var (
	WeekdayDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}
	WeekendDays = []DayOfWeek{Saturday, Sunday}
)

// Valid reports whether the value is one of the seven recognised days.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Weekday reports whether the day falls on Monday through Friday.
func (d DayOfWeek) Weekday() bool {
	return d != Saturday && d != Sunday && d.Valid()
}

// Slot is a single weekly time interval inside a schedule. It has no
// identity of its own: within a schedule it is addressed by the
// (day, start) pair, and duplicates are matched first-in-sequence.
type Slot struct {
	DayOfWeek   DayOfWeek   `db:"day_of_week" json:"day_of_week"`
	StartMinute MinuteOfDay `db:"start_minute" json:"start_time"`
	EndMinute   MinuteOfDay `db:"end_minute" json:"end_time"`
}

// Duration returns the slot length in minutes.
func (s Slot) Duration() int {
	return int(s.EndMinute - s.StartMinute)
}

// Overlaps reports whether the slot collides with the [start, end] range on
// the same day. Boundaries are inclusive: a slot ending exactly at the range
// start (or starting exactly at its end) still counts as overlapping.
func (s Slot) Overlaps(start, end MinuteOfDay) bool {
	return s.StartMinute <= end && s.EndMinute >= start
}

// Matches reports whether the slot is addressed by the given key.
func (s Slot) Matches(day DayOfWeek, start MinuteOfDay) bool {
	return s.DayOfWeek == day && s.StartMinute == start
}

// Schedule is the aggregate owning an ordered slot sequence. Version is an
// optimistic-concurrency token incremented on every write; a stale writer
// fails its version check instead of silently overwriting.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	Slots     []Slot    `db:"-" json:"slots"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SlotIndex returns the position of the first slot matching the key, or -1.
func (s *Schedule) SlotIndex(day DayOfWeek, start MinuteOfDay) int {
	for i, slot := range s.Slots {
		if slot.Matches(day, start) {
			return i
		}
	}
	return -1
}

// MutationOutcome distinguishes a keyed slot mutation that changed the
// schedule from one whose key matched nothing.
type MutationOutcome string

const (
	OutcomeMutated MutationOutcome = "MUTATED"
	OutcomeNoMatch MutationOutcome = "NO_MATCH"
)

// SlotMutationResult reports a keyed mutation together with the schedule
// state after it.
type SlotMutationResult struct {
	Outcome  MutationOutcome `json:"outcome"`
	Schedule *Schedule       `json:"schedule"`
}

// TimetableDay groups one day's slots for the weekly timetable view.
type TimetableDay struct {
	Day   DayOfWeek `json:"day"`
	Slots []Slot    `json:"slots"`
}
