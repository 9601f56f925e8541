package models

import (
	"encoding/json"
	"fmt"
)

// MinuteOfDay is a time of day expressed as minutes from midnight. It
// marshals as an "HH:MM" string on the wire and is stored as a plain
// integer column.
type MinuteOfDay int

const minutesPerDay = 24 * 60

// ParseClock converts an "HH:MM" string into a MinuteOfDay.
func ParseClock(raw string) (MinuteOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return MinuteOfDay(hour*60 + minute), nil
}

// Valid reports whether the value falls within a single day.
func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < minutesPerDay
}

// String renders the canonical "HH:MM" form.
func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalJSON renders the value as an "HH:MM" string.
func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (m *MinuteOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
