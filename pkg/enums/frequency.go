package enums

import (
	"fmt"
	"time"
)

// Frequency maps to the schedule_frequency enum in Postgres and selects a
// scheduler cadence.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

var validFrequencies = []Frequency{
	FrequencyHourly,
	FrequencyDaily,
	FrequencyWeekly,
}

// String implements fmt.Stringer.
func (f Frequency) String() string {
	return string(f)
}

// IsValid reports whether the value matches the canonical schedule_frequency enum.
func (f Frequency) IsValid() bool {
	for _, candidate := range validFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// Interval returns the fixed wall-clock interval for the cadence.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ParseFrequency converts raw input into Frequency.
func ParseFrequency(value string) (Frequency, error) {
	for _, candidate := range validFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q", value)
}
