package enums

import "fmt"

// SnapshotType maps to the snapshot_type enum in Postgres.
type SnapshotType string

const (
	SnapshotTypeAutomatic SnapshotType = "automatic"
	SnapshotTypeManual    SnapshotType = "manual"
)

var validSnapshotTypes = []SnapshotType{
	SnapshotTypeAutomatic,
	SnapshotTypeManual,
}

// String implements fmt.Stringer.
func (s SnapshotType) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical snapshot_type enum.
func (s SnapshotType) IsValid() bool {
	for _, candidate := range validSnapshotTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSnapshotType converts raw input into SnapshotType.
func ParseSnapshotType(value string) (SnapshotType, error) {
	for _, candidate := range validSnapshotTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid snapshot type %q", value)
}
