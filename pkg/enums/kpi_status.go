package enums

import "fmt"

// KPIStatus maps to the kpi_status enum in Postgres.
type KPIStatus string

const (
	KPIStatusOnTrack KPIStatus = "on_track"
	KPIStatusAtRisk  KPIStatus = "at_risk"
	KPIStatusBehind  KPIStatus = "behind"
)

var validKPIStatuses = []KPIStatus{
	KPIStatusOnTrack,
	KPIStatusAtRisk,
	KPIStatusBehind,
}

// String implements fmt.Stringer.
func (k KPIStatus) String() string {
	return string(k)
}

// IsValid reports whether the value matches the canonical kpi_status enum.
func (k KPIStatus) IsValid() bool {
	for _, candidate := range validKPIStatuses {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKPIStatus converts raw input into KPIStatus.
func ParseKPIStatus(value string) (KPIStatus, error) {
	for _, candidate := range validKPIStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid kpi status %q", value)
}
