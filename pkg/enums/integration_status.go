package enums

import "fmt"

// IntegrationStatus maps to the integration_status enum in Postgres.
type IntegrationStatus string

const (
	IntegrationStatusConnected    IntegrationStatus = "connected"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
	IntegrationStatusError        IntegrationStatus = "error"
)

var validIntegrationStatuses = []IntegrationStatus{
	IntegrationStatusConnected,
	IntegrationStatusDisconnected,
	IntegrationStatusError,
}

// String implements fmt.Stringer.
func (i IntegrationStatus) String() string {
	return string(i)
}

// IsValid reports whether the value matches the canonical integration_status enum.
func (i IntegrationStatus) IsValid() bool {
	for _, candidate := range validIntegrationStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIntegrationStatus converts raw input into IntegrationStatus.
func ParseIntegrationStatus(value string) (IntegrationStatus, error) {
	for _, candidate := range validIntegrationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid integration status %q", value)
}
