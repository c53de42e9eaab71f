package enums

import "fmt"

// CampaignStatus maps to the campaign_status enum in Postgres.
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusDraft     CampaignStatus = "draft"
)

var validCampaignStatuses = []CampaignStatus{
	CampaignStatusActive,
	CampaignStatusPaused,
	CampaignStatusCompleted,
	CampaignStatusDraft,
}

// String implements fmt.Stringer.
func (c CampaignStatus) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical campaign_status enum.
func (c CampaignStatus) IsValid() bool {
	for _, candidate := range validCampaignStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCampaignStatus converts raw input into CampaignStatus.
func ParseCampaignStatus(value string) (CampaignStatus, error) {
	for _, candidate := range validCampaignStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign status %q", value)
}
