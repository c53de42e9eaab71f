package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntrySpend   LedgerEntryType = "spend"
	LedgerEntryRevenue LedgerEntryType = "revenue"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntrySpend,
	LedgerEntryRevenue,
}

// String implements fmt.Stringer.
func (l LedgerEntryType) String() string {
	return string(l)
}

// IsValid reports whether the value matches the canonical ledger_entry_type enum.
func (l LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
