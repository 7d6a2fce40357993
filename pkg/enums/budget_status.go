package enums

import "fmt"

// BudgetStatus tracks a budget through its approval lifecycle.
type BudgetStatus string

const (
	BudgetStatusDraft       BudgetStatus = "draft"
	BudgetStatusSubmitted   BudgetStatus = "submitted"
	BudgetStatusUnderReview BudgetStatus = "under_review"
	BudgetStatusApproved    BudgetStatus = "approved"
	BudgetStatusRejected    BudgetStatus = "rejected"
	BudgetStatusActive      BudgetStatus = "active"
	BudgetStatusCompleted   BudgetStatus = "completed"
)

var validBudgetStatuses = []BudgetStatus{
	BudgetStatusDraft,
	BudgetStatusSubmitted,
	BudgetStatusUnderReview,
	BudgetStatusApproved,
	BudgetStatusRejected,
	BudgetStatusActive,
	BudgetStatusCompleted,
}

// String implements fmt.Stringer.
func (b BudgetStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BudgetStatus.
func (b BudgetStatus) IsValid() bool {
	for _, candidate := range validBudgetStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBudgetStatus converts the raw string to BudgetStatus.
func ParseBudgetStatus(value string) (BudgetStatus, error) {
	for _, candidate := range validBudgetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid budget status %q", value)
}
