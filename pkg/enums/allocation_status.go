package enums

import "fmt"

// AllocationStatus tracks an allocation from request to disbursement.
type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "pending"
	AllocationStatusApproved  AllocationStatus = "approved"
	AllocationStatusReleased  AllocationStatus = "released"
	AllocationStatusSpent     AllocationStatus = "spent"
	AllocationStatusCancelled AllocationStatus = "cancelled"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusPending,
	AllocationStatusApproved,
	AllocationStatusReleased,
	AllocationStatusSpent,
	AllocationStatusCancelled,
}

// String implements fmt.Stringer.
func (a AllocationStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationStatus.
func (a AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAllocationStatus converts the raw string to AllocationStatus.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}
