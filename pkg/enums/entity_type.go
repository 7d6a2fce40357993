package enums

import "fmt"

// EntityType identifies which treasury entity an audit log entry refers to.
type EntityType string

const (
	EntityTypeTreasury       EntityType = "treasury"
	EntityTypeAsset          EntityType = "asset"
	EntityTypeTransaction    EntityType = "transaction"
	EntityTypeBudget         EntityType = "budget"
	EntityTypeAllocation     EntityType = "allocation"
	EntityTypeRiskAssessment EntityType = "risk_assessment"
)

var validEntityTypes = []EntityType{
	EntityTypeTreasury,
	EntityTypeAsset,
	EntityTypeTransaction,
	EntityTypeBudget,
	EntityTypeAllocation,
	EntityTypeRiskAssessment,
}

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntityType.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEntityType converts the raw string to EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}
