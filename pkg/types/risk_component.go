package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RiskComponent is a scored risk dimension with supporting detail, persisted
// as jsonb on the risk assessment row.
type RiskComponent struct {
	Score   float64 `json:"score"`
	Details JSONMap `json:"details,omitempty"`
}

func (r RiskComponent) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RiskComponent) Scan(value any) error {
	if value == nil {
		*r = RiskComponent{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}

	return json.Unmarshal(raw, r)
}
