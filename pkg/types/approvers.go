package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Approver records who approved an allocation and when.
type Approver struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// ApproverList is the jsonb-backed approval trail on an allocation.
type ApproverList []Approver

func (a ApproverList) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(ApproverList{})
	}
	return json.Marshal(a)
}

func (a *ApproverList) Scan(value any) error {
	if value == nil {
		*a = nil
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

	return json.Unmarshal(raw, a)
}
