package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielobanda/treasury-backend/pkg/enums"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

// AuditLog records an immutable before/after snapshot of a treasury entity
// mutation. Rows are only ever inserted.
type AuditLog struct {
	ID            uuid.UUID        `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TreasuryID    uuid.UUID        `json:"treasuryId" gorm:"column:treasury_id;type:uuid;not null"`
	EntityType    enums.EntityType `json:"entityType" gorm:"column:entity_type;type:audit_entity_type;not null"`
	EntityID      uuid.UUID        `json:"entityId" gorm:"column:entity_id;type:uuid;not null"`
	Action        enums.ActionType `json:"action" gorm:"column:action;type:audit_action_type;not null"`
	UserID        string           `json:"userId" gorm:"column:user_id;not null"`
	IPAddress     *string          `json:"ipAddress,omitempty" gorm:"column:ip_address"`
	Timestamp     time.Time        `json:"timestamp" gorm:"column:timestamp;autoCreateTime"`
	PreviousState types.JSONMap    `json:"previousState,omitempty" gorm:"column:previous_state;type:jsonb"`
	NewState      types.JSONMap    `json:"newState,omitempty" gorm:"column:new_state;type:jsonb"`
}
