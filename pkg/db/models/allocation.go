package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/pkg/enums"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

// Allocation earmarks part of a budget for a recipient.
type Allocation struct {
	ID          uuid.UUID              `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                 `json:"name" gorm:"column:name;not null"`
	Description string                 `json:"description" gorm:"column:description;type:text;not null;default:''"`
	BudgetID    uuid.UUID              `json:"budgetId" gorm:"column:budget_id;type:uuid;not null"`
	Amount      decimal.Decimal        `json:"amount" gorm:"column:amount;type:numeric(18,2);not null"`
	RecipientID *string                `json:"recipientId,omitempty" gorm:"column:recipient_id"`
	Status      enums.AllocationStatus `json:"status" gorm:"column:status;type:allocation_status;not null;default:'pending'"`
	Tags        pq.StringArray         `json:"tags" gorm:"column:tags;type:text[]"`
	Notes       string                 `json:"notes" gorm:"column:notes;type:text;not null;default:''"`
	Approvers   types.ApproverList     `json:"approvers" gorm:"column:approvers;type:jsonb"`
	ReleasedAt  *time.Time             `json:"releasedAt,omitempty" gorm:"column:released_at"`
	CreatedAt   time.Time              `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}
