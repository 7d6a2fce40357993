package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/pkg/enums"
)

// Budget is a spending envelope within a treasury. AllocatedAmount is the sum
// of its allocations and is maintained transactionally alongside them.
type Budget struct {
	ID              uuid.UUID          `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string             `json:"name" gorm:"column:name;not null"`
	Description     string             `json:"description" gorm:"column:description;type:text;not null;default:''"`
	TreasuryID      uuid.UUID          `json:"treasuryId" gorm:"column:treasury_id;type:uuid;not null"`
	TotalAmount     decimal.Decimal    `json:"totalAmount" gorm:"column:total_amount;type:numeric(18,2);not null"`
	AllocatedAmount decimal.Decimal    `json:"allocatedAmount" gorm:"column:allocated_amount;type:numeric(18,2);not null;default:0"`
	SpentAmount     decimal.Decimal    `json:"spentAmount" gorm:"column:spent_amount;type:numeric(18,2);not null;default:0"`
	StartDate       time.Time          `json:"startDate" gorm:"column:start_date;not null"`
	EndDate         time.Time          `json:"endDate" gorm:"column:end_date;not null"`
	Status          enums.BudgetStatus `json:"status" gorm:"column:status;type:budget_status;not null;default:'draft'"`
	Categories      pq.StringArray     `json:"categories" gorm:"column:categories;type:text[]"`
	Notes           string             `json:"notes" gorm:"column:notes;type:text;not null;default:''"`
	SubmissionDate  *time.Time         `json:"submissionDate,omitempty" gorm:"column:submission_date"`
	ApprovalDate    *time.Time         `json:"approvalDate,omitempty" gorm:"column:approval_date"`
	CreatedAt       time.Time          `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}
