package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/pkg/types"
)

// Asset is a holding inside a treasury. CurrentValue is mirrored into the
// owning treasury's total balance on every mutation.
type Asset struct {
	ID           uuid.UUID       `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string          `json:"name" gorm:"column:name;not null"`
	Symbol       string          `json:"symbol" gorm:"column:symbol;not null"`
	Type         string          `json:"type" gorm:"column:type;not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(24,8);not null"`
	CurrentValue decimal.Decimal `json:"currentValue" gorm:"column:current_value;type:numeric(18,2);not null"`
	TreasuryID   uuid.UUID       `json:"treasuryId" gorm:"column:treasury_id;type:uuid;not null"`
	Metadata     types.JSONMap   `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
	RiskMetrics  types.JSONMap   `json:"riskMetrics,omitempty" gorm:"column:risk_metrics;type:jsonb"`
	LastUpdated  time.Time       `json:"lastUpdated" gorm:"column:last_updated;not null"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}
