package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Treasury is the root aggregate that owns assets, budgets, transactions and
// risk assessments for one organization portfolio.
type Treasury struct {
	ID             uuid.UUID       `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `json:"name" gorm:"column:name;not null"`
	Description    string          `json:"description" gorm:"column:description;type:text;not null;default:''"`
	OrganizationID string          `json:"organizationId" gorm:"column:organization_id;not null"`
	TotalBalance   decimal.Decimal `json:"totalBalance" gorm:"column:total_balance;type:numeric(18,8);not null;default:0"`
	Currency       string          `json:"currency" gorm:"column:currency;not null;default:'USD'"`
	RiskScore      float64         `json:"riskScore" gorm:"column:risk_score;type:numeric(5,2);not null;default:0"`
	CreatedAt      time.Time       `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}
