package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/pkg/enums"
)

// Transaction is a value movement against a treasury, optionally tied to a
// specific asset. Completion is what applies the movement to asset holdings.
type Transaction struct {
	ID                 uuid.UUID               `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type               enums.TransactionType   `json:"type" gorm:"column:type;type:transaction_type;not null"`
	Amount             decimal.Decimal         `json:"amount" gorm:"column:amount;type:numeric(24,8);not null"`
	TreasuryID         uuid.UUID               `json:"treasuryId" gorm:"column:treasury_id;type:uuid;not null"`
	AssetID            *uuid.UUID              `json:"assetId,omitempty" gorm:"column:asset_id;type:uuid"`
	Description        string                  `json:"description" gorm:"column:description;type:text;not null;default:''"`
	Status             enums.TransactionStatus `json:"status" gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	ExternalID         *string                 `json:"externalId,omitempty" gorm:"column:external_id"`
	SourceAddress      *string                 `json:"sourceAddress,omitempty" gorm:"column:source_address"`
	DestinationAddress *string                 `json:"destinationAddress,omitempty" gorm:"column:destination_address"`
	CompletedAt        *time.Time              `json:"completedAt,omitempty" gorm:"column:completed_at"`
	CreatedAt          time.Time               `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time               `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}
