package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/danielobanda/treasury-backend/pkg/types"
)

// RiskAssessment is a point-in-time snapshot of a treasury's risk posture.
type RiskAssessment struct {
	ID                uuid.UUID           `json:"id" gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TreasuryID        uuid.UUID           `json:"treasuryId" gorm:"column:treasury_id;type:uuid;not null"`
	OverallScore      float64             `json:"overallScore" gorm:"column:overall_score;type:numeric(5,2);not null"`
	MarketRisk        types.RiskComponent `json:"marketRisk" gorm:"column:market_risk;type:jsonb"`
	CounterpartyRisk  types.RiskComponent `json:"counterpartyRisk" gorm:"column:counterparty_risk;type:jsonb"`
	LiquidityRisk     types.RiskComponent `json:"liquidityRisk" gorm:"column:liquidity_risk;type:jsonb"`
	VolatilityMetrics types.JSONMap       `json:"volatilityMetrics,omitempty" gorm:"column:volatility_metrics;type:jsonb"`
	Recommendations   pq.StringArray      `json:"recommendations" gorm:"column:recommendations;type:text[]"`
	Timestamp         time.Time           `json:"timestamp" gorm:"column:timestamp;autoCreateTime"`
}
