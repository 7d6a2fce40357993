package risk

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/db"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

func setupRiskTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS treasuries (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  organization_id TEXT NOT NULL,
  total_balance NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  risk_score NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  symbol TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL DEFAULT 0,
  current_value NUMERIC NOT NULL DEFAULT 0,
  treasury_id TEXT NOT NULL,
  metadata TEXT,
  risk_metrics TEXT,
  last_updated DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS risk_assessments (
  id TEXT PRIMARY KEY,
  treasury_id TEXT NOT NULL,
  overall_score NUMERIC NOT NULL,
  market_risk TEXT,
  counterparty_risk TEXT,
  liquidity_risk TEXT,
  volatility_metrics TEXT,
  recommendations TEXT,
  timestamp DATETIME
);`, `
CREATE TABLE IF NOT EXISTS audit_logs (
  id TEXT PRIMARY KEY,
  treasury_id TEXT NOT NULL,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  action TEXT NOT NULL,
  user_id TEXT NOT NULL,
  ip_address TEXT,
  timestamp DATETIME,
  previous_state TEXT,
  new_state TEXT
);`}

	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newRiskService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(conn),
		assets.NewRepository(conn),
		treasuries.NewRepository(conn),
		db.NewWithConn(conn),
		auditSvc,
	)
	require.NoError(t, err)
	return svc
}

func seedRiskTreasury(t *testing.T, conn *gorm.DB) models.Treasury {
	t.Helper()

	treasury := models.Treasury{
		ID:             uuid.New(),
		Name:           "main treasury",
		OrganizationID: "org-1",
		Currency:       "USD",
	}
	require.NoError(t, conn.Create(&treasury).Error)
	return treasury
}

func seedRiskAsset(t *testing.T, conn *gorm.DB, treasuryID uuid.UUID, assetType, value string, volatility *float64) models.Asset {
	t.Helper()

	asset := models.Asset{
		ID:           uuid.New(),
		Name:         assetType + " holding",
		Symbol:       "SYM",
		Type:         assetType,
		CurrentValue: decimal.RequireFromString(value),
		TreasuryID:   treasuryID,
	}
	if volatility != nil {
		asset.RiskMetrics = types.JSONMap{"volatility": *volatility}
	}
	require.NoError(t, conn.Create(&asset).Error)
	return asset
}

func treasuryRiskScore(t *testing.T, conn *gorm.DB, id uuid.UUID) float64 {
	t.Helper()

	var treasury models.Treasury
	require.NoError(t, conn.First(&treasury, "id = ?", id).Error)
	return treasury.RiskScore
}

func TestService_GenerateEmptyTreasury(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)

	// no assets: zero market risk, fixed counterparty and liquidity scores
	assert.InDelta(t, 0, assessment.MarketRisk.Score, 1e-9)
	assert.InDelta(t, 2, assessment.CounterpartyRisk.Score, 1e-9)
	assert.InDelta(t, 1.5, assessment.LiquidityRisk.Score, 1e-9)
	assert.InDelta(t, 3.5/3, assessment.OverallScore, 1e-9)

	require.Len(t, assessment.Recommendations, 1)
	assert.Contains(t, assessment.Recommendations[0], "diversifying")

	assert.InDelta(t, assessment.OverallScore, treasuryRiskScore(t, conn, treasury.ID), 1e-9)
}

func TestService_GenerateWeightsVolatilityByValue(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)
	highVol := 0.3
	crypto := seedRiskAsset(t, conn, treasury.ID, "crypto", "600", &highVol)
	seedRiskAsset(t, conn, treasury.ID, "stablecoin", "400", nil)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)

	// (0.3*600 + 0.1*400) / 1000 = 0.22
	assert.InDelta(t, 0.22, assessment.VolatilityMetrics["portfolioVolatility"], 1e-9)
	assert.InDelta(t, 1.1, assessment.MarketRisk.Score, 1e-9)
	assert.InDelta(t, (1.1+2+1.5)/3, assessment.OverallScore, 1e-9)
	assert.InDelta(t, 0.5, assessment.MarketRisk.Details["assetConcentration"], 1e-9)

	perAsset, ok := assessment.VolatilityMetrics["assetVolatility"].(types.JSONMap)
	require.True(t, ok)
	assert.InDelta(t, 0.3, perAsset[crypto.ID.String()], 1e-9)

	// two assets, high volatility, crypto exposure
	require.Len(t, assessment.Recommendations, 3)
	assert.Contains(t, assessment.Recommendations[0], "diversifying")
	assert.Contains(t, assessment.Recommendations[1], "high volatility")
	assert.Contains(t, assessment.Recommendations[2], "Cryptocurrency")
}

func TestService_GenerateAuditsAndPersists(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)

	var persisted models.RiskAssessment
	require.NoError(t, conn.First(&persisted, "id = ?", assessment.ID).Error)
	assert.Equal(t, treasury.ID, persisted.TreasuryID)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", assessment.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntityTypeRiskAssessment, entries[0].EntityType)
	assert.Equal(t, enums.ActionTypeCreate, entries[0].Action)
}

func TestService_CreateMissingTreasuryRollsBack(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)

	_, err := svc.Create(context.Background(), CreateRiskAssessmentInput{
		TreasuryID:   uuid.New(),
		OverallScore: 2.0,
	}, "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	var count int64
	require.NoError(t, conn.Model(&models.RiskAssessment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_LatestByTreasuryReturnsNewest(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	older := models.RiskAssessment{
		ID:           uuid.New(),
		TreasuryID:   treasury.ID,
		OverallScore: 1.0,
		Timestamp:    time.Now().UTC().Add(-time.Hour),
	}
	newer := models.RiskAssessment{
		ID:           uuid.New(),
		TreasuryID:   treasury.ID,
		OverallScore: 3.0,
		Timestamp:    time.Now().UTC(),
	}
	require.NoError(t, conn.Create(&older).Error)
	require.NoError(t, conn.Create(&newer).Error)

	latest, err := svc.LatestByTreasury(ctx, treasury.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	history, err := svc.ListByTreasury(ctx, treasury.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].ID)
}

func TestService_UpdateOverallScorePropagatesToTreasury(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)

	score := 4.2
	updated, err := svc.Update(ctx, assessment.ID, UpdateRiskAssessmentInput{OverallScore: &score}, "user-2")
	require.NoError(t, err)
	assert.InDelta(t, 4.2, updated.OverallScore, 1e-9)
	assert.InDelta(t, 4.2, treasuryRiskScore(t, conn, treasury.ID), 1e-9)
}

func TestService_UpdateRecommendationsOnlyKeepsTreasuryScore(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)
	before := treasuryRiskScore(t, conn, treasury.ID)

	updated, err := svc.Update(ctx, assessment.ID, UpdateRiskAssessmentInput{
		Recommendations: []string{"Review custody arrangements quarterly."},
	}, "user-2")
	require.NoError(t, err)
	require.Len(t, updated.Recommendations, 1)

	assert.InDelta(t, before, treasuryRiskScore(t, conn, treasury.ID), 1e-9)
}

func TestService_DeleteAudits(t *testing.T) {
	conn := setupRiskTestDB(t)
	svc := newRiskService(t, conn)
	ctx := context.Background()

	treasury := seedRiskTreasury(t, conn)

	assessment, err := svc.Generate(ctx, treasury.ID, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, assessment.ID, "user-2"))

	_, err = svc.Get(ctx, assessment.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ? AND action = ?", assessment.ID, enums.ActionTypeDelete).Find(&entries).Error)
	require.Len(t, entries, 1)
}
