package assets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/db"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
)

func setupAssetsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
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
  amount NUMERIC NOT NULL,
  current_value NUMERIC NOT NULL,
  treasury_id TEXT NOT NULL,
  metadata TEXT,
  risk_metrics TEXT,
  last_updated DATETIME,
  created_at DATETIME,
  updated_at DATETIME
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

func newAssetsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), treasuries.NewRepository(conn), db.NewWithConn(conn), auditSvc)
	require.NoError(t, err)
	return svc
}

func seedTreasury(t *testing.T, conn *gorm.DB, balance decimal.Decimal) models.Treasury {
	t.Helper()

	treasury := models.Treasury{
		ID:             uuid.New(),
		Name:           "test treasury",
		OrganizationID: "org-1",
		TotalBalance:   balance,
		Currency:       "USD",
	}
	require.NoError(t, conn.Create(&treasury).Error)
	return treasury
}

func treasuryBalance(t *testing.T, conn *gorm.DB, id uuid.UUID) decimal.Decimal {
	t.Helper()

	var treasury models.Treasury
	require.NoError(t, conn.First(&treasury, "id = ?", id).Error)
	return treasury.TotalBalance
}

func TestService_CreateAddsValueToTreasuryBalance(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)
	ctx := context.Background()

	treasury := seedTreasury(t, conn, decimal.RequireFromString("100.00"))

	asset, err := svc.Create(ctx, CreateAssetInput{
		Name:         "Bitcoin",
		Symbol:       "BTC",
		Type:         "crypto",
		Amount:       decimal.RequireFromString("0.5"),
		CurrentValue: decimal.RequireFromString("25000.00"),
		TreasuryID:   treasury.ID,
	}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.False(t, asset.LastUpdated.IsZero())

	balance := treasuryBalance(t, conn, treasury.ID)
	assert.True(t, balance.Equal(decimal.RequireFromString("25100.00")), "got %s", balance)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", asset.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntityTypeAsset, entries[0].EntityType)
	assert.Equal(t, enums.ActionTypeCreate, entries[0].Action)
}

func TestService_CreateMissingTreasuryRollsBack(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)

	_, err := svc.Create(context.Background(), CreateAssetInput{
		Name:         "Orphan",
		Symbol:       "ORP",
		Type:         "crypto",
		Amount:       decimal.NewFromInt(1),
		CurrentValue: decimal.NewFromInt(10),
		TreasuryID:   uuid.New(),
	}, "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	var count int64
	require.NoError(t, conn.Model(&models.Asset{}).Where("symbol = ?", "ORP").Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_UpdateValueShiftsBalanceByDelta(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)
	ctx := context.Background()

	treasury := seedTreasury(t, conn, decimal.Zero)

	asset, err := svc.Create(ctx, CreateAssetInput{
		Name:         "Ether",
		Symbol:       "ETH",
		Type:         "crypto",
		Amount:       decimal.NewFromInt(10),
		CurrentValue: decimal.RequireFromString("2000.00"),
		TreasuryID:   treasury.ID,
	}, "user-1")
	require.NoError(t, err)

	updated, err := svc.UpdateValue(ctx, asset.ID, decimal.RequireFromString("1500.00"), "user-2")
	require.NoError(t, err)
	assert.True(t, updated.CurrentValue.Equal(decimal.RequireFromString("1500.00")))

	balance := treasuryBalance(t, conn, treasury.ID)
	assert.True(t, balance.Equal(decimal.RequireFromString("1500.00")), "got %s", balance)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", asset.ID).Order("timestamp ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActionTypeUpdate, entries[1].Action)
	assert.NotNil(t, entries[1].PreviousState)
	assert.NotNil(t, entries[1].NewState)
}

func TestService_UpdateWithoutValueChangeLeavesBalanceAlone(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)
	ctx := context.Background()

	treasury := seedTreasury(t, conn, decimal.Zero)

	asset, err := svc.Create(ctx, CreateAssetInput{
		Name:         "Gold",
		Symbol:       "XAU",
		Type:         "commodity",
		Amount:       decimal.NewFromInt(3),
		CurrentValue: decimal.RequireFromString("6000.00"),
		TreasuryID:   treasury.ID,
	}, "user-1")
	require.NoError(t, err)

	name := "Gold Bullion"
	updated, err := svc.Update(ctx, asset.ID, UpdateAssetInput{Name: &name}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Gold Bullion", updated.Name)

	balance := treasuryBalance(t, conn, treasury.ID)
	assert.True(t, balance.Equal(decimal.RequireFromString("6000.00")), "got %s", balance)
}

func TestService_DeleteSubtractsValueAndAudits(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)
	ctx := context.Background()

	treasury := seedTreasury(t, conn, decimal.Zero)

	asset, err := svc.Create(ctx, CreateAssetInput{
		Name:         "Treasury Bill",
		Symbol:       "TBILL",
		Type:         "bond",
		Amount:       decimal.NewFromInt(100),
		CurrentValue: decimal.RequireFromString("9900.00"),
		TreasuryID:   treasury.ID,
	}, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, asset.ID, "user-3"))

	balance := treasuryBalance(t, conn, treasury.ID)
	assert.True(t, balance.IsZero(), "got %s", balance)

	var count int64
	require.NoError(t, conn.Model(&models.Asset{}).Where("id = ?", asset.ID).Count(&count).Error)
	assert.Zero(t, count)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", asset.ID).Order("timestamp ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActionTypeDelete, entries[1].Action)
	assert.Nil(t, entries[1].NewState)
}

func TestService_GetMissingAssetReturnsNotFound(t *testing.T) {
	conn := setupAssetsTestDB(t)
	svc := newAssetsService(t, conn)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
