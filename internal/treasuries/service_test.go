package treasuries

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
	"github.com/danielobanda/treasury-backend/pkg/db"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
)

func setupTreasuriesTestDB(t *testing.T) *gorm.DB {
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

func newTreasuriesService(t *testing.T, conn *gorm.DB) (Service, *gorm.DB) {
	t.Helper()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), auditSvc)
	require.NoError(t, err)
	return svc, conn
}

func auditEntriesFor(t *testing.T, conn *gorm.DB, entityID uuid.UUID) []models.AuditLog {
	t.Helper()

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", entityID).Order("timestamp ASC").Find(&entries).Error)
	return entries
}

func TestService_CreateWritesAuditEntry(t *testing.T) {
	svc, conn := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	treasury, err := svc.Create(ctx, CreateTreasuryInput{
		Name:           "Operating Treasury",
		Description:    "Main operating funds",
		OrganizationID: "org-1",
	}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, treasury)
	assert.Equal(t, "USD", treasury.Currency)
	assert.True(t, treasury.TotalBalance.IsZero())

	entries := auditEntriesFor(t, conn, treasury.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntityTypeTreasury, entries[0].EntityType)
	assert.Equal(t, enums.ActionTypeCreate, entries[0].Action)
	assert.Equal(t, "user-1", entries[0].UserID)
	assert.Nil(t, entries[0].PreviousState)
	assert.Equal(t, "Operating Treasury", entries[0].NewState["name"])
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTreasuryInput{OrganizationID: "org-1"}, "user-1")
	assert.Error(t, err)

	_, err = svc.Create(ctx, CreateTreasuryInput{Name: "x"}, "user-1")
	assert.Error(t, err)

	_, err = svc.Create(ctx, CreateTreasuryInput{Name: "x", OrganizationID: "org-1"}, "")
	assert.Error(t, err)
}

func TestService_UpdateAppliesPartialFields(t *testing.T) {
	svc, conn := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	treasury, err := svc.Create(ctx, CreateTreasuryInput{
		Name:           "Reserve",
		OrganizationID: "org-2",
		Currency:       "EUR",
	}, "user-1")
	require.NoError(t, err)

	name := "Strategic Reserve"
	updated, err := svc.Update(ctx, treasury.ID, UpdateTreasuryInput{Name: &name}, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Strategic Reserve", updated.Name)
	assert.Equal(t, "EUR", updated.Currency)

	var persisted models.Treasury
	require.NoError(t, conn.First(&persisted, "id = ?", treasury.ID).Error)
	assert.Equal(t, "Strategic Reserve", persisted.Name)

	entries := auditEntriesFor(t, conn, treasury.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActionTypeUpdate, entries[1].Action)
	assert.Equal(t, "Reserve", entries[1].PreviousState["name"])
	assert.Equal(t, "Strategic Reserve", entries[1].NewState["name"])
}

func TestService_UpdateMissingTreasuryReturnsNotFound(t *testing.T) {
	svc, _ := newTreasuriesService(t, setupTreasuriesTestDB(t))

	name := "ghost"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateTreasuryInput{Name: &name}, "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_DeleteRemovesRowAndAudits(t *testing.T) {
	svc, conn := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	treasury, err := svc.Create(ctx, CreateTreasuryInput{
		Name:           "Retired",
		OrganizationID: "org-3",
	}, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, treasury.ID, "user-9"))

	var count int64
	require.NoError(t, conn.Model(&models.Treasury{}).Where("id = ?", treasury.ID).Count(&count).Error)
	assert.Zero(t, count)

	entries := auditEntriesFor(t, conn, treasury.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActionTypeDelete, entries[1].Action)
	assert.Nil(t, entries[1].NewState)
	assert.Equal(t, "Retired", entries[1].PreviousState["name"])
}

func TestService_CalculateTotalBalanceSumsAssets(t *testing.T) {
	svc, conn := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	treasury, err := svc.Create(ctx, CreateTreasuryInput{
		Name:           "Funded",
		OrganizationID: "org-4",
	}, "user-1")
	require.NoError(t, err)

	for _, value := range []string{"1000.50", "249.50"} {
		asset := models.Asset{
			ID:           uuid.New(),
			Name:         "holding",
			Symbol:       "HLD",
			Type:         "stablecoin",
			Amount:       decimal.NewFromInt(1),
			CurrentValue: decimal.RequireFromString(value),
			TreasuryID:   treasury.ID,
		}
		require.NoError(t, conn.Create(&asset).Error)
	}

	total, err := svc.CalculateTotalBalance(ctx, treasury.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1250.00")), "got %s", total)

	var persisted models.Treasury
	require.NoError(t, conn.First(&persisted, "id = ?", treasury.ID).Error)
	assert.True(t, persisted.TotalBalance.Equal(total))
}

func TestService_GetAndListByOrganization(t *testing.T) {
	svc, _ := newTreasuriesService(t, setupTreasuriesTestDB(t))
	ctx := context.Background()

	org := "org-" + uuid.NewString()
	first, err := svc.Create(ctx, CreateTreasuryInput{Name: "A", OrganizationID: org}, "user-1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTreasuryInput{Name: "B", OrganizationID: org}, "user-1")
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	listed, err := svc.ListByOrganization(ctx, org)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsNotFound(err))
}
