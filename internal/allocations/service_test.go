package allocations

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

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/budgets"
	"github.com/danielobanda/treasury-backend/pkg/db"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
)

func setupAllocationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS budgets (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  treasury_id TEXT NOT NULL,
  total_amount NUMERIC NOT NULL,
  allocated_amount NUMERIC NOT NULL DEFAULT 0,
  spent_amount NUMERIC NOT NULL DEFAULT 0,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  categories TEXT,
  notes TEXT NOT NULL DEFAULT '',
  submission_date DATETIME,
  approval_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS allocations (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  budget_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  recipient_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  tags TEXT,
  notes TEXT NOT NULL DEFAULT '',
  approvers TEXT,
  released_at DATETIME,
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

func newAllocationsService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), budgets.NewRepository(conn), db.NewWithConn(conn), auditSvc)
	require.NoError(t, err)
	return svc
}

func seedBudget(t *testing.T, conn *gorm.DB) models.Budget {
	t.Helper()

	budget := models.Budget{
		ID:          uuid.New(),
		Name:        "ops budget",
		TreasuryID:  uuid.New(),
		TotalAmount: decimal.RequireFromString("10000.00"),
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:      enums.BudgetStatusApproved,
	}
	require.NoError(t, conn.Create(&budget).Error)
	return budget
}

func allocatedAmount(t *testing.T, conn *gorm.DB, budgetID uuid.UUID) decimal.Decimal {
	t.Helper()

	var budget models.Budget
	require.NoError(t, conn.First(&budget, "id = ?", budgetID).Error)
	return budget.AllocatedAmount
}

func TestService_CreateAddsToBudgetAllocatedAmount(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "vendor payout",
		BudgetID: budget.ID,
		Amount:   decimal.RequireFromString("1500.00"),
		Tags:     []string{"vendor"},
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusPending, allocation.Status)
	assert.Empty(t, allocation.Approvers)

	allocated := allocatedAmount(t, conn, budget.ID)
	assert.True(t, allocated.Equal(decimal.RequireFromString("1500.00")), "got %s", allocated)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", allocation.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.EntityTypeAllocation, entries[0].EntityType)
	assert.Equal(t, budget.TreasuryID, entries[0].TreasuryID)
}

func TestService_CreateMissingBudgetRollsBack(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)

	_, err := svc.Create(context.Background(), CreateAllocationInput{
		Name:     "orphan allocation",
		BudgetID: uuid.New(),
		Amount:   decimal.NewFromInt(50),
	}, "user-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	var count int64
	require.NoError(t, conn.Model(&models.Allocation{}).Where("name = ?", "orphan allocation").Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_UpdateAmountShiftsAllocatedByDelta(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "grant",
		BudgetID: budget.ID,
		Amount:   decimal.RequireFromString("2000.00"),
	}, "user-1")
	require.NoError(t, err)

	amount := decimal.RequireFromString("2500.00")
	updated, err := svc.Update(ctx, allocation.ID, UpdateAllocationInput{Amount: &amount}, "user-2")
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))

	allocated := allocatedAmount(t, conn, budget.ID)
	assert.True(t, allocated.Equal(decimal.RequireFromString("2500.00")), "got %s", allocated)
}

func TestService_UpdateWithoutAmountLeavesAllocatedAlone(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "stipend",
		BudgetID: budget.ID,
		Amount:   decimal.RequireFromString("300.00"),
	}, "user-1")
	require.NoError(t, err)

	notes := "monthly stipend"
	_, err = svc.Update(ctx, allocation.ID, UpdateAllocationInput{Notes: &notes}, "user-1")
	require.NoError(t, err)

	allocated := allocatedAmount(t, conn, budget.ID)
	assert.True(t, allocated.Equal(decimal.RequireFromString("300.00")), "got %s", allocated)
}

func TestService_DeleteSubtractsFromAllocated(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "one-off",
		BudgetID: budget.ID,
		Amount:   decimal.RequireFromString("750.00"),
	}, "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, allocation.ID, "user-2"))

	allocated := allocatedAmount(t, conn, budget.ID)
	assert.True(t, allocated.IsZero(), "got %s", allocated)

	var entries []models.AuditLog
	require.NoError(t, conn.Where("entity_id = ?", allocation.ID).Order("timestamp ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActionTypeDelete, entries[1].Action)
}

func TestService_ApproveAppendsApprover(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "bonus pool",
		BudgetID: budget.ID,
		Amount:   decimal.RequireFromString("5000.00"),
	}, "user-1")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, allocation.ID, "approver-1")
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusApproved, approved.Status)
	require.Len(t, approved.Approvers, 1)
	assert.Equal(t, "approver-1", approved.Approvers[0].UserID)

	var persisted models.Allocation
	require.NoError(t, conn.First(&persisted, "id = ?", allocation.ID).Error)
	require.Len(t, persisted.Approvers, 1)
}

func TestService_ApproveNonPendingIsSilentNoOp(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "double approve",
		BudgetID: budget.ID,
		Amount:   decimal.NewFromInt(100),
	}, "user-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, allocation.ID, "approver-1")
	require.NoError(t, err)

	again, err := svc.Approve(ctx, allocation.ID, "approver-2")
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusApproved, again.Status)
	assert.Len(t, again.Approvers, 1)

	var count int64
	require.NoError(t, conn.Model(&models.AuditLog{}).Where("entity_id = ?", allocation.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestService_ReleaseRequiresApproved(t *testing.T) {
	conn := setupAllocationsTestDB(t)
	svc := newAllocationsService(t, conn)
	ctx := context.Background()

	budget := seedBudget(t, conn)

	allocation, err := svc.Create(ctx, CreateAllocationInput{
		Name:     "disbursement",
		BudgetID: budget.ID,
		Amount:   decimal.NewFromInt(900),
	}, "user-1")
	require.NoError(t, err)

	// pending -> release is a no-op
	result, err := svc.Release(ctx, allocation.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusPending, result.Status)
	assert.Nil(t, result.ReleasedAt)

	_, err = svc.Approve(ctx, allocation.ID, "approver-1")
	require.NoError(t, err)

	released, err := svc.Release(ctx, allocation.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, enums.AllocationStatusReleased, released.Status)
	require.NotNil(t, released.ReleasedAt)
}
