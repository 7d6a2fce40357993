package budgets

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
)

// Repository manages persistence for budgets, including the allocated amount
// aggregate the allocations module maintains.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, budget *models.Budget) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Budget, error)
	FindAll(ctx context.Context) ([]models.Budget, error)
	FindByTreasuryID(ctx context.Context, treasuryID uuid.UUID) ([]models.Budget, error)
	FindByStatus(ctx context.Context, status enums.BudgetStatus) ([]models.Budget, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddToAllocatedAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a budget repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, budget *models.Budget) error {
	return r.db.WithContext(ctx).Create(budget).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Budget, error) {
	var budget models.Budget
	if err := r.db.WithContext(ctx).First(&budget, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *repository) FindAll(ctx context.Context) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repository) FindByTreasuryID(ctx context.Context, treasuryID uuid.UUID) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := r.db.WithContext(ctx).
		Where("treasury_id = ?", treasuryID).
		Order("created_at DESC").
		Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repository) FindByStatus(ctx context.Context, status enums.BudgetStatus) ([]models.Budget, error) {
	var budgets []models.Budget
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Budget{}, "id = ?", id).Error
}

// AddToAllocatedAmount shifts the allocation aggregate in SQL so concurrent
// allocation writes cannot clobber each other's reads.
func (r *repository) AddToAllocatedAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Budget{}).
		Where("id = ?", id).
		UpdateColumn("allocated_amount", gorm.Expr("allocated_amount + ?", delta)).Error
}
