package allocations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
)

// Repository manages persistence for allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, allocation *models.Allocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Allocation, error)
	FindAll(ctx context.Context) ([]models.Allocation, error)
	FindByBudgetID(ctx context.Context, budgetID uuid.UUID) ([]models.Allocation, error)
	FindByStatus(ctx context.Context, status enums.AllocationStatus) ([]models.Allocation, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an allocation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, allocation *models.Allocation) error {
	return r.db.WithContext(ctx).Create(allocation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Allocation, error) {
	var allocation models.Allocation
	if err := r.db.WithContext(ctx).First(&allocation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &allocation, nil
}

func (r *repository) FindAll(ctx context.Context) ([]models.Allocation, error) {
	var allocations []models.Allocation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) FindByBudgetID(ctx context.Context, budgetID uuid.UUID) ([]models.Allocation, error) {
	var allocations []models.Allocation
	if err := r.db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("created_at DESC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) FindByStatus(ctx context.Context, status enums.AllocationStatus) ([]models.Allocation, error) {
	var allocations []models.Allocation
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Allocation{}, "id = ?", id).Error
}
