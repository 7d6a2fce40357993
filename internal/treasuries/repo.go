package treasuries

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
)

// Repository manages persistence for treasuries, including the balance and
// risk aggregates other modules maintain on the row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, treasury *models.Treasury) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Treasury, error)
	FindAll(ctx context.Context) ([]models.Treasury, error)
	FindByOrganizationID(ctx context.Context, organizationID string) ([]models.Treasury, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddToTotalBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
	SetRiskScore(ctx context.Context, id uuid.UUID, score float64) error
	SumAssetValues(ctx context.Context, treasuryID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a treasury repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, treasury *models.Treasury) error {
	return r.db.WithContext(ctx).Create(treasury).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Treasury, error) {
	var treasury models.Treasury
	if err := r.db.WithContext(ctx).First(&treasury, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &treasury, nil
}

func (r *repository) FindAll(ctx context.Context) ([]models.Treasury, error) {
	var treasuries []models.Treasury
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&treasuries).Error; err != nil {
		return nil, err
	}
	return treasuries, nil
}

func (r *repository) FindByOrganizationID(ctx context.Context, organizationID string) ([]models.Treasury, error) {
	var treasuries []models.Treasury
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&treasuries).Error; err != nil {
		return nil, err
	}
	return treasuries, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Treasury{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.Treasury{}, "id = ?", id).Error
}

// AddToTotalBalance shifts the balance aggregate in SQL so concurrent asset
// mutations cannot clobber each other's reads.
func (r *repository) AddToTotalBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Treasury{}).
		Where("id = ?", id).
		UpdateColumn("total_balance", gorm.Expr("total_balance + ?", delta)).Error
}

func (r *repository) SetRiskScore(ctx context.Context, id uuid.UUID, score float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Treasury{}).
		Where("id = ?", id).
		UpdateColumn("risk_score", score).Error
}

func (r *repository) SumAssetValues(ctx context.Context, treasuryID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Asset{}).
		Where("treasury_id = ?", treasuryID).
		Select("COALESCE(SUM(current_value), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
