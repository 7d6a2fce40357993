package risk

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
)

// Repository manages persistence for risk assessments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assessment *models.RiskAssessment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error)
	FindAll(ctx context.Context) ([]models.RiskAssessment, error)
	FindByTreasuryID(ctx context.Context, treasuryID uuid.UUID) ([]models.RiskAssessment, error)
	FindLatestByTreasuryID(ctx context.Context, treasuryID uuid.UUID) (*models.RiskAssessment, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a risk assessment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assessment *models.RiskAssessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error) {
	var assessment models.RiskAssessment
	if err := r.db.WithContext(ctx).First(&assessment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *repository) FindAll(ctx context.Context) ([]models.RiskAssessment, error) {
	var assessments []models.RiskAssessment
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *repository) FindByTreasuryID(ctx context.Context, treasuryID uuid.UUID) ([]models.RiskAssessment, error) {
	var assessments []models.RiskAssessment
	if err := r.db.WithContext(ctx).
		Where("treasury_id = ?", treasuryID).
		Order("timestamp DESC").
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *repository) FindLatestByTreasuryID(ctx context.Context, treasuryID uuid.UUID) (*models.RiskAssessment, error) {
	var assessment models.RiskAssessment
	if err := r.db.WithContext(ctx).
		Where("treasury_id = ?", treasuryID).
		Order("timestamp DESC").
		First(&assessment).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RiskAssessment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.RiskAssessment{}, "id = ?", id).Error
}
