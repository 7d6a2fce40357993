package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/pagination"
)

// Repository manages persistence for audit log entries. Entries are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	ListByTreasuryID(ctx context.Context, treasuryID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	ListByEntityID(ctx context.Context, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	var entry models.AuditLog
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	return r.list(r.db.WithContext(ctx), cursor, limit)
}

func (r *repository) ListByTreasuryID(ctx context.Context, treasuryID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).
		Where("treasury_id = ?", treasuryID)
	return r.list(query, cursor, limit)
}

func (r *repository) ListByEntityID(ctx context.Context, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID)
	return r.list(query, cursor, limit)
}

func (r *repository) list(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	if cursor != nil {
		query = query.Where(
			"(timestamp < ?) OR (timestamp = ? AND id < ?)",
			cursor.Timestamp, cursor.Timestamp, cursor.ID,
		)
	}

	var entries []models.AuditLog
	if err := query.
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
