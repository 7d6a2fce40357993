package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input audit.RecordEntryInput) (*models.AuditLog, error)
}

// Service defines asset-level operations. Every value mutation keeps the
// owning treasury's total balance in step inside the same transaction.
type Service interface {
	List(ctx context.Context) ([]models.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Asset, error)
	ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Asset, error)
	Create(ctx context.Context, input CreateAssetInput, userID string) (*models.Asset, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAssetInput, userID string) (*models.Asset, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	UpdateValue(ctx context.Context, id uuid.UUID, currentValue decimal.Decimal, userID string) (*models.Asset, error)
}

type service struct {
	repo       Repository
	treasuries treasuries.Repository
	tx         txRunner
	audit      auditRecorder
}

// CreateAssetInput captures the fields a new asset requires.
type CreateAssetInput struct {
	Name         string
	Symbol       string
	Type         string
	Amount       decimal.Decimal
	CurrentValue decimal.Decimal
	TreasuryID   uuid.UUID
	Metadata     types.JSONMap
	RiskMetrics  types.JSONMap
}

// UpdateAssetInput carries the optional fields of a partial update. Nil
// fields are left untouched.
type UpdateAssetInput struct {
	Name         *string
	Symbol       *string
	Type         *string
	Amount       *decimal.Decimal
	CurrentValue *decimal.Decimal
	Metadata     types.JSONMap
	RiskMetrics  types.JSONMap
}

// NewService builds an asset service with the required dependencies.
func NewService(repo Repository, treasuryRepo treasuries.Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assets repository required")
	}
	if treasuryRepo == nil {
		return nil, fmt.Errorf("treasuries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:       repo,
		treasuries: treasuryRepo,
		tx:         tx,
		audit:      auditSvc,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Asset, error) {
	assets, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assets")
	}
	return assets, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	return asset, nil
}

func (s *service) ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Asset, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	assets, err := s.repo.FindByTreasuryID(ctx, treasuryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assets by treasury")
	}
	return assets, nil
}

func (s *service) Create(ctx context.Context, input CreateAssetInput, userID string) (*models.Asset, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset name required")
	}
	if input.Symbol == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset symbol required")
	}
	if input.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset type required")
	}
	if input.TreasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset amount cannot be negative")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	asset := &models.Asset{
		ID:           uuid.New(),
		Name:         input.Name,
		Symbol:       input.Symbol,
		Type:         input.Type,
		Amount:       input.Amount,
		CurrentValue: input.CurrentValue,
		TreasuryID:   input.TreasuryID,
		Metadata:     input.Metadata,
		RiskMetrics:  input.RiskMetrics,
		LastUpdated:  time.Now().UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		treasuryRepo := s.treasuries.WithTx(tx)

		if _, err := treasuryRepo.FindByID(ctx, input.TreasuryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		if err := repo.Create(ctx, asset); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create asset")
		}

		if err := treasuryRepo.AddToTotalBalance(ctx, input.TreasuryID, asset.CurrentValue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply balance delta")
		}

		_, err := s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: asset.TreasuryID,
			EntityType: enums.EntityTypeAsset,
			EntityID:   asset.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(asset),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAssetInput, userID string) (*models.Asset, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Asset
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}

		now := time.Now().UTC()
		fields := map[string]any{"last_updated": now}
		next := *existing
		next.LastUpdated = now

		if input.Name != nil {
			fields["name"] = *input.Name
			next.Name = *input.Name
		}
		if input.Symbol != nil {
			fields["symbol"] = *input.Symbol
			next.Symbol = *input.Symbol
		}
		if input.Type != nil {
			fields["type"] = *input.Type
			next.Type = *input.Type
		}
		if input.Amount != nil {
			if input.Amount.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "asset amount cannot be negative")
			}
			fields["amount"] = *input.Amount
			next.Amount = *input.Amount
		}
		if input.CurrentValue != nil {
			fields["current_value"] = *input.CurrentValue
			next.CurrentValue = *input.CurrentValue
		}
		if input.Metadata != nil {
			fields["metadata"] = input.Metadata
			next.Metadata = input.Metadata
		}
		if input.RiskMetrics != nil {
			fields["risk_metrics"] = input.RiskMetrics
			next.RiskMetrics = input.RiskMetrics
		}

		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update asset")
		}

		if input.CurrentValue != nil && !input.CurrentValue.Equal(existing.CurrentValue) {
			delta := input.CurrentValue.Sub(existing.CurrentValue)
			if err := s.applyBalanceDelta(ctx, tx, existing.TreasuryID, delta); err != nil {
				return err
			}
		}

		updated = &next
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeAsset,
			EntityID:      id,
			Action:        enums.ActionTypeUpdate,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
			NewState:      audit.Snapshot(updated),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
		}

		if err := s.applyBalanceDelta(ctx, tx, existing.TreasuryID, existing.CurrentValue.Neg()); err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete asset")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeAsset,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}

// UpdateValue marks an asset to market and shifts the treasury balance by the
// value difference.
func (s *service) UpdateValue(ctx context.Context, id uuid.UUID, currentValue decimal.Decimal, userID string) (*models.Asset, error) {
	return s.Update(ctx, id, UpdateAssetInput{CurrentValue: &currentValue}, userID)
}

func (s *service) applyBalanceDelta(ctx context.Context, tx *gorm.DB, treasuryID uuid.UUID, delta decimal.Decimal) error {
	treasuryRepo := s.treasuries.WithTx(tx)
	if _, err := treasuryRepo.FindByID(ctx, treasuryID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
	}
	if err := treasuryRepo.AddToTotalBalance(ctx, treasuryID, delta); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply balance delta")
	}
	return nil
}
