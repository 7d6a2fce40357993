package treasuries

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input audit.RecordEntryInput) (*models.AuditLog, error)
}

// Service defines treasury-level operations.
type Service interface {
	List(ctx context.Context) ([]models.Treasury, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Treasury, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Treasury, error)
	Create(ctx context.Context, input CreateTreasuryInput, userID string) (*models.Treasury, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTreasuryInput, userID string) (*models.Treasury, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	CalculateTotalBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	audit auditRecorder
}

// CreateTreasuryInput captures the fields a new treasury requires.
type CreateTreasuryInput struct {
	Name           string
	Description    string
	OrganizationID string
	Currency       string
}

// UpdateTreasuryInput carries the optional fields of a partial update. Nil
// fields are left untouched.
type UpdateTreasuryInput struct {
	Name        *string
	Description *string
	Currency    *string
}

// NewService builds a treasury service with the required dependencies.
func NewService(repo Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("treasuries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: auditSvc}, nil
}

func (s *service) List(ctx context.Context) ([]models.Treasury, error) {
	treasuries, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list treasuries")
	}
	return treasuries, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Treasury, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	treasury, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
	}
	return treasury, nil
}

func (s *service) ListByOrganization(ctx context.Context, organizationID string) ([]models.Treasury, error) {
	if organizationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	treasuries, err := s.repo.FindByOrganizationID(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list treasuries by organization")
	}
	return treasuries, nil
}

func (s *service) Create(ctx context.Context, input CreateTreasuryInput, userID string) (*models.Treasury, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury name required")
	}
	if input.OrganizationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	treasury := &models.Treasury{
		ID:             uuid.New(),
		Name:           input.Name,
		Description:    input.Description,
		OrganizationID: input.OrganizationID,
		TotalBalance:   decimal.Zero,
		Currency:       currency,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, treasury); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create treasury")
		}

		_, err := s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: treasury.ID,
			EntityType: enums.EntityTypeTreasury,
			EntityID:   treasury.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(treasury),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return treasury, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTreasuryInput, userID string) (*models.Treasury, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Treasury
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		fields := map[string]any{}
		next := *existing
		if input.Name != nil {
			if *input.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "treasury name cannot be empty")
			}
			fields["name"] = *input.Name
			next.Name = *input.Name
		}
		if input.Description != nil {
			fields["description"] = *input.Description
			next.Description = *input.Description
		}
		if input.Currency != nil {
			if *input.Currency == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "currency cannot be empty")
			}
			fields["currency"] = *input.Currency
			next.Currency = *input.Currency
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update treasury")
			}
		}

		updated = &next
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    id,
			EntityType:    enums.EntityTypeTreasury,
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
		return pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete treasury")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    id,
			EntityType:    enums.EntityTypeTreasury,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}

// CalculateTotalBalance recomputes the balance aggregate from the treasury's
// assets and persists the result.
func (s *service) CalculateTotalBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	if id == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}

	var total decimal.Decimal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		sum, err := repo.SumAssetValues(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum asset values")
		}

		if err := repo.UpdateFields(ctx, id, map[string]any{"total_balance": sum}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist total balance")
		}
		total = sum
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
