package allocations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/budgets"
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

// Service defines allocation-level operations. Amount mutations keep the
// owning budget's allocated amount in step inside the same transaction.
// Approving or releasing an allocation that is not in an eligible state
// returns the allocation unchanged.
type Service interface {
	List(ctx context.Context) ([]models.Allocation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Allocation, error)
	ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Allocation, error)
	ListByStatus(ctx context.Context, status enums.AllocationStatus) ([]models.Allocation, error)
	Create(ctx context.Context, input CreateAllocationInput, userID string) (*models.Allocation, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAllocationInput, userID string) (*models.Allocation, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	Approve(ctx context.Context, id uuid.UUID, userID string) (*models.Allocation, error)
	Release(ctx context.Context, id uuid.UUID, userID string) (*models.Allocation, error)
}

type service struct {
	repo    Repository
	budgets budgets.Repository
	tx      txRunner
	audit   auditRecorder
}

// CreateAllocationInput captures the fields a new allocation requires.
type CreateAllocationInput struct {
	Name        string
	Description string
	BudgetID    uuid.UUID
	Amount      decimal.Decimal
	RecipientID *string
	Tags        []string
	Notes       string
}

// UpdateAllocationInput carries the optional fields of a partial update.
// Status is deliberately absent; Approve and Release own status transitions.
type UpdateAllocationInput struct {
	Name        *string
	Description *string
	Amount      *decimal.Decimal
	RecipientID *string
	Tags        []string
	Notes       *string
}

// NewService builds an allocation service with the required dependencies.
func NewService(repo Repository, budgetRepo budgets.Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocations repository required")
	}
	if budgetRepo == nil {
		return nil, fmt.Errorf("budgets repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:    repo,
		budgets: budgetRepo,
		tx:      tx,
		audit:   auditSvc,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Allocation, error) {
	allocations, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocations")
	}
	return allocations, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Allocation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	allocation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
	}
	return allocation, nil
}

func (s *service) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Allocation, error) {
	if budgetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	allocations, err := s.repo.FindByBudgetID(ctx, budgetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocations by budget")
	}
	return allocations, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.AllocationStatus) ([]models.Allocation, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid allocation status %q", status))
	}
	allocations, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocations by status")
	}
	return allocations, nil
}

func (s *service) Create(ctx context.Context, input CreateAllocationInput, userID string) (*models.Allocation, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation name required")
	}
	if input.BudgetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	allocation := &models.Allocation{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		BudgetID:    input.BudgetID,
		Amount:      input.Amount,
		RecipientID: input.RecipientID,
		Status:      enums.AllocationStatusPending,
		Tags:        pq.StringArray(input.Tags),
		Notes:       input.Notes,
		Approvers:   types.ApproverList{},
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		budgetRepo := s.budgets.WithTx(tx)

		budget, err := budgetRepo.FindByID(ctx, input.BudgetID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		if err := repo.Create(ctx, allocation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create allocation")
		}

		if err := budgetRepo.AddToAllocatedAmount(ctx, budget.ID, allocation.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply allocated amount delta")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: budget.TreasuryID,
			EntityType: enums.EntityTypeAllocation,
			EntityID:   allocation.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(allocation),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return allocation, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAllocationInput, userID string) (*models.Allocation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Allocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		budgetRepo := s.budgets.WithTx(tx)

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}

		budget, err := budgetRepo.FindByID(ctx, existing.BudgetID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		fields := map[string]any{}
		next := *existing
		if input.Name != nil {
			if *input.Name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "allocation name cannot be empty")
			}
			fields["name"] = *input.Name
			next.Name = *input.Name
		}
		if input.Description != nil {
			fields["description"] = *input.Description
			next.Description = *input.Description
		}
		if input.Amount != nil {
			if !input.Amount.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive")
			}
			fields["amount"] = *input.Amount
			next.Amount = *input.Amount
		}
		if input.RecipientID != nil {
			fields["recipient_id"] = *input.RecipientID
			next.RecipientID = input.RecipientID
		}
		if input.Tags != nil {
			fields["tags"] = pq.StringArray(input.Tags)
			next.Tags = pq.StringArray(input.Tags)
		}
		if input.Notes != nil {
			fields["notes"] = *input.Notes
			next.Notes = *input.Notes
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update allocation")
			}
		}

		if input.Amount != nil && !input.Amount.Equal(existing.Amount) {
			delta := input.Amount.Sub(existing.Amount)
			if err := budgetRepo.AddToAllocatedAmount(ctx, budget.ID, delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply allocated amount delta")
			}
		}

		updated = &next
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    budget.TreasuryID,
			EntityType:    enums.EntityTypeAllocation,
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
		return pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		budgetRepo := s.budgets.WithTx(tx)

		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}

		budget, err := budgetRepo.FindByID(ctx, existing.BudgetID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		if err := budgetRepo.AddToAllocatedAmount(ctx, budget.ID, existing.Amount.Neg()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply allocated amount delta")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete allocation")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    budget.TreasuryID,
			EntityType:    enums.EntityTypeAllocation,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}

// Approve moves a pending allocation to approved and appends the caller to the
// approval trail.
func (s *service) Approve(ctx context.Context, id uuid.UUID, userID string) (*models.Allocation, error) {
	return s.transition(ctx, id, userID, func(allocation *models.Allocation, now time.Time) map[string]any {
		if allocation.Status != enums.AllocationStatusPending {
			return nil
		}
		approvers := append(allocation.Approvers, types.Approver{UserID: userID, Timestamp: now})
		allocation.Status = enums.AllocationStatusApproved
		allocation.Approvers = approvers
		return map[string]any{
			"status":    enums.AllocationStatusApproved,
			"approvers": approvers,
		}
	})
}

// Release disburses an approved allocation.
func (s *service) Release(ctx context.Context, id uuid.UUID, userID string) (*models.Allocation, error) {
	return s.transition(ctx, id, userID, func(allocation *models.Allocation, now time.Time) map[string]any {
		if allocation.Status != enums.AllocationStatusApproved {
			return nil
		}
		allocation.Status = enums.AllocationStatusReleased
		allocation.ReleasedAt = &now
		return map[string]any{
			"status":      enums.AllocationStatusReleased,
			"released_at": now,
		}
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, userID string, apply func(allocation *models.Allocation, now time.Time) map[string]any) (*models.Allocation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Allocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		allocation, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}

		previous := *allocation
		fields := apply(allocation, time.Now().UTC())
		if fields == nil {
			result = allocation
			return nil
		}

		budget, err := s.budgets.WithTx(tx).FindByID(ctx, allocation.BudgetID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update allocation status")
		}

		result = allocation
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    budget.TreasuryID,
			EntityType:    enums.EntityTypeAllocation,
			EntityID:      id,
			Action:        enums.ActionTypeUpdate,
			UserID:        userID,
			PreviousState: audit.Snapshot(&previous),
			NewState:      audit.Snapshot(allocation),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
