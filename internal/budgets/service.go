package budgets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
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

// Service defines budget-level operations, including the draft/submit/approve
// lifecycle. Submitting or deciding a budget that is not in an eligible state
// returns the budget unchanged.
type Service interface {
	List(ctx context.Context) ([]models.Budget, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Budget, error)
	ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Budget, error)
	ListByStatus(ctx context.Context, status enums.BudgetStatus) ([]models.Budget, error)
	Create(ctx context.Context, input CreateBudgetInput, userID string) (*models.Budget, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateBudgetInput, userID string) (*models.Budget, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	Submit(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error)
	Approve(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error)
	Reject(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error)
}

type service struct {
	repo       Repository
	treasuries treasuries.Repository
	tx         txRunner
	audit      auditRecorder
}

// CreateBudgetInput captures the fields a new budget requires.
type CreateBudgetInput struct {
	Name        string
	Description string
	TreasuryID  uuid.UUID
	TotalAmount decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Categories  []string
	Notes       string
}

// UpdateBudgetInput carries the optional fields of a partial update. Status is
// deliberately absent; the lifecycle methods own status transitions.
type UpdateBudgetInput struct {
	Name        *string
	Description *string
	TotalAmount *decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Categories  []string
	Notes       *string
}

// NewService builds a budget service with the required dependencies.
func NewService(repo Repository, treasuryRepo treasuries.Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("budgets repository required")
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

func (s *service) List(ctx context.Context) ([]models.Budget, error) {
	budgets, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list budgets")
	}
	return budgets, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Budget, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	budget, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
	}
	return budget, nil
}

func (s *service) ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Budget, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	budgets, err := s.repo.FindByTreasuryID(ctx, treasuryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list budgets by treasury")
	}
	return budgets, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.BudgetStatus) ([]models.Budget, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid budget status %q", status))
	}
	budgets, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list budgets by status")
	}
	return budgets, nil
}

func (s *service) Create(ctx context.Context, input CreateBudgetInput, userID string) (*models.Budget, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget name required")
	}
	if input.TreasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if !input.TotalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget total amount must be positive")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget period required")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget end date must be after start date")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	budget := &models.Budget{
		ID:              uuid.New(),
		Name:            input.Name,
		Description:     input.Description,
		TreasuryID:      input.TreasuryID,
		TotalAmount:     input.TotalAmount,
		AllocatedAmount: decimal.Zero,
		SpentAmount:     decimal.Zero,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Status:          enums.BudgetStatusDraft,
		Categories:      pq.StringArray(input.Categories),
		Notes:           input.Notes,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.treasuries.WithTx(tx).FindByID(ctx, input.TreasuryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		if err := repo.Create(ctx, budget); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create budget")
		}

		_, err := s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: budget.TreasuryID,
			EntityType: enums.EntityTypeBudget,
			EntityID:   budget.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(budget),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateBudgetInput, userID string) (*models.Budget, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.Budget
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
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
				return pkgerrors.New(pkgerrors.CodeValidation, "budget name cannot be empty")
			}
			fields["name"] = *input.Name
			next.Name = *input.Name
		}
		if input.Description != nil {
			fields["description"] = *input.Description
			next.Description = *input.Description
		}
		if input.TotalAmount != nil {
			if !input.TotalAmount.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "budget total amount must be positive")
			}
			fields["total_amount"] = *input.TotalAmount
			next.TotalAmount = *input.TotalAmount
		}
		if input.StartDate != nil {
			fields["start_date"] = *input.StartDate
			next.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			fields["end_date"] = *input.EndDate
			next.EndDate = *input.EndDate
		}
		if input.Categories != nil {
			fields["categories"] = pq.StringArray(input.Categories)
			next.Categories = pq.StringArray(input.Categories)
		}
		if input.Notes != nil {
			fields["notes"] = *input.Notes
			next.Notes = *input.Notes
		}
		if !next.EndDate.After(next.StartDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "budget end date must be after start date")
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update budget")
			}
		}

		updated = &next
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeBudget,
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
		return pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete budget")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeBudget,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}

// Submit moves a draft budget into review. Budgets in any other state are
// returned unchanged without an audit entry.
func (s *service) Submit(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, userID, func(budget *models.Budget) map[string]any {
		if budget.Status != enums.BudgetStatusDraft {
			return nil
		}
		budget.Status = enums.BudgetStatusSubmitted
		budget.SubmissionDate = &now
		return map[string]any{
			"status":          enums.BudgetStatusSubmitted,
			"submission_date": now,
		}
	})
}

// Approve accepts a submitted or under-review budget.
func (s *service) Approve(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, userID, func(budget *models.Budget) map[string]any {
		if budget.Status != enums.BudgetStatusSubmitted && budget.Status != enums.BudgetStatusUnderReview {
			return nil
		}
		budget.Status = enums.BudgetStatusApproved
		budget.ApprovalDate = &now
		return map[string]any{
			"status":        enums.BudgetStatusApproved,
			"approval_date": now,
		}
	})
}

// Reject declines a submitted or under-review budget.
func (s *service) Reject(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error) {
	now := time.Now().UTC()
	return s.transition(ctx, id, userID, func(budget *models.Budget) map[string]any {
		if budget.Status != enums.BudgetStatusSubmitted && budget.Status != enums.BudgetStatusUnderReview {
			return nil
		}
		budget.Status = enums.BudgetStatusRejected
		budget.ApprovalDate = &now
		return map[string]any{
			"status":        enums.BudgetStatusRejected,
			"approval_date": now,
		}
	})
}

// transition loads the budget and applies the mutation returned by apply. An
// apply that returns nil fields signals an ineligible state; the current row
// is returned untouched.
func (s *service) transition(ctx context.Context, id uuid.UUID, userID string, apply func(budget *models.Budget) map[string]any) (*models.Budget, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Budget
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		budget, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "budget not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load budget")
		}

		previous := *budget
		fields := apply(budget)
		if fields == nil {
			result = budget
			return nil
		}

		if err := repo.UpdateFields(ctx, id, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update budget status")
		}

		result = budget
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    budget.TreasuryID,
			EntityType:    enums.EntityTypeBudget,
			EntityID:      id,
			Action:        enums.ActionTypeUpdate,
			UserID:        userID,
			PreviousState: audit.Snapshot(&previous),
			NewState:      audit.Snapshot(budget),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
