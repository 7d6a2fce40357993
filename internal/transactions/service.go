package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/db"
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

// Service defines transaction operations. Completing a transaction is the
// moment its movement is applied to the referenced asset's holdings.
type Service interface {
	List(ctx context.Context) ([]models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Transaction, error)
	ListByStatus(ctx context.Context, status enums.TransactionStatus) ([]models.Transaction, error)
	Create(ctx context.Context, input CreateTransactionInput, userID string) (*models.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTransactionInput, userID string) (*models.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	Complete(ctx context.Context, id uuid.UUID, userID string) (*models.Transaction, error)
}

type service struct {
	repo       Repository
	assets     assets.Repository
	treasuries treasuries.Repository
	tx         txRunner
	audit      auditRecorder
}

// CreateTransactionInput captures the fields a new transaction requires.
// Status defaults to pending; creating one already completed applies the
// asset movement immediately.
type CreateTransactionInput struct {
	Type               string
	Amount             decimal.Decimal
	TreasuryID         uuid.UUID
	AssetID            *uuid.UUID
	Description        string
	Status             *string
	ExternalID         *string
	SourceAddress      *string
	DestinationAddress *string
}

// UpdateTransactionInput carries the optional fields of a partial update. Nil
// fields are left untouched. Setting Status to completed applies the asset
// movement.
type UpdateTransactionInput struct {
	Description        *string
	Status             *string
	ExternalID         *string
	SourceAddress      *string
	DestinationAddress *string
}

// NewService builds a transaction service with the required dependencies.
func NewService(repo Repository, assetRepo assets.Repository, treasuryRepo treasuries.Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if assetRepo == nil {
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
		assets:     assetRepo,
		treasuries: treasuryRepo,
		tx:         tx,
		audit:      auditSvc,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Transaction, error) {
	transactions, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return transactions, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	transaction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return transaction, nil
}

func (s *service) ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.Transaction, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	transactions, err := s.repo.FindByTreasuryID(ctx, treasuryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions by treasury")
	}
	return transactions, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.TransactionStatus) ([]models.Transaction, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", status))
	}
	transactions, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions by status")
	}
	return transactions, nil
}

func (s *service) Create(ctx context.Context, input CreateTransactionInput, userID string) (*models.Transaction, error) {
	txType, err := enums.ParseTransactionType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse transaction type")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if input.TreasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	status := enums.TransactionStatusPending
	if input.Status != nil {
		parsed, err := enums.ParseTransactionStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse transaction status")
		}
		status = parsed
	}

	transaction := &models.Transaction{
		ID:                 uuid.New(),
		Type:               txType,
		Amount:             input.Amount,
		TreasuryID:         input.TreasuryID,
		AssetID:            input.AssetID,
		Description:        input.Description,
		Status:             status,
		ExternalID:         input.ExternalID,
		SourceAddress:      input.SourceAddress,
		DestinationAddress: input.DestinationAddress,
	}
	if status == enums.TransactionStatusCompleted {
		now := time.Now().UTC()
		transaction.CompletedAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.treasuries.WithTx(tx).FindByID(ctx, input.TreasuryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		if input.AssetID != nil {
			if _, err := s.assets.WithTx(tx).FindByID(ctx, *input.AssetID); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
			}
		}

		if err := repo.Create(ctx, transaction); err != nil {
			// external_id carries the only unique index besides the primary key
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction with this external id already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}

		if transaction.Status == enums.TransactionStatusCompleted {
			if err := s.applyCompletion(ctx, tx, transaction); err != nil {
				return err
			}
		}

		_, err := s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: transaction.TreasuryID,
			EntityType: enums.EntityTypeTransaction,
			EntityID:   transaction.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(transaction),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTransactionInput, userID string) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var status *enums.TransactionStatus
	if input.Status != nil {
		parsed, err := enums.ParseTransactionStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse transaction status")
		}
		status = &parsed
	}

	var updated *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}

		fields := map[string]any{}
		if input.Description != nil {
			fields["description"] = *input.Description
		}
		if input.ExternalID != nil {
			fields["external_id"] = *input.ExternalID
		}
		if input.SourceAddress != nil {
			fields["source_address"] = *input.SourceAddress
		}
		if input.DestinationAddress != nil {
			fields["destination_address"] = *input.DestinationAddress
		}

		completing := status != nil &&
			*status == enums.TransactionStatusCompleted &&
			existing.Status != enums.TransactionStatusCompleted
		if status != nil {
			fields["status"] = *status
			if completing {
				fields["completed_at"] = time.Now().UTC()
			}
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
			}
		}

		if completing {
			if err := s.applyCompletion(ctx, tx, existing); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transaction")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeTransaction,
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
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete transaction")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeTransaction,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}

// Complete moves a transaction to completed, applying its asset movement.
func (s *service) Complete(ctx context.Context, id uuid.UUID, userID string) (*models.Transaction, error) {
	status := enums.TransactionStatusCompleted.String()
	return s.Update(ctx, id, UpdateTransactionInput{Status: &status}, userID)
}

// applyCompletion adjusts asset holdings for the transaction's movement.
// Deposits add to the asset amount, withdrawals subtract; transfers and swaps
// move value between treasuries without changing holdings here.
func (s *service) applyCompletion(ctx context.Context, tx *gorm.DB, transaction *models.Transaction) error {
	if transaction.AssetID == nil {
		return nil
	}

	var delta decimal.Decimal
	switch transaction.Type {
	case enums.TransactionTypeDeposit:
		delta = transaction.Amount
	case enums.TransactionTypeWithdrawal:
		delta = transaction.Amount.Neg()
	default:
		return nil
	}

	assetRepo := s.assets.WithTx(tx)
	if _, err := assetRepo.FindByID(ctx, *transaction.AssetID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asset")
	}
	if err := assetRepo.AddToAmount(ctx, *transaction.AssetID, delta); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply asset movement")
	}
	return nil
}
