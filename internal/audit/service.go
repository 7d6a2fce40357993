package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/pagination"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

// Service records entity mutations and exposes the read side of the audit trail.
// Record participates in the caller's transaction so an entry never outlives a
// rolled back mutation.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.AuditLog, error)
	List(ctx context.Context, params pagination.Params) (*EntryPage, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	ListByTreasury(ctx context.Context, treasuryID uuid.UUID, params pagination.Params) (*EntryPage, error)
	ListByEntity(ctx context.Context, entityID uuid.UUID, params pagination.Params) (*EntryPage, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data an audit entry requires.
type RecordEntryInput struct {
	TreasuryID    uuid.UUID
	EntityType    enums.EntityType
	EntityID      uuid.UUID
	Action        enums.ActionType
	UserID        string
	IPAddress     *string
	PreviousState types.JSONMap
	NewState      types.JSONMap
}

// EntryPage is one page of audit entries ordered newest first.
type EntryPage struct {
	Entries    []models.AuditLog
	NextCursor string
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.AuditLog, error) {
	if input.TreasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if input.EntityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	if !input.EntityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity type %q", input.EntityType))
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid action type %q", input.Action))
	}
	if input.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	ipAddress := input.IPAddress
	if ipAddress == nil {
		ipAddress = clientIPFromContext(ctx)
	}

	entry := &models.AuditLog{
		ID:            uuid.New(),
		TreasuryID:    input.TreasuryID,
		EntityType:    input.EntityType,
		EntityID:      input.EntityID,
		Action:        input.Action,
		UserID:        input.UserID,
		IPAddress:     ipAddress,
		PreviousState: input.PreviousState,
		NewState:      input.NewState,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create audit entry")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*EntryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, err := s.repo.ListAll(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return buildPage(entries, pagination.NormalizeLimit(params.Limit)), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit entry id required")
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "audit entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit entry")
	}
	return entry, nil
}

func (s *service) ListByTreasury(ctx context.Context, treasuryID uuid.UUID, params pagination.Params) (*EntryPage, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, err := s.repo.ListByTreasuryID(ctx, treasuryID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return buildPage(entries, pagination.NormalizeLimit(params.Limit)), nil
}

func (s *service) ListByEntity(ctx context.Context, entityID uuid.UUID, params pagination.Params) (*EntryPage, error) {
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, err := s.repo.ListByEntityID(ctx, entityID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return buildPage(entries, pagination.NormalizeLimit(params.Limit)), nil
}

func buildPage(entries []models.AuditLog, limit int) *EntryPage {
	page := &EntryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			Timestamp: last.Timestamp,
			ID:        last.ID,
		})
	}
	return page
}
