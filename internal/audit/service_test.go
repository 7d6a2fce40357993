package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/pagination"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

type fakeRepository struct {
	createFn           func(ctx context.Context, entry *models.AuditLog) error
	findByIDFn         func(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	listAllFn          func(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	listByTreasuryFn   func(ctx context.Context, treasuryID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
	listByEntityItemFn func(ctx context.Context, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListAll(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx, cursor, limit)
	}
	return nil, nil
}

func (f *fakeRepository) ListByTreasuryID(ctx context.Context, treasuryID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	if f.listByTreasuryFn != nil {
		return f.listByTreasuryFn(ctx, treasuryID, cursor, limit)
	}
	return nil, nil
}

func (f *fakeRepository) ListByEntityID(ctx context.Context, entityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
	if f.listByEntityItemFn != nil {
		return f.listByEntityItemFn(ctx, entityID, cursor, limit)
	}
	return nil, nil
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := RecordEntryInput{
		TreasuryID:    uuid.New(),
		EntityType:    enums.EntityTypeBudget,
		EntityID:      uuid.New(),
		Action:        enums.ActionTypeCreate,
		UserID:        "user-42",
		PreviousState: nil,
		NewState:      types.JSONMap{"name": "ops budget"},
	}

	var created *models.AuditLog
	repo.createFn = func(ctx context.Context, entry *models.AuditLog) error {
		created = entry
		return nil
	}

	got, err := svc.Record(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created == nil {
		t.Fatal("expected audit entry to be created")
	}
	if created.TreasuryID != input.TreasuryID || created.EntityID != input.EntityID {
		t.Fatalf("unexpected audit entry data: %+v", created)
	}
	if created.EntityType != input.EntityType || created.Action != input.Action {
		t.Fatalf("unexpected entity/action: %+v", created)
	}
	if created.UserID != input.UserID {
		t.Fatalf("missing user id: %+v", created)
	}
	if created.PreviousState != nil {
		t.Fatalf("expected nil previous state for create, got %+v", created.PreviousState)
	}
	if got != created {
		t.Fatal("service should return created entry")
	}
}

func TestService_RecordStampsClientIP(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	var created *models.AuditLog
	repo.createFn = func(ctx context.Context, entry *models.AuditLog) error {
		created = entry
		return nil
	}

	input := RecordEntryInput{
		TreasuryID: uuid.New(),
		EntityType: enums.EntityTypeAsset,
		EntityID:   uuid.New(),
		Action:     enums.ActionTypeUpdate,
		UserID:     "user-7",
	}

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if _, err := svc.Record(ctx, nil, input); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created.IPAddress == nil || *created.IPAddress != "203.0.113.7" {
		t.Fatalf("expected entry to carry request address, got %+v", created.IPAddress)
	}

	explicit := "198.51.100.4"
	input.IPAddress = &explicit
	if _, err := svc.Record(ctx, nil, input); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created.IPAddress == nil || *created.IPAddress != explicit {
		t.Fatalf("explicit address should win over context, got %+v", created.IPAddress)
	}

	input.IPAddress = nil
	if _, err := svc.Record(context.Background(), nil, input); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created.IPAddress != nil {
		t.Fatalf("expected nil address without request context, got %q", *created.IPAddress)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	valid := RecordEntryInput{
		TreasuryID: uuid.New(),
		EntityType: enums.EntityTypeAsset,
		EntityID:   uuid.New(),
		Action:     enums.ActionTypeUpdate,
		UserID:     "user-1",
	}

	cases := []struct {
		name   string
		mutate func(input *RecordEntryInput)
	}{
		{"missing treasury id", func(input *RecordEntryInput) { input.TreasuryID = uuid.Nil }},
		{"missing entity id", func(input *RecordEntryInput) { input.EntityID = uuid.Nil }},
		{"invalid entity type", func(input *RecordEntryInput) { input.EntityType = "mystery" }},
		{"invalid action", func(input *RecordEntryInput) { input.Action = "upsert" }},
		{"missing user", func(input *RecordEntryInput) { input.UserID = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			if _, err := svc.Record(context.Background(), nil, input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestService_ListByTreasuryBuildsNextCursor(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	base := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	entries := make([]models.AuditLog, 0, 3)
	for i := 0; i < 3; i++ {
		entries = append(entries, models.AuditLog{
			ID:        uuid.New(),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	repo.listByTreasuryFn = func(ctx context.Context, treasuryID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
		if limit != 3 {
			t.Fatalf("expected limit+1 = 3, got %d", limit)
		}
		return entries, nil
	}

	page, err := svc.ListByTreasury(context.Background(), uuid.New(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListByTreasury error: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID != entries[1].ID {
		t.Fatalf("cursor should point at last returned entry")
	}
}

func TestService_ListBuildsNextCursor(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	base := time.Date(2025, 8, 11, 9, 0, 0, 0, time.UTC)
	entries := make([]models.AuditLog, 0, 3)
	for i := 0; i < 3; i++ {
		entries = append(entries, models.AuditLog{
			ID:        uuid.New(),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	repo.listAllFn = func(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.AuditLog, error) {
		if limit != 3 {
			t.Fatalf("expected limit+1 = 3, got %d", limit)
		}
		return entries, nil
	}

	page, err := svc.List(context.Background(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}
}

func TestService_Get(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	want := &models.AuditLog{ID: uuid.New()}
	repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
		if id != want.ID {
			t.Fatalf("unexpected lookup id %s", id)
		}
		return want, nil
	}

	got, err := svc.Get(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != want {
		t.Fatal("service should return the repository entry")
	}
}

func TestService_GetMissingEntry(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.Nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code for nil id, got %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New())
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestService_ListByEntityRejectsNilID(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.ListByEntity(context.Background(), uuid.Nil, pagination.Params{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}
