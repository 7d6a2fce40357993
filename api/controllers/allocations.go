package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/api/validators"
	"github.com/danielobanda/treasury-backend/internal/allocations"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/logger"
)

type allocationCreateRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	BudgetID    uuid.UUID       `json:"budgetId" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	RecipientID *string         `json:"recipientId"`
	Tags        []string        `json:"tags"`
	Notes       string          `json:"notes"`
}

type allocationUpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	RecipientID *string          `json:"recipientId"`
	Tags        []string         `json:"tags"`
	Notes       *string          `json:"notes"`
}

func AllocationList(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAllocationStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			rows, err := svc.ListByStatus(r.Context(), status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, rows)
			return
		}

		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AllocationDetail(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}

func AllocationsByBudget(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		budgetID, err := parseUUIDParam(r, "budgetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByBudget(r.Context(), budgetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AllocationCreate(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload allocationCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), allocations.CreateAllocationInput{
			Name:        strings.TrimSpace(payload.Name),
			Description: payload.Description,
			BudgetID:    payload.BudgetID,
			Amount:      payload.Amount,
			RecipientID: payload.RecipientID,
			Tags:        payload.Tags,
			Notes:       payload.Notes,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AllocationUpdate(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allocationUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, allocations.UpdateAllocationInput{
			Name:        payload.Name,
			Description: payload.Description,
			Amount:      payload.Amount,
			RecipientID: payload.RecipientID,
			Tags:        payload.Tags,
			Notes:       payload.Notes,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AllocationDelete(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func AllocationApprove(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return allocationTransition(svc.Approve, logg)
}

func AllocationRelease(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return allocationTransition(svc.Release, logg)
}

func allocationTransition(fn func(ctx context.Context, id uuid.UUID, userID string) (*models.Allocation, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := fn(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}
