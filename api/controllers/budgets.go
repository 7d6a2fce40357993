package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/api/validators"
	"github.com/danielobanda/treasury-backend/internal/budgets"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/logger"
)

type budgetCreateRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	TreasuryID  uuid.UUID       `json:"treasuryId" validate:"required"`
	TotalAmount decimal.Decimal `json:"totalAmount" validate:"required"`
	StartDate   time.Time       `json:"startDate" validate:"required"`
	EndDate     time.Time       `json:"endDate" validate:"required"`
	Categories  []string        `json:"categories"`
	Notes       string          `json:"notes"`
}

type budgetUpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	StartDate   *time.Time       `json:"startDate"`
	EndDate     *time.Time       `json:"endDate"`
	Categories  []string         `json:"categories"`
	Notes       *string          `json:"notes"`
}

func BudgetList(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseBudgetStatus(raw)
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

func BudgetDetail(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "budgetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		budget, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, budget)
	}
}

func BudgetsByTreasury(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treasuryID, err := parseUUIDParam(r, "treasuryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByTreasury(r.Context(), treasuryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func BudgetCreate(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload budgetCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), budgets.CreateBudgetInput{
			Name:        strings.TrimSpace(payload.Name),
			Description: payload.Description,
			TreasuryID:  payload.TreasuryID,
			TotalAmount: payload.TotalAmount,
			StartDate:   payload.StartDate,
			EndDate:     payload.EndDate,
			Categories:  payload.Categories,
			Notes:       payload.Notes,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func BudgetUpdate(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "budgetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload budgetUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, budgets.UpdateBudgetInput{
			Name:        payload.Name,
			Description: payload.Description,
			TotalAmount: payload.TotalAmount,
			StartDate:   payload.StartDate,
			EndDate:     payload.EndDate,
			Categories:  payload.Categories,
			Notes:       payload.Notes,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func BudgetDelete(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "budgetId")
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

func BudgetSubmit(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return budgetTransition("budgetId", svc.Submit, logg)
}

func BudgetApprove(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return budgetTransition("budgetId", svc.Approve, logg)
}

func BudgetReject(svc budgets.Service, logg *logger.Logger) http.HandlerFunc {
	return budgetTransition("budgetId", svc.Reject, logg)
}

func budgetTransition(param string, fn func(ctx context.Context, id uuid.UUID, userID string) (*models.Budget, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		budget, err := fn(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, budget)
	}
}
