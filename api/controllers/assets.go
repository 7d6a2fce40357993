package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/api/validators"
	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/pkg/logger"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

type assetCreateRequest struct {
	Name         string          `json:"name" validate:"required"`
	Symbol       string          `json:"symbol" validate:"required"`
	Type         string          `json:"type" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	TreasuryID   uuid.UUID       `json:"treasuryId" validate:"required"`
	Metadata     types.JSONMap   `json:"metadata"`
	RiskMetrics  types.JSONMap   `json:"riskMetrics"`
}

type assetUpdateRequest struct {
	Name         *string          `json:"name"`
	Symbol       *string          `json:"symbol"`
	Type         *string          `json:"type"`
	Amount       *decimal.Decimal `json:"amount"`
	CurrentValue *decimal.Decimal `json:"currentValue"`
	Metadata     types.JSONMap    `json:"metadata"`
	RiskMetrics  types.JSONMap    `json:"riskMetrics"`
}

type assetValueRequest struct {
	CurrentValue decimal.Decimal `json:"currentValue" validate:"required"`
}

func AssetList(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AssetDetail(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

func AssetsByTreasury(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
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

func AssetCreate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload assetCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), assets.CreateAssetInput{
			Name:         strings.TrimSpace(payload.Name),
			Symbol:       strings.TrimSpace(payload.Symbol),
			Type:         strings.TrimSpace(payload.Type),
			Amount:       payload.Amount,
			CurrentValue: payload.CurrentValue,
			TreasuryID:   payload.TreasuryID,
			Metadata:     payload.Metadata,
			RiskMetrics:  payload.RiskMetrics,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AssetUpdate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assetUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, assets.UpdateAssetInput{
			Name:         payload.Name,
			Symbol:       payload.Symbol,
			Type:         payload.Type,
			Amount:       payload.Amount,
			CurrentValue: payload.CurrentValue,
			Metadata:     payload.Metadata,
			RiskMetrics:  payload.RiskMetrics,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AssetUpdateValue marks an asset to market.
func AssetUpdateValue(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assetValueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateValue(r.Context(), id, payload.CurrentValue, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func AssetDelete(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assetId")
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
