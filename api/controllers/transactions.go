package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/api/validators"
	"github.com/danielobanda/treasury-backend/internal/transactions"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/logger"
)

type transactionCreateRequest struct {
	Type               string          `json:"type" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"required"`
	TreasuryID         uuid.UUID       `json:"treasuryId" validate:"required"`
	AssetID            *uuid.UUID      `json:"assetId"`
	Description        string          `json:"description"`
	Status             *string         `json:"status"`
	ExternalID         *string         `json:"externalId"`
	SourceAddress      *string         `json:"sourceAddress"`
	DestinationAddress *string         `json:"destinationAddress"`
}

type transactionUpdateRequest struct {
	Description        *string `json:"description"`
	Status             *string `json:"status"`
	ExternalID         *string `json:"externalId"`
	SourceAddress      *string `json:"sourceAddress"`
	DestinationAddress *string `json:"destinationAddress"`
}

func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTransactionStatus(raw)
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

func TransactionDetail(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transaction, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transaction)
	}
}

func TransactionsByTreasury(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
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

func TransactionCreate(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload transactionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), transactions.CreateTransactionInput{
			Type:               strings.TrimSpace(payload.Type),
			Amount:             payload.Amount,
			TreasuryID:         payload.TreasuryID,
			AssetID:            payload.AssetID,
			Description:        payload.Description,
			Status:             payload.Status,
			ExternalID:         payload.ExternalID,
			SourceAddress:      payload.SourceAddress,
			DestinationAddress: payload.DestinationAddress,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func TransactionUpdate(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transactionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, transactions.UpdateTransactionInput{
			Description:        payload.Description,
			Status:             payload.Status,
			ExternalID:         payload.ExternalID,
			SourceAddress:      payload.SourceAddress,
			DestinationAddress: payload.DestinationAddress,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// TransactionComplete marks a transaction completed and applies its movement.
func TransactionComplete(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		completed, err := svc.Complete(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, completed)
	}
}

func TransactionDelete(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "transactionId")
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
