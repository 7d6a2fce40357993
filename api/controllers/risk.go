package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/danielobanda/treasury-backend/api/middleware"
	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/api/validators"
	"github.com/danielobanda/treasury-backend/internal/risk"
	"github.com/danielobanda/treasury-backend/pkg/logger"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

type riskCreateRequest struct {
	TreasuryID        uuid.UUID           `json:"treasuryId" validate:"required"`
	OverallScore      float64             `json:"overallScore"`
	MarketRisk        types.RiskComponent `json:"marketRisk"`
	CounterpartyRisk  types.RiskComponent `json:"counterpartyRisk"`
	LiquidityRisk     types.RiskComponent `json:"liquidityRisk"`
	VolatilityMetrics types.JSONMap       `json:"volatilityMetrics"`
	Recommendations   []string            `json:"recommendations"`
}

type riskUpdateRequest struct {
	OverallScore      *float64             `json:"overallScore"`
	MarketRisk        *types.RiskComponent `json:"marketRisk"`
	CounterpartyRisk  *types.RiskComponent `json:"counterpartyRisk"`
	LiquidityRisk     *types.RiskComponent `json:"liquidityRisk"`
	VolatilityMetrics types.JSONMap        `json:"volatilityMetrics"`
	Recommendations   []string             `json:"recommendations"`
}

func RiskAssessmentList(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func RiskAssessmentDetail(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assessmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assessment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessment)
	}
}

func RiskAssessmentsByTreasury(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
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

func RiskAssessmentLatest(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treasuryID, err := parseUUIDParam(r, "treasuryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assessment, err := svc.LatestByTreasury(r.Context(), treasuryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessment)
	}
}

// RiskAssessmentGenerate derives a fresh assessment from the treasury's
// current asset mix.
func RiskAssessmentGenerate(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treasuryID, err := parseUUIDParam(r, "treasuryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assessment, err := svc.Generate(r.Context(), treasuryID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, assessment)
	}
}

func RiskAssessmentCreate(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload riskCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), risk.CreateRiskAssessmentInput{
			TreasuryID:        payload.TreasuryID,
			OverallScore:      payload.OverallScore,
			MarketRisk:        payload.MarketRisk,
			CounterpartyRisk:  payload.CounterpartyRisk,
			LiquidityRisk:     payload.LiquidityRisk,
			VolatilityMetrics: payload.VolatilityMetrics,
			Recommendations:   payload.Recommendations,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func RiskAssessmentUpdate(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assessmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload riskUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, risk.UpdateRiskAssessmentInput{
			OverallScore:      payload.OverallScore,
			MarketRisk:        payload.MarketRisk,
			CounterpartyRisk:  payload.CounterpartyRisk,
			LiquidityRisk:     payload.LiquidityRisk,
			VolatilityMetrics: payload.VolatilityMetrics,
			Recommendations:   payload.Recommendations,
		}, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func RiskAssessmentDelete(svc risk.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "assessmentId")
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
