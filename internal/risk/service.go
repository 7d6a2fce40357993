package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/danielobanda/treasury-backend/internal/assets"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/internal/treasuries"
	"github.com/danielobanda/treasury-backend/pkg/db/models"
	"github.com/danielobanda/treasury-backend/pkg/enums"
	pkgerrors "github.com/danielobanda/treasury-backend/pkg/errors"
	"github.com/danielobanda/treasury-backend/pkg/types"
)

const defaultAssetVolatility = 0.1

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input audit.RecordEntryInput) (*models.AuditLog, error)
}

// Service produces and manages risk assessments. Every assessment written
// also stamps its overall score onto the owning treasury.
type Service interface {
	List(ctx context.Context) ([]models.RiskAssessment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error)
	ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.RiskAssessment, error)
	LatestByTreasury(ctx context.Context, treasuryID uuid.UUID) (*models.RiskAssessment, error)
	Create(ctx context.Context, input CreateRiskAssessmentInput, userID string) (*models.RiskAssessment, error)
	Generate(ctx context.Context, treasuryID uuid.UUID, userID string) (*models.RiskAssessment, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateRiskAssessmentInput, userID string) (*models.RiskAssessment, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type service struct {
	repo       Repository
	assets     assets.Repository
	treasuries treasuries.Repository
	tx         txRunner
	audit      auditRecorder
}

// CreateRiskAssessmentInput captures a fully formed assessment, typically
// produced by an external risk model rather than Generate.
type CreateRiskAssessmentInput struct {
	TreasuryID        uuid.UUID
	OverallScore      float64
	MarketRisk        types.RiskComponent
	CounterpartyRisk  types.RiskComponent
	LiquidityRisk     types.RiskComponent
	VolatilityMetrics types.JSONMap
	Recommendations   []string
}

// UpdateRiskAssessmentInput carries the optional fields of a partial update.
// Nil fields are left untouched.
type UpdateRiskAssessmentInput struct {
	OverallScore      *float64
	MarketRisk        *types.RiskComponent
	CounterpartyRisk  *types.RiskComponent
	LiquidityRisk     *types.RiskComponent
	VolatilityMetrics types.JSONMap
	Recommendations   []string
}

// NewService builds a risk service with the required dependencies.
func NewService(repo Repository, assetRepo assets.Repository, treasuryRepo treasuries.Repository, tx txRunner, auditSvc auditRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("risk repository required")
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

func (s *service) List(ctx context.Context) ([]models.RiskAssessment, error) {
	assessments, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list risk assessments")
	}
	return assessments, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.RiskAssessment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "risk assessment id required")
	}
	assessment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "risk assessment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load risk assessment")
	}
	return assessment, nil
}

func (s *service) ListByTreasury(ctx context.Context, treasuryID uuid.UUID) ([]models.RiskAssessment, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	assessments, err := s.repo.FindByTreasuryID(ctx, treasuryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list risk assessments by treasury")
	}
	return assessments, nil
}

func (s *service) LatestByTreasury(ctx context.Context, treasuryID uuid.UUID) (*models.RiskAssessment, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	assessment, err := s.repo.FindLatestByTreasuryID(ctx, treasuryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "risk assessment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest risk assessment")
	}
	return assessment, nil
}

func (s *service) Create(ctx context.Context, input CreateRiskAssessmentInput, userID string) (*models.RiskAssessment, error) {
	if input.TreasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	assessment := &models.RiskAssessment{
		ID:                uuid.New(),
		TreasuryID:        input.TreasuryID,
		OverallScore:      input.OverallScore,
		MarketRisk:        input.MarketRisk,
		CounterpartyRisk:  input.CounterpartyRisk,
		LiquidityRisk:     input.LiquidityRisk,
		VolatilityMetrics: input.VolatilityMetrics,
		Recommendations:   pq.StringArray(input.Recommendations),
		Timestamp:         time.Now().UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		treasuryRepo := s.treasuries.WithTx(tx)
		if _, err := treasuryRepo.FindByID(ctx, input.TreasuryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "treasury not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasury")
		}

		if err := s.repo.WithTx(tx).Create(ctx, assessment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create risk assessment")
		}

		if err := treasuryRepo.SetRiskScore(ctx, input.TreasuryID, assessment.OverallScore); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update treasury risk score")
		}

		_, err := s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID: assessment.TreasuryID,
			EntityType: enums.EntityTypeRiskAssessment,
			EntityID:   assessment.ID,
			Action:     enums.ActionTypeCreate,
			UserID:     userID,
			NewState:   audit.Snapshot(assessment),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return assessment, nil
}

// Generate derives an assessment from the treasury's current asset mix and
// persists it through Create.
func (s *service) Generate(ctx context.Context, treasuryID uuid.UUID, userID string) (*models.RiskAssessment, error) {
	if treasuryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "treasury id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	treasuryAssets, err := s.assets.FindByTreasuryID(ctx, treasuryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list treasury assets")
	}

	assetVolatility := types.JSONMap{}
	totalValue := 0.0
	weightedVolatility := 0.0

	for _, asset := range treasuryAssets {
		volatility := defaultAssetVolatility
		if raw, ok := asset.RiskMetrics["volatility"]; ok {
			if v, ok := raw.(float64); ok {
				volatility = v
			}
		}
		assetVolatility[asset.ID.String()] = volatility

		value := asset.CurrentValue.InexactFloat64()
		totalValue += value
		weightedVolatility += volatility * value
	}

	portfolioVolatility := 0.0
	if totalValue > 0 {
		portfolioVolatility = weightedVolatility / totalValue
	}

	marketRiskScore := portfolioVolatility * 5
	counterpartyRiskScore := 2.0
	liquidityRiskScore := 1.5
	overallScore := (marketRiskScore + counterpartyRiskScore + liquidityRiskScore) / 3

	assetConcentration := 1.0
	if len(treasuryAssets) > 0 {
		assetConcentration = 1 / float64(len(treasuryAssets))
	}

	return s.Create(ctx, CreateRiskAssessmentInput{
		TreasuryID:   treasuryID,
		OverallScore: overallScore,
		MarketRisk: types.RiskComponent{
			Score: marketRiskScore,
			Details: types.JSONMap{
				"portfolioVolatility": portfolioVolatility,
				"assetConcentration":  assetConcentration,
			},
		},
		CounterpartyRisk: types.RiskComponent{
			Score: counterpartyRiskScore,
			Details: types.JSONMap{
				"exchangeRisk": 2.0,
				"protocolRisk": 2.5,
			},
		},
		LiquidityRisk: types.RiskComponent{
			Score: liquidityRiskScore,
			Details: types.JSONMap{
				"assetLiquidity": 1.5,
				"withdrawalRisk": 1.2,
			},
		},
		VolatilityMetrics: types.JSONMap{
			"portfolioVolatility": portfolioVolatility,
			"assetVolatility":     assetVolatility,
		},
		Recommendations: buildRecommendations(treasuryAssets, portfolioVolatility),
	}, userID)
}

func buildRecommendations(treasuryAssets []models.Asset, portfolioVolatility float64) []string {
	var recommendations []string

	if len(treasuryAssets) < 3 {
		recommendations = append(recommendations,
			"Consider diversifying your portfolio with more assets to reduce concentration risk.")
	}

	if portfolioVolatility > 0.2 {
		recommendations = append(recommendations,
			"Your portfolio has high volatility. Consider adding stable assets to balance risk.")
	}

	for _, asset := range treasuryAssets {
		if asset.Type == "crypto" && asset.CurrentValue.IsPositive() {
			recommendations = append(recommendations,
				"Cryptocurrency assets can be highly volatile. Monitor market conditions regularly.")
			break
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Your treasury appears to be well-balanced. Continue monitoring market conditions.")
	}
	return recommendations
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateRiskAssessmentInput, userID string) (*models.RiskAssessment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "risk assessment id required")
	}
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var updated *models.RiskAssessment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "risk assessment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load risk assessment")
		}

		fields := map[string]any{}
		next := *existing

		if input.OverallScore != nil {
			fields["overall_score"] = *input.OverallScore
			next.OverallScore = *input.OverallScore
		}
		if input.MarketRisk != nil {
			fields["market_risk"] = *input.MarketRisk
			next.MarketRisk = *input.MarketRisk
		}
		if input.CounterpartyRisk != nil {
			fields["counterparty_risk"] = *input.CounterpartyRisk
			next.CounterpartyRisk = *input.CounterpartyRisk
		}
		if input.LiquidityRisk != nil {
			fields["liquidity_risk"] = *input.LiquidityRisk
			next.LiquidityRisk = *input.LiquidityRisk
		}
		if input.VolatilityMetrics != nil {
			fields["volatility_metrics"] = input.VolatilityMetrics
			next.VolatilityMetrics = input.VolatilityMetrics
		}
		if input.Recommendations != nil {
			fields["recommendations"] = pq.StringArray(input.Recommendations)
			next.Recommendations = pq.StringArray(input.Recommendations)
		}

		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, id, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update risk assessment")
			}
		}

		if input.OverallScore != nil && *input.OverallScore != existing.OverallScore {
			if err := s.treasuries.WithTx(tx).SetRiskScore(ctx, existing.TreasuryID, *input.OverallScore); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update treasury risk score")
			}
		}

		updated = &next
		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeRiskAssessment,
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
		return pkgerrors.New(pkgerrors.CodeValidation, "risk assessment id required")
	}
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "risk assessment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load risk assessment")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete risk assessment")
		}

		_, err = s.audit.Record(ctx, tx, audit.RecordEntryInput{
			TreasuryID:    existing.TreasuryID,
			EntityType:    enums.EntityTypeRiskAssessment,
			EntityID:      id,
			Action:        enums.ActionTypeDelete,
			UserID:        userID,
			PreviousState: audit.Snapshot(existing),
		})
		return err
	})
}
