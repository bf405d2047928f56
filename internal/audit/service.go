package audit

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/engine"
	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
)

// Dispatching abstracts the engine dispatcher so service tests can stub
// provider fan-out.
type Dispatching interface {
	DispatchAll(ctx context.Context, tenantID string, entity model.Entity) ([]model.Evaluation, error)
	DispatchOne(ctx context.Context, tenantID string, entity model.Entity, eng model.Engine) (*model.Evaluation, error)
}

var _ Dispatching = (*engine.Dispatcher)(nil)

// Service runs audits end to end: fan-out, persistence, detection, scoring.
type Service struct {
	store      store.Store
	dispatcher Dispatching
	weights    map[model.Engine]float64
}

// NewService wires an audit service over a store and dispatcher. A nil or
// empty weight table falls back to the built-in defaults.
func NewService(st store.Store, d Dispatching, weights map[model.Engine]float64) *Service {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return &Service{store: st, dispatcher: d, weights: weights}
}

// RunAudit dispatches every provider against the entity's current ground
// truth, records evaluations and newly detected hallucinations, and returns
// the refreshed composite result.
func (s *Service) RunAudit(ctx context.Context, tenantID, entityID string) (*model.TruthAuditResult, error) {
	entity, err := s.store.GetEntity(ctx, tenantID, entityID)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: loading entity %s", entityID)
	}

	evals, err := s.dispatcher.DispatchAll(ctx, tenantID, *entity)
	if err != nil {
		return nil, err
	}

	if _, err := DetectHallucinations(ctx, s.store, evals); err != nil {
		// Evaluations are already persisted; scoring can still proceed.
		zap.L().Error("audit: detection incomplete", zap.String("entity", entityID), zap.Error(err))
	}

	return s.TruthAuditResult(ctx, tenantID, entityID)
}

// RunSingleEngineAudit audits one provider only. Detection still runs so a
// targeted re-audit can mint new ledger records.
func (s *Service) RunSingleEngineAudit(ctx context.Context, tenantID, entityID string, eng model.Engine) (*model.Evaluation, error) {
	if !eng.Valid() {
		return nil, eris.Errorf("audit: unknown provider %q", eng)
	}
	entity, err := s.store.GetEntity(ctx, tenantID, entityID)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: loading entity %s", entityID)
	}

	ev, err := s.dispatcher.DispatchOne(ctx, tenantID, *entity, eng)
	if err != nil {
		return nil, err
	}

	if _, err := DetectHallucinations(ctx, s.store, []model.Evaluation{*ev}); err != nil {
		zap.L().Error("audit: detection incomplete", zap.String("entity", entityID), zap.Error(err))
	}
	return ev, nil
}

// TruthAuditResult derives the composite score from the latest evaluation
// per engine. Nothing is persisted; the result is recomputable at any time.
func (s *Service) TruthAuditResult(ctx context.Context, tenantID, entityID string) (*model.TruthAuditResult, error) {
	latest, err := s.store.LatestEvaluations(ctx, tenantID, entityID)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: loading evaluations for %s", entityID)
	}

	fixed, err := s.store.CountFixedCorrections(ctx, tenantID, entityID)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: counting fixed corrections for %s", entityID)
	}

	scores := make(map[model.Engine]*int, len(latest))
	for eng, ev := range latest {
		scores[eng] = ev.AccuracyScore
	}
	result := Aggregate(s.weights, scores, fixed)
	return &result, nil
}
