package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
)

// auditStore is an in-memory store.Store covering the paths the audit
// service touches.
type auditStore struct {
	entities       map[string]model.Entity
	latest         map[model.Engine]model.Evaluation
	fixedCount     int
	hallucinations []model.Hallucination
}

func (s *auditStore) UpsertEntity(ctx context.Context, e model.Entity) (*model.Entity, error) {
	return &e, nil
}

func (s *auditStore) GetEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	e, ok := s.entities[entityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *auditStore) ListEntities(ctx context.Context, tenantID string) ([]model.Entity, error) {
	return nil, nil
}

func (s *auditStore) DeleteEntity(ctx context.Context, tenantID, entityID string) error {
	return nil
}

func (s *auditStore) InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	return &ev, nil
}

func (s *auditStore) LatestEvaluations(ctx context.Context, tenantID, entityID string) (map[model.Engine]model.Evaluation, error) {
	return s.latest, nil
}

func (s *auditStore) ListEvaluations(ctx context.Context, tenantID, entityID string, limit int) ([]model.Evaluation, error) {
	return nil, nil
}

func (s *auditStore) InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error) {
	s.hallucinations = append(s.hallucinations, h)
	return &h, nil
}

func (s *auditStore) GetHallucination(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	return nil, store.ErrNotFound
}

func (s *auditStore) ListHallucinations(ctx context.Context, tenantID, entityID string) ([]model.Hallucination, error) {
	return s.hallucinations, nil
}

func (s *auditStore) ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error) {
	for _, h := range s.hallucinations {
		if h.ClaimKey == claimKey {
			return true, nil
		}
	}
	return false, nil
}

func (s *auditStore) BeginVerification(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	return nil, store.ErrNotFound
}

func (s *auditStore) TransitionStatus(ctx context.Context, tenantID, id string, from, to model.CorrectionStatus, stampResolved bool) error {
	return nil
}

func (s *auditStore) Dismiss(ctx context.Context, tenantID, id string) error { return nil }

func (s *auditStore) CountFixedCorrections(ctx context.Context, tenantID, entityID string) (int, error) {
	return s.fixedCount, nil
}

func (s *auditStore) Migrate(ctx context.Context) error { return nil }
func (s *auditStore) Close() error                      { return nil }

type stubDispatcher struct {
	evals []model.Evaluation
	err   error
}

func (d *stubDispatcher) DispatchAll(ctx context.Context, tenantID string, entity model.Entity) ([]model.Evaluation, error) {
	return d.evals, d.err
}

func (d *stubDispatcher) DispatchOne(ctx context.Context, tenantID string, entity model.Entity, eng model.Engine) (*model.Evaluation, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, ev := range d.evals {
		if ev.Engine == eng {
			return &ev, nil
		}
	}
	return nil, errors.New("no stub evaluation")
}

func TestRunAudit_DetectsAndScores(t *testing.T) {
	score := 75
	dispatched := []model.Evaluation{{
		TenantID:      "t1",
		EntityID:      "e1",
		Engine:        model.EngineChatGPT,
		AccuracyScore: &score,
		Inaccuracies:  []model.Inaccuracy{{Claim: "wrong opening hours"}},
		CreatedAt:     time.Now(),
	}}
	st := &auditStore{
		entities: map[string]model.Entity{"e1": {ID: "e1", TenantID: "t1"}},
		latest:   map[model.Engine]model.Evaluation{model.EngineChatGPT: dispatched[0]},
	}
	svc := NewService(st, &stubDispatcher{evals: dispatched}, nil)

	result, err := svc.RunAudit(context.Background(), "t1", "e1")
	require.NoError(t, err)
	require.NotNil(t, result.TruthScore)
	assert.Equal(t, 75, *result.TruthScore)
	assert.Equal(t, 1, result.EnginesReporting)

	require.Len(t, st.hallucinations, 1)
	assert.Equal(t, model.ClaimKey("wrong opening hours"), st.hallucinations[0].ClaimKey)
}

func TestRunAudit_UnknownEntity(t *testing.T) {
	st := &auditStore{entities: map[string]model.Entity{}}
	svc := NewService(st, &stubDispatcher{}, nil)

	_, err := svc.RunAudit(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunSingleEngineAudit(t *testing.T) {
	score := 88
	st := &auditStore{entities: map[string]model.Entity{"e1": {ID: "e1", TenantID: "t1"}}}
	svc := NewService(st, &stubDispatcher{evals: []model.Evaluation{{
		TenantID:      "t1",
		EntityID:      "e1",
		Engine:        model.EngineGemini,
		AccuracyScore: &score,
	}}}, nil)

	ev, err := svc.RunSingleEngineAudit(context.Background(), "t1", "e1", model.EngineGemini)
	require.NoError(t, err)
	assert.Equal(t, model.EngineGemini, ev.Engine)

	_, err = svc.RunSingleEngineAudit(context.Background(), "t1", "e1", model.Engine("copilot"))
	assert.Error(t, err)
}

func TestTruthAuditResult_UsesFixedHistory(t *testing.T) {
	score := 95
	st := &auditStore{
		latest: map[model.Engine]model.Evaluation{
			model.EngineChatGPT: {Engine: model.EngineChatGPT, AccuracyScore: &score},
		},
		fixedCount: 2,
	}
	svc := NewService(st, &stubDispatcher{}, nil)

	result, err := svc.TruthAuditResult(context.Background(), "t1", "e1")
	require.NoError(t, err)
	assert.True(t, result.Consensus)

	st.fixedCount = 0
	result, err = svc.TruthAuditResult(context.Background(), "t1", "e1")
	require.NoError(t, err)
	assert.False(t, result.Consensus)
}
