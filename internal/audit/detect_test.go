package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

type memoryLedger struct {
	active  map[string]bool
	inserts []model.Hallucination
}

func (m *memoryLedger) ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error) {
	return m.active[claimKey], nil
}

func (m *memoryLedger) InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error) {
	h.ID = "h-new"
	h.Status = model.StatusOpen
	m.inserts = append(m.inserts, h)
	return &h, nil
}

func TestDetectHallucinations_CreatesOpenRecords(t *testing.T) {
	ledger := &memoryLedger{active: map[string]bool{}}
	evals := []model.Evaluation{{
		TenantID: "t1",
		EntityID: "e1",
		Engine:   model.EngineChatGPT,
		Inaccuracies: []model.Inaccuracy{
			{Claim: "The cafe closes at 5pm", Expected: "closes at 9pm", Severity: model.SeverityHigh},
		},
	}}

	created, err := DetectHallucinations(context.Background(), ledger, evals)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.StatusOpen, created[0].Status)
	assert.Equal(t, "the cafe closes at 5", created[0].ClaimKey)
	assert.Equal(t, model.EngineChatGPT, created[0].Engine)
}

// A claim whose key matches an open or verifying record is a restatement,
// not a new hallucination.
func TestDetectHallucinations_DedupesByClaimKey(t *testing.T) {
	ledger := &memoryLedger{active: map[string]bool{
		model.ClaimKey("The cafe closes at 5pm"): true,
	}}
	evals := []model.Evaluation{{
		TenantID: "t1",
		EntityID: "e1",
		Engine:   model.EngineClaude,
		Inaccuracies: []model.Inaccuracy{
			{Claim: "the cafe closes at 5PM sharp, every day"},
			{Claim: "wrong phone number listed"},
		},
	}}

	created, err := DetectHallucinations(context.Background(), ledger, evals)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.ClaimKey("wrong phone number listed"), created[0].ClaimKey)
}

// Fallback evaluations carry diagnostics, not claims.
func TestDetectHallucinations_SkipsFallbackEvaluations(t *testing.T) {
	ledger := &memoryLedger{active: map[string]bool{}}
	evals := []model.Evaluation{{
		TenantID: "t1",
		EntityID: "e1",
		Engine:   model.EngineGemini,
		Fallback: true,
		Inaccuracies: []model.Inaccuracy{
			{Claim: "gemini integration not configured", Severity: model.SeverityLow},
		},
	}}

	created, err := DetectHallucinations(context.Background(), ledger, evals)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, ledger.inserts)
}

func TestDetectHallucinations_NormalizesSeverity(t *testing.T) {
	ledger := &memoryLedger{active: map[string]bool{}}
	evals := []model.Evaluation{{
		TenantID:     "t1",
		EntityID:     "e1",
		Engine:       model.EngineChatGPT,
		Inaccuracies: []model.Inaccuracy{{Claim: "stale menu prices"}},
	}}

	created, err := DetectHallucinations(context.Background(), ledger, evals)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.SeverityMedium, created[0].Severity)
}
