package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

type stubAdapter struct {
	engine  model.Engine
	outcome Outcome
	calls   int
}

func (s *stubAdapter) Engine() model.Engine { return s.engine }
func (s *stubAdapter) Configured() bool     { return true }
func (s *stubAdapter) Evaluate(ctx context.Context, prompt string) Outcome {
	s.calls++
	return s.outcome
}

type memoryWriter struct {
	mu      sync.Mutex
	inserts []model.Evaluation
	failFor map[model.Engine]error
}

func (w *memoryWriter) InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.failFor[ev.Engine]; ok {
		return nil, err
	}
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now()
	w.inserts = append(w.inserts, ev)
	return &ev, nil
}

func scored(engine model.Engine, score int) *stubAdapter {
	return &stubAdapter{engine: engine, outcome: Outcome{AccuracyScore: score, RawReply: "{}"}}
}

func degraded(engine model.Engine) *stubAdapter {
	return &stubAdapter{engine: engine, outcome: Outcome{
		AccuracyScore: FallbackScore,
		Inaccuracies:  []model.Inaccuracy{{Claim: "integration not configured", Severity: model.SeverityLow}},
		Fallback:      true,
	}}
}

func newTestRegistry(adapters ...Adapter) *Registry {
	r := NewRegistry()
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func TestDispatchAll_AllSucceed(t *testing.T) {
	writer := &memoryWriter{}
	d := NewDispatcher(newTestRegistry(
		scored(model.EngineChatGPT, 90),
		scored(model.EngineClaude, 85),
	), writer, time.Second)

	evals, err := d.DispatchAll(context.Background(), "t1", model.Entity{ID: "e1", Name: "Cafe 42"})
	require.NoError(t, err)
	assert.Len(t, evals, 2)
	for _, ev := range evals {
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "t1", ev.TenantID)
		assert.Equal(t, "e1", ev.EntityID)
		require.NotNil(t, ev.AccuracyScore)
	}
}

// A provider that degrades to fallback still yields a persisted record; a
// failed insert drops only that provider's record.
func TestDispatchAll_PartialTolerance(t *testing.T) {
	writer := &memoryWriter{failFor: map[model.Engine]error{
		model.EngineGemini: errors.New("insert failed"),
	}}
	d := NewDispatcher(newTestRegistry(
		scored(model.EngineChatGPT, 90),
		degraded(model.EngineClaude),
		scored(model.EngineGemini, 75),
	), writer, time.Second)

	evals, err := d.DispatchAll(context.Background(), "t1", model.Entity{ID: "e1"})
	require.NoError(t, err)
	require.Len(t, evals, 2)

	byEngine := map[model.Engine]model.Evaluation{}
	for _, ev := range evals {
		byEngine[ev.Engine] = ev
	}
	assert.Contains(t, byEngine, model.EngineChatGPT)
	assert.Contains(t, byEngine, model.EngineClaude)
	assert.NotContains(t, byEngine, model.EngineGemini)
	assert.True(t, byEngine[model.EngineClaude].Fallback)
}

func TestDispatchAll_FailsOnlyWhenNothingPersisted(t *testing.T) {
	writer := &memoryWriter{failFor: map[model.Engine]error{
		model.EngineChatGPT: errors.New("insert failed"),
		model.EngineClaude:  errors.New("insert failed"),
	}}
	d := NewDispatcher(newTestRegistry(
		scored(model.EngineChatGPT, 90),
		scored(model.EngineClaude, 85),
	), writer, time.Second)

	evals, err := d.DispatchAll(context.Background(), "t1", model.Entity{ID: "e1"})
	assert.Error(t, err)
	assert.Empty(t, evals)
}

func TestDispatchAll_NoAdapters(t *testing.T) {
	d := NewDispatcher(NewRegistry(), &memoryWriter{}, time.Second)
	_, err := d.DispatchAll(context.Background(), "t1", model.Entity{ID: "e1"})
	assert.Error(t, err)
}

func TestDispatchOne(t *testing.T) {
	writer := &memoryWriter{}
	claude := scored(model.EngineClaude, 88)
	chatgpt := scored(model.EngineChatGPT, 95)
	d := NewDispatcher(newTestRegistry(claude, chatgpt), writer, time.Second)

	ev, err := d.DispatchOne(context.Background(), "t1", model.Entity{ID: "e1"}, model.EngineClaude)
	require.NoError(t, err)
	assert.Equal(t, model.EngineClaude, ev.Engine)
	assert.Equal(t, 1, claude.calls)
	assert.Equal(t, 0, chatgpt.calls, "only the requested provider is probed")

	_, err = d.DispatchOne(context.Background(), "t1", model.Entity{ID: "e1"}, model.EngineGemini)
	assert.Error(t, err)
}
