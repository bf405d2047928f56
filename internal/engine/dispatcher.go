package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// EvaluationWriter is the slice of the store the dispatcher needs.
type EvaluationWriter interface {
	InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error)
}

// DefaultCallTimeout bounds one provider evaluation, fallback path included.
const DefaultCallTimeout = 45 * time.Second

// Dispatcher fans one audit request out to every registered adapter.
type Dispatcher struct {
	registry    *Registry
	writer      EvaluationWriter
	callTimeout time.Duration
}

// NewDispatcher creates a dispatcher over the given registry and store.
func NewDispatcher(registry *Registry, writer EvaluationWriter, callTimeout time.Duration) *Dispatcher {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Dispatcher{registry: registry, writer: writer, callTimeout: callTimeout}
}

// DispatchAll evaluates the entity against every registered provider
// concurrently. Each branch settles on its own — an adapter's fallback or a
// failed insert never blocks or discards the other branches — and the
// result is the subset of evaluations that persisted. The dispatch as a
// whole fails only when that subset is empty.
func (d *Dispatcher) DispatchAll(ctx context.Context, tenantID string, entity model.Entity) ([]model.Evaluation, error) {
	adapters := d.registry.All()
	if len(adapters) == 0 {
		return nil, eris.New("dispatch: no adapters registered")
	}

	prompt := AuditPrompt(entity)
	records := make([]*model.Evaluation, len(adapters))

	// Branch errors are captured per slot, never returned to the group:
	// the group must always wait for every branch.
	var g errgroup.Group
	for i, ad := range adapters {
		g.Go(func() error {
			rec, err := d.evaluate(ctx, tenantID, entity, ad, prompt)
			if err != nil {
				zap.L().Error("dispatch: evaluation not persisted",
					zap.String("engine", string(ad.Engine())),
					zap.String("entity", entity.ID),
					zap.Error(err),
				)
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	persisted := make([]model.Evaluation, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			persisted = append(persisted, *rec)
		}
	}
	if len(persisted) == 0 {
		return nil, eris.Errorf("dispatch: no provider persisted an evaluation for entity %s", entity.ID)
	}

	zap.L().Info("dispatch: audit complete",
		zap.String("entity", entity.ID),
		zap.Int("providers_attempted", len(adapters)),
		zap.Int("evaluations_persisted", len(persisted)),
	)
	return persisted, nil
}

// DispatchOne is DispatchAll specialized to a single provider, used by
// correction re-verification.
func (d *Dispatcher) DispatchOne(ctx context.Context, tenantID string, entity model.Entity, eng model.Engine) (*model.Evaluation, error) {
	ad := d.registry.Get(eng)
	if ad == nil {
		return nil, eris.Errorf("dispatch: no adapter registered for %s", eng)
	}
	return d.evaluate(ctx, tenantID, entity, ad, AuditPrompt(entity))
}

func (d *Dispatcher) evaluate(ctx context.Context, tenantID string, entity model.Entity, ad Adapter, prompt string) (*model.Evaluation, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	out := ad.Evaluate(callCtx, prompt)

	score := out.AccuracyScore
	return d.writer.InsertEvaluation(ctx, model.Evaluation{
		TenantID:      tenantID,
		EntityID:      entity.ID,
		Engine:        ad.Engine(),
		AccuracyScore: &score,
		Inaccuracies:  out.Inaccuracies,
		RawReply:      out.RawReply,
		Fallback:      out.Fallback,
	})
}
