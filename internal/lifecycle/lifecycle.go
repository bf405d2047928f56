// Package lifecycle drives the correction state machine for hallucination
// records: manual dismissal and reopening, and the cooldown-gated
// re-verification probe against the originating provider.
package lifecycle

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
)

// Prober re-runs a single provider against current ground truth.
type Prober interface {
	DispatchOne(ctx context.Context, tenantID string, entity model.Entity, eng model.Engine) (*model.Evaluation, error)
}

// Service applies lifecycle transitions through the store's conditional
// updates; it never mutates status outside the transition table.
type Service struct {
	store  store.Store
	prober Prober
}

func NewService(st store.Store, p Prober) *Service {
	return &Service{store: st, prober: p}
}

// VerifyCorrection claims the record for verification, re-audits the
// originating provider against the entity's current ground truth, and
// settles the record: still-asserted claims go back to open, absent claims
// become fixed. A record already mid-verification is rejected with the
// cooldown error before any provider call happens. A record whose entity
// has been deleted is fixed unconditionally: with no ground truth left
// there is nothing to hold the provider accountable to.
func (s *Service) VerifyCorrection(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	rec, err := s.store.BeginVerification(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	entity, err := s.store.GetEntity(ctx, tenantID, rec.EntityID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return s.settle(ctx, rec, model.StatusFixed)
		}
		return nil, s.revert(ctx, rec, eris.Wrapf(err, "lifecycle: loading entity %s", rec.EntityID))
	}

	ev, err := s.prober.DispatchOne(ctx, tenantID, *entity, rec.Engine)
	if err != nil {
		return nil, s.revert(ctx, rec, eris.Wrapf(err, "lifecycle: re-auditing %s", rec.Engine))
	}
	if ev.Fallback {
		// A degraded reply says nothing about whether the claim persists.
		return nil, s.revert(ctx, rec, eris.Errorf("lifecycle: %s degraded to fallback, verification inconclusive", rec.Engine))
	}

	if model.ClaimStillPresent(rec.Claim, ev.InaccuracyDescriptions()) {
		return s.settle(ctx, rec, model.StatusOpen)
	}
	return s.settle(ctx, rec, model.StatusFixed)
}

// SetCorrectionStatus applies a user-driven transition. Dismissal routes
// through the store's idempotent dismiss; everything else goes through the
// transition table.
func (s *Service) SetCorrectionStatus(ctx context.Context, tenantID, id string, target model.CorrectionStatus) (*model.Hallucination, error) {
	if !target.Valid() {
		return nil, eris.Errorf("lifecycle: unknown status %q", target)
	}

	if target == model.StatusDismissed {
		if err := s.store.Dismiss(ctx, tenantID, id); err != nil {
			return nil, err
		}
		return s.store.GetHallucination(ctx, tenantID, id)
	}

	rec, err := s.store.GetHallucination(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == target {
		return rec, nil
	}
	if !model.CanTransition(rec.Status, target) {
		return nil, eris.Wrapf(store.ErrInvalidTransition, "lifecycle: %s -> %s", rec.Status, target)
	}
	if err := s.store.TransitionStatus(ctx, tenantID, id, rec.Status, target, false); err != nil {
		return nil, err
	}
	return s.store.GetHallucination(ctx, tenantID, id)
}

// settle moves a verifying record to its final outcome and reloads it.
func (s *Service) settle(ctx context.Context, rec *model.Hallucination, outcome model.CorrectionStatus) (*model.Hallucination, error) {
	stamp := outcome == model.StatusFixed
	if err := s.store.TransitionStatus(ctx, rec.TenantID, rec.ID, model.StatusVerifying, outcome, stamp); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: settling record %s", rec.ID)
	}
	zap.L().Info("lifecycle: verification settled",
		zap.String("record", rec.ID),
		zap.String("entity", rec.EntityID),
		zap.String("engine", string(rec.Engine)),
		zap.String("outcome", string(outcome)),
	)
	return s.store.GetHallucination(ctx, rec.TenantID, rec.ID)
}

// revert releases the verifying claim after a probe failure so the record
// is not stranded mid-verification, then surfaces the original error.
func (s *Service) revert(ctx context.Context, rec *model.Hallucination, cause error) error {
	if err := s.store.TransitionStatus(ctx, rec.TenantID, rec.ID, model.StatusVerifying, model.StatusOpen, false); err != nil {
		zap.L().Error("lifecycle: failed to release verifying record",
			zap.String("record", rec.ID),
			zap.Error(err),
		)
	}
	return cause
}
