package audit

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// ledger is the slice of the store detection writes through.
type ledger interface {
	ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error)
	InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error)
}

// DetectHallucinations turns the inaccuracies of freshly persisted
// evaluations into open ledger records. A claim whose key already matches an
// open or verifying record is the same complaint restated, not a new one.
// Fallback evaluations carry diagnostic text, not provider claims, and are
// skipped entirely. A claim that was previously fixed and resurfaces mints a
// brand new record; the ledger is append-only.
func DetectHallucinations(ctx context.Context, store ledger, evals []model.Evaluation) ([]model.Hallucination, error) {
	var created []model.Hallucination
	for _, ev := range evals {
		if ev.Fallback {
			continue
		}
		for _, in := range ev.Inaccuracies {
			key := model.ClaimKey(in.Claim)
			if key == "" {
				continue
			}
			exists, err := store.ActiveClaimExists(ctx, ev.TenantID, ev.EntityID, key)
			if err != nil {
				return created, eris.Wrap(err, "audit: checking active claims")
			}
			if exists {
				continue
			}
			rec, err := store.InsertHallucination(ctx, model.Hallucination{
				TenantID: ev.TenantID,
				EntityID: ev.EntityID,
				Engine:   ev.Engine,
				Claim:    in.Claim,
				ClaimKey: key,
				Expected: in.Expected,
				Severity: model.NormalizeSeverity(string(in.Severity)),
				Status:   model.StatusOpen,
			})
			if err != nil {
				return created, eris.Wrap(err, "audit: recording hallucination")
			}
			created = append(created, *rec)
			zap.L().Info("audit: hallucination detected",
				zap.String("entity", ev.EntityID),
				zap.String("engine", string(ev.Engine)),
				zap.String("claim_key", key),
				zap.String("severity", string(rec.Severity)),
			)
		}
	}
	return created, nil
}
