// Package store persists entities, evaluation history, and the
// hallucination ledger. All reads and writes are tenant-scoped at the query
// level; a record that exists under another tenant is indistinguishable
// from one that does not exist.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// ErrNotFound covers both "does not exist" and "belongs to another tenant".
// Callers must not be able to distinguish the two.
var ErrNotFound = eris.New("store: record not found")

// ErrInvalidTransition is returned when a conditional status update finds
// the record in a state the lifecycle table does not allow to move from.
var ErrInvalidTransition = eris.New("store: status transition not allowed")

// VerificationCooldown is how long a caller is told to wait when a record
// is already mid-verification. External providers need time to propagate a
// correction; re-probing sooner wastes calls and risks flapping the status.
const VerificationCooldown = 24 * time.Hour

// CooldownError rejects a begin-verification attempt on a record that is
// already verifying. It is a business outcome, not a system failure.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("store: verification already in progress, retry after %ds", int(e.RetryAfter.Seconds()))
}

// IsCooldown reports whether err carries a cooldown rejection.
func IsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if eris.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Store is the persistence interface for the truth audit engine.
type Store interface {
	// Entities (ground truth)
	UpsertEntity(ctx context.Context, e model.Entity) (*model.Entity, error)
	GetEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error)
	ListEntities(ctx context.Context, tenantID string) ([]model.Entity, error)
	DeleteEntity(ctx context.Context, tenantID, entityID string) error

	// Evaluations (append-only; latest per engine by created_at)
	InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error)
	LatestEvaluations(ctx context.Context, tenantID, entityID string) (map[model.Engine]model.Evaluation, error)
	ListEvaluations(ctx context.Context, tenantID, entityID string, limit int) ([]model.Evaluation, error)

	// Hallucination ledger
	InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error)
	GetHallucination(ctx context.Context, tenantID, id string) (*model.Hallucination, error)
	ListHallucinations(ctx context.Context, tenantID, entityID string) ([]model.Hallucination, error)
	ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error)

	// BeginVerification is the engine's sole critical section: a single
	// conditional update that moves open -> verifying. A record already
	// verifying yields *CooldownError; two racing callers cannot both win.
	BeginVerification(ctx context.Context, tenantID, id string) (*model.Hallucination, error)

	// TransitionStatus conditionally moves a record from one status to
	// another, stamping resolved_at when stampResolved is set. A record no
	// longer in from yields ErrInvalidTransition.
	TransitionStatus(ctx context.Context, tenantID, id string, from, to model.CorrectionStatus, stampResolved bool) error

	// Dismiss is idempotent: dismissing an already-dismissed record is a
	// no-op that leaves the original resolution timestamp untouched.
	Dismiss(ctx context.Context, tenantID, id string) error

	CountFixedCorrections(ctx context.Context, tenantID, entityID string) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
