package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/veracity-group/truthscan-cli/internal/db"
	"github.com/veracity-group/truthscan-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hottest queries to prepare on each new
// connection. Evaluation inserts dominate write volume during a dispatch.
var preparedStatements = map[string]string{
	"insert_evaluation": `INSERT INTO evaluations (id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_entity":        `SELECT id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at FROM entities WHERE tenant_id = $1 AND id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	hours      JSONB,
	amenities  JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	engine         TEXT NOT NULL,
	accuracy_score INTEGER,
	inaccuracies   JSONB NOT NULL DEFAULT '[]',
	raw_reply      TEXT NOT NULL DEFAULT '',
	fallback       BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_latest
	ON evaluations(tenant_id, entity_id, engine, created_at DESC);

CREATE TABLE IF NOT EXISTS hallucinations (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	entity_id         TEXT NOT NULL,
	engine            TEXT NOT NULL,
	claim             TEXT NOT NULL,
	claim_key         TEXT NOT NULL,
	expected          TEXT NOT NULL DEFAULT '',
	severity          TEXT NOT NULL DEFAULT 'medium',
	correction_status TEXT NOT NULL DEFAULT 'open'
		CHECK (correction_status IN ('open', 'verifying', 'fixed', 'dismissed', 'recurring')),
	detected_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at      TIMESTAMPTZ,
	resolved_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_hallucinations_entity
	ON hallucinations(tenant_id, entity_id);
CREATE INDEX IF NOT EXISTS idx_hallucinations_claim_key
	ON hallucinations(tenant_id, entity_id, claim_key);
CREATE INDEX IF NOT EXISTS idx_hallucinations_status
	ON hallucinations(correction_status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertEntity(ctx context.Context, e model.Entity) (*model.Entity, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	hoursJSON, err := json.Marshal(e.Hours)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal hours")
	}
	amenitiesJSON, err := json.Marshal(e.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal amenities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO entities (id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone,
			website = EXCLUDED.website, hours = EXCLUDED.hours, amenities = EXCLUDED.amenities,
			updated_at = EXCLUDED.updated_at`,
		e.ID, e.TenantID, e.Name, e.Address, e.Phone, e.Website, hoursJSON, amenitiesJSON, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert entity %s", e.ID)
	}
	return &e, nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at
		 FROM entities WHERE tenant_id = $1 AND id = $2`,
		tenantID, entityID,
	)
	return scanEntity(row)
}

func (s *PostgresStore) ListEntities(ctx context.Context, tenantID string) ([]model.Entity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at
		 FROM entities WHERE tenant_id = $1 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, eris.Wrap(rows.Err(), "postgres: list entities rows")
}

func (s *PostgresStore) DeleteEntity(ctx context.Context, tenantID, entityID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM entities WHERE tenant_id = $1 AND id = $2`,
		tenantID, entityID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete entity %s", entityID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	inaccJSON, err := json.Marshal(ev.Inaccuracies)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal inaccuracies")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.TenantID, ev.EntityID, string(ev.Engine), ev.AccuracyScore, inaccJSON, ev.RawReply, ev.Fallback, ev.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert evaluation %s/%s", ev.EntityID, ev.Engine)
	}
	return &ev, nil
}

func (s *PostgresStore) LatestEvaluations(ctx context.Context, tenantID, entityID string) (map[model.Engine]model.Evaluation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (engine) id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at
		 FROM evaluations WHERE tenant_id = $1 AND entity_id = $2
		 ORDER BY engine, created_at DESC`,
		tenantID, entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest evaluations")
	}
	defer rows.Close()

	latest := make(map[model.Engine]model.Evaluation)
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		latest[ev.Engine] = *ev
	}
	return latest, eris.Wrap(rows.Err(), "postgres: latest evaluations rows")
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, tenantID, entityID string, limit int) ([]model.Evaluation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at
		 FROM evaluations WHERE tenant_id = $1 AND entity_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		tenantID, entityID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *ev)
	}
	return evals, eris.Wrap(rows.Err(), "postgres: list evaluations rows")
}

func (s *PostgresStore) InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Status == "" {
		h.Status = model.StatusOpen
	}
	if h.ClaimKey == "" {
		h.ClaimKey = model.ClaimKey(h.Claim)
	}
	if h.DetectedAt.IsZero() {
		h.DetectedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO hallucinations (id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.TenantID, h.EntityID, string(h.Engine), h.Claim, h.ClaimKey, h.Expected, string(h.Severity), string(h.Status), h.DetectedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert hallucination %s", h.ID)
	}
	return &h, nil
}

func (s *PostgresStore) GetHallucination(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at, last_seen_at, resolved_at
		 FROM hallucinations WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	return scanHallucination(row)
}

func (s *PostgresStore) ListHallucinations(ctx context.Context, tenantID, entityID string) ([]model.Hallucination, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at, last_seen_at, resolved_at
		 FROM hallucinations WHERE tenant_id = $1 AND entity_id = $2
		 ORDER BY detected_at DESC`,
		tenantID, entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list hallucinations")
	}
	defer rows.Close()

	var records []model.Hallucination
	for rows.Next() {
		h, err := scanHallucination(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *h)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list hallucinations rows")
}

func (s *PostgresStore) ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM hallucinations
			WHERE tenant_id = $1 AND entity_id = $2 AND claim_key = $3
			  AND correction_status IN ('open', 'verifying')
		)`,
		tenantID, entityID, claimKey,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: active claim exists")
	}
	return exists, nil
}

func (s *PostgresStore) BeginVerification(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE hallucinations SET correction_status = 'verifying', last_seen_at = $3
		 WHERE tenant_id = $1 AND id = $2 AND correction_status = 'open'
		 RETURNING id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at, last_seen_at, resolved_at`,
		tenantID, id, time.Now().UTC(),
	)
	h, err := scanHallucination(row)
	if err == nil {
		return h, nil
	}
	if !eris.Is(err, ErrNotFound) {
		return nil, err
	}

	// The conditional update lost: distinguish missing, cooldown, terminal.
	current, getErr := s.GetHallucination(ctx, tenantID, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.Status == model.StatusVerifying {
		return nil, eris.Wrap(&CooldownError{RetryAfter: VerificationCooldown}, "postgres: begin verification")
	}
	return nil, eris.Wrapf(ErrInvalidTransition, "postgres: begin verification from %s", current.Status)
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, tenantID, id string, from, to model.CorrectionStatus, stampResolved bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE hallucinations SET correction_status = $3,
			resolved_at = CASE WHEN $5 THEN now() ELSE resolved_at END
		 WHERE tenant_id = $1 AND id = $2 AND correction_status = $4`,
		tenantID, id, string(to), string(from), stampResolved,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition %s %s->%s", id, from, to)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetHallucination(ctx, tenantID, id); getErr != nil {
			return getErr
		}
		return eris.Wrapf(ErrInvalidTransition, "postgres: transition %s->%s", from, to)
	}
	return nil
}

func (s *PostgresStore) Dismiss(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE hallucinations SET correction_status = 'dismissed',
			resolved_at = COALESCE(resolved_at, now())
		 WHERE tenant_id = $1 AND id = $2 AND correction_status IN ('open', 'dismissed')`,
		tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: dismiss %s", id)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetHallucination(ctx, tenantID, id); getErr != nil {
			return getErr
		}
		return eris.Wrap(ErrInvalidTransition, "postgres: dismiss")
	}
	return nil
}

func (s *PostgresStore) CountFixedCorrections(ctx context.Context, tenantID, entityID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM hallucinations
		 WHERE tenant_id = $1 AND entity_id = $2 AND correction_status = 'fixed'`,
		tenantID, entityID,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count fixed corrections")
	}
	return count, nil
}

func scanEntity(row pgx.Row) (*model.Entity, error) {
	var (
		e             model.Entity
		hoursJSON     []byte
		amenitiesJSON []byte
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.Address, &e.Phone, &e.Website,
		&hoursJSON, &amenitiesJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan entity")
	}
	if len(hoursJSON) > 0 {
		if err := json.Unmarshal(hoursJSON, &e.Hours); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal hours")
		}
	}
	if len(amenitiesJSON) > 0 {
		if err := json.Unmarshal(amenitiesJSON, &e.Amenities); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal amenities")
		}
	}
	return &e, nil
}

func scanEvaluation(row pgx.Row) (*model.Evaluation, error) {
	var (
		ev        model.Evaluation
		engine    string
		inaccJSON []byte
	)
	err := row.Scan(&ev.ID, &ev.TenantID, &ev.EntityID, &engine, &ev.AccuracyScore,
		&inaccJSON, &ev.RawReply, &ev.Fallback, &ev.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan evaluation")
	}
	ev.Engine = model.Engine(engine)
	if len(inaccJSON) > 0 {
		if err := json.Unmarshal(inaccJSON, &ev.Inaccuracies); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal inaccuracies")
		}
	}
	return &ev, nil
}

func scanHallucination(row pgx.Row) (*model.Hallucination, error) {
	var (
		h        model.Hallucination
		engine   string
		severity string
		status   string
	)
	err := row.Scan(&h.ID, &h.TenantID, &h.EntityID, &engine, &h.Claim, &h.ClaimKey,
		&h.Expected, &severity, &status, &h.DetectedAt, &h.LastSeenAt, &h.ResolvedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan hallucination")
	}
	h.Engine = model.Engine(engine)
	h.Severity = model.Severity(severity)
	h.Status = model.CorrectionStatus(status)
	return &h, nil
}
