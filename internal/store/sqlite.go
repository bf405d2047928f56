package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// and single-operator deployments; the Postgres driver is the default.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// The cooldown check-then-set relies on each conditional UPDATE being
	// atomic; a single writer connection keeps that true under SQLite.
	sqlDB.SetMaxOpenConns(1)
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT NOT NULL,
	tenant_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	hours      TEXT,
	amenities  TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	engine         TEXT NOT NULL,
	accuracy_score INTEGER,
	inaccuracies   TEXT NOT NULL DEFAULT '[]',
	raw_reply      TEXT NOT NULL DEFAULT '',
	fallback       INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
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
	detected_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	last_seen_at      DATETIME,
	resolved_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_hallucinations_entity ON hallucinations(tenant_id, entity_id);
CREATE INDEX IF NOT EXISTS idx_hallucinations_claim_key ON hallucinations(tenant_id, entity_id, claim_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertEntity(ctx context.Context, e model.Entity) (*model.Entity, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal hours")
	}
	amenitiesJSON, err := json.Marshal(e.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal amenities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = excluded.name, address = excluded.address, phone = excluded.phone,
			website = excluded.website, hours = excluded.hours, amenities = excluded.amenities,
			updated_at = excluded.updated_at`,
		e.ID, e.TenantID, e.Name, e.Address, e.Phone, e.Website, string(hoursJSON), string(amenitiesJSON), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert entity %s", e.ID)
	}
	return &e, nil
}

func (s *SQLiteStore) GetEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at
		 FROM entities WHERE tenant_id = ? AND id = ?`,
		tenantID, entityID,
	)
	return scanEntitySQLite(row)
}

func (s *SQLiteStore) ListEntities(ctx context.Context, tenantID string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, address, phone, website, hours, amenities, created_at, updated_at
		 FROM entities WHERE tenant_id = ? ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		e, err := scanEntitySQLite(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	return entities, eris.Wrap(rows.Err(), "sqlite: list entities rows")
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, tenantID, entityID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE tenant_id = ? AND id = ?`,
		tenantID, entityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete entity %s", entityID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) InsertEvaluation(ctx context.Context, ev model.Evaluation) (*model.Evaluation, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	inaccJSON, err := json.Marshal(ev.Inaccuracies)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal inaccuracies")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.TenantID, ev.EntityID, string(ev.Engine), ev.AccuracyScore, string(inaccJSON), ev.RawReply, ev.Fallback, ev.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert evaluation %s/%s", ev.EntityID, ev.Engine)
	}
	return &ev, nil
}

func (s *SQLiteStore) LatestEvaluations(ctx context.Context, tenantID, entityID string) (map[model.Engine]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.tenant_id, e.entity_id, e.engine, e.accuracy_score, e.inaccuracies, e.raw_reply, e.fallback, e.created_at
		 FROM evaluations e
		 JOIN (
			SELECT engine, MAX(created_at) AS max_created
			FROM evaluations WHERE tenant_id = ? AND entity_id = ?
			GROUP BY engine
		 ) latest ON e.engine = latest.engine AND e.created_at = latest.max_created
		 WHERE e.tenant_id = ? AND e.entity_id = ?`,
		tenantID, entityID, tenantID, entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest evaluations")
	}
	defer rows.Close()

	latest := make(map[model.Engine]model.Evaluation)
	for rows.Next() {
		ev, err := scanEvaluationSQLite(rows)
		if err != nil {
			return nil, err
		}
		latest[ev.Engine] = *ev
	}
	return latest, eris.Wrap(rows.Err(), "sqlite: latest evaluations rows")
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, tenantID, entityID string, limit int) ([]model.Evaluation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, entity_id, engine, accuracy_score, inaccuracies, raw_reply, fallback, created_at
		 FROM evaluations WHERE tenant_id = ? AND entity_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		tenantID, entityID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		ev, err := scanEvaluationSQLite(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *ev)
	}
	return evals, eris.Wrap(rows.Err(), "sqlite: list evaluations rows")
}

func (s *SQLiteStore) InsertHallucination(ctx context.Context, h model.Hallucination) (*model.Hallucination, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hallucinations (id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.TenantID, h.EntityID, string(h.Engine), h.Claim, h.ClaimKey, h.Expected, string(h.Severity), string(h.Status), h.DetectedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert hallucination %s", h.ID)
	}
	return &h, nil
}

func (s *SQLiteStore) GetHallucination(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at, last_seen_at, resolved_at
		 FROM hallucinations WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanHallucinationSQLite(row)
}

func (s *SQLiteStore) ListHallucinations(ctx context.Context, tenantID, entityID string) ([]model.Hallucination, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, entity_id, engine, claim, claim_key, expected, severity, correction_status, detected_at, last_seen_at, resolved_at
		 FROM hallucinations WHERE tenant_id = ? AND entity_id = ?
		 ORDER BY detected_at DESC`,
		tenantID, entityID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list hallucinations")
	}
	defer rows.Close()

	var records []model.Hallucination
	for rows.Next() {
		h, err := scanHallucinationSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *h)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list hallucinations rows")
}

func (s *SQLiteStore) ActiveClaimExists(ctx context.Context, tenantID, entityID, claimKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM hallucinations
			WHERE tenant_id = ? AND entity_id = ? AND claim_key = ?
			  AND correction_status IN ('open', 'verifying')
		)`,
		tenantID, entityID, claimKey,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: active claim exists")
	}
	return exists, nil
}

func (s *SQLiteStore) BeginVerification(ctx context.Context, tenantID, id string) (*model.Hallucination, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hallucinations SET correction_status = 'verifying', last_seen_at = ?
		 WHERE tenant_id = ? AND id = ? AND correction_status = 'open'`,
		time.Now().UTC(), tenantID, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: begin verification %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return s.GetHallucination(ctx, tenantID, id)
	}

	current, err := s.GetHallucination(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusVerifying {
		return nil, eris.Wrap(&CooldownError{RetryAfter: VerificationCooldown}, "sqlite: begin verification")
	}
	return nil, eris.Wrapf(ErrInvalidTransition, "sqlite: begin verification from %s", current.Status)
}

func (s *SQLiteStore) TransitionStatus(ctx context.Context, tenantID, id string, from, to model.CorrectionStatus, stampResolved bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hallucinations SET correction_status = ?,
			resolved_at = CASE WHEN ? THEN ? ELSE resolved_at END
		 WHERE tenant_id = ? AND id = ? AND correction_status = ?`,
		string(to), stampResolved, time.Now().UTC(), tenantID, id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition %s %s->%s", id, from, to)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if _, getErr := s.GetHallucination(ctx, tenantID, id); getErr != nil {
			return getErr
		}
		return eris.Wrapf(ErrInvalidTransition, "sqlite: transition %s->%s", from, to)
	}
	return nil
}

func (s *SQLiteStore) Dismiss(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hallucinations SET correction_status = 'dismissed',
			resolved_at = COALESCE(resolved_at, ?)
		 WHERE tenant_id = ? AND id = ? AND correction_status IN ('open', 'dismissed')`,
		time.Now().UTC(), tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: dismiss %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if _, getErr := s.GetHallucination(ctx, tenantID, id); getErr != nil {
			return getErr
		}
		return eris.Wrap(ErrInvalidTransition, "sqlite: dismiss")
	}
	return nil
}

func (s *SQLiteStore) CountFixedCorrections(ctx context.Context, tenantID, entityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM hallucinations
		 WHERE tenant_id = ? AND entity_id = ? AND correction_status = 'fixed'`,
		tenantID, entityID,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count fixed corrections")
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntitySQLite(row rowScanner) (*model.Entity, error) {
	var (
		e             model.Entity
		hoursJSON     sql.NullString
		amenitiesJSON sql.NullString
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.Address, &e.Phone, &e.Website,
		&hoursJSON, &amenitiesJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan entity")
	}
	if hoursJSON.Valid && hoursJSON.String != "" {
		if err := json.Unmarshal([]byte(hoursJSON.String), &e.Hours); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal hours")
		}
	}
	if amenitiesJSON.Valid && amenitiesJSON.String != "" {
		if err := json.Unmarshal([]byte(amenitiesJSON.String), &e.Amenities); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal amenities")
		}
	}
	return &e, nil
}

func scanEvaluationSQLite(row rowScanner) (*model.Evaluation, error) {
	var (
		ev        model.Evaluation
		engine    string
		score     sql.NullInt64
		inaccJSON string
	)
	err := row.Scan(&ev.ID, &ev.TenantID, &ev.EntityID, &engine, &score,
		&inaccJSON, &ev.RawReply, &ev.Fallback, &ev.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan evaluation")
	}
	ev.Engine = model.Engine(engine)
	if score.Valid {
		v := int(score.Int64)
		ev.AccuracyScore = &v
	}
	if inaccJSON != "" {
		if err := json.Unmarshal([]byte(inaccJSON), &ev.Inaccuracies); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal inaccuracies")
		}
	}
	return &ev, nil
}

func scanHallucinationSQLite(row rowScanner) (*model.Hallucination, error) {
	var (
		h          model.Hallucination
		engine     string
		severity   string
		status     string
		lastSeenAt sql.NullTime
		resolvedAt sql.NullTime
	)
	err := row.Scan(&h.ID, &h.TenantID, &h.EntityID, &engine, &h.Claim, &h.ClaimKey,
		&h.Expected, &severity, &status, &h.DetectedAt, &lastSeenAt, &resolvedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan hallucination")
	}
	h.Engine = model.Engine(engine)
	h.Severity = model.Severity(severity)
	h.Status = model.CorrectionStatus(status)
	if lastSeenAt.Valid {
		h.LastSeenAt = &lastSeenAt.Time
	}
	if resolvedAt.Valid {
		h.ResolvedAt = &resolvedAt.Time
	}
	return &h, nil
}
