package store

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/meridian-health/provider-qa/internal/db"
	"github.com/meridian-health/provider-qa/internal/model"
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
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	npi        TEXT,
	phone      TEXT,
	address    TEXT,
	specialty  TEXT,
	state      TEXT,
	data       JSONB NOT NULL,
	status     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	job_id       TEXT PRIMARY KEY,
	batch_size   INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	metrics      JSONB
);

CREATE TABLE IF NOT EXISTS workflow_queue (
	id          BIGSERIAL PRIMARY KEY,
	provider_id TEXT NOT NULL,
	priority    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'pending',
	assigned_to TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_workflow_queue_priority ON workflow_queue(priority DESC);
CREATE INDEX IF NOT EXISTS idx_workflow_queue_status ON workflow_queue(status);
`

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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) UpsertProvider(ctx context.Context, row model.ProviderRow) error {
	dataJSON, err := json.Marshal(row.Record)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provider")
	}

	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO providers (id, name, npi, phone, address, specialty, state, data, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, npi = EXCLUDED.npi, phone = EXCLUDED.phone,
		   address = EXCLUDED.address, specialty = EXCLUDED.specialty, state = EXCLUDED.state,
		   data = EXCLUDED.data, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		row.Record.ProviderID, row.Record.Name, row.Record.NPI, row.Record.Phone,
		row.Record.Address, row.Record.Specialty, row.Record.State,
		dataJSON, string(row.Status), updatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert provider %s", row.Record.ProviderID)
}

// BulkUpsertProviders loads a batch of provider rows in one COPY-backed
// upsert. Used by the import path, where per-row round trips are too slow.
func (s *PostgresStore) BulkUpsertProviders(ctx context.Context, rows []model.ProviderRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		dataJSON, err := json.Marshal(row.Record)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal provider")
		}
		updatedAt := row.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		data = append(data, []any{
			row.Record.ProviderID, row.Record.Name, row.Record.NPI, row.Record.Phone,
			row.Record.Address, row.Record.Specialty, row.Record.State,
			dataJSON, string(row.Status), updatedAt,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "providers",
		Columns:      []string{"id", "name", "npi", "phone", "address", "specialty", "state", "data", "status", "updated_at"},
		ConflictKeys: []string{"id"},
	}, data)
}

func (s *PostgresStore) GetProvider(ctx context.Context, providerID string) (*model.ProviderRow, error) {
	var pr model.ProviderRow
	var dataJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT data, status, updated_at FROM providers WHERE id = $1`,
		providerID,
	).Scan(&dataJSON, &pr.Status, &pr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get provider %s", providerID)
	}
	if err := json.Unmarshal(dataJSON, &pr.Record); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal provider")
	}
	return &pr, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job model.Job) error {
	startedAt := job.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (job_id, batch_size, status, started_at) VALUES ($1, $2, $3, $4)`,
		job.JobID, job.BatchSize, string(model.JobRunning), startedAt,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.JobID)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, metrics *model.BatchResult) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job metrics")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2, metrics = $3 WHERE job_id = $4`,
		string(model.JobCompleted), time.Now().UTC(), metricsJSON, jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var j model.Job
	var completedAt *time.Time
	var metricsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT job_id, batch_size, status, started_at, completed_at, metrics FROM jobs WHERE job_id = $1`,
		jobID,
	).Scan(&j.JobID, &j.BatchSize, &j.Status, &j.StartedAt, &completedAt, &metricsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	j.CompletedAt = completedAt
	if metricsJSON != nil {
		j.Metrics = &model.BatchResult{}
		if err := json.Unmarshal(metricsJSON, j.Metrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal job metrics")
		}
	}
	return &j, nil
}

func (s *PostgresStore) EnqueueReview(ctx context.Context, providerID string, priority int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workflow_queue (provider_id, priority, status, created_at) VALUES ($1, $2, $3, $4)`,
		providerID, priority, model.QueueStatusPending, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: enqueue review %s", providerID)
}

func (s *PostgresStore) GetWorkflowQueue(ctx context.Context, limit int) ([]model.QueueItem, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, priority, status, assigned_to, created_at FROM workflow_queue
		 WHERE status = $1 ORDER BY priority DESC, created_at ASC LIMIT $2`,
		model.QueueStatusPending, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get workflow queue")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		var item model.QueueItem
		var assignedTo *string
		if err := rows.Scan(&item.ID, &item.ProviderID, &item.Priority, &item.Status, &assignedTo, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan queue item")
		}
		if assignedTo != nil {
			item.AssignedTo = *assignedTo
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: workflow queue iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
		 FROM providers`,
		string(model.OutcomeAutoResolve), string(model.OutcomeManualReview),
	).Scan(&st.TotalProviders, &st.AutoResolved, &st.ManualReview)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: provider stats")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&st.TotalJobs); err != nil {
		return nil, eris.Wrap(err, "postgres: job stats")
	}

	if st.TotalProviders > 0 {
		st.AutoResolveRate = math.Round(float64(st.AutoResolved)/float64(st.TotalProviders)*1000) / 10
	}
	return &st, nil
}
