package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/meridian-health/provider-qa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	npi        TEXT,
	phone      TEXT,
	address    TEXT,
	specialty  TEXT,
	state      TEXT,
	data       TEXT NOT NULL,
	status     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	job_id       TEXT PRIMARY KEY,
	batch_size   INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME,
	metrics      TEXT
);

CREATE TABLE IF NOT EXISTS workflow_queue (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_id TEXT NOT NULL,
	priority    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'pending',
	assigned_to TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_workflow_queue_priority ON workflow_queue(priority DESC);
CREATE INDEX IF NOT EXISTS idx_workflow_queue_status ON workflow_queue(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertProvider(ctx context.Context, row model.ProviderRow) error {
	dataJSON, err := json.Marshal(row.Record)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provider")
	}

	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO providers (id, name, npi, phone, address, specialty, state, data, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, npi = excluded.npi, phone = excluded.phone,
		   address = excluded.address, specialty = excluded.specialty, state = excluded.state,
		   data = excluded.data, status = excluded.status, updated_at = excluded.updated_at`,
		row.Record.ProviderID, row.Record.Name, row.Record.NPI, row.Record.Phone,
		row.Record.Address, row.Record.Specialty, row.Record.State,
		string(dataJSON), string(row.Status), updatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert provider %s", row.Record.ProviderID)
}

func (s *SQLiteStore) GetProvider(ctx context.Context, providerID string) (*model.ProviderRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, status, updated_at FROM providers WHERE id = ?`,
		providerID,
	)

	var pr model.ProviderRow
	var dataJSON string
	err := row.Scan(&dataJSON, &pr.Status, &pr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get provider %s", providerID)
	}
	if err := json.Unmarshal([]byte(dataJSON), &pr.Record); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal provider")
	}
	return &pr, nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job model.Job) error {
	startedAt := job.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, batch_size, status, started_at) VALUES (?, ?, ?, ?)`,
		job.JobID, job.BatchSize, string(model.JobRunning), startedAt,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.JobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, metrics *model.BatchResult) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job metrics")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, metrics = ? WHERE job_id = ?`,
		string(model.JobCompleted), time.Now().UTC(), string(metricsJSON), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, batch_size, status, started_at, completed_at, metrics FROM jobs WHERE job_id = ?`,
		jobID,
	)

	var j model.Job
	var completedAt sql.NullTime
	var metricsJSON sql.NullString
	err := row.Scan(&j.JobID, &j.BatchSize, &j.Status, &j.StartedAt, &completedAt, &metricsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if metricsJSON.Valid {
		j.Metrics = &model.BatchResult{}
		if err := json.Unmarshal([]byte(metricsJSON.String), j.Metrics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job metrics")
		}
	}
	return &j, nil
}

func (s *SQLiteStore) EnqueueReview(ctx context.Context, providerID string, priority int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_queue (provider_id, priority, status, created_at) VALUES (?, ?, ?, ?)`,
		providerID, priority, model.QueueStatusPending, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: enqueue review %s", providerID)
}

func (s *SQLiteStore) GetWorkflowQueue(ctx context.Context, limit int) ([]model.QueueItem, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, priority, status, assigned_to, created_at FROM workflow_queue
		 WHERE status = ? ORDER BY priority DESC, created_at ASC LIMIT ?`,
		model.QueueStatusPending, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get workflow queue")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		var item model.QueueItem
		var assignedTo sql.NullString
		if err := rows.Scan(&item.ID, &item.ProviderID, &item.Priority, &item.Status, &assignedTo, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan queue item")
		}
		item.AssignedTo = assignedTo.String
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: workflow queue iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM providers`,
		string(model.OutcomeAutoResolve), string(model.OutcomeManualReview),
	).Scan(&st.TotalProviders, &st.AutoResolved, &st.ManualReview)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: provider stats")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&st.TotalJobs); err != nil {
		return nil, eris.Wrap(err, "sqlite: job stats")
	}

	if st.TotalProviders > 0 {
		st.AutoResolveRate = math.Round(float64(st.AutoResolved)/float64(st.TotalProviders)*1000) / 10
	}
	return &st, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
