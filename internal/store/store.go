// Package store persists provider records, batch jobs, and the manual
// review queue behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/meridian-health/provider-qa/internal/model"
)

// Store defines the persistence interface for the QA pipeline.
type Store interface {
	// Providers
	UpsertProvider(ctx context.Context, row model.ProviderRow) error
	GetProvider(ctx context.Context, providerID string) (*model.ProviderRow, error)

	// Jobs
	CreateJob(ctx context.Context, job model.Job) error
	CompleteJob(ctx context.Context, jobID string, metrics *model.BatchResult) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)

	// Review queue
	EnqueueReview(ctx context.Context, providerID string, priority int) error
	GetWorkflowQueue(ctx context.Context, limit int) ([]model.QueueItem, error)

	// Aggregates
	Stats(ctx context.Context) (*model.Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// BulkUpserter is implemented by stores with a fast multi-row upsert path.
type BulkUpserter interface {
	BulkUpsertProviders(ctx context.Context, rows []model.ProviderRow) (int64, error)
}

// ImportProviders loads rows through the store's bulk path when it has one,
// falling back to per-row upserts. Returns the number of rows written; on a
// fallback-path error the count covers the rows written before the failure.
func ImportProviders(ctx context.Context, st Store, rows []model.ProviderRow) (int64, error) {
	if bu, ok := st.(BulkUpserter); ok {
		return bu.BulkUpsertProviders(ctx, rows)
	}

	for i, row := range rows {
		if err := st.UpsertProvider(ctx, row); err != nil {
			return int64(i), eris.Wrapf(err, "store: import provider %s", row.Record.ProviderID)
		}
	}
	return int64(len(rows)), nil
}

// Open constructs a Store for the given driver. Supported drivers are
// "sqlite" (url is a file path) and "postgres" (url is a DSN).
func Open(ctx context.Context, driver, url string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(url)
	case "postgres":
		return NewPostgres(ctx, url, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
