// Package orchestrator runs provider batches through the validation,
// enrichment, QA, and correction stages, persisting each outcome. Providers
// are processed strictly in submission order; a batch is atomic only at
// per-provider granularity.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/correct"
	"github.com/meridian-health/provider-qa/internal/enrich"
	"github.com/meridian-health/provider-qa/internal/model"
	"github.com/meridian-health/provider-qa/internal/qa"
	"github.com/meridian-health/provider-qa/internal/store"
)

// Validator is the validation stage as the orchestrator consumes it.
type Validator interface {
	Validate(ctx context.Context, provider model.ProviderRecord) (*model.ValidationResult, error)
}

// Corrector is the correction stage as the orchestrator consumes it.
type Corrector interface {
	Process(provider model.ProviderRecord) (model.CorrectionResult, error)
}

// RuleCorrector adapts the rule-based corrector, which cannot fail, to the
// stage interface.
type RuleCorrector struct {
	C *correct.Corrector
}

func (r RuleCorrector) Process(provider model.ProviderRecord) (model.CorrectionResult, error) {
	return r.C.Process(provider), nil
}

// ScoreFunc is the QA stage entry point.
type ScoreFunc func(bundle model.SourceBundle) (model.QAResult, error)

// Orchestrator coordinates the pipeline stages for one logical writer.
type Orchestrator struct {
	store     store.Store
	validator Validator
	enricher  enrich.Enricher
	licenses  enrich.LicenseSource
	corrector Corrector
	score     ScoreFunc
	metrics   *qa.Metrics
	meta      model.MetaContext
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEnricher overrides the default echo enricher.
func WithEnricher(e enrich.Enricher) Option {
	return func(o *Orchestrator) {
		o.enricher = e
	}
}

// WithLicenseSource overrides the default static license source.
func WithLicenseSource(l enrich.LicenseSource) Option {
	return func(o *Orchestrator) {
		o.licenses = l
	}
}

// WithCorrector overrides the default rule-based corrector.
func WithCorrector(c Corrector) Option {
	return func(o *Orchestrator) {
		o.corrector = c
	}
}

// WithScorer overrides the default QA scoring function.
func WithScorer(s ScoreFunc) Option {
	return func(o *Orchestrator) {
		o.score = s
	}
}

// WithMeta sets the impact context attached to every bundle. The per-bundle
// specialty still comes from the provider record.
func WithMeta(meta model.MetaContext) Option {
	return func(o *Orchestrator) {
		o.meta = meta
	}
}

// New creates an Orchestrator over the given store and validation stage.
func New(st store.Store, validator Validator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		validator: validator,
		enricher:  enrich.EchoEnricher{},
		licenses:  enrich.StaticLicense{},
		corrector: RuleCorrector{C: correct.New()},
		score: func(bundle model.SourceBundle) (model.QAResult, error) {
			return qa.Score(bundle), nil
		},
		metrics: qa.NewMetrics(),
		meta:    model.MetaContext{MemberCount: 500},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics exposes the run-level QA accumulator.
func (o *Orchestrator) Metrics() *qa.Metrics {
	return o.metrics
}

// ProcessBatch runs every provider through the pipeline in submission order.
// Per-provider failures never abort the batch: every input record yields an
// outcome, and the batch result always covers all of them.
func (o *Orchestrator) ProcessBatch(ctx context.Context, providers []model.ProviderRecord, jobID string) (*model.BatchResult, error) {
	if jobID == "" {
		jobID = "JOB_" + time.Now().UTC().Format("20060102_150405")
	}
	start := time.Now()

	result := &model.BatchResult{
		JobID:     jobID,
		Total:     len(providers),
		Providers: make([]model.ProviderOutcome, 0, len(providers)),
	}

	if err := o.store.CreateJob(ctx, model.Job{
		JobID:     jobID,
		BatchSize: len(providers),
		StartedAt: time.Now().UTC(),
	}); err != nil {
		return nil, eris.Wrapf(err, "orchestrator: create job %s", jobID)
	}

	zap.L().Info("batch started", zap.String("job_id", jobID), zap.Int("batch_size", len(providers)))

	for _, provider := range providers {
		outcome := o.processProvider(ctx, provider)
		result.Providers = append(result.Providers, outcome)

		switch outcome.Status {
		case model.OutcomeAutoResolve:
			result.AutoResolved++
		case model.OutcomeManualReview:
			result.ManualReview++
		case model.OutcomePersistFailed:
			result.PersistFailed++
		default:
			result.Errors++
		}
	}

	result.ProcessingTime = time.Since(start).Seconds()

	if err := o.store.CompleteJob(ctx, jobID, result); err != nil {
		zap.L().Error("failed to record job completion",
			zap.String("job_id", jobID), zap.Error(err))
	}

	zap.L().Info("batch completed",
		zap.String("job_id", jobID),
		zap.Int("auto_resolved", result.AutoResolved),
		zap.Int("manual_review", result.ManualReview),
		zap.Int("errors", result.Errors),
		zap.Float64("processing_time", result.ProcessingTime),
	)

	return result, nil
}

// processProvider runs the per-provider state machine:
// pending -> validation -> enrichment -> qa -> correction/manual_review.
func (o *Orchestrator) processProvider(ctx context.Context, provider model.ProviderRecord) model.ProviderOutcome {
	provider.EnsureID()

	if err := ctx.Err(); err != nil {
		return model.ProviderOutcome{
			ProviderID: provider.ProviderID,
			Status:     model.OutcomeFailed,
			Error:      err.Error(),
		}
	}

	// Validation. A failed lookup substitutes an empty result rather than
	// aborting the record.
	validation, err := o.validator.Validate(ctx, provider)
	if err != nil {
		zap.L().Warn("validation failed, substituting empty result",
			zap.String("provider_id", provider.ProviderID), zap.Error(err))
		validation = &model.ValidationResult{
			ProviderID: provider.ProviderID,
			Fields:     map[string]model.FieldResult{},
		}
	}

	// Enrichment. The echo default cannot fail; a real source degrading to
	// an empty view just weakens the evidence.
	website, err := o.enricher.Enrich(ctx, provider)
	if err != nil {
		zap.L().Warn("enrichment failed, using empty view",
			zap.String("provider_id", provider.ProviderID), zap.Error(err))
		website = model.WebsiteView{}
	}

	license, err := o.licenses.License(ctx, provider)
	if err != nil {
		zap.L().Warn("license lookup failed, using empty record",
			zap.String("provider_id", provider.ProviderID), zap.Error(err))
		license = model.LicenseView{}
	}

	bundle := model.SourceBundle{
		Original: model.OriginalFromProvider(provider),
		Registry: validation.Registry,
		Website:  website,
		License:  license,
		Meta: model.MetaContext{
			MemberCount:    o.meta.MemberCount,
			Specialty:      provider.Specialty,
			RegionPriority: o.meta.RegionPriority,
		},
	}

	// QA. A scoring failure forces the conservative route.
	qaResult, err := o.score(bundle)
	if err != nil {
		zap.L().Warn("qa scoring failed, forcing manual review",
			zap.String("provider_id", provider.ProviderID), zap.Error(err))
		qaResult = model.QAResult{
			Action:          model.ActionManualReview,
			ConfidenceScore: 0,
			RiskScore:       100,
		}
	}
	o.metrics.Observe(qaResult)

	// Correction, only on the auto-resolve route. A correction failure
	// downgrades the route rather than failing the batch.
	var corrections int
	if qaResult.Action == model.ActionAutoResolve {
		correctionResult, err := o.corrector.Process(provider)
		if err != nil {
			zap.L().Warn("correction failed, downgrading to manual review",
				zap.String("provider_id", provider.ProviderID), zap.Error(err))
			qaResult.Action = model.ActionManualReview
		} else {
			provider = correctionResult.Provider
			corrections = len(correctionResult.Corrections)
		}
	}

	status := model.OutcomeStatus(qaResult.Action)

	// Persistence. A store failure marks the outcome so the caller knows the
	// scored result never landed.
	row := model.ProviderRow{Record: provider, Status: status, UpdatedAt: time.Now().UTC()}
	if err := o.store.UpsertProvider(ctx, row); err != nil {
		zap.L().Error("provider persist failed",
			zap.String("provider_id", provider.ProviderID), zap.Error(err))
		return model.ProviderOutcome{
			ProviderID:  provider.ProviderID,
			Status:      model.OutcomePersistFailed,
			Confidence:  qaResult.ConfidenceScore,
			Risk:        qaResult.RiskScore,
			Corrections: corrections,
			Error:       err.Error(),
		}
	}

	if qaResult.Action == model.ActionManualReview {
		if err := o.store.EnqueueReview(ctx, provider.ProviderID, qaResult.RiskScore); err != nil {
			zap.L().Error("review enqueue failed",
				zap.String("provider_id", provider.ProviderID), zap.Error(err))
			return model.ProviderOutcome{
				ProviderID:  provider.ProviderID,
				Status:      model.OutcomePersistFailed,
				Confidence:  qaResult.ConfidenceScore,
				Risk:        qaResult.RiskScore,
				Corrections: corrections,
				Error:       err.Error(),
			}
		}
	}

	return model.ProviderOutcome{
		ProviderID:  provider.ProviderID,
		Status:      status,
		Confidence:  qaResult.ConfidenceScore,
		Risk:        qaResult.RiskScore,
		Corrections: corrections,
	}
}

// GetJobStatus returns the persisted job row, or nil when absent.
func (o *Orchestrator) GetJobStatus(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: get job %s", jobID)
	}
	return job, nil
}

// GetWorkflowQueue returns pending review items, riskiest first.
func (o *Orchestrator) GetWorkflowQueue(ctx context.Context, limit int) ([]model.QueueItem, error) {
	items, err := o.store.GetWorkflowQueue(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: get workflow queue")
	}
	return items, nil
}

// GenerateSummaryReport derives the per-job report from persisted metrics.
func (o *Orchestrator) GenerateSummaryReport(ctx context.Context, jobID string) (*model.SummaryReport, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: get job %s", jobID)
	}
	if job == nil {
		return nil, eris.Errorf("orchestrator: job not found: %s", jobID)
	}

	report := &model.SummaryReport{JobID: jobID}
	if job.Metrics == nil {
		return report, nil
	}

	m := job.Metrics
	report.TotalProviders = m.Total
	report.AutoResolved = m.AutoResolved
	report.ManualReview = m.ManualReview
	report.Errors = m.Errors
	report.ProcessingTime = m.ProcessingTime

	total := m.Total
	if total == 0 {
		total = 1
	}
	report.SuccessRate = float64(m.AutoResolved) / float64(total) * 100
	report.AvgTimePerProvider = m.ProcessingTime / float64(total)

	return report, nil
}
