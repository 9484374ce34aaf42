package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/aggregator"
	"github.com/tim48-robot/disgitbot/internal/collector"
	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/metrics"
	"github.com/tim48-robot/disgitbot/internal/ranker"
	"github.com/tim48-robot/disgitbot/internal/roles"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

const tracerName = "github.com/tim48-robot/disgitbot/internal/pipeline"

// Run triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ServerUpdater reconciles a batch of guilds
type ServerUpdater interface {
	UpdateMultipleServers(ctx context.Context, jobs []domain.ReconciliationJob) (map[string]bool, error)
}

// OrgResult is the aggregation outcome of one organization
type OrgResult struct {
	Org                string
	RunID              string
	Snapshot           *domain.Snapshot
	HallOfFame         *domain.HallOfFame
	FailedRepositories []string
	Skipped            int
}

// Report summarizes one pipeline run
type Report struct {
	RunAt         time.Time
	Organizations []*OrgResult
	Tenants       map[string]bool // discord server id -> success
}

// Succeeded counts the tenants that were fully reconciled
func (r *Report) Succeeded() int {
	n := 0
	for _, ok := range r.Tenants {
		if ok {
			n++
		}
	}
	return n
}

// Runner drives collect, aggregate, rank, persist and reconcile
type Runner struct {
	store         *storage.Store
	collectors    collector.Factory
	tokens        collector.TokenSource
	updater       ServerUpdater
	resolver      *roles.Resolver
	logger        *zap.Logger
	tracer        trace.Tracer
	now           func() time.Time
	overlapWindow time.Duration
	trigger       string
}

// Option configures a Runner
type Option func(*Runner)

// WithClock overrides the source of the run timestamp
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithOverlapWindow sets how far back in-progress runs count as overlapping
func WithOverlapWindow(d time.Duration) Option {
	return func(r *Runner) { r.overlapWindow = d }
}

// WithTrigger records what started the run
func WithTrigger(trigger string) Option {
	return func(r *Runner) { r.trigger = trigger }
}

// NewRunner creates a pipeline runner
func NewRunner(store *storage.Store, collectors collector.Factory, tokens collector.TokenSource, updater ServerUpdater, resolver *roles.Resolver, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		store:         store,
		collectors:    collectors,
		tokens:        tokens,
		updater:       updater,
		resolver:      resolver,
		logger:        logger,
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
		overlapWindow: 6 * time.Hour,
		trigger:       TriggerSchedule,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the whole pipeline for every configured tenant. Aggregation
// failures only fail the tenants of that organization. The returned error is
// set when the guild platform could not be reached; the report is still
// complete and every snapshot written before that point stays persisted.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	runAt := r.now().UTC()
	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("pipeline.trigger", r.trigger)))
	defer span.End()

	report := &Report{RunAt: runAt, Tenants: map[string]bool{}}

	tenants, err := r.store.ListTenants(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("failed to load tenants: %w", err)
	}

	// Group ready tenants by organization, keeping first-seen order
	var orgs []string
	byOrg := map[string][]*domain.TenantConfig{}
	for _, tenant := range tenants {
		report.Tenants[tenant.DiscordServerID] = false
		if !tenant.SetupCompleted || tenant.GitHubOrg == "" {
			r.logger.Warn("Skipping tenant without a linked organization",
				zap.String("guild_id", tenant.DiscordServerID))
			continue
		}
		if _, ok := byOrg[tenant.GitHubOrg]; !ok {
			orgs = append(orgs, tenant.GitHubOrg)
		}
		byOrg[tenant.GitHubOrg] = append(byOrg[tenant.GitHubOrg], tenant)
	}
	span.SetAttributes(
		attribute.Int("pipeline.tenants", len(tenants)),
		attribute.Int("pipeline.organizations", len(orgs)))

	if len(orgs) == 0 {
		r.logger.Info("No configured tenants to process")
		return report, nil
	}

	mappings, err := r.store.UserMappings(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("failed to load user mappings: %w", err)
	}

	var jobs []domain.ReconciliationJob
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		group := byOrg[org]

		token, err := r.resolveToken(ctx, group)
		if err != nil {
			r.logger.Error("Failed to obtain installation token",
				zap.String("org", org),
				zap.Error(err))
			continue
		}

		result, err := r.runOrganization(ctx, org, token, runAt)
		if err != nil {
			r.logOrganizationFailure(org, err)
			continue
		}
		report.Organizations = append(report.Organizations, result)

		contributions := make(map[string]*domain.ContributorAggregate, len(result.Snapshot.Contributors))
		for _, c := range result.Snapshot.Contributors {
			contributions[c.Username] = c
		}
		medals := r.resolver.MedalAssignments(result.HallOfFame)
		for _, tenant := range group {
			jobs = append(jobs, domain.ReconciliationJob{
				DiscordServerID: tenant.DiscordServerID,
				UserMappings:    mappings,
				Contributions:   contributions,
				Metrics:         result.Snapshot.Metrics,
				RoleRules:       tenant.RoleRules,
				Medals:          medals,
			})
		}
	}

	if len(jobs) == 0 {
		return report, nil
	}

	results, err := r.updater.UpdateMultipleServers(ctx, jobs)
	for serverID, ok := range results {
		report.Tenants[serverID] = ok
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	r.logger.Info("Pipeline run finished",
		zap.Int("tenants", len(report.Tenants)),
		zap.Int("succeeded", report.Succeeded()))
	return report, nil
}

// logOrganizationFailure separates GitHub throttling and rejected credentials
// from other collection failures
func (r *Runner) logOrganizationFailure(org string, err error) {
	switch {
	case apperrors.IsRateLimited(err):
		r.logger.Warn("GitHub rate limit exhausted, skipping organization",
			zap.String("org", org),
			zap.Error(err))
	case apperrors.IsUnauthorized(err), apperrors.IsForbidden(err):
		code, _ := apperrors.CodeOf(err)
		r.logger.Error("GitHub rejected the installation credentials",
			zap.String("org", org),
			zap.String("reason", string(code)),
			zap.Error(err))
	default:
		r.logger.Error("Failed to aggregate organization",
			zap.String("org", org),
			zap.Error(err))
	}
}

// resolveToken returns the first token any tenant of the group can provide
func (r *Runner) resolveToken(ctx context.Context, group []*domain.TenantConfig) (string, error) {
	var lastErr error
	for _, tenant := range group {
		token, err := r.tokens.Token(ctx, tenant.InstallationID)
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	if apperrors.IsConfiguration(lastErr) {
		return "", lastErr
	}
	return "", apperrors.NewUnavailableError("installation token unavailable", lastErr)
}

// RunOrganization collects, aggregates and persists one organization without
// touching any guild
func (r *Runner) RunOrganization(ctx context.Context, org, token string) (*OrgResult, error) {
	return r.runOrganization(ctx, org, token, r.now().UTC())
}

func (r *Runner) runOrganization(ctx context.Context, org, token string, runAt time.Time) (result *OrgResult, err error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.organization",
		trace.WithAttributes(attribute.String("github.org", org)))

	run := &domain.PipelineRun{
		ID:        uuid.NewString(),
		Org:       org,
		Trigger:   r.trigger,
		Status:    domain.RunStatusInProgress,
		StartedAt: runAt,
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		status := domain.RunStatusCompleted
		if err != nil {
			status = domain.RunStatusFailed
		}
		metrics.PipelineRunsTotal.WithLabelValues(status).Inc()
		if ferr := r.store.FinishRun(context.WithoutCancel(ctx), run, err); ferr != nil {
			r.logger.Warn("Failed to record pipeline run", zap.String("run_id", run.ID), zap.Error(ferr))
		}
	}()

	r.warnOverlap(ctx, org, runAt)
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.logger.Warn("Failed to record pipeline run", zap.String("run_id", run.ID), zap.Error(err))
	}

	payload, err := r.collectors(token).CollectOrganizationData(ctx, org, func(repo string, progress float64) {
		r.logger.Debug("Collected repository",
			zap.String("org", org),
			zap.String("repo", repo),
			zap.Float64("progress", progress))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect %s: %w", org, err)
	}

	agg := aggregator.NewAggregator(runAt, r.logger).Aggregate(org, payload.Repositories)
	ranker.Rank(agg.Contributors)
	hof := ranker.BuildHallOfFame(agg.Contributors, runAt, ranker.DefaultHallOfFameSize)

	snapshot := &domain.Snapshot{
		Org:          org,
		RunID:        run.ID,
		LastUpdated:  runAt,
		Contributors: agg.Contributors.All(),
		Metrics:      agg.Metrics,
	}
	if err := r.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := r.store.SaveHallOfFame(ctx, org, hof); err != nil {
		return nil, fmt.Errorf("failed to save hall of fame: %w", err)
	}

	metrics.ContributorsAggregated.WithLabelValues(org).Set(float64(agg.Contributors.Len()))
	span.SetAttributes(
		attribute.Int("github.repositories", len(payload.Repositories)),
		attribute.Int("github.contributors", agg.Contributors.Len()))

	r.logger.Info("Organization aggregated",
		zap.String("org", org),
		zap.String("run_id", run.ID),
		zap.Int("repositories", len(payload.Repositories)),
		zap.Int("failed_repositories", len(payload.FailedRepositories)),
		zap.Int("contributors", agg.Contributors.Len()))

	return &OrgResult{
		Org:                org,
		RunID:              run.ID,
		Snapshot:           snapshot,
		HallOfFame:         hof,
		FailedRepositories: payload.FailedRepositories,
		Skipped:            agg.Skipped,
	}, nil
}

// warnOverlap logs other in-progress runs; it never blocks the current one
func (r *Runner) warnOverlap(ctx context.Context, org string, runAt time.Time) {
	if r.overlapWindow <= 0 {
		return
	}
	active, err := r.store.ActiveRuns(ctx, org, runAt.Add(-r.overlapWindow))
	if err != nil {
		r.logger.Warn("Failed to check for overlapping runs", zap.String("org", org), zap.Error(err))
		return
	}
	for _, other := range active {
		r.logger.Warn("Another pipeline run is in progress for this organization",
			zap.String("org", org),
			zap.String("other_run_id", other.ID),
			zap.Time("other_started_at", other.StartedAt))
	}
}
