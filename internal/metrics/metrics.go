package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disgitbot_pipeline_runs_total",
		Help: "Pipeline runs per organization by final status",
	}, []string{"status"})

	TenantOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disgitbot_tenant_outcomes_total",
		Help: "Per-tenant reconciliation outcomes",
	}, []string{"result"})

	RoleMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disgitbot_role_mutations_total",
		Help: "Role mutations issued against guilds",
	}, []string{"operation"})

	ChannelUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disgitbot_channel_updates_total",
		Help: "Stats channel creations, renames and deletions",
	}, []string{"operation"})

	GitHubRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disgitbot_github_requests_total",
		Help: "Total number of GitHub API requests",
	})

	GitHubRateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disgitbot_github_rate_limit_hits_total",
		Help: "GitHub requests rejected by primary or secondary rate limits",
	})

	ContributorsAggregated = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disgitbot_contributors_aggregated",
		Help: "Contributors in the latest snapshot of an organization",
	}, []string{"org"})
)
