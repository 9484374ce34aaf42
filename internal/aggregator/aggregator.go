package aggregator

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/domain"
	"github.com/tim48-robot/disgitbot/internal/normalizer"
)

// Aggregator defines the interface for folding repository data into
// per-contributor statistics
type Aggregator interface {
	// Aggregate normalizes and folds every repository of owner into one
	// contributor set. The owner always has an aggregate.
	Aggregate(owner string, repos []domain.RepositoryPayload) *Result

	// Fold adds activities to set, then recomputes streaks and averages
	Fold(set *domain.ContributorSet, activities []domain.RawActivity)
}

// Result is the outcome of one aggregation
type Result struct {
	Contributors *domain.ContributorSet
	Metrics      domain.RepositoryMetrics
	// Skipped counts facts dropped by the normalizer
	Skipped int
}

// aggregator implements the Aggregator interface
type aggregator struct {
	runAt  time.Time
	logger *zap.Logger

	today    string
	weekAgo  string
	monthAgo string
}

// NewAggregator creates an aggregator whose windows are all anchored at runAt
func NewAggregator(runAt time.Time, logger *zap.Logger) Aggregator {
	runAt = runAt.UTC()
	return &aggregator{
		runAt:    runAt,
		logger:   logger,
		today:    runAt.Format(domain.DateLayout),
		weekAgo:  runAt.AddDate(0, 0, -7).Format(domain.DateLayout),
		monthAgo: runAt.AddDate(0, 0, -30).Format(domain.DateLayout),
	}
}

// Aggregate implements Aggregator
func (a *aggregator) Aggregate(owner string, repos []domain.RepositoryPayload) *Result {
	set := domain.NewContributorSet()
	if owner != "" {
		set.Ensure(owner)
	}

	var activities []domain.RawActivity
	skipped := 0
	for _, repo := range repos {
		normalized := normalizer.Normalize(repo)
		for _, username := range normalized.Usernames {
			set.Ensure(username)
		}
		activities = append(activities, normalized.Activities...)
		skipped += normalized.Skipped
	}

	a.Fold(set, activities)

	if skipped > 0 {
		a.logger.Warn("Skipped malformed contribution facts",
			zap.String("owner", owner),
			zap.Int("skipped", skipped))
	}

	return &Result{
		Contributors: set,
		Metrics:      RepositoryMetrics(repos, set),
		Skipped:      skipped,
	}
}

// Fold implements Aggregator
func (a *aggregator) Fold(set *domain.ContributorSet, activities []domain.RawActivity) {
	dates := map[string]map[domain.ActivityKind][]string{}

	for _, activity := range activities {
		agg := set.Ensure(activity.Username)
		stats := agg.For(activity.Kind)
		date := activity.Date()

		stats.AllTime++
		if date == a.today {
			stats.Daily++
		}
		if date >= a.weekAgo {
			stats.Weekly++
		}
		if date >= a.monthAgo {
			stats.Monthly++
		}

		agg.TotalActivity++
		agg.MonthlyActivity[activity.Timestamp.Format("2006-01")]++
		agg.AddRepository(activity.Repo)

		if dates[activity.Username] == nil {
			dates[activity.Username] = map[domain.ActivityKind][]string{}
		}
		dates[activity.Username][activity.Kind] = append(dates[activity.Username][activity.Kind], date)
	}

	divisor := float64(min(a.runAt.Day(), 30))
	for _, agg := range set.All() {
		for _, kind := range domain.ActivityKinds {
			stats := agg.For(kind)
			if kindDates := dates[agg.Username][kind]; len(kindDates) > 0 {
				stats.CurrentStreak, stats.LongestStreak = Streaks(kindDates)
			}
			stats.AvgPerDay = math.Round(float64(stats.Monthly)/divisor*10) / 10
		}
	}
}

// RepositoryMetrics sums the repository counters of an organization.
// Contributors counts aggregates with at least one pull request.
func RepositoryMetrics(repos []domain.RepositoryPayload, set *domain.ContributorSet) domain.RepositoryMetrics {
	var metrics domain.RepositoryMetrics
	for _, repo := range repos {
		metrics.Stars += repo.Info.Stars
		metrics.Forks += repo.Info.Forks
	}
	if set == nil {
		return metrics
	}
	for _, agg := range set.All() {
		if agg.Stats.PR.AllTime > 0 {
			metrics.Contributors++
		}
		metrics.PullRequests += agg.Stats.PR.AllTime
		metrics.Issues += agg.Stats.Issue.AllTime
		metrics.Commits += agg.Stats.Commit.AllTime
	}
	return metrics
}
