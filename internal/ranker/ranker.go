// Package ranker computes leaderboard positions over a complete contributor set.
package ranker

import (
	"sort"
	"time"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// DefaultHallOfFameSize is the number of entries kept per hall of fame board
const DefaultHallOfFameSize = 10

// Rank writes all twelve rankings into every aggregate of set. Ranks are
// positions 1..N in descending metric order; ties keep first-seen order.
func Rank(set *domain.ContributorSet) {
	all := set.All()
	for _, agg := range all {
		agg.Rankings = make(map[domain.RankingKey]int, len(domain.RankingKeys))
	}
	for _, key := range domain.RankingKeys {
		for i, agg := range sorted(all, key) {
			agg.Rankings[key] = i + 1
		}
	}
}

// Leaderboard returns up to limit entries for key, skipping zero values.
// A non-positive limit returns every non-zero entry.
func Leaderboard(set *domain.ContributorSet, key domain.RankingKey, limit int) []domain.LeaderboardEntry {
	return leaderboard(set.All(), key, limit)
}

// LeaderboardOf is Leaderboard over a stored snapshot
func LeaderboardOf(contributors []*domain.ContributorAggregate, key domain.RankingKey, limit int) []domain.LeaderboardEntry {
	return leaderboard(contributors, key, limit)
}

func leaderboard(contributors []*domain.ContributorAggregate, key domain.RankingKey, limit int) []domain.LeaderboardEntry {
	entries := []domain.LeaderboardEntry{}
	for _, agg := range sorted(contributors, key) {
		value := key.Value(agg)
		if value <= 0 {
			break
		}
		if limit > 0 && len(entries) == limit {
			break
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:     len(entries) + 1,
			Username: agg.Username,
			Value:    value,
		})
	}
	return entries
}

// BuildHallOfFame builds the top-limit boards for every kind and window
func BuildHallOfFame(set *domain.ContributorSet, runAt time.Time, limit int) *domain.HallOfFame {
	hof := &domain.HallOfFame{
		Boards:      make(map[domain.ActivityKind]map[domain.Window][]domain.LeaderboardEntry, len(domain.ActivityKinds)),
		LastUpdated: runAt.UTC(),
	}
	for _, kind := range domain.ActivityKinds {
		hof.Boards[kind] = make(map[domain.Window][]domain.LeaderboardEntry, len(domain.Windows))
		for _, window := range domain.Windows {
			hof.Boards[kind][window] = Leaderboard(set, domain.NewRankingKey(kind, window), limit)
		}
	}
	return hof
}

func sorted(contributors []*domain.ContributorAggregate, key domain.RankingKey) []*domain.ContributorAggregate {
	out := make([]*domain.ContributorAggregate, len(contributors))
	copy(out, contributors)
	sort.SliceStable(out, func(i, j int) bool {
		return key.Value(out[i]) > key.Value(out[j])
	})
	return out
}
