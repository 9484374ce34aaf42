package domain

import "time"

// RankingKey names one leaderboard: a kind, optionally suffixed by a window
type RankingKey string

// NewRankingKey builds the key for kind over window. All-time keys are the bare kind.
func NewRankingKey(kind ActivityKind, window Window) RankingKey {
	if window == WindowAllTime {
		return RankingKey(kind)
	}
	return RankingKey(string(kind) + "_" + string(window))
}

// RankingKeys lists the twelve leaderboards computed every run
var RankingKeys = func() []RankingKey {
	keys := make([]RankingKey, 0, len(ActivityKinds)*len(Windows))
	for _, kind := range ActivityKinds {
		for _, w := range Windows {
			keys = append(keys, NewRankingKey(kind, w))
		}
	}
	return keys
}()

// Parse splits a key into its kind and window
func (k RankingKey) Parse() (ActivityKind, Window, bool) {
	for _, kind := range ActivityKinds {
		for _, w := range Windows {
			if NewRankingKey(kind, w) == k {
				return kind, w, true
			}
		}
	}
	return "", "", false
}

// Value returns the metric value of agg for this key
func (k RankingKey) Value(agg *ContributorAggregate) int {
	kind, w, ok := k.Parse()
	if !ok {
		return 0
	}
	return agg.For(kind).Window(w)
}

// LeaderboardEntry is one position of a leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Value    int    `json:"value"`
}

// HallOfFame holds the top contributors for every kind and window
type HallOfFame struct {
	Boards      map[ActivityKind]map[Window][]LeaderboardEntry `json:"boards"`
	LastUpdated time.Time                                      `json:"last_updated"`
}

// Top returns the board for kind and window (nil when absent)
func (h *HallOfFame) Top(kind ActivityKind, window Window) []LeaderboardEntry {
	if h == nil || h.Boards == nil {
		return nil
	}
	return h.Boards[kind][window]
}
