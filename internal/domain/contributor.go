package domain

import "sort"

// KindStats holds the counts for one activity kind
type KindStats struct {
	AllTime       int     `json:"all_time"`
	Daily         int     `json:"daily"`
	Weekly        int     `json:"weekly"`
	Monthly       int     `json:"monthly"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	AvgPerDay     float64 `json:"avg_per_day"`
}

// Window returns the count for the given window
func (s KindStats) Window(w Window) int {
	switch w {
	case WindowDaily:
		return s.Daily
	case WindowWeekly:
		return s.Weekly
	case WindowMonthly:
		return s.Monthly
	default:
		return s.AllTime
	}
}

// ContributorStats groups the per-kind stats of a contributor
type ContributorStats struct {
	PR     KindStats `json:"pr"`
	Issue  KindStats `json:"issue"`
	Commit KindStats `json:"commit"`
}

// ContributorAggregate is the derived statistics record of one GitHub user
type ContributorAggregate struct {
	Username        string              `json:"username"`
	Stats           ContributorStats    `json:"stats"`
	Repositories    []string            `json:"repositories"`
	TotalActivity   int                 `json:"total_activity"`
	MonthlyActivity map[string]int      `json:"monthly_activity"`
	Rankings        map[RankingKey]int  `json:"rankings,omitempty"`
	repoSet         map[string]struct{} // backs Repositories
}

// NewContributorAggregate creates an empty aggregate for username
func NewContributorAggregate(username string) *ContributorAggregate {
	return &ContributorAggregate{
		Username:        username,
		Repositories:    []string{},
		MonthlyActivity: map[string]int{},
		repoSet:         map[string]struct{}{},
	}
}

// For returns the mutable stats of the given kind
func (c *ContributorAggregate) For(kind ActivityKind) *KindStats {
	switch kind {
	case KindIssue:
		return &c.Stats.Issue
	case KindCommit:
		return &c.Stats.Commit
	default:
		return &c.Stats.PR
	}
}

// Count returns the all-time count for kind
func (c *ContributorAggregate) Count(kind ActivityKind) int {
	return c.For(kind).AllTime
}

// Counts returns the all-time counts keyed by kind
func (c *ContributorAggregate) Counts() map[ActivityKind]int {
	return map[ActivityKind]int{
		KindPullRequest: c.Stats.PR.AllTime,
		KindIssue:       c.Stats.Issue.AllTime,
		KindCommit:      c.Stats.Commit.AllTime,
	}
}

// AddRepository records that the contributor was active in repo
func (c *ContributorAggregate) AddRepository(repo string) {
	if repo == "" {
		return
	}
	if c.repoSet == nil {
		c.repoSet = make(map[string]struct{}, len(c.Repositories))
		for _, r := range c.Repositories {
			c.repoSet[r] = struct{}{}
		}
	}
	if _, ok := c.repoSet[repo]; ok {
		return
	}
	c.repoSet[repo] = struct{}{}
	c.Repositories = append(c.Repositories, repo)
	sort.Strings(c.Repositories)
}

// ContributorSet is the run-owned map of aggregates. Iteration follows the
// order in which usernames were first seen.
type ContributorSet struct {
	order  []string
	byName map[string]*ContributorAggregate
}

// NewContributorSet creates an empty set
func NewContributorSet() *ContributorSet {
	return &ContributorSet{byName: map[string]*ContributorAggregate{}}
}

// Ensure returns the aggregate for username, creating it when missing
func (s *ContributorSet) Ensure(username string) *ContributorAggregate {
	if agg, ok := s.byName[username]; ok {
		return agg
	}
	agg := NewContributorAggregate(username)
	s.byName[username] = agg
	s.order = append(s.order, username)
	return agg
}

// Get looks up an aggregate
func (s *ContributorSet) Get(username string) (*ContributorAggregate, bool) {
	agg, ok := s.byName[username]
	return agg, ok
}

// All returns the aggregates in first-seen order
func (s *ContributorSet) All() []*ContributorAggregate {
	out := make([]*ContributorAggregate, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Map returns the aggregates keyed by username
func (s *ContributorSet) Map() map[string]*ContributorAggregate {
	out := make(map[string]*ContributorAggregate, len(s.byName))
	for name, agg := range s.byName {
		out[name] = agg
	}
	return out
}

// Len returns the number of aggregates
func (s *ContributorSet) Len() int {
	return len(s.order)
}
