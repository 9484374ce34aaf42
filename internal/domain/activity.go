package domain

import "time"

// ActivityKind represents the type of contribution being counted
type ActivityKind string

const (
	KindPullRequest ActivityKind = "pr"
	KindIssue       ActivityKind = "issue"
	KindCommit      ActivityKind = "commit"
)

// ActivityKinds lists every kind in the order stats and rankings are built
var ActivityKinds = []ActivityKind{KindPullRequest, KindIssue, KindCommit}

// Valid reports whether k is a known activity kind
func (k ActivityKind) Valid() bool {
	switch k {
	case KindPullRequest, KindIssue, KindCommit:
		return true
	}
	return false
}

// Window represents a time range a count is computed over
type Window string

const (
	WindowAllTime Window = "all_time"
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

// Windows lists every window in ranking order
var Windows = []Window{WindowAllTime, WindowDaily, WindowWeekly, WindowMonthly}

// RawActivity is a single attributed contribution fact
type RawActivity struct {
	Username  string
	Kind      ActivityKind
	Timestamp time.Time // always UTC
	Repo      string
}

// Date returns the UTC calendar date of the activity as YYYY-MM-DD
func (a RawActivity) Date() string {
	return a.Timestamp.UTC().Format(DateLayout)
}

// DateLayout is the calendar date format used for windows and streaks
const DateLayout = "2006-01-02"
