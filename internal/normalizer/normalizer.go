// Package normalizer turns raw per-repository payloads into attributed
// contribution facts.
package normalizer

import (
	"strings"
	"time"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// Result is the normalized form of one repository payload
type Result struct {
	// Usernames lists every login seen in the payload, in first-seen order.
	// The repository owner is always first.
	Usernames  []string
	Activities []domain.RawActivity
	// Skipped counts facts dropped for a missing login or timestamp
	Skipped int
}

// Normalize extracts the contribution facts of repo. Issues that are pull
// requests are excluded from the issue facts; their authors are still registered.
func Normalize(repo domain.RepositoryPayload) Result {
	n := &normalization{seen: map[string]struct{}{}}

	n.register(repo.Owner)
	for _, c := range repo.Contributors {
		n.register(c.Login)
	}

	for _, pr := range repo.PullRequests {
		repoName := pr.Repository
		if repoName == "" {
			repoName = repo.Name
		}
		n.add(pr.Author, domain.KindPullRequest, pr.CreatedAt, repoName)
	}
	for _, issue := range repo.Issues {
		if issue.IsPullRequest {
			n.register(issue.Author)
			continue
		}
		n.add(issue.Author, domain.KindIssue, issue.CreatedAt, repo.Name)
	}
	for _, commit := range repo.Commits {
		n.add(commit.Author, domain.KindCommit, commit.Date, repo.Name)
	}

	return n.result
}

type normalization struct {
	seen   map[string]struct{}
	result Result
}

func (n *normalization) register(login string) bool {
	login = strings.TrimSpace(login)
	if login == "" {
		return false
	}
	if _, ok := n.seen[login]; !ok {
		n.seen[login] = struct{}{}
		n.result.Usernames = append(n.result.Usernames, login)
	}
	return true
}

func (n *normalization) add(login string, kind domain.ActivityKind, timestamp, repo string) {
	if !n.register(login) {
		n.result.Skipped++
		return
	}
	ts, ok := ParseTimestamp(timestamp)
	if !ok {
		n.result.Skipped++
		return
	}
	n.result.Activities = append(n.result.Activities, domain.RawActivity{
		Username:  strings.TrimSpace(login),
		Kind:      kind,
		Timestamp: ts,
		Repo:      repo,
	})
}

// ParseTimestamp parses an API timestamp into UTC. A trailing "Z" or an
// explicit offset are both accepted.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
