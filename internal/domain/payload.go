package domain

import "time"

// OrganizationPayload is the raw data collected for one account in one run
type OrganizationPayload struct {
	Owner              string              `json:"owner"`
	CollectedAt        time.Time           `json:"collected_at"`
	Repositories       []RepositoryPayload `json:"repositories"`
	FailedRepositories []string            `json:"failed_repositories,omitempty"`
}

// RepositoryRef identifies a repository accessible to the installation
type RepositoryRef struct {
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	IsFork    bool   `json:"is_fork"`
}

// RepositoryInfo holds repository level counters
type RepositoryInfo struct {
	Stars int `json:"stars"`
	Forks int `json:"forks"`
}

// RepositoryPayload is the raw per-repository API data. Timestamps are kept
// as the API strings and parsed by the normalizer.
type RepositoryPayload struct {
	Name         string              `json:"name"`
	Owner        string              `json:"owner"`
	Info         RepositoryInfo      `json:"info"`
	Contributors []ContributorRecord `json:"contributors"`
	PullRequests []PullRequestRecord `json:"pull_requests"`
	Issues       []IssueRecord       `json:"issues"`
	Commits      []CommitRecord      `json:"commits"`
}

// ContributorRecord is an entry of the contributors listing
type ContributorRecord struct {
	Login string `json:"login"`
}

// PullRequestRecord is a pull request authored by Author
type PullRequestRecord struct {
	Number     int    `json:"number"`
	Author     string `json:"author"`
	CreatedAt  string `json:"created_at"`
	Repository string `json:"repository"`
}

// IssueRecord is an issue; the issues API also returns pull requests
type IssueRecord struct {
	Number        int    `json:"number"`
	Author        string `json:"author"`
	CreatedAt     string `json:"created_at"`
	IsPullRequest bool   `json:"is_pull_request"`
}

// CommitRecord is a commit whose author is linked to a GitHub login
type CommitRecord struct {
	SHA    string `json:"sha"`
	Author string `json:"author"`
	Date   string `json:"date"`
}

// RepositoryMetrics are the organization wide counters shown in guild channels
type RepositoryMetrics struct {
	Stars        int `json:"stars"`
	Forks        int `json:"forks"`
	Contributors int `json:"contributors"`
	PullRequests int `json:"pull_requests"`
	Issues       int `json:"issues"`
	Commits      int `json:"commits"`
}
