package domain

import "time"

// Snapshot is the persisted result of one pipeline run for an organization
type Snapshot struct {
	Org          string                  `json:"org"`
	RunID        string                  `json:"run_id"`
	LastUpdated  time.Time               `json:"last_updated"`
	Contributors []*ContributorAggregate `json:"contributors"`
	Metrics      RepositoryMetrics       `json:"metrics"`
}

// Contributor finds a contributor in the snapshot
func (s *Snapshot) Contributor(username string) (*ContributorAggregate, bool) {
	for _, c := range s.Contributors {
		if c.Username == username {
			return c, true
		}
	}
	return nil, false
}

// ReconciliationJob is the per-tenant input of the guild reconciler
type ReconciliationJob struct {
	DiscordServerID string
	UserMappings    map[string]string // discord user id -> github username
	Contributions   map[string]*ContributorAggregate
	Metrics         RepositoryMetrics
	RoleRules       RoleRules
	Medals          map[string]string // github username -> medal role name
}

// PipelineRun records one execution of the pipeline for an organization
type PipelineRun struct {
	ID        string    `json:"id"`
	Org       string    `json:"org"`
	Trigger   string    `json:"trigger"` // "schedule" or "manual"
	Status    string    `json:"status"`  // "in_progress", "completed", "failed"
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Pipeline run statuses
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)
