package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
)

// Document ids inside the repo_stats collection
const (
	docSnapshot   = "contributions"
	docHallOfFame = "hall_of_fame"
)

// Store provides typed access to the documents of the bot
type Store struct {
	docs DocumentStore
}

// NewStore wraps a document store
func NewStore(docs DocumentStore) *Store {
	return &Store{docs: docs}
}

// Close closes the underlying document store
func (s *Store) Close() error {
	return s.docs.Close()
}

func (s *Store) getJSON(ctx context.Context, scope Scope, collection, id string, v any) error {
	data, err := s.docs.Get(ctx, scope, collection, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("corrupt document %s/%s", collection, id), err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, scope Scope, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	return s.docs.Set(ctx, scope, collection, id, data)
}

// GetTenant returns the configuration of a Discord server
func (s *Store) GetTenant(ctx context.Context, serverID string) (*domain.TenantConfig, error) {
	var tenant domain.TenantConfig
	if err := s.getJSON(ctx, GlobalScope(), CollectionServers, serverID, &tenant); err != nil {
		return nil, err
	}
	if tenant.DiscordServerID == "" {
		tenant.DiscordServerID = serverID
	}
	return &tenant, nil
}

// SaveTenant stores the configuration of a Discord server
func (s *Store) SaveTenant(ctx context.Context, tenant *domain.TenantConfig) error {
	if tenant.DiscordServerID == "" {
		return apperrors.NewBadRequestError("discord server id is required")
	}
	tenant.UpdatedAt = time.Now().UTC()
	return s.setJSON(ctx, GlobalScope(), CollectionServers, tenant.DiscordServerID, tenant)
}

// ListTenants returns every tenant ordered by server id
func (s *Store) ListTenants(ctx context.Context) ([]*domain.TenantConfig, error) {
	docs, err := s.docs.List(ctx, GlobalScope(), CollectionServers)
	if err != nil {
		return nil, err
	}
	tenants := make([]*domain.TenantConfig, 0, len(docs))
	for id, data := range docs {
		var tenant domain.TenantConfig
		if err := json.Unmarshal(data, &tenant); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("corrupt tenant %s", id), err)
		}
		if tenant.DiscordServerID == "" {
			tenant.DiscordServerID = id
		}
		tenants = append(tenants, &tenant)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].DiscordServerID < tenants[j].DiscordServerID })
	return tenants, nil
}

// SaveUserMapping links a Discord user to a GitHub login
func (s *Store) SaveUserMapping(ctx context.Context, mapping *domain.UserMapping) error {
	if mapping.DiscordID == "" || mapping.GitHubUsername == "" {
		return apperrors.NewBadRequestError("discord id and github username are required")
	}
	if mapping.LinkedAt.IsZero() {
		mapping.LinkedAt = time.Now().UTC()
	}
	return s.setJSON(ctx, GlobalScope(), CollectionUsers, mapping.DiscordID, mapping)
}

// GetUserMapping returns the GitHub link of a Discord user
func (s *Store) GetUserMapping(ctx context.Context, discordID string) (*domain.UserMapping, error) {
	var mapping domain.UserMapping
	if err := s.getJSON(ctx, GlobalScope(), CollectionUsers, discordID, &mapping); err != nil {
		return nil, err
	}
	if mapping.DiscordID == "" {
		mapping.DiscordID = discordID
	}
	return &mapping, nil
}

// UserMappings returns discord id -> github username for every linked user
func (s *Store) UserMappings(ctx context.Context) (map[string]string, error) {
	docs, err := s.docs.List(ctx, GlobalScope(), CollectionUsers)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(docs))
	for id, data := range docs {
		var mapping domain.UserMapping
		if err := json.Unmarshal(data, &mapping); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("corrupt user mapping %s", id), err)
		}
		if mapping.GitHubUsername != "" {
			out[id] = mapping.GitHubUsername
		}
	}
	return out, nil
}

// SaveSnapshot replaces the contribution snapshot of an organization
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error {
	return s.setJSON(ctx, OrgScope(snapshot.Org), CollectionRepoStats, docSnapshot, snapshot)
}

// GetSnapshot returns the latest contribution snapshot of an organization
func (s *Store) GetSnapshot(ctx context.Context, org string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	if err := s.getJSON(ctx, OrgScope(org), CollectionRepoStats, docSnapshot, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SaveHallOfFame stores the hall of fame of an organization
func (s *Store) SaveHallOfFame(ctx context.Context, org string, hof *domain.HallOfFame) error {
	return s.setJSON(ctx, OrgScope(org), CollectionRepoStats, docHallOfFame, hof)
}

// GetHallOfFame returns the hall of fame of an organization
func (s *Store) GetHallOfFame(ctx context.Context, org string) (*domain.HallOfFame, error) {
	var hof domain.HallOfFame
	if err := s.getJSON(ctx, OrgScope(org), CollectionRepoStats, docHallOfFame, &hof); err != nil {
		return nil, err
	}
	return &hof, nil
}

// SaveRun creates or updates a pipeline run record
func (s *Store) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	run.UpdatedAt = time.Now().UTC()
	return s.setJSON(ctx, OrgScope(run.Org), CollectionPipelineRuns, run.ID, run)
}

// FinishRun marks a run completed or failed
func (s *Store) FinishRun(ctx context.Context, run *domain.PipelineRun, runErr error) error {
	run.Status = domain.RunStatusCompleted
	run.Error = ""
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}
	return s.SaveRun(ctx, run)
}

// ActiveRuns returns the in-progress runs of org started after since, oldest first
func (s *Store) ActiveRuns(ctx context.Context, org string, since time.Time) ([]*domain.PipelineRun, error) {
	docs, err := s.docs.List(ctx, OrgScope(org), CollectionPipelineRuns)
	if err != nil {
		return nil, err
	}
	var runs []*domain.PipelineRun
	for id, data := range docs {
		var run domain.PipelineRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("corrupt pipeline run %s", id), err)
		}
		if run.Status == domain.RunStatusInProgress && !run.StartedAt.Before(since) {
			runs = append(runs, &run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}
