package collector

import (
	"context"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// Collector defines the interface for collecting GitHub data
type Collector interface {
	// ListRepositories retrieves every repository of an organization or user account
	ListRepositories(ctx context.Context, owner string) ([]domain.RepositoryRef, error)

	// CollectRepository retrieves the complete contribution data of one repository
	CollectRepository(ctx context.Context, owner, repo string) (*domain.RepositoryPayload, error)

	// CollectOrganizationData collects all repositories of an account. A repository that
	// fails is skipped and reported in FailedRepositories.
	CollectOrganizationData(ctx context.Context, owner string, onProgress ProgressCallback) (*domain.OrganizationPayload, error)
}

// ProgressCallback is a callback function for reporting progress
type ProgressCallback func(repo string, progress float64)

// Factory builds a Collector authenticated with token
type Factory func(token string) Collector
