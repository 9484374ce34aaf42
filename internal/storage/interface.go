package storage

import (
	"context"
)

// ScopeKind says whether a document is global or belongs to an organization
type ScopeKind string

const (
	ScopeGlobal ScopeKind = "global"
	ScopeOrg    ScopeKind = "org"
)

// Scope addresses a namespace of collections
type Scope struct {
	Kind ScopeKind
	ID   string
}

// GlobalScope holds tenant configuration and user mappings
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// OrgScope holds the documents of one GitHub organization or account
func OrgScope(org string) Scope {
	return Scope{Kind: ScopeOrg, ID: org}
}

// Collection names
const (
	CollectionServers      = "discord_servers"
	CollectionUsers        = "discord_users"
	CollectionRepoStats    = "repo_stats"
	CollectionPipelineRuns = "pipeline_runs"
)

// DocumentStore is a keyed JSON document store. Writes are last-writer-wins
// per document; there are no cross-document transactions.
type DocumentStore interface {
	// Get returns the document or a NOT_FOUND AppError
	Get(ctx context.Context, scope Scope, collection, id string) ([]byte, error)

	// Set creates or replaces a document
	Set(ctx context.Context, scope Scope, collection, id string, data []byte) error

	// List returns every document of a collection keyed by id
	List(ctx context.Context, scope Scope, collection string) (map[string][]byte, error)

	// Delete removes a document; deleting a missing document is not an error
	Delete(ctx context.Context, scope Scope, collection, id string) error

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
