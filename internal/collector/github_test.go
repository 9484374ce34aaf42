package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
)

func setupCollector(t *testing.T, concurrency int) (*githubCollector, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	logger := zap.NewNop()
	return newCollector(client, NewRateLimiter(0, logger), concurrency, logger), mux
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func registerRepository(mux *http.ServeMux, owner, repo string) {
	base := "/repos/" + owner + "/" + repo
	mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"name":"`+repo+`","stargazers_count":12,"forks_count":3}`)
	})
	mux.HandleFunc(base+"/contributors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"login":"alice"},{"login":"bob"}]`)
	})
	mux.HandleFunc(base+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"number":1,"user":{"login":"bob"},"created_at":"2024-05-01T10:00:00Z","merged_at":"2024-05-02T10:00:00Z"},
			{"number":2,"user":{"login":"bob"},"created_at":"2024-05-03T10:00:00Z"}
		]`)
	})
	mux.HandleFunc(base+"/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"number":3,"user":{"login":"carol"},"created_at":"2024-05-04T10:00:00Z"},
			{"number":1,"user":{"login":"bob"},"created_at":"2024-05-01T10:00:00Z","pull_request":{"url":"x"}}
		]`)
	})
	mux.HandleFunc(base+"/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"sha":"a1","author":{"login":"alice"},"commit":{"author":{"date":"2024-05-05T08:00:00Z"}}}]`)
	})
}

func TestCollectRepository(t *testing.T) {
	c, mux := setupCollector(t, 1)
	registerRepository(mux, "acme", "web")

	payload, err := c.CollectRepository(context.Background(), "acme", "web")
	require.NoError(t, err)

	assert.Equal(t, 12, payload.Info.Stars)
	assert.Equal(t, 3, payload.Info.Forks)
	assert.Len(t, payload.Contributors, 2)

	require.Len(t, payload.PullRequests, 1, "only merged pull requests are kept")
	assert.Equal(t, "bob", payload.PullRequests[0].Author)
	assert.Equal(t, "2024-05-01T10:00:00Z", payload.PullRequests[0].CreatedAt)
	assert.Equal(t, "web", payload.PullRequests[0].Repository)

	require.Len(t, payload.Issues, 2)
	assert.False(t, payload.Issues[0].IsPullRequest)
	assert.True(t, payload.Issues[1].IsPullRequest)

	require.Len(t, payload.Commits, 1)
	assert.Equal(t, "alice", payload.Commits[0].Author)
	assert.Equal(t, "2024-05-05T08:00:00Z", payload.Commits[0].Date)
}

func TestCollectRepositoryPaginatesCommits(t *testing.T) {
	c, mux := setupCollector(t, 1)
	registerRepository(mux, "acme", "api")

	// Commits are served in two pages in front of the default handlers
	var serverURL string
	pages := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, `[{"sha":"b2","author":{"login":"bob"},"commit":{"author":{"date":"2024-05-02T08:00:00Z"}}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/api/commits?page=2>; rel="next"`, serverURL))
		writeJSON(w, `[{"sha":"b1","author":{"login":"alice"},"commit":{"author":{"date":"2024-05-01T08:00:00Z"}}}]`)
	})

	paged := http.NewServeMux()
	paged.Handle("/repos/acme/api/commits", pages)
	paged.Handle("/", mux)
	server := httptest.NewServer(paged)
	t.Cleanup(server.Close)
	serverURL = server.URL

	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	c.client.BaseURL = baseURL

	payload, err := c.CollectRepository(context.Background(), "acme", "api")
	require.NoError(t, err)
	require.Len(t, payload.Commits, 2)
	assert.Equal(t, "b1", payload.Commits[0].SHA)
	assert.Equal(t, "b2", payload.Commits[1].SHA)
}

func TestCollectRepositoryEmptyRepository(t *testing.T) {
	c, mux := setupCollector(t, 1)
	base := "/repos/acme/empty"
	mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"name":"empty"}`)
	})
	for _, path := range []string{"/contributors", "/pulls", "/issues"} {
		mux.HandleFunc(base+path, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `[]`)
		})
	}
	mux.HandleFunc(base+"/commits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, `{"message":"Git Repository is empty."}`)
	})

	payload, err := c.CollectRepository(context.Background(), "acme", "empty")
	require.NoError(t, err)
	assert.Empty(t, payload.Commits)
}

func TestListRepositoriesFallsBackToUser(t *testing.T) {
	c, mux := setupCollector(t, 1)
	mux.HandleFunc("/orgs/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"name":"dotfiles","owner":{"login":"alice"}},{"name":"blog","owner":{"login":"alice"},"fork":true}]`)
	})

	repos, err := c.ListRepositories(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "dotfiles", repos[0].Name)
	assert.True(t, repos[1].IsFork)
}

func TestListRepositoriesClassifiesFailures(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		check  func(error) bool
	}{
		{
			name:   "primary rate limit",
			status: http.StatusForbidden,
			header: map[string]string{"X-RateLimit-Limit": "5000", "X-RateLimit-Remaining": "0", "X-RateLimit-Reset": reset},
			body:   `{"message":"API rate limit exceeded"}`,
			check:  apperrors.IsRateLimited,
		},
		{
			name:   "secondary rate limit",
			status: http.StatusForbidden,
			body:   `{"message":"You have exceeded a secondary rate limit","documentation_url":"https://docs.github.com/rest/overview/resources-in-the-rest-api#secondary-rate-limits"}`,
			check:  apperrors.IsRateLimited,
		},
		{
			name:   "bad credentials",
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
			check:  apperrors.IsUnauthorized,
		},
		{
			name:   "installation lacks access",
			status: http.StatusForbidden,
			body:   `{"message":"Resource not accessible by integration"}`,
			check:  apperrors.IsForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mux := setupCollector(t, 1)
			mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.ListRepositories(context.Background(), "acme")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected classification: %v", err)
		})
	}
}

func TestCollectRepositoryKeepsPlainFailuresUnclassified(t *testing.T) {
	c, mux := setupCollector(t, 1)
	mux.HandleFunc("/repos/acme/web", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CollectRepository(context.Background(), "acme", "web")
	require.Error(t, err)
	_, ok := apperrors.CodeOf(err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to get repository acme/web")
}

func TestCollectOrganizationDataSkipsFailedRepositories(t *testing.T) {
	c, mux := setupCollector(t, 3)
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"name":"web","owner":{"login":"acme"}},
			{"name":"broken","owner":{"login":"acme"}},
			{"name":"api","owner":{"login":"acme"}}
		]`)
	})
	registerRepository(mux, "acme", "web")
	registerRepository(mux, "acme", "api")
	mux.HandleFunc("/repos/acme/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, `{"message":"boom"}`)
	})

	var seen []string
	payload, err := c.CollectOrganizationData(context.Background(), "acme", func(repo string, progress float64) {
		seen = append(seen, repo)
	})
	require.NoError(t, err)

	require.Len(t, payload.Repositories, 2)
	assert.Equal(t, "web", payload.Repositories[0].Name)
	assert.Equal(t, "api", payload.Repositories[1].Name)
	assert.Equal(t, []string{"broken"}, payload.FailedRepositories)
	assert.Len(t, seen, 3)
}

func TestStaticTokenSource(t *testing.T) {
	token, err := StaticTokenSource("ghp_x").Token(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ghp_x", token)

	_, err = StaticTokenSource("").Token(context.Background(), 42)
	assert.Error(t, err)
}
