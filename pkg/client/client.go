package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// Client is the API client for the disgitbot snapshot API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-200 answer of the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Contributors is the contributor listing of one snapshot
type Contributors struct {
	Data        []*domain.ContributorAggregate `json:"data"`
	RunID       string                         `json:"run_id"`
	LastUpdated time.Time                      `json:"last_updated"`
}

// GetContributors retrieves every contributor of the latest snapshot
func (c *Client) GetContributors(org string) (*Contributors, error) {
	var response Contributors
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/contributors", url.PathEscape(org)), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetContributor retrieves one contributor
func (c *Client) GetContributor(org, username string) (*domain.ContributorAggregate, error) {
	path := fmt.Sprintf("/api/v1/orgs/%s/contributors/%s", url.PathEscape(org), url.PathEscape(username))

	var response struct {
		Data *domain.ContributorAggregate `json:"data"`
	}
	if err := c.get(path, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLeaderboard retrieves one ranking; limit 0 uses the server default
func (c *Client) GetLeaderboard(org string, key domain.RankingKey, limit int) ([]domain.LeaderboardEntry, error) {
	params := url.Values{}
	params.Set("key", string(key))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Data []domain.LeaderboardEntry `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/leaderboard", url.PathEscape(org)), params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetHallOfFame retrieves the stored hall of fame
func (c *Client) GetHallOfFame(org string) (*domain.HallOfFame, error) {
	var response struct {
		Data *domain.HallOfFame `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/hall-of-fame", url.PathEscape(org)), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRepositoryMetrics retrieves the organization totals
func (c *Client) GetRepositoryMetrics(org string) (*domain.RepositoryMetrics, error) {
	var response struct {
		Data *domain.RepositoryMetrics `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/metrics/repository", url.PathEscape(org)), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
