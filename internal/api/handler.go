package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tim48-robot/disgitbot/internal/domain"
	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/ranker"
)

// SnapshotReader loads the persisted results of the pipeline
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, org string) (*domain.Snapshot, error)
	GetHallOfFame(ctx context.Context, org string) (*domain.HallOfFame, error)
}

// Handler handles API requests
type Handler struct {
	snapshots SnapshotReader
}

// NewHandler creates a new API handler
func NewHandler(snapshots SnapshotReader) *Handler {
	return &Handler{
		snapshots: snapshots,
	}
}

// GetContributors returns every contributor of the latest snapshot
// GET /api/v1/orgs/:org/contributors
func (h *Handler) GetContributors(c *gin.Context) {
	snapshot, err := h.snapshots.GetSnapshot(c.Request.Context(), c.Param("org"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         snapshot.Contributors,
		"run_id":       snapshot.RunID,
		"last_updated": snapshot.LastUpdated,
	})
}

// GetContributor returns one contributor
// GET /api/v1/orgs/:org/contributors/:username
func (h *Handler) GetContributor(c *gin.Context) {
	snapshot, err := h.snapshots.GetSnapshot(c.Request.Context(), c.Param("org"))
	if err != nil {
		respondError(c, err)
		return
	}

	username := c.Param("username")
	contributor, ok := snapshot.Contributor(username)
	if !ok {
		respondError(c, apperrors.NewNotFoundError("contributor "+username))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": contributor,
	})
}

// GetLeaderboard returns one ranking
// GET /api/v1/orgs/:org/leaderboard?key=pr_monthly&limit=10
func (h *Handler) GetLeaderboard(c *gin.Context) {
	key := domain.RankingKey(c.DefaultQuery("key", string(domain.KindPullRequest)))
	if _, _, ok := key.Parse(); !ok {
		respondError(c, apperrors.NewBadRequestError("unknown ranking key: "+string(key)))
		return
	}

	limit := ranker.DefaultHallOfFameSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, apperrors.NewBadRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	snapshot, err := h.snapshots.GetSnapshot(c.Request.Context(), c.Param("org"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":  key,
		"data": ranker.LeaderboardOf(snapshot.Contributors, key, limit),
	})
}

// GetHallOfFame returns the stored hall of fame
// GET /api/v1/orgs/:org/hall-of-fame
func (h *Handler) GetHallOfFame(c *gin.Context) {
	hof, err := h.snapshots.GetHallOfFame(c.Request.Context(), c.Param("org"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": hof,
	})
}

// GetRepositoryMetrics returns the organization-wide totals
// GET /api/v1/orgs/:org/metrics/repository
func (h *Handler) GetRepositoryMetrics(c *gin.Context) {
	snapshot, err := h.snapshots.GetSnapshot(c.Request.Context(), c.Param("org"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         snapshot.Metrics,
		"last_updated": snapshot.LastUpdated,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeForbidden:
			status = http.StatusForbidden
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		case apperrors.ErrCodeUnavailable:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
