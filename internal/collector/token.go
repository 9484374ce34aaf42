package collector

import (
	"context"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
)

// TokenSource resolves the GitHub token used for a tenant installation.
// Installation-token minting lives outside this module.
type TokenSource interface {
	Token(ctx context.Context, installationID int64) (string, error)
}

// StaticTokenSource hands out the same personal access token for every installation
type StaticTokenSource string

// Token implements TokenSource
func (s StaticTokenSource) Token(_ context.Context, _ int64) (string, error) {
	if s == "" {
		return "", apperrors.NewConfigurationError("no GitHub token available")
	}
	return string(s), nil
}
