package guard

import (
	"context"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/upstream"
)

// Credentials is what the pharmacy API hands back for a login or refresh.
type Credentials struct {
	Operator domain.Operator
	Access   domain.Token
	Refresh  *domain.Token
}

// TokenSource abstracts the upstream auth endpoints so the guard can be
// tested against a fake.
type TokenSource interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (*Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
}

// UpstreamSource adapts the pharmacy API client to the TokenSource contract.
type UpstreamSource struct {
	Client *upstream.Client
}

func (s UpstreamSource) Login(ctx context.Context, email, password string, rememberMe bool) (*Credentials, error) {
	result, err := s.Client.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Operator: result.Operator(),
		Access:   result.Tokens.AccessToken(),
		Refresh:  result.Tokens.RefreshTokenValue(),
	}, nil
}

func (s UpstreamSource) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	tokens, err := s.Client.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Access:  tokens.AccessToken(),
		Refresh: tokens.RefreshTokenValue(),
	}, nil
}
