package supabase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"

	"organizer/internal/auth"
	"organizer/internal/models"
	"organizer/internal/store"
)

// authAPI is the subset of the hosted auth client used here. gotrue.Client
// satisfies it.
type authAPI interface {
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
	Signup(req types.SignupRequest) (*types.SignupResponse, error)
	RefreshToken(refreshToken string) (*types.TokenResponse, error)
}

// Auth proxies credential flows to the hosted auth service. Tokens it hands
// out are verified locally by auth.JWTManager.
type Auth struct {
	client authAPI
}

func NewAuth(client authAPI) *Auth {
	return &Auth{client: client}
}

func (a *Auth) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidCredentials, err)
	}
	return sessionFrom(resp.Session), nil
}

// Signup registers a user. The returned session is nil when the project
// requires email confirmation before the first login.
func (a *Auth) Signup(ctx context.Context, req models.SignupRequest) (*models.Session, uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, uuid.Nil, err
	}
	resp, err := a.client.Signup(types.SignupRequest{
		Email:    req.Email,
		Password: req.Password,
		Data:     map[string]interface{}{"display_name": req.DisplayName},
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already registered") {
			return nil, uuid.Nil, fmt.Errorf("%w: %v", auth.ErrEmailTaken, err)
		}
		return nil, uuid.Nil, store.Classify("signup", "", err)
	}
	if resp.Session.AccessToken == "" {
		return nil, resp.User.ID, nil
	}
	return sessionFrom(resp.Session), resp.User.ID, nil
}

func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return sessionFrom(resp.Session), nil
}

func sessionFrom(s types.Session) *models.Session {
	return &models.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		UserID:       s.User.ID,
		Email:        s.User.Email,
	}
}
