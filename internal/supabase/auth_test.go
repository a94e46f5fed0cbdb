package supabase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/gotrue-go/types"

	"organizer/internal/auth"
	"organizer/internal/models"
)

type fakeAuthAPI struct {
	userID    uuid.UUID
	signupErr error
	confirm   bool
}

func (f *fakeAuthAPI) session() types.Session {
	return types.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		User:         types.User{ID: f.userID, Email: "ana@example.com"},
	}
}

func (f *fakeAuthAPI) SignInWithEmailPassword(email, password string) (*types.TokenResponse, error) {
	if password != "segredo" {
		return nil, errors.New("response status code 400: invalid_grant")
	}
	return &types.TokenResponse{Session: f.session()}, nil
}

func (f *fakeAuthAPI) Signup(req types.SignupRequest) (*types.SignupResponse, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	resp := &types.SignupResponse{User: types.User{ID: f.userID, Email: req.Email}}
	if !f.confirm {
		resp.Session = f.session()
	}
	return resp, nil
}

func (f *fakeAuthAPI) RefreshToken(refreshToken string) (*types.TokenResponse, error) {
	if refreshToken != "refresh" {
		return nil, errors.New("response status code 400: invalid refresh token")
	}
	return &types.TokenResponse{Session: f.session()}, nil
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{userID: uuid.New()}
	a := NewAuth(fake)

	session, err := a.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, fake.userID, session.UserID)
	assert.Equal(t, "access", session.AccessToken)

	_, err = a.Login(ctx, "ana@example.com", "errado")
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestAuth_Signup(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{userID: uuid.New(), confirm: true}
	a := NewAuth(fake)

	session, userID, err := a.Signup(ctx, models.SignupRequest{Email: "ana@example.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, fake.userID, userID)

	fake.signupErr = errors.New("response status code 422: User already registered")
	_, _, err = a.Signup(ctx, models.SignupRequest{Email: "ana@example.com", Password: "segredo"})
	assert.True(t, errors.Is(err, auth.ErrEmailTaken))
}

func TestAuth_Refresh(t *testing.T) {
	a := NewAuth(&fakeAuthAPI{userID: uuid.New()})
	_, err := a.Refresh(context.Background(), "stale")
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}
