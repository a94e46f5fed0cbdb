package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organizer/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	userID := uuid.New()

	token, err := manager.GenerateToken(userID, "ana@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	other, err := NewJWTManager("other", time.Hour).GenerateToken(uuid.New(), "x@example.com")
	require.NoError(t, err)
	_, err = manager.ValidateToken(other)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired := NewJWTManager("secret", time.Hour)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(expired.secret)
	require.NoError(t, err)
	_, err = manager.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	noSubject := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "service",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, noSubject).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = manager.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTMiddleware(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	userID := uuid.New()
	token, err := manager.GenerateToken(userID, "bia@example.com")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", JWTMiddleware(manager), func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{"bearer header", "/me", "Bearer " + token, http.StatusOK},
		{"query token", "/me?access_token=" + token, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "/me", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	manager := NewJWTManager("secret", time.Hour)
	provider := NewLocalProvider(manager)

	session, userID, err := provider.Signup(ctx, models.SignupRequest{Email: "Ana@Example.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, 3600, session.ExpiresIn)

	_, _, err = provider.Signup(ctx, models.SignupRequest{Email: "ana@example.com", Password: "outro123"})
	assert.True(t, errors.Is(err, ErrEmailTaken))

	_, err = provider.Login(ctx, "ana@example.com", "errado")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	login, err := provider.Login(ctx, "ana@example.com", "segredo")
	require.NoError(t, err)
	claims, err := manager.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)

	refreshed, err := provider.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = provider.Refresh(ctx, login.RefreshToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
