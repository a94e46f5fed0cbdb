package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"organizer/internal/models"
)

// LocalProvider is an in-process credential store used with the memory
// backend, so the API can run without the hosted auth service. It issues
// tokens with the same claims the hosted service does.
type LocalProvider struct {
	mu         sync.Mutex
	jwtManager *JWTManager
	users      map[string]localUser
	refresh    map[string]uuid.UUID
}

type localUser struct {
	id           uuid.UUID
	email        string
	passwordHash string
}

func NewLocalProvider(jwtManager *JWTManager) *LocalProvider {
	return &LocalProvider{
		jwtManager: jwtManager,
		users:      make(map[string]localUser),
		refresh:    make(map[string]uuid.UUID),
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (p *LocalProvider) Signup(_ context.Context, req models.SignupRequest) (*models.Session, uuid.UUID, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.users[email]; exists {
		return nil, uuid.Nil, ErrEmailTaken
	}
	user := localUser{id: uuid.New(), email: email, passwordHash: hash}
	p.users[email] = user

	session, err := p.issue(user)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return session, user.id, nil
}

func (p *LocalProvider) Login(_ context.Context, email, password string) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || !CheckPassword(password, user.passwordHash) {
		return nil, ErrInvalidCredentials
	}
	return p.issue(user)
}

// Refresh rotates the refresh token.
func (p *LocalProvider) Refresh(_ context.Context, refreshToken string) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.refresh[refreshToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	delete(p.refresh, refreshToken)
	for _, user := range p.users {
		if user.id == userID {
			return p.issue(user)
		}
	}
	return nil, ErrInvalidToken
}

// issue must be called with p.mu held.
func (p *LocalProvider) issue(user localUser) (*models.Session, error) {
	token, err := p.jwtManager.GenerateToken(user.id, user.email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refreshToken := uuid.NewString()
	p.refresh[refreshToken] = user.id
	return &models.Session{
		AccessToken:  token,
		RefreshToken: refreshToken,
		ExpiresIn:    int(p.jwtManager.ExpiresIn().Seconds()),
		UserID:       user.id,
		Email:        user.email,
	}, nil
}
