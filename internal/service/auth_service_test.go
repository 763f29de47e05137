package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/parishhub/chms-api/internal/models"
)

type mockAuthUserRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
	revokedAll    []string
	passwords     map[string]string
	audits        []models.AuditLog
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
		passwords:     map[string]string{},
	}
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	if user, ok := m.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "parishhub-chms",
		Audience:           []string{"parishhub-admin"},
	}
}

func seedUser(repo *mockAuthUserRepo, password string, active bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Admin One",
		Role:         models.RoleAdmin,
		Active:       active,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "admin@example.com", resp.User.Email)
	assert.Len(t, repo.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", false)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked; replaying it must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1", models.LoginRequest{}))
	assert.Len(t, repo.revoked, 1)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "battery-staple",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u1")

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "battery-staple",
	})
	require.NoError(t, err)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "battery-staple",
	})
	require.Error(t, err)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := newMockAuthUserRepo()
	seedUser(repo, "correct-horse", true)
	svc := NewAuthService(repo, nil, nil, authTestConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
