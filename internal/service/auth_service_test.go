package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/word-sanctuary/appraisal-api/internal/models"
	appErrors "github.com/word-sanctuary/appraisal-api/pkg/errors"
)

type authUserRepoStub struct {
	users map[string]models.User
}

func newAuthUserRepoStub() *authUserRepoStub {
	return &authUserRepoStub{users: map[string]models.User{}}
}

func (s *authUserRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authUserRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "u1"
	}
	s.users[user.ID] = *user
	return nil
}

func (s *authUserRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authUserRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type authCodeStoreStub struct {
	hashes map[string]string
	denied map[string]bool
}

func newAuthCodeStoreStub() *authCodeStoreStub {
	return &authCodeStoreStub{hashes: map[string]string{}, denied: map[string]bool{}}
}

func (s *authCodeStoreStub) StoreCodeHash(ctx context.Context, email, hash string, ttl time.Duration) error {
	s.hashes[email] = hash
	return nil
}

func (s *authCodeStoreStub) GetCodeHash(ctx context.Context, email string) (string, error) {
	return s.hashes[email], nil
}

func (s *authCodeStoreStub) DeleteCode(ctx context.Context, email string) error {
	delete(s.hashes, email)
	return nil
}

func (s *authCodeStoreStub) DenyToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.denied[tokenID] = true
	return nil
}

func (s *authCodeStoreStub) IsTokenDenied(ctx context.Context, tokenID string) (bool, error) {
	return s.denied[tokenID], nil
}

func newTestAuthService() (*AuthService, *authUserRepoStub, *authCodeStoreStub) {
	users := newAuthUserRepoStub()
	codes := newAuthCodeStoreStub()
	svc := NewAuthService(users, codes, nil, nil, AuthConfig{
		TokenSecret: "test_secret",
		TokenExpiry: time.Hour,
		Issuer:      "appraisal-api",
		CodeTTL:     10 * time.Minute,
		CodeLength:  4,
		DefaultRole: models.RoleLeadership,
		DevMode:     true,
	})
	return svc, users, codes
}

func TestAuthLoginIssuesCode(t *testing.T) {
	svc, _, codes := newTestAuthService()

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "pastor@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "pastor@example.com", resp.Email)
	assert.Len(t, resp.DevCode, 4)
	assert.NotEmpty(t, codes.hashes["pastor@example.com"])
}

func TestAuthLoginRejectsBadEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthVerifyRejectsMalformedCode(t *testing.T) {
	svc, _, _ := newTestAuthService()

	for _, code := range []string{"123", "12345", "abcd", "12a4"} {
		_, err := svc.Verify(context.Background(), models.VerifyRequest{Email: "pastor@example.com", Code: code})
		require.Error(t, err, "code %q", code)
		assert.Equal(t, appErrors.ErrInvalidCode.Code, appErrors.FromError(err).Code)
	}
}

func TestAuthVerifyCreatesUserWithDefaultRole(t *testing.T) {
	svc, users, _ := newTestAuthService()

	resp, err := svc.Verify(context.Background(), models.VerifyRequest{Email: "new@example.com", Code: "1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleLeadership, resp.User.Role)

	created, err := users.FindByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleLeadership, created.Role)
}

func TestAuthVerifyUsesStoredRole(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.users["u9"] = models.User{ID: "u9", Email: "admin@example.com", Role: models.RoleSuperAdmin, Active: true}

	resp, err := svc.Verify(context.Background(), models.VerifyRequest{Email: "admin@example.com", Code: "9999"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)
}

func TestAuthVerifyConsumesOutstandingCode(t *testing.T) {
	svc, _, codes := newTestAuthService()

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "pastor@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, codes.hashes["pastor@example.com"])

	_, err = svc.Verify(context.Background(), models.VerifyRequest{Email: "pastor@example.com", Code: "1234"})
	require.NoError(t, err)
	assert.Empty(t, codes.hashes["pastor@example.com"])
}

func TestAuthSelectRoleIssuesTokenForChosenRole(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.users["u1"] = models.User{ID: "u1", Email: "pastor@example.com", Role: models.RoleLeadership, Active: true}

	resp, err := svc.SelectRole(context.Background(), "u1", models.SelectRoleRequest{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthSelectRoleRejectsUnknownRole(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.users["u1"] = models.User{ID: "u1", Email: "pastor@example.com", Role: models.RoleLeadership, Active: true}

	_, err := svc.SelectRole(context.Background(), "u1", models.SelectRoleRequest{Role: models.Role("owner")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutDenylistsToken(t *testing.T) {
	svc, users, _ := newTestAuthService()
	users.users["u1"] = models.User{ID: "u1", Email: "pastor@example.com", Role: models.RoleLeadership, Active: true}

	resp, err := svc.SelectRole(context.Background(), "u1", models.SelectRoleRequest{Role: models.RoleLeadership})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))

	_, err = svc.ValidateToken(context.Background(), resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
