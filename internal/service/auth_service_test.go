package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	t.Helper()
	users := repository.NewUserRepository()
	userSvc := NewUserService(users, nil, nil)
	u, err := userSvc.Register(context.Background(), registerReq("login-user", models.RoleStudent, ""))
	require.NoError(t, err)

	auth := NewAuthService(users, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "consultation-queue",
	})
	return auth, u
}

func TestLoginIssuesValidToken(t *testing.T) {
	auth, u := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), models.LoginRequest{Username: "login-user", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, u.ID, resp.User.ID)

	claims, err := auth.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "login-user", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "consultation-queue", claims.Issuer)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthFixture(t)

	_, err := auth.Login(context.Background(), models.LoginRequest{Username: "login-user", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	// Unknown usernames report the same error as a bad password.
	_, err = auth.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret-pass"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	auth, _ := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), models.LoginRequest{Username: "login-user", Password: "secret-pass"})
	require.NoError(t, err)

	_, err = auth.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	other := NewAuthService(repository.NewUserRepository(), nil, nil, AuthConfig{Secret: "different-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = auth.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
