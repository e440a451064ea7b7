package service

import (
	"testing"
	"time"

	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/testutil"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	db := testutil.NewEmptyDB(t)
	return NewAuthService(repository.NewUserRepository(db), &config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour})
}

func TestRegisterAndLogin(t *testing.T) {
	s := newAuthService(t)

	res, err := s.Register("alice", "pw123456", "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, "pw123456", res.User.PasswordHash)

	claims, err := util.ParseJWT(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	login, err := s.Login("alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestRegisterRejectsDuplicateAndMissing(t *testing.T) {
	s := newAuthService(t)

	_, err := s.Register("bob", "secret", "")
	require.NoError(t, err)

	_, err = s.Register("bob", "other", "")
	assert.ErrorIs(t, err, util.ErrUsernameTaken)

	_, err = s.Register("", "pw", "")
	assert.ErrorIs(t, err, util.ErrMissingFields)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newAuthService(t)
	_, err := s.Register("carol", "right", "")
	require.NoError(t, err)

	_, err = s.Login("carol", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = s.Login("nobody", "right")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}
