package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"courses_sheet_api/internal/common"
	"courses_sheet_api/internal/common/security"
	"courses_sheet_api/internal/domain/repository/inmem"
	"courses_sheet_api/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestJWT() {
	config.AppConfig = &config.Config{
		JWTKey: []byte("test-secret"),
		JWTExp: time.Hour,
	}
	security.InitJWT()
}

func newAuthService() *AuthService {
	initTestJWT()
	return NewAuthService(inmem.NewUserRepository(inmem.NewStore()))
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and returns a token", func(t *testing.T) {
		svc := newAuthService()
		resp, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "alice", resp.User.Username)
		assert.Nil(t, resp.User.HashedPassword)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		svc := newAuthService()
		_, err := svc.Signup(ctx, SignupRequest{Email: "alice@example.com"})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc := newAuthService()
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, SignupRequest{Username: "alice2", Email: "alice@example.com", Password: "hunter23"})
		assert.ErrorIs(t, err, common.ErrConflict)
		assert.Contains(t, err.Error(), "User already exists with this email")
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		svc := newAuthService()
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)

		resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Nil(t, resp.User.HashedPassword)
	})

	t.Run("unknown email and bad password both look the same", func(t *testing.T) {
		svc := newAuthService()
		_, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
		require.NoError(t, err)

		_, unknownErr := svc.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "hunter22"})
		assert.ErrorIs(t, unknownErr, common.ErrUnauthorized)

		_, badPassErr := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, badPassErr, common.ErrUnauthorized)
		assert.Contains(t, badPassErr.Error(), "Invalid email or password")
	})
}

func TestUserNeverSerializesPassword(t *testing.T) {
	svc := newAuthService()
	resp, err := svc.Signup(context.Background(), SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	payload, err := json.Marshal(resp.User)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "hunter22")
	assert.NotContains(t, string(payload), "password")
}
