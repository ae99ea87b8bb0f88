package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/config"
	"litrevu/internal/model"
	"litrevu/internal/repository/memstore"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (*AuthService, *memstore.Store, *model.User) {
	t.Helper()
	store := memstore.New()
	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHashed: "x"}
	require.NoError(t, store.Users().Create(context.Background(), user))

	svc := NewAuthService(store.RefreshTokens(), &config.Config{
		JWTSecret:          testSecret,
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
	})
	return svc, store, user
}

func TestAuth_GenerateTokenPair(t *testing.T) {
	svc, store, user := newAuthFixture(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(ctx, user.ID, "Mozilla/5.0", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 900, pair.ExpiresIn)
	assert.NotEmpty(t, pair.RefreshToken)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(pair.AccessToken, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, user.ID, claims["user_id"])

	// Only the hash is stored.
	stored, err := store.RefreshTokens().FindByTokenHash(ctx, hashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, stored.TokenHash)
	require.NotNil(t, stored.UserAgent)
	assert.Equal(t, "Mozilla/5.0", *stored.UserAgent)
}

func TestAuth_RefreshRotates(t *testing.T) {
	svc, store, user := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)

	second, userID, err := svc.RefreshTokens(ctx, first.RefreshToken, "", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	old, err := store.RefreshTokens().FindByTokenHash(ctx, hashToken(first.RefreshToken))
	require.NoError(t, err)
	assert.True(t, old.IsRevoked())
	next, err := store.RefreshTokens().FindByTokenHash(ctx, hashToken(second.RefreshToken))
	require.NoError(t, err)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, next.ID, *old.ReplacedBy)
}

func TestAuth_ReuseRevokesEverySession(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)
	other, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)
	second, _, err := svc.RefreshTokens(ctx, first.RefreshToken, "", "")
	require.NoError(t, err)

	_, _, err = svc.RefreshTokens(ctx, first.RefreshToken, "", "")
	assert.ErrorIs(t, err, model.ErrRefreshTokenReused)

	for _, raw := range []string{second.RefreshToken, other.RefreshToken} {
		_, _, err = svc.RefreshTokens(ctx, raw, "", "")
		assert.ErrorIs(t, err, model.ErrRefreshTokenReused)
	}
}

func TestAuth_RefreshRejectsUnknownAndExpired(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := svc.RefreshTokens(ctx, "not-a-token", "", "")
	assert.ErrorIs(t, err, model.ErrRefreshTokenNotFound)

	pair, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = svc.RefreshTokens(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, model.ErrRefreshTokenExpired)
}

func TestAuth_Logout(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)
	require.NoError(t, svc.RevokeRefreshToken(ctx, pair.RefreshToken))

	_, _, err = svc.RefreshTokens(ctx, pair.RefreshToken, "", "")
	assert.ErrorIs(t, err, model.ErrRefreshTokenReused)
}

func TestAuth_PurgeExpired(t *testing.T) {
	svc, store, user := newAuthFixture(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(ctx, user.ID, "", "")
	require.NoError(t, err)

	n, err := svc.PurgeExpired(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.RefreshTokens().Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: "stale",
		ExpiresAt: time.Now().Add(-48 * time.Hour),
	}))
	n, err = svc.PurgeExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.RefreshTokens().FindByTokenHash(ctx, hashToken(pair.RefreshToken))
	assert.NoError(t, err)
}
