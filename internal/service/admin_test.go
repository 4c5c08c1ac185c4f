package service

import (
	"context"
	"testing"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/config"
	"github.com/FitchII-cod/billiard-tracker/internal/rating"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminService(t *testing.T, env *testEnv, ttl time.Duration) *AdminService {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{AdminSessionTTL: ttl}
	return NewAdminService(cfg, env.settings, repository.NewAuditRepository(env.db, log), log)
}

func TestAdminLoginSetsPinOnFirstUse(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(t, env, time.Minute)
	ctx := context.Background()

	token, expiresIn, err := admin.Login(ctx, "1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, time.Minute, expiresIn)
	assert.NoError(t, admin.Verify(token))

	// The first login pinned the hash; a different PIN is now rejected.
	_, _, err = admin.Login(ctx, "4321")
	assert.ErrorIs(t, err, ErrUnauthorized)

	again, _, err := admin.Login(ctx, "1234")
	require.NoError(t, err)
	assert.NotEqual(t, token, again, "each login issues a fresh token")
}

func TestAdminVerify(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(t, env, -time.Second)

	assert.ErrorIs(t, admin.Verify(""), ErrUnauthorized)
	assert.ErrorIs(t, admin.Verify("no-such-token"), ErrUnauthorized)

	token, _, err := admin.Login(context.Background(), "1234")
	require.NoError(t, err)

	// Negative TTL: the session is born expired and pruned on first check.
	assert.ErrorIs(t, admin.Verify(token), ErrSessionExpired)
	assert.ErrorIs(t, admin.Verify(token), ErrUnauthorized)
}

func TestAdminUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(t, env, time.Minute)
	ctx := context.Background()

	err := admin.UpdateSettings(ctx, map[string]string{
		rating.KeyKBase: "32",
		rating.KeyAlpha: "not-a-number",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha")

	// The bad batch must not have written the valid key either.
	got, err := env.settings.Get(ctx, rating.KeyKBase)
	require.NoError(t, err)
	assert.Equal(t, "24", got)

	require.NoError(t, admin.UpdateSettings(ctx, map[string]string{rating.KeyKBase: "32"}))
	got, err = env.settings.Get(ctx, rating.KeyKBase)
	require.NoError(t, err)
	assert.Equal(t, "32", got)

	entries, err := admin.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings", entries[0].EntityType)
}
