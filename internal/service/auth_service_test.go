package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/testutil"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	return NewAuthService(repository.NewUserRepository(db), &config.JWTConfig{Secret: "secret", ExpireTime: time.Hour}), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Name: "Ann", Email: " Ann@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	res, err := svc.Login(ctx, LoginRequest{Email: "ANN@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	claims, err := util.ParseJWT(res.Token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "password1"})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk full"))
	}))

	res, err := svc.Login(ctx, LoginRequest{Email: "bo@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	entries := logs.FilterMessage("Failed to update last login").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "disk full", entries[0].ContextMap()["error"])
}
