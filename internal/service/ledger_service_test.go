package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/testutil"
	"coursehub_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerApply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, model.RoleUser, 10)

	tests := []struct {
		name        string
		userID      uint
		delta       int
		wantErr     error
		wantBalance int
	}{
		{name: "credit", userID: user.ID, delta: 5, wantBalance: 15},
		{name: "debit to zero", userID: user.ID, delta: -15, wantBalance: 0},
		{name: "overdraw rejected", userID: user.ID, delta: -1, wantErr: util.ErrInsufficientPoints, wantBalance: 0},
		{name: "unknown user", userID: 9999, delta: 1, wantErr: util.ErrNotFound, wantBalance: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event *model.PointEvent
			err := env.db.Transaction(func(tx *gorm.DB) error {
				var err error
				event, err = env.ledger.Apply(ctx, tx, PointChange{UserID: tt.userID, Delta: tt.delta, Reason: model.ReasonAdminAdjustment})
				return err
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBalance, event.BalanceAfter)
			}
			assert.Equal(t, tt.wantBalance, testutil.Points(t, env.db, user.ID))
		})
	}

	report, err := env.ledger.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Zero(t, report.LedgerSum)
}

func TestLedgerApplyZeroDeltaWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, model.RoleUser, 0)

	event, err := env.ledger.Apply(context.Background(), env.db, PointChange{UserID: user.ID, Reason: model.ReasonQuizRetake})
	require.NoError(t, err)
	assert.Nil(t, event)

	var count int64
	require.NoError(t, env.db.Model(&model.PointEvent{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLedgerReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, model.RoleUser, 3)

	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", user.ID).Update("points", 10).Error)

	report, err := env.ledger.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, 10, report.Materialized)
	assert.Equal(t, 3, report.LedgerSum)
	assert.Equal(t, 7, report.Drift)
}

func TestLedgerAdjustAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, model.RoleUser, 0)

	_, err := env.ledger.Adjust(ctx, 1, user.ID, 0, "noop")
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = env.ledger.Adjust(ctx, 1, user.ID, -1, "overdraw")
	assert.ErrorIs(t, err, util.ErrInsufficientPoints)

	for i := 0; i < 3; i++ {
		_, err := env.ledger.Adjust(ctx, 1, user.ID, 2, "bonus")
		require.NoError(t, err)
	}

	history, err := env.ledger.History(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, history.Balance)
	assert.Equal(t, int64(3), history.Total)
	assert.Len(t, history.Events, 2)
}
