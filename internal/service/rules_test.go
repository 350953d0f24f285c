package service

import (
	"context"
	"coursehub_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesUpdateKeepsOldValuesOnError(t *testing.T) {
	rules := NewRules(config.DefaultRewards(), config.ProgressionConfig{QuizPendingCarveOut: true})

	bad := config.DefaultRewards()
	bad.QuizPassScore = 120
	assert.Error(t, rules.Update(bad, config.ProgressionConfig{}))
	assert.Equal(t, 70, rules.Rewards().QuizPassScore)
	assert.True(t, rules.Progression().QuizPendingCarveOut)

	good := config.DefaultRewards()
	good.BlogPublishFee = 8
	require.NoError(t, rules.Update(good, config.ProgressionConfig{}))
	assert.Equal(t, 8, rules.Rewards().BlogPublishFee)
	assert.False(t, rules.Progression().QuizPendingCarveOut)
}

func TestSubmissionGuardWithoutRedis(t *testing.T) {
	var nilGuard *SubmissionGuard
	for _, g := range []*SubmissionGuard{nilGuard, NewSubmissionGuard(nil)} {
		release, err := g.Acquire(context.Background(), "quiz", 1, 2)
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, "lock:quiz:1:2", lockKey("quiz", 1, 2))
}
