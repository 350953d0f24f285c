package service

import (
	"coursehub_backend/internal/config"
	"sync"
)

// Rules holds reward amounts and progression switches. Config reloads swap them at runtime.
type Rules struct {
	mu          sync.RWMutex
	rewards     config.RewardsConfig
	progression config.ProgressionConfig
}

func NewRules(rewards config.RewardsConfig, progression config.ProgressionConfig) *Rules {
	return &Rules{rewards: rewards, progression: progression}
}

func (r *Rules) Rewards() config.RewardsConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rewards
}

func (r *Rules) Progression() config.ProgressionConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progression
}

// Update 校验通过后替换规则，校验失败保留旧值
func (r *Rules) Update(rewards config.RewardsConfig, progression config.ProgressionConfig) error {
	if err := rewards.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.rewards = rewards
	r.progression = progression
	r.mu.Unlock()
	return nil
}
