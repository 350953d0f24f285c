package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type LedgerRepository struct {
	DB *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: tx}
}

func (r *LedgerRepository) Create(ctx context.Context, event *model.PointEvent) error {
	return r.DB.WithContext(ctx).Create(event).Error
}

// ListByUser 按时间倒序分页返回积分流水
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]model.PointEvent, int64, error) {
	var (
		events []model.PointEvent
		total  int64
	)
	q := r.DB.WithContext(ctx).Model(&model.PointEvent{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, total, err
}

func (r *LedgerRepository) SumByUser(ctx context.Context, userID uint) (int, error) {
	var sum int
	err := r.DB.WithContext(ctx).Model(&model.PointEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *LedgerRepository) CountByReason(ctx context.Context, userID uint, reason model.PointReason, refType string, refID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.PointEvent{}).
		Where("user_id = ? AND reason = ? AND ref_type = ? AND ref_id = ?", userID, reason, refType, refID).
		Count(&n).Error
	return n, err
}
