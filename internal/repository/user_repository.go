package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).
		Error
}

// ApplyPoints 原子地调整积分余额，余额不足时不更新任何行（返回 0）
func (r *UserRepository) ApplyPoints(ctx context.Context, userID uint, delta int) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND points + ? >= 0", userID, delta).
		Update("points", gorm.Expr("points + ?", delta))
	return res.RowsAffected, res.Error
}

func (r *UserRepository) GetPoints(ctx context.Context, userID uint) (int, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Select("id", "points").First(&user, userID).Error
	return user.Points, err
}

// ListIDsAfter 按主键分批遍历用户
func (r *UserRepository) ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
