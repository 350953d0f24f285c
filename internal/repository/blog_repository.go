package repository

import (
	"context"
	"coursehub_backend/internal/model"

	"gorm.io/gorm"
)

type BlogRepository struct {
	DB *gorm.DB
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{DB: db}
}

func (r *BlogRepository) WithTx(tx *gorm.DB) *BlogRepository {
	return &BlogRepository{DB: tx}
}

func (r *BlogRepository) FindByID(ctx context.Context, id uint) (*model.Blog, error) {
	var blog model.Blog
	err := r.DB.WithContext(ctx).First(&blog, id).Error
	return &blog, err
}

func (r *BlogRepository) Create(ctx context.Context, blog *model.Blog) error {
	return r.DB.WithContext(ctx).Create(blog).Error
}

func (r *BlogRepository) Save(ctx context.Context, blog *model.Blog) error {
	return r.DB.WithContext(ctx).Save(blog).Error
}

// CountFreeEligible 统计占用免费额度的博客：非草稿且已通过或已发布
func (r *BlogRepository) CountFreeEligible(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Blog{}).
		Where("author_id = ? AND is_draft = ? AND status IN ?", authorID, false,
			[]model.BlogStatus{model.BlogPublished, model.BlogApproved}).
		Count(&n).Error
	return n, err
}

func (r *BlogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Unscoped().Model(&model.Blog{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// UpdateStatusIf moves a blog between states only if it is still in from.
func (r *BlogRepository) UpdateStatusIf(ctx context.Context, id uint, from model.BlogStatus, updates map[string]interface{}) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Blog{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
