package repository

import (
	"context"
	"coursehub_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) FindCourse(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) FindChapter(ctx context.Context, id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).First(&chapter, id).Error
	return &chapter, err
}

// FindLesson 查询课时并预加载所属章节
func (r *CourseRepository) FindLesson(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Preload("Chapter").First(&lesson, id).Error
	return &lesson, err
}

// ListCourseLessons returns every lesson of a course with its chapter, in course order:
// chapter position, lesson position, then id.
func (r *CourseRepository) ListCourseLessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Preload("Chapter").
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id AND chapters.deleted_at IS NULL").
		Where("lessons.course_id = ?", courseID).
		Order("chapters.position ASC, lessons.position ASC, lessons.id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) UpdateLessonStatus(ctx context.Context, id uint, status model.PublishStatus, releaseAt *time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "release_at": releaseAt}).
		Error
}

func (r *CourseRepository) UpdateChapterStatus(ctx context.Context, id uint, status model.PublishStatus, releaseAt *time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Chapter{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "release_at": releaseAt}).
		Error
}

// PublishDueLessons 将到期的定时课时改为已发布，返回受影响行数
func (r *CourseRepository) PublishDueLessons(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("status = ? AND release_at IS NOT NULL AND release_at <= ?", model.PublishScheduled, now).
		Update("status", model.PublishPublished)
	return res.RowsAffected, res.Error
}

func (r *CourseRepository) PublishDueChapters(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Chapter{}).
		Where("status = ? AND release_at IS NOT NULL AND release_at <= ?", model.PublishScheduled, now).
		Update("status", model.PublishPublished)
	return res.RowsAffected, res.Error
}

func (r *CourseRepository) CreateEarlyUnlock(ctx context.Context, unlock *model.EarlyUnlock) error {
	return r.DB.WithContext(ctx).Create(unlock).Error
}

// ListEarlyUnlocks 返回用户持有的全部提前解锁授权
func (r *CourseRepository) ListEarlyUnlocks(ctx context.Context, userID uint) ([]model.EarlyUnlock, error) {
	var unlocks []model.EarlyUnlock
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&unlocks).Error
	return unlocks, err
}
