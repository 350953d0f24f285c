package testutil

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/pkg/database"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenDB returns a migrated in-memory sqlite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}
	db, err := database.InitDB(cfg, "test")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole, points int) *model.User {
	t.Helper()
	u := &model.User{
		Name:     "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     role,
		Points:   points,
	}
	require.NoError(t, db.Create(u).Error)
	if points != 0 {
		// 初始余额同样记入流水，保持对账一致
		require.NoError(t, db.Create(&model.PointEvent{
			CreatedAt:    time.Now(),
			UserID:       u.ID,
			Delta:        points,
			BalanceAfter: points,
			Reason:       model.ReasonAdminAdjustment,
			RefType:      "seed",
		}).Error)
	}
	return u
}

// Course is a seeded course with one published chapter and ordered published lessons.
type Course struct {
	Course  *model.Course
	Chapter *model.Chapter
	Lessons []*model.Lesson
}

func CreateCourse(t *testing.T, db *gorm.DB, instructorID uint, lessons int) *Course {
	t.Helper()
	c := &Course{
		Course: &model.Course{
			Title:        "Course",
			Slug:         "course-" + uuid.NewString()[:8],
			InstructorID: instructorID,
		},
	}
	require.NoError(t, db.Create(c.Course).Error)

	c.Chapter = &model.Chapter{CourseID: c.Course.ID, Title: "Chapter 1", Position: 1, Status: model.PublishPublished}
	require.NoError(t, db.Create(c.Chapter).Error)

	for i := 0; i < lessons; i++ {
		l := &model.Lesson{
			CourseID:  c.Course.ID,
			ChapterID: c.Chapter.ID,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			Content:   "content",
			Position:  i + 1,
			Status:    model.PublishPublished,
		}
		require.NoError(t, db.Create(l).Error)
		c.Lessons = append(c.Lessons, l)
	}
	return c
}

func Enroll(t *testing.T, db *gorm.DB, userID, courseID uint) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{UserID: userID, CourseID: courseID, Status: model.EnrollmentActive, EnrolledAt: time.Now()}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateQuiz adds a quiz whose questions all have option 0 as the correct answer.
func CreateQuiz(t *testing.T, db *gorm.DB, lessonID uint, questions, points int, required bool) *model.Quiz {
	t.Helper()
	q := &model.Quiz{LessonID: lessonID, Title: "Quiz", Points: points, Required: required}
	require.NoError(t, db.Create(q).Error)
	for i := 0; i < questions; i++ {
		qq := model.QuizQuestion{
			QuizID:       q.ID,
			Position:     i + 1,
			Prompt:       fmt.Sprintf("Q%d", i+1),
			Options:      []string{"a", "b", "c"},
			CorrectIndex: 0,
		}
		require.NoError(t, db.Create(&qq).Error)
		q.Questions = append(q.Questions, qq)
	}
	return q
}

func CreateAssignment(t *testing.T, db *gorm.DB, lessonID uint, due *time.Time) *model.Assignment {
	t.Helper()
	a := &model.Assignment{LessonID: lessonID, Title: "Assignment", Points: 100, DueDate: due}
	require.NoError(t, db.Create(a).Error)
	return a
}

func Points(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var u model.User
	require.NoError(t, db.Select("points").First(&u, userID).Error)
	return u.Points
}
