package service

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/testutil"
	"testing"
	"time"

	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	now         time.Time
	rules       *Rules
	ledger      *LedgerService
	access      *LessonAccessService
	quizzes     *QuizService
	assignments *AssignmentService
	blogs       *BlogService
	enrollments *EnrollmentService
	releases    *ReleaseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	env := &testEnv{
		db:    db,
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		rules: NewRules(config.DefaultRewards(), config.ProgressionConfig{QuizPendingCarveOut: true}),
	}
	clock := func() time.Time { return env.now }

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	blogRepo := repository.NewBlogRepository(db)

	// nil Redis: the guard is a no-op
	guard := NewSubmissionGuard(nil)

	env.ledger = NewLedgerService(db, userRepo, repository.NewLedgerRepository(db))
	env.ledger.Now = clock
	env.access = NewLessonAccessService(db, courseRepo, enrollmentRepo, progressRepo, assignmentRepo, quizRepo, userRepo, env.ledger, env.rules)
	env.access.Now = clock
	env.quizzes = NewQuizService(db, quizRepo, env.access, env.ledger, guard, env.rules)
	env.assignments = NewAssignmentService(db, assignmentRepo, courseRepo, env.access, env.ledger, guard, nil, env.rules)
	env.assignments.Now = clock
	env.blogs = NewBlogService(db, blogRepo, userRepo, env.ledger, guard, env.rules)
	env.blogs.Now = clock
	env.enrollments = NewEnrollmentService(enrollmentRepo, courseRepo)
	env.enrollments.Now = clock
	env.releases = NewReleaseService(db, courseRepo)
	env.releases.Now = clock
	return env
}
