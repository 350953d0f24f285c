package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/testutil"
	"coursehub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteLessonIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 1)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	lessonID := course.Lessons[0].ID

	first, err := env.access.CompleteLesson(ctx, lessonID, learner.ID)
	require.NoError(t, err)
	assert.True(t, first.FirstCompletion)
	assert.Equal(t, 3, first.PointsAwarded)
	assert.Equal(t, 3, first.Balance)

	again, err := env.access.CompleteLesson(ctx, lessonID, learner.ID)
	require.NoError(t, err)
	assert.False(t, again.FirstCompletion)
	assert.Zero(t, again.PointsAwarded)
	assert.Equal(t, 3, again.Balance)
	assert.Equal(t, 3, testutil.Points(t, env.db, learner.ID))
}

func TestUnpassedRequiredQuizLocksNextLesson(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 2)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	first, second := course.Lessons[0], course.Lessons[1]
	quiz := testutil.CreateQuiz(t, env.db, first.ID, 2, 10, true)

	access, err := env.access.Resolve(ctx, second.ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, access.IsLocked)
	assert.Equal(t, LockReasonIncomplete, access.LockReason)
	assert.Empty(t, access.Lesson.Content)

	_, err = env.access.CompleteLesson(ctx, first.ID, learner.ID)
	require.NoError(t, err)

	current, err := env.access.Resolve(ctx, first.ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, current.Completed)
	assert.True(t, current.NextLessonLocked)

	access, err = env.access.Resolve(ctx, second.ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, access.IsLocked)
	assert.Equal(t, LockReasonQuiz, access.LockReason)

	_, err = env.access.CompleteLesson(ctx, second.ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrLessonLocked)

	_, err = env.quizzes.Submit(ctx, quiz.ID, learner.ID, answersFor(quiz, 2))
	require.NoError(t, err)

	access, err = env.access.Resolve(ctx, second.ID, learner.ID)
	require.NoError(t, err)
	assert.False(t, access.IsLocked)
	assert.Equal(t, "content", access.Lesson.Content)
}

func TestUnsubmittedAssignmentLocksNextLesson(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 2)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	assignment := testutil.CreateAssignment(t, env.db, course.Lessons[0].ID, nil)

	_, err := env.access.CompleteLesson(ctx, course.Lessons[0].ID, learner.ID)
	require.NoError(t, err)

	access, err := env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, LockReasonAssignment, access.LockReason)

	_, err = env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "done"})
	require.NoError(t, err)

	access, err = env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	require.NoError(t, err)
	assert.False(t, access.IsLocked)
}

func TestPendingQuizCarveOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 2)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	testutil.CreateQuiz(t, env.db, course.Lessons[1].ID, 2, 10, true)

	access, err := env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	require.NoError(t, err)
	assert.False(t, access.IsLocked, "lesson with a pending required quiz stays reachable")

	require.NoError(t, env.rules.Update(config.DefaultRewards(), config.ProgressionConfig{QuizPendingCarveOut: false}))

	access, err = env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, access.IsLocked)
	assert.Equal(t, LockReasonIncomplete, access.LockReason)
}

func TestScheduledLessonShowsCountdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 1)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	lesson := course.Lessons[0]

	releaseAt := env.now.Add(48 * time.Hour)
	require.NoError(t, env.db.Model(lesson).Updates(map[string]interface{}{
		"status":     model.PublishScheduled,
		"release_at": releaseAt,
	}).Error)

	access, err := env.access.Resolve(ctx, lesson.ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, access.IsScheduled)
	require.NotNil(t, access.ReleaseAt)
	assert.True(t, access.ReleaseAt.Equal(releaseAt))
	assert.Empty(t, access.Lesson.Content)

	_, err = env.access.CompleteLesson(ctx, lesson.ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrLessonNotReleased)

	_, err = env.access.GrantEarlyUnlock(ctx, 1, EarlyUnlockRequest{UserID: learner.ID, ChapterID: &course.Chapter.ID})
	require.NoError(t, err)

	access, err = env.access.Resolve(ctx, lesson.ID, learner.ID)
	require.NoError(t, err)
	assert.False(t, access.IsScheduled)
	assert.Equal(t, "content", access.Lesson.Content)
}

func TestDraftLessonIsHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 2)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)

	require.NoError(t, env.db.Model(course.Lessons[1]).Update("status", model.PublishDraft).Error)
	_, err := env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	// 章节为草稿时，仅单独发布的课时可见
	require.NoError(t, env.db.Model(course.Chapter).Update("status", model.PublishDraft).Error)
	require.NoError(t, env.db.Model(course.Lessons[1]).Update("status", model.PublishScheduled).Error)
	_, err = env.access.Resolve(ctx, course.Lessons[1].ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	access, err := env.access.Resolve(ctx, course.Lessons[0].ID, learner.ID)
	require.NoError(t, err)
	assert.Nil(t, access.NextLessonID)
}

func TestResolveRequiresActiveEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 1)

	_, err := env.access.Resolve(ctx, course.Lessons[0].ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	enrollment := testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	_, err = env.enrollments.SetStatus(ctx, enrollment.ID, model.EnrollmentSuspended)
	require.NoError(t, err)

	_, err = env.access.Resolve(ctx, course.Lessons[0].ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestCourseOutline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 3)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)

	_, err := env.access.CompleteLesson(ctx, course.Lessons[0].ID, learner.ID)
	require.NoError(t, err)

	outline, err := env.access.CourseOutline(ctx, course.Course.ID, learner.ID)
	require.NoError(t, err)
	require.Len(t, outline.Lessons, 3)
	assert.Equal(t, 1, outline.CompletedCount)
	assert.Equal(t, 3, outline.TotalCount)

	assert.True(t, outline.Lessons[0].Completed)
	assert.False(t, outline.Lessons[1].IsLocked)
	assert.True(t, outline.Lessons[2].IsLocked)
	assert.Equal(t, "Chapter 1", outline.Lessons[2].ChapterTitle)
}

func TestGrantEarlyUnlockValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	learner := testutil.CreateUser(t, env.db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, env.db, 0, 1)
	missing := uint(9999)

	tests := []struct {
		name    string
		req     EarlyUnlockRequest
		wantErr error
	}{
		{name: "neither target", req: EarlyUnlockRequest{UserID: learner.ID}, wantErr: util.ErrValidation},
		{name: "both targets", req: EarlyUnlockRequest{UserID: learner.ID, LessonID: &course.Lessons[0].ID, ChapterID: &course.Chapter.ID}, wantErr: util.ErrValidation},
		{name: "unknown lesson", req: EarlyUnlockRequest{UserID: learner.ID, LessonID: &missing}, wantErr: util.ErrNotFound},
		{name: "unknown user", req: EarlyUnlockRequest{UserID: missing, LessonID: &course.Lessons[0].ID}, wantErr: util.ErrNotFound},
		{name: "lesson", req: EarlyUnlockRequest{UserID: learner.ID, LessonID: &course.Lessons[0].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.access.GrantEarlyUnlock(ctx, 1, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
