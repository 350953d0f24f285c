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

func intPtr(v int) *int { return &v }

func setupAssignment(t *testing.T, env *testEnv, points int, due *time.Time) (*model.User, *model.User, *model.Assignment) {
	t.Helper()
	instructor := testutil.CreateUser(t, env.db, model.RoleInstructor, 0)
	learner := testutil.CreateUser(t, env.db, model.RoleUser, points)
	course := testutil.CreateCourse(t, env.db, instructor.ID, 1)
	testutil.Enroll(t, env.db, learner.ID, course.Course.ID)
	return instructor, learner, testutil.CreateAssignment(t, env.db, course.Lessons[0].ID, due)
}

func TestAssignmentOnTimeSubmissionAwardsBonus(t *testing.T) {
	env := newTestEnv(t)
	due := env.now.Add(24 * time.Hour)
	_, learner, assignment := setupAssignment(t, env, 0, &due)

	res, err := env.assignments.Submit(context.Background(), assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "answer"})
	require.NoError(t, err)
	assert.False(t, res.Late)
	assert.False(t, res.Resubmission)
	assert.Equal(t, 6, res.PointsDelta)
	assert.Equal(t, 6, res.Balance)
	assert.Equal(t, 1, res.Submission.SubmissionCount)
	assert.Equal(t, model.SubmissionPending, res.Submission.Status)
}

func TestAssignmentLateSubmission(t *testing.T) {
	env := newTestEnv(t)
	due := env.now.Add(-time.Hour)

	t.Run("insufficient balance leaves no row", func(t *testing.T) {
		_, learner, assignment := setupAssignment(t, env, 4, &due)

		_, err := env.assignments.Submit(context.Background(), assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "late"})
		assert.ErrorIs(t, err, util.ErrInsufficientPoints)

		var count int64
		require.NoError(t, env.db.Model(&model.AssignmentSubmission{}).
			Where("user_id = ? AND assignment_id = ?", learner.ID, assignment.ID).
			Count(&count).Error)
		assert.Zero(t, count)
		assert.Equal(t, 4, testutil.Points(t, env.db, learner.ID))
	})

	t.Run("fee charged", func(t *testing.T) {
		_, learner, assignment := setupAssignment(t, env, 5, &due)

		res, err := env.assignments.Submit(context.Background(), assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "late"})
		require.NoError(t, err)
		assert.True(t, res.Late)
		assert.Equal(t, -5, res.PointsDelta)
		assert.Equal(t, 0, res.Balance)
	})
}

func TestAssignmentResubmitCosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor, learner, assignment := setupAssignment(t, env, 20, nil)

	first, err := env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v1"})
	require.NoError(t, err)
	assert.Equal(t, 26, first.Balance)

	pending, err := env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v2"})
	require.NoError(t, err)
	assert.True(t, pending.Resubmission)
	assert.Equal(t, -3, pending.PointsDelta)
	assert.Equal(t, 23, pending.Balance)
	assert.Equal(t, 2, pending.Submission.SubmissionCount)
	assert.Equal(t, "v2", pending.Submission.Content)

	graded, err := env.assignments.Grade(ctx, pending.Submission.ID, instructor.ID, model.RoleInstructor, GradeSubmissionRequest{
		Status: model.SubmissionGraded,
		Grade:  intPtr(80),
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)

	again, err := env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v3"})
	require.NoError(t, err)
	assert.Equal(t, -10, again.PointsDelta)
	assert.Equal(t, 13, again.Balance)
	assert.Equal(t, model.SubmissionPending, again.Submission.Status)
	assert.Nil(t, again.Submission.Grade)
	assert.Equal(t, 3, again.Submission.SubmissionCount)

	report, err := env.ledger.Reconcile(ctx, learner.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestAssignmentResubmitInsufficientPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, learner, assignment := setupAssignment(t, env, 0, nil)

	_, err := env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v1"})
	require.NoError(t, err)
	_, err = env.ledger.Adjust(ctx, 1, learner.ID, -5, "")
	require.NoError(t, err)

	_, err = env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v2"})
	assert.ErrorIs(t, err, util.ErrInsufficientPoints)

	sub, err := env.assignments.AssignmentRepo.FindSubmission(ctx, learner.ID, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", sub.Content)
	assert.Equal(t, 1, sub.SubmissionCount)
}

func TestAssignmentGrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor, learner, assignment := setupAssignment(t, env, 0, nil)
	other := testutil.CreateUser(t, env.db, model.RoleInstructor, 0)
	admin := testutil.CreateUser(t, env.db, model.RoleAdmin, 0)

	res, err := env.assignments.Submit(ctx, assignment.ID, learner.ID, SubmitAssignmentRequest{Content: "v1"})
	require.NoError(t, err)
	subID := res.Submission.ID

	tests := []struct {
		name    string
		grader  *model.User
		req     GradeSubmissionRequest
		wantErr error
	}{
		{name: "other instructor", grader: other, req: GradeSubmissionRequest{Status: model.SubmissionGraded, Grade: intPtr(50)}, wantErr: util.ErrForbidden},
		{name: "pending is not a grade outcome", grader: instructor, req: GradeSubmissionRequest{Status: model.SubmissionPending}, wantErr: util.ErrValidation},
		{name: "unknown status", grader: instructor, req: GradeSubmissionRequest{Status: "lost", Grade: intPtr(10)}, wantErr: util.ErrValidation},
		{name: "missing grade", grader: instructor, req: GradeSubmissionRequest{Status: model.SubmissionGraded}, wantErr: util.ErrValidation},
		{name: "grade above points", grader: instructor, req: GradeSubmissionRequest{Status: model.SubmissionGraded, Grade: intPtr(101)}, wantErr: util.ErrValidation},
		{name: "return", grader: admin, req: GradeSubmissionRequest{Status: model.SubmissionReturned, Feedback: "redo"}},
		{name: "returned cannot be graded", grader: instructor, req: GradeSubmissionRequest{Status: model.SubmissionGraded, Grade: intPtr(90)}, wantErr: util.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.assignments.Grade(ctx, subID, tt.grader.ID, tt.grader.Role, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResubmitCost(t *testing.T) {
	rewards := config.DefaultRewards()
	assert.Equal(t, 3, resubmitCost(model.SubmissionPending, rewards))
	assert.Equal(t, 3, resubmitCost(model.SubmissionReturned, rewards))
	assert.Equal(t, 10, resubmitCost(model.SubmissionGraded, rewards))
}
