package controller

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/middleware"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/testutil"
	"coursehub_backend/internal/util"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizSubmitEndpoint(t *testing.T) {
	db := testutil.OpenDB(t)
	rules := service.NewRules(config.DefaultRewards(), config.ProgressionConfig{QuizPendingCarveOut: true})
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	ledger := service.NewLedgerService(db, userRepo, repository.NewLedgerRepository(db))
	access := service.NewLessonAccessService(db, courseRepo, repository.NewEnrollmentRepository(db),
		repository.NewProgressRepository(db), repository.NewAssignmentRepository(db), quizRepo, userRepo, ledger, rules)
	ctrl := NewQuizController(service.NewQuizService(db, quizRepo, access, ledger, nil, rules))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api", middleware.AuthMiddleware(testJWT))
	api.POST("/quizzes/:id/submit", ctrl.Submit)
	api.GET("/quizzes/:id/submission", ctrl.GetSubmission)

	learner := testutil.CreateUser(t, db, model.RoleUser, 0)
	course := testutil.CreateCourse(t, db, 0, 1)
	testutil.Enroll(t, db, learner.ID, course.Course.ID)
	quiz := testutil.CreateQuiz(t, db, course.Lessons[0].ID, 2, 10, false)
	path := fmt.Sprintf("/api/quizzes/%d/submit", quiz.ID)

	rec, _ := doRequest(t, router, learner, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/submission", quiz.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	answer := func(i, option int) model.QuizAnswer {
		return model.QuizAnswer{QuestionID: quiz.Questions[i].ID, SelectedOption: option}
	}

	rec, resp := doRequest(t, router, learner, http.MethodPost, path, service.SubmitQuizRequest{
		Answers: []model.QuizAnswer{answer(0, 0)},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, util.ErrIncompleteAnswers.Error(), resp.Message)

	rec, resp = doRequest(t, router, learner, http.MethodPost, path, service.SubmitQuizRequest{
		Answers: []model.QuizAnswer{answer(0, 0), answer(1, 2)},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(50), data["score"])
	assert.Equal(t, float64(5), data["pointsEarned"])
	assert.Equal(t, float64(5), data["balance"])

	rec, _ = doRequest(t, router, learner, http.MethodPost, path, service.SubmitQuizRequest{
		Answers: []model.QuizAnswer{answer(0, 0), answer(1, 0)},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = doRequest(t, router, learner, http.MethodGet, fmt.Sprintf("/api/quizzes/%d/submission", quiz.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok = resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["attempts"])
	assert.Equal(t, float64(5), data["pointsEarned"])
}
