package controller

import (
	"bytes"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/middleware"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/testutil"
	"coursehub_backend/internal/util"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = &config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}

func newPointsRouter(t *testing.T, ledger *service.LedgerService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := NewPointsController(ledger)

	router := gin.New()
	api := router.Group("/api", middleware.AuthMiddleware(testJWT))
	api.GET("/points", ctrl.Balance)
	admin := api.Group("/admin", middleware.RoleMiddleware(model.RoleAdmin))
	admin.POST("/users/:id/points", ctrl.Adjust)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, user *model.User, method, path string, body interface{}) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := util.GenerateJWT(user, testJWT.Secret, testJWT.ExpireTime)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestPointsEndpoints(t *testing.T) {
	db := testutil.OpenDB(t)
	ledger := service.NewLedgerService(db, repository.NewUserRepository(db), repository.NewLedgerRepository(db))
	router := newPointsRouter(t, ledger)

	learner := testutil.CreateUser(t, db, model.RoleUser, 4)
	admin := testutil.CreateUser(t, db, model.RoleAdmin, 0)
	adjustPath := fmt.Sprintf("/api/admin/users/%d/points", learner.ID)

	t.Run("unauthenticated", func(t *testing.T) {
		rec, resp := doRequest(t, router, nil, http.MethodGet, "/api/points", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, util.StatusError, resp.Status)
	})

	t.Run("balance", func(t *testing.T) {
		rec, resp := doRequest(t, router, learner, http.MethodGet, "/api/points", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, util.StatusSuccess, resp.Status)
		assert.Equal(t, map[string]interface{}{"balance": float64(4)}, resp.Data)
	})

	t.Run("learner cannot adjust", func(t *testing.T) {
		rec, _ := doRequest(t, router, learner, http.MethodPost, adjustPath, AdjustPointsRequest{Delta: 100, Note: "self"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("overdraw is payment required", func(t *testing.T) {
		rec, resp := doRequest(t, router, admin, http.MethodPost, adjustPath, AdjustPointsRequest{Delta: -5, Note: "penalty"})
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, util.ErrInsufficientPoints.Error(), resp.Message)
		assert.Equal(t, 4, testutil.Points(t, db, learner.ID))
	})

	t.Run("missing note", func(t *testing.T) {
		rec, _ := doRequest(t, router, admin, http.MethodPost, adjustPath, map[string]int{"delta": 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admin adjusts", func(t *testing.T) {
		rec, resp := doRequest(t, router, admin, http.MethodPost, adjustPath, AdjustPointsRequest{Delta: -4, Note: "penalty"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, util.StatusSuccess, resp.Status)
		assert.Equal(t, 0, testutil.Points(t, db, learner.ID))
	})

	t.Run("unknown user", func(t *testing.T) {
		rec, resp := doRequest(t, router, admin, http.MethodPost, "/api/admin/users/9999/points", AdjustPointsRequest{Delta: 1, Note: "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, util.MsgNotFound, resp.Message)
	})
}
