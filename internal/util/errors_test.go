package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "not found", err: ErrNotFound, want: http.StatusNotFound},
		{name: "gorm not found", err: gorm.ErrRecordNotFound, want: http.StatusNotFound},
		{name: "validation", err: Validationf("bad %s", "input"), want: http.StatusBadRequest},
		{name: "incomplete answers", err: ErrIncompleteAnswers, want: http.StatusBadRequest},
		{name: "insufficient points", err: fmt.Errorf("charge: %w", ErrInsufficientPoints), want: http.StatusPaymentRequired},
		{name: "already submitted", err: ErrQuizAlreadySubmitted, want: http.StatusConflict},
		{name: "duplicate key", err: gorm.ErrDuplicatedKey, want: http.StatusConflict},
		{name: "invalid credentials", err: ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestNotFoundOr(t *testing.T) {
	assert.ErrorIs(t, NotFoundOr(gorm.ErrRecordNotFound), ErrNotFound)
	assert.Nil(t, NotFoundOr(nil))

	other := errors.New("db down")
	assert.Equal(t, other, NotFoundOr(other))
}

func TestHandleErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{name: "not found hides detail", err: fmt.Errorf("lesson 7: %w", ErrNotFound), wantCode: http.StatusNotFound, wantMessage: MsgNotFound},
		{name: "internal is generic", err: errors.New("sql: connection refused"), wantCode: http.StatusInternalServerError, wantMessage: MsgRetry},
		{name: "conflict keeps message", err: ErrBlogAlreadyReviewed, wantCode: http.StatusConflict, wantMessage: ErrBlogAlreadyReviewed.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tt.err)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}
}
