package util

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

const (
	MsgNotFound = "Resource not found"
	MsgRetry    = "Something went wrong, please try again"
)

// 错误分类：校验、状态冲突、积分不足、未找到
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("state conflict")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

var (
	ErrEmailRegistered      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrIncompleteAnswers    = fmt.Errorf("%w: all questions must be answered", ErrValidation)
	ErrQuizAlreadySubmitted = fmt.Errorf("%w: quiz already submitted", ErrConflict)
	ErrLessonLocked         = fmt.Errorf("%w: complete the previous lesson first", ErrConflict)
	ErrLessonNotReleased    = fmt.Errorf("%w: lesson is not released yet", ErrConflict)
	ErrBlogAlreadyReviewed  = fmt.Errorf("%w: blog already reviewed", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrSubmissionInProgress = fmt.Errorf("%w: submission already in progress", ErrConflict)
	ErrStaleState           = fmt.Errorf("%w: resource changed, reload and retry", ErrConflict)
	ErrAlreadyEnrolled      = fmt.Errorf("%w: already enrolled", ErrConflict)
)

// StatusFromError maps the error taxonomy onto HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientPoints):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// NotFoundOr collapses gorm's missing-row error into ErrNotFound and passes others through.
func NotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
