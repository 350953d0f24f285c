package util

import (
	"coursehub_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response 统一响应结构
type Response struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Status:  StatusSuccess,
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Status:  StatusSuccess,
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Status:  StatusError,
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, MsgNotFound)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, MsgRetry)
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
	)
	InternalServerError(c)
}

// HandleError converts a service error into the envelope. Unknown errors are logged
// and reported with the generic retry message.
func HandleError(c *gin.Context, err error) {
	status := StatusFromError(err)
	switch status {
	case http.StatusInternalServerError:
		LogInternalError(c, err)
	case http.StatusNotFound:
		NotFound(c)
	default:
		Error(c, status, err.Error())
	}
}
