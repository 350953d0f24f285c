package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParamID reads a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id := MustParseUint(c.Param(name))
	return id, id > 0
}

// Pagination reads page/limit query parameters, clamped to sane bounds.
func Pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
