package security

import (
	"context"
	"coursehub_backend/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = l.allow("1.1.1.1")
	assert.True(t, ok)

	ok, wait := l.allow("1.1.1.1")
	assert.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Second))

	ok, _ = l.allow("2.2.2.2")
	assert.True(t, ok, "limits are per client")

	now = now.Add(5 * time.Minute)
	ok, _ = l.allow("2.2.2.2")
	require.True(t, ok)
	assert.Equal(t, 1, l.sweep(3*time.Minute))
	assert.Len(t, l.visitors, 1)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.GET("/api/points", ok)
	router.GET("/api/health", ok)
	return router
}

func serve(router *gin.Engine, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := newRouter(RateLimiter(ctx, config.RateLimitConfig{
		MaxRequests:   1,
		WindowMinutes: 1,
		ExemptPaths:   []string{"/api/health"},
	}))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/points", "").Code)

	rec := serve(router, http.MethodGet, "/api/points", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health", "").Code)
	}
}

func TestCORS(t *testing.T) {
	router := newRouter(CORS([]string{"http://localhost:3000"}))

	rec := serve(router, http.MethodGet, "/api/points", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = serve(router, http.MethodGet, "/api/points", "http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(router, http.MethodOptions, "/api/points", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")

	open := newRouter(CORS([]string{"*"}))
	rec = serve(open, http.MethodGet, "/api/points", "http://any.example")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
