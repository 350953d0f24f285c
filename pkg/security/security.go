package security

import (
	"context"
	"coursehub_backend/internal/config"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const allowedHeaders = "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With"

// CORS 只回显白名单中的 Origin；配置 "*" 时放行全部来源但不携带凭证
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		originSet[o] = true
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		switch origin := c.GetHeader("Origin"); {
		case origin != "" && originSet[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case origin != "" && wildcard:
			h.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Secure 常用安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter 每个客户端 IP 一个令牌桶
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	now      func() time.Time
}

func newIPLimiter(maxRequests int, window time.Duration) *ipLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		now:      time.Now,
	}
}

// allow 返回是否放行，以及被拒绝时建议的等待时间
func (l *ipLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := v.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// sweep 清理长时间未出现的客户端
func (l *ipLimiter) sweep(expiry time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := l.now().Add(-expiry)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// RateLimiter 按 IP 限流；ctx 结束时停止后台清理
func RateLimiter(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	limiter := newIPLimiter(cfg.MaxRequests, window)

	exempt := make(map[string]bool, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = true
	}

	go func() {
		expiry := 3 * window
		if expiry < time.Minute {
			expiry = time.Minute
		}
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.sweep(expiry)
			}
		}
	}()

	return func(c *gin.Context) {
		if exempt[c.Request.URL.Path] {
			c.Next()
			return
		}

		ok, wait := limiter.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
