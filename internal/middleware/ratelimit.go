package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"timetodo_backend/pkg/apperrors"
)

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL - через сколько забывать клиента без запросов
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter держит по лимитеру на клиента: пользователь из токена, иначе IP
type KeyedRateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

func NewKeyedRateLimiter(cfg RateLimitConfig) *KeyedRateLimiter {
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &KeyedRateLimiter{cfg: cfg, clients: make(map[string]*clientLimiter), now: time.Now}
}

func (l *KeyedRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, k)
		}
	}

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Middleware отвечает 429 RATE_LIMITED, когда токены клиента закончились
func (l *KeyedRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		limiter := l.get(key)

		if !limiter.AllowN(l.now(), 1) {
			c.Header("Retry-After", "1")
			apperrors.HandleError(c, apperrors.New(apperrors.CodeTooManyCalls, "request", "Rate limit exceeded. Please try again later.", 429))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(l.now()))))
		c.Next()
	}
}
