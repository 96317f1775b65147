package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/logger"
	"timetodo_backend/internal/services/dto"
)

const usageWarnPercent = 90.0

// LimitsSource - кусок EntitlementService + UsageService, нужный для заголовков
type LimitsSource interface {
	Resolve(ctx context.Context, db *gorm.DB, userID string) (*algorithms.EffectiveLimits, error)
}

type UsageSource interface {
	CurrentUsage(ctx context.Context, db *gorm.DB, userID string) (*dto.CurrentUsage, error)
}

// SubscriptionHeaders выставляет X-Storage-Limit, X-Files-Limit, X-Max-File-Size,
// X-Allowed-File-Types и предупреждения при заполнении больше 90%.
// Ничего не блокирует: решение о загрузке принимает резервирование в FileService.
func SubscriptionHeaders(limits LimitsSource, usage UsageSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		db := GetDB(c)

		l, err := limits.Resolve(ctx, db, userID)
		if err != nil {
			// заголовки информационные, запрос не ломаем
			logger.CtxWarn(ctx, "subscription headers: resolve failed", "error", err)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-Storage-Limit", strconv.FormatInt(l.StorageLimit, 10))
		h.Set("X-Files-Limit", strconv.FormatInt(l.FileCountLimit, 10))
		h.Set("X-Max-File-Size", strconv.FormatInt(l.MaxFileSize, 10))
		types := make([]string, 0, len(l.AllowedFileTypes))
		for _, t := range l.AllowedFileTypes {
			types = append(types, string(t))
		}
		h.Set("X-Allowed-File-Types", strings.Join(types, ","))

		u, err := usage.CurrentUsage(ctx, db, userID)
		if err != nil {
			logger.CtxWarn(ctx, "subscription headers: usage failed", "error", err)
			c.Next()
			return
		}
		if pct := usagePercent(u.StorageBytes, l.StorageLimit); pct > usageWarnPercent {
			h.Set("X-Storage-Warning", fmt.Sprintf("Storage usage: %.1f%%", pct))
		}
		if pct := usagePercent(u.FileCount, l.FileCountLimit); pct > usageWarnPercent {
			h.Set("X-Files-Warning", fmt.Sprintf("Files usage: %.1f%%", pct))
		}
		c.Next()
	}
}

func usagePercent(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
