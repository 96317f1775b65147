package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/logger"
	"timetodo_backend/pkg/apperrors"
	"timetodo_backend/pkg/contextkeys"
)

const claimsKey = "claims"

// TokenParser - то, что нужно middleware от auth.TokenManager
type TokenParser interface {
	Parse(tokenStr string) (*auth.Claims, error)
}

// AuthMiddleware - middleware проверки JWT
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "token rejected", "error", err)
			if errors.Is(err, auth.ErrTokenExpired) {
				apperrors.HandleError(c, apperrors.New(apperrors.CodeTokenExpired, "auth", "Token expired", 401))
				return
			}
			apperrors.HandleError(c, apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid token", 401))
			return
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.IsSuperuserKey, claims.IsSuperuser)
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireSuperuser - только для is_superuser
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsSuperuser(c) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// RequirePermission проверяет разрешение роли из токена
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.CanPerformAction(GetClaims(c), permission) {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get(contextkeys.UserIDKey)
	if !exists {
		return ""
	}

	id, ok := userID.(string)
	if !ok {
		return ""
	}

	return id
}

func IsSuperuser(c *gin.Context) bool {
	return c.GetBool(contextkeys.IsSuperuserKey)
}

func GetClaims(c *gin.Context) *auth.Claims {
	val, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*auth.Claims)
	return claims
}

// Guards - собранные middleware, которые хендлеры навешивают в RegisterRoutes
type Guards struct {
	Auth                gin.HandlerFunc
	Superuser           gin.HandlerFunc
	EventsRateLimit     gin.HandlerFunc
	SubscriptionHeaders gin.HandlerFunc
}
