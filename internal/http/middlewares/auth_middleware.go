package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/smartq/internal/actorctx"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Validate(token string) bool
	SubjectOf(token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserFinder
	log    *slog.Logger
}

func NewAuthMiddleware(tokens TokenVerifier, users UserFinder, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, log: log}
}

// Authenticate attaches the bearer token's user to the request when there is
// one. It never rejects: a missing, invalid or orphaned token just leaves the
// request anonymous.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || !m.tokens.Validate(raw) {
			c.Next()
			return
		}

		sub, err := m.tokens.SubjectOf(raw)
		if err != nil {
			c.Next()
			return
		}

		u, err := m.users.FindByID(c.Request.Context(), sub)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				m.log.WarnContext(c.Request.Context(), "auth user lookup failed", "user_id", sub, "err", err)
			}
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorctx.UserFrom(c.Request.Context()); !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole implies RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := actorctx.UserFrom(c.Request.Context())
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "forbidden", "Insufficient role")
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}

func abort(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": id,
		},
	})
}
