package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/logger"
)

const (
	ctxUserID    = "user_id"
	ctxUserRole  = "user_role"
	ctxSessionID = "session_id"
	ctxRequestID = "request_id"

	HeaderRequestID = "X-Request-ID"
)

// ErrSessionSuperseded means the user signed in somewhere else after this
// token was issued.
var ErrSessionSuperseded = errors.New("session_superseded")

// SessionChecker confirms that a token's session id is still the one stored
// on the profile.
type SessionChecker interface {
	VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) error
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// AuthMiddleware validates the bearer token and the single active session.
// Event streams cannot set headers from the browser, so an access_token
// query parameter is accepted as well.
func AuthMiddleware(tokens *Tokens, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearer(c)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, err.Error())
			return
		}

		if sessions != nil {
			if err := sessions.VerifySession(c.Request.Context(), claims.UserID, claims.SessionID); err != nil {
				if errors.Is(err, ErrSessionSuperseded) {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
						"success": false,
						"error":   "Session opened on another device",
						"code":    ErrSessionSuperseded.Error(),
					})
					return
				}
				abortJSON(c, http.StatusUnauthorized, err.Error())
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxSessionID, claims.SessionID)
		c.Next()
	}
}

func bearer(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("access_token"); q != "" {
			return q, nil
		}
		return "", errors.New("Authorization header required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("invalid token format")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if !allowed[role] {
			abortJSON(c, http.StatusForbidden, fmt.Sprintf("Forbidden: %s role cannot access this resource", role))
			return
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxUserRole)
}

func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

func RequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// RequestLogger tags every request with an id and writes one log line when
// it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		msg := fmt.Sprintf("%s %s %d %s", c.Request.Method, c.FullPath(), status, time.Since(start).Round(time.Millisecond))
		switch {
		case status >= http.StatusInternalServerError:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			log.Error(id, "http_request", msg, err)
		case status >= http.StatusBadRequest:
			log.Warn(id, "http_request", msg)
		default:
			log.Debug(id, "http_request", msg)
		}
	}
}
