package rest

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requirementKey  = "access_requirement"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		l.Info(c.Request.Context(), "http request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error(c.Request.Context(), "panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ResponseError{
					Error: "internal server error",
					Code:  codeInternal,
				})
			}
		}()
		c.Next()
	}
}

// Policy records the access requirement of the request for Authenticate.
func Policy(p *policy.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requirementKey, p.Evaluate(c.Request.Method, c.Request.URL.Path))
		c.Next()
	}
}

// Authenticate enforces the recorded requirement. Public requests pass
// untouched; all others need a valid bearer token whose subject still
// exists, and the resolved user is bound to the request context.
func Authenticate(as AuthService, l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requirementOf(c) == policy.Public {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, l, common.ErrorUnauthorized)
			return
		}

		u, err := as.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, l, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), u))
		c.Next()
	}
}

func requirementOf(c *gin.Context) policy.Requirement {
	v, ok := c.Get(requirementKey)
	if !ok {
		return policy.Authenticated
	}
	r, ok := v.(policy.Requirement)
	if !ok {
		return policy.Authenticated
	}
	return r
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) {
		return "", false
	}
	return parts[1], true
}
