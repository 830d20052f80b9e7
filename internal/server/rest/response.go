package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	codeValidation       = "validation_error"
	codeAlreadyExists    = "already_exists"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeStoreUnavailable = "store_unavailable"
	codeInternal         = "internal_error"
)

// ResponseError is the body of every error response.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorResponse maps err to a status and a client-safe body. Authentication
// failures share one message so callers cannot tell why they were rejected.
func errorResponse(err error) (int, ResponseError) {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ResponseError{Error: "service temporarily unavailable", Code: codeStoreUnavailable}
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, ResponseError{Error: err.Error(), Code: codeValidation}
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, ResponseError{Error: "username or email already taken", Code: codeAlreadyExists}
	case errors.Is(err, common.ErrorUnauthorized), common.IsTokenError(err):
		return http.StatusUnauthorized, ResponseError{Error: "unauthorized", Code: codeUnauthorized}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, ResponseError{Error: "not found", Code: codeNotFound}
	default:
		return http.StatusInternalServerError, ResponseError{Error: "internal server error", Code: codeInternal}
	}
}

func respondWithError(c *gin.Context, l logging.Logger, err error) {
	status, body := errorResponse(err)
	logError(c, l, status, err)
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, l logging.Logger, err error) {
	status, body := errorResponse(err)
	logError(c, l, status, err)
	c.AbortWithStatusJSON(status, body)
}

func logError(c *gin.Context, l logging.Logger, status int, err error) {
	args := []any{"status", status, "error", err.Error(), "method", c.Request.Method, "path", c.Request.URL.Path}
	if status >= http.StatusInternalServerError {
		l.Error(c.Request.Context(), "API error response", args...)
		return
	}
	l.Debug(c.Request.Context(), "API error response", args...)
}

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}
