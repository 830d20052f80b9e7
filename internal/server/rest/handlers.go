package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"github.com/gin-gonic/gin"
)

const healthTimeout = time.Second

type handler struct {
	users  UserService
	auth   AuthService
	db     Pinger
	logger logging.Logger
}

func (h *handler) health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn(ctx, "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}

	tok, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newLoginResponse(tok))
}

func (h *handler) me(c *gin.Context) {
	u, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		respondWithError(c, h.logger, common.ErrorUnauthorized)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

func (h *handler) createUser(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}

	u, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(u))
}

func (h *handler) verifyUser(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}

	if err := h.users.Verify(c.Request.Context(), req.Email, req.Code); err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listUsers(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	resp := listUsersResponse{Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, newUserResponse(u))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

func (h *handler) updateUser(c *gin.Context) {
	var req services.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.logger, invalidRequest(err))
		return
	}

	u, err := h.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

func (h *handler) deleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryInt reads an optional non-negative integer query parameter; absent
// means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", common.ErrorValidation, name)
	}
	return n, nil
}
