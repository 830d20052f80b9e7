package rest

import (
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/policy"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine. Every request passes, in order, through
// request logging, panic recovery, the access policy and authentication
// before it reaches a handler.
func NewRouter(l logging.Logger, p *policy.Policy, us UserService, as AuthService, db Pinger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		RequestLogger(l),
		Recovery(l),
		Policy(p),
		Authenticate(as, l),
	)

	h := &handler{users: us, auth: as, db: db, logger: l}

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.login)
		api.GET("/auth/me", h.me)

		api.POST("/users", h.createUser)
		api.POST("/users/verify", h.verifyUser)
		api.GET("/users", h.listUsers)
		api.GET("/users/:id", h.getUser)
		api.PUT("/users/:id", h.updateUser)
		api.DELETE("/users/:id", h.deleteUser)
	}

	return r
}
