package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/handler"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check,
// which load balancers and monitoring can probe to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSessions wires the session endpoints under /v1/sessions.
//
// Creating a session is login, so the guard there only *accepts* an
// existing credential instead of requiring one: an anonymous caller
// authenticates with the body, an authenticated one gets a fresh
// session without re-sending the password. The :id routes also run
// under the accepting guard so the handler can answer "current" for an
// anonymous caller with not-found rather than the guard's flat 401;
// listing requires a principal because there is nothing to list
// without one.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, r *auth.Resolver) {
	g := e.Group("/v1/sessions")
	g.POST("", h.Create, middleware.Accept(r, model.RolePublic))
	g.GET("", h.Index, middleware.Require(r, model.RoleUser))
	g.GET("/:id", h.Show, middleware.Accept(r, model.RoleUser))
	g.DELETE("/:id", h.Destroy, middleware.Accept(r, model.RoleUser))
}

// RegisterUsers wires the account endpoints under /v1/users.
//
// Signup (POST) and update (PATCH) run under the accepting guard:
// signup is open to anyone, and PATCH doubles as the unauthenticated
// "issue me a reset/verification token" request. Listing all accounts
// is admin only. Show and destroy accept whatever credential is there
// and leave per-resource authorization to the handler, which keeps the
// not-found answer for an anonymous "current" intact.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, r *auth.Resolver) {
	g := e.Group("/v1/users")
	g.POST("", h.Create, middleware.Accept(r, model.RolePublic))
	g.GET("", h.Index, middleware.RequireAdmin(r))
	g.GET("/:id", h.Show, middleware.Accept(r, model.RoleUser))
	g.PATCH("/:id", h.Update, middleware.Accept(r, model.RolePublic))
	g.DELETE("/:id", h.Destroy, middleware.Accept(r, model.RoleUser))
}
