// Package middleware provides the authentication guards shared by all
// protected routes. Each guard extracts the request credentials, runs
// them through the auth resolver, and stores the resulting principal in
// the Echo context for handlers to pick up.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/model"
)

const principalKey = "principal"

// Credentials extracts the token and API key from the request. The
// token may arrive as a Bearer header or a `token` query parameter;
// the API key as an X-API-Key header or an `api_key` query parameter.
// Precedence between the two is the resolver's business, not ours.
func Credentials(c echo.Context) auth.Credentials {
	tok := c.QueryParam("token")
	if tok == "" {
		if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimPrefix(h, "Bearer ")
		}
	}
	key := c.QueryParam("api_key")
	if key == "" {
		key = c.Request().Header.Get("X-API-Key")
	}
	return auth.Credentials{Token: tok, APIKey: key}
}

// Require rejects the request with 401 unless the credentials resolve to
// a principal of at least the required role. The response body never
// says why.
func Require(r *auth.Resolver, required model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := r.Require(c.Request().Context(), Credentials(c), required)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// RequireAdmin is Require with the ADMIN floor.
func RequireAdmin(r *auth.Resolver) echo.MiddlewareFunc {
	return Require(r, model.RoleAdmin)
}

// Accept resolves credentials when present but lets the request through
// either way. Handlers see a nil principal for anonymous callers.
func Accept(r *auth.Resolver, required model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p := r.Accept(c.Request().Context(), Credentials(c), required); p != nil {
				c.Set(principalKey, p)
			}
			return next(c)
		}
	}
}

// Principal returns the principal stored by a guard, or nil.
func Principal(c echo.Context) *auth.Principal {
	p, _ := c.Get(principalKey).(*auth.Principal)
	return p
}

// SetPrincipal is exposed for handler tests that bypass the guards.
func SetPrincipal(c echo.Context, p *auth.Principal) {
	c.Set(principalKey, p)
}
