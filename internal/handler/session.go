package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/utils"
)

// SessionHandler bundles dependencies for the session endpoints.
// ScheduleCleanup receives ids of sessions found expired during reads;
// main wires it to the queue publisher, and it must not block.
type SessionHandler struct {
	Users           UserStore
	Sessions        SessionStore
	Lifecycle       *auth.Lifecycle
	Validity        time.Duration
	ScheduleCleanup func(sessionUUIDs []string)
}

func NewSessionHandler(u UserStore, s SessionStore, l *auth.Lifecycle, validity time.Duration, cleanup func([]string)) *SessionHandler {
	return &SessionHandler{Users: u, Sessions: s, Lifecycle: l, Validity: validity, ScheduleCleanup: cleanup}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionPart is the serialized session. The signing secret is
// deliberately absent; it never leaves the server.
type sessionPart struct {
	UUID      string    `json:"uuid"`
	UserUUID  string    `json:"user_uuid"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionPart(s *model.Session) sessionPart {
	return sessionPart{UUID: s.UUID, UserUUID: s.UserUUID, Token: s.Token, CreatedAt: s.CreatedAt}
}

// Create is the login action. An already-authenticated caller (the
// Accept guard ran before us) gets a fresh session without presenting a
// password; otherwise username and password are checked and the account
// must be verified. Either way a new session is issued.
func (h *SessionHandler) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var user *model.User
	if p := middleware.Principal(c); p != nil {
		user = p.User
	} else {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))
		u, err := h.Users.GetByUsername(ctx, req.Username)
		if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.Verified {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		user = u
	}

	s, err := h.Lifecycle.Create(ctx, user, h.Validity)
	if err != nil {
		if errors.Is(err, auth.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, toSessionPart(s))
}

// Index lists the sessions of the specified or authenticated user,
// partitioned lazily: expired sessions are excluded from the response
// and scheduled for asynchronous deletion instead of blocking the read.
func (h *SessionHandler) Index(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := middleware.Principal(c)
	target := p.User
	if id := c.QueryParam("user_id"); id != "" && id != "current" {
		u, err := h.Users.GetByUUID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if err := auth.AuthorizeOrFail(p, u); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		target = u
	}

	sessions, err := h.Sessions.ListByUser(ctx, target.UUID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	active, expired := h.Lifecycle.Partition(sessions)
	if len(expired) > 0 && h.ScheduleCleanup != nil {
		h.ScheduleCleanup(expired)
	}

	out := make([]sessionPart, 0, len(active))
	for _, s := range active {
		out = append(out, toSessionPart(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Show renders one session.
func (h *SessionHandler) Show(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.getSession(ctx, c)
	if err != nil {
		return h.renderSessionError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionPart(s))
}

// Destroy is logout: it deletes the session addressed by id or by the
// "current" alias.
func (h *SessionHandler) Destroy(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.getSession(ctx, c)
	if err != nil {
		return h.renderSessionError(c, err)
	}
	if err := h.Lifecycle.ExpireAndDelete(ctx, s.UUID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// getSession resolves the :id parameter to an authorized, unexpired
// session. The "current" alias needs an authenticated session behind the
// request: API-key callers have none, and for them (as for anonymous
// callers) the alias answers not-found rather than unauthorized — the
// request named a thing that does not exist for it, which is a different
// answer than "you are known and refused".
//
// An expired session encountered here is deleted on the spot and
// reported as not-found.
func (h *SessionHandler) getSession(ctx context.Context, c echo.Context) (*model.Session, error) {
	p := middleware.Principal(c)
	id := c.Param("id")
	if id == "current" {
		if p == nil || p.Session == nil {
			return nil, repository.ErrNotFound
		}
		id = p.Session.UUID
	}
	s, err := h.Sessions.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeOrFail(p, s); err != nil {
		return nil, err
	}
	if h.Lifecycle.IsExpired(s) {
		_ = h.Lifecycle.ExpireAndDelete(ctx, s.UUID)
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (h *SessionHandler) renderSessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}
