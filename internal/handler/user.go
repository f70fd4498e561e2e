package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/middleware"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/repository"
	"github.com/iliyamo/identity-service/internal/token"
	"github.com/iliyamo/identity-service/internal/utils"
)

// UserHandler bundles dependencies for the account endpoints.
type UserHandler struct {
	Users      UserStore
	Sessions   SessionStore
	Lifecycle  *auth.Lifecycle
	BcryptCost int
}

func NewUserHandler(u UserStore, s SessionStore, l *auth.Lifecycle, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, Sessions: s, Lifecycle: l, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type createUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     *int   `json:"role,omitempty"`
}

type updateUserReq struct {
	Username          *string `json:"username,omitempty"`
	Password          *string `json:"password,omitempty"`
	OldPassword       string  `json:"old_password,omitempty"`
	ResetToken        string  `json:"reset_token,omitempty"`
	VerificationToken string  `json:"verification_token,omitempty"`
	Role              *int    `json:"role,omitempty"`
	Verified          *bool   `json:"verified,omitempty"`

	// Side-effecting requests; both work unauthenticated and address
	// the account by username instead of id.
	IssueResetToken        bool `json:"issue_reset_token,omitempty"`
	IssueVerificationToken bool `json:"issue_verification_token,omitempty"`
}

// userPart is the serialized account. Password hash, api key and the
// one-time tokens stay server-side.
type userPart struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	Role      int       `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserPart(u *model.User) userPart {
	return userPart{UUID: u.UUID, Username: u.Username, Role: int(u.Role), Verified: u.Verified, CreatedAt: u.CreatedAt}
}

// Index lists every account. The route is guarded by the admin
// middleware, so no further checks here.
func (h *UserHandler) Index(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Create registers an account. Anyone may sign up; the requested role
// is honored only when an admin asks, everyone else starts as a plain
// user. A verification mail is kicked off after the row exists.
func (h *UserHandler) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	role := model.RoleUser
	if req.Role != nil {
		if p := middleware.Principal(c); p != nil && p.User.Role.AtLeast(model.RoleAdmin) {
			role = model.Role(*req.Role)
		}
	}

	u, err := h.Lifecycle.RegisterLocal(ctx, req.Username, req.Password, role, h.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		case errors.Is(err, auth.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
	}

	if _, err := h.Lifecycle.IssueShortLived(ctx, u, auth.KindVerification); err != nil {
		log.Printf("user %s: issuing verification token: %v", u.UUID, err)
	}
	return c.JSON(http.StatusCreated, toUserPart(u))
}

// Show renders one account.
func (h *UserHandler) Show(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.getUser(ctx, c)
	if err != nil {
		return h.renderUserError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// Update mutates an account, or issues a one-time token when the body
// asks for one. Password changes must prove possession of either the
// old password or an unexpired reset token.
func (h *UserHandler) Update(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if req.IssueResetToken || req.IssueVerificationToken {
		return h.issueToken(ctx, c, req)
	}

	u, err := h.getUser(ctx, c)
	if err != nil {
		return h.renderUserError(c, err)
	}
	p := middleware.Principal(c)

	if req.Password != nil {
		if !h.mayChangePassword(u, req) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		u.PasswordHash = hash
		u.ResetToken = ""
	}
	if req.VerificationToken != "" {
		if u.VerificationToken == "" || req.VerificationToken != u.VerificationToken {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		u.Verified = true
		u.VerificationToken = ""
	}
	if req.Username != nil {
		u.Username = strings.ToLower(strings.TrimSpace(*req.Username))
	}
	if p != nil && p.User.Role.AtLeast(model.RoleAdmin) {
		if req.Role != nil {
			u.Role = model.Role(*req.Role)
		}
		if req.Verified != nil {
			u.Verified = *req.Verified
		}
	}

	if err := h.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// Destroy soft-deletes an account and removes its sessions so existing
// tokens stop resolving right away.
func (h *UserHandler) Destroy(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.getUser(ctx, c)
	if err != nil {
		return h.renderUserError(c, err)
	}
	if err := h.Users.SoftDelete(ctx, u.UUID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := h.Sessions.DeleteForUser(ctx, u.UUID); err != nil {
		log.Printf("user %s: deleting sessions: %v", u.UUID, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// issueToken handles the unauthenticated "I forgot" requests. They only
// make sense against the "current" alias; the account is addressed by
// username in the body, and a missing account is reported as such
// rather than masked, since usernames are not secrets here.
func (h *UserHandler) issueToken(ctx context.Context, c echo.Context, req updateUserReq) error {
	if c.Param("id") != "current" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if req.Username == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	u, err := h.Users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(*req.Username)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	kind := auth.KindReset
	if req.IssueVerificationToken {
		kind = auth.KindVerification
	}
	if _, err := h.Lifecycle.IssueShortLived(ctx, u, kind); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// mayChangePassword checks possession of either the old password or the
// stored reset token. The reset token is a full session token with a
// one-hour lifetime, and the field is only cleared on successful use,
// so the match alone is not enough: an expired token must stop working
// even while it still sits in the column.
func (h *UserHandler) mayChangePassword(u *model.User, req updateUserReq) bool {
	if req.OldPassword != "" && utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return true
	}
	if req.ResetToken == "" || u.ResetToken == "" || req.ResetToken != u.ResetToken {
		return false
	}
	expired, err := token.IsExpired(u.ResetToken, time.Now().UTC())
	return err == nil && !expired
}

// getUser resolves the :id parameter to an authorized account. As with
// sessions, the "current" alias without a principal behind it answers
// not-found.
func (h *UserHandler) getUser(ctx context.Context, c echo.Context) (*model.User, error) {
	p := middleware.Principal(c)
	id := c.Param("id")
	if id == "current" {
		if p == nil {
			return nil, repository.ErrNotFound
		}
		return p.User, nil
	}
	u, err := h.Users.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.AuthorizeOrFail(p, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (h *UserHandler) renderUserError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}
