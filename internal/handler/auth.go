package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/utils"
)

// AuthHandler bundles dependencies for the /api/user/ endpoints:
// registration, the access/refresh token pair, refresh, logout and the
// caller's own profile. Access tokens are short-lived JWTs; refresh tokens
// are opaque random strings stored only as hashes.
type AuthHandler struct {
	Cfg    config.Config         // JWT secret, token lifetimes and bcrypt cost
	Users  *repository.UserRepo  // accounts, looked up by normalised email
	Tokens *repository.TokenRepo // refresh token hashes
	Log    *logger.Logger        // security events for logins and sign-ups
}

// NewAuthHandler returns an AuthHandler over the given repositories.
func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

// credentialsReq is shared by registration and login.
type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

type refreshReq struct {
	Refresh string `json:"refresh" validate:"required"`
}

type userResp struct {
	ID      uint64 `json:"id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

type tokenPairResp struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func renderUser(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, IsStaff: u.IsStaff}
}

// Register handles POST /api/user/. It creates a regular account; staff
// accounts only come from the createstaff command. The email is stored
// lower-cased and must be unique (409 otherwise).
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, false, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return errorJSON(c, http.StatusConflict, "user with this email already exists")
	}
	if err != nil {
		return internalError(c, h.Log, "create user", err)
	}
	h.Log.LogSecurity("register", "new user "+repository.NormalizeEmail(req.Email))
	return c.JSON(http.StatusCreated, userResp{ID: uid, Email: repository.NormalizeEmail(req.Email)})
}

// Token handles POST /api/user/token/ and exchanges credentials for an
// access/refresh pair. Unknown emails, wrong passwords and inactive
// accounts all answer the same 401 so the response never reveals which
// emails are registered.
func (h *AuthHandler) Token(c echo.Context) error {
	var req credentialsReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.BurnPasswordCheck(req.Password)
		return h.badCredentials(c, req.Email)
	}
	if err != nil {
		return internalError(c, h.Log, "load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) || !u.IsActive {
		return h.badCredentials(c, req.Email)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.IsStaff, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, h.Log, "issue access", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return internalError(c, h.Log, "issue refresh", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return internalError(c, h.Log, "save refresh", err)
	}
	return c.JSON(http.StatusOK, tokenPairResp{Access: access.Token, Refresh: refresh.Raw})
}

// Refresh returns a new access token for a valid refresh token. The
// refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	uid, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.Refresh)))
	if errors.Is(err, repository.ErrTokenInvalid) {
		return errorJSON(c, http.StatusUnauthorized, "token is invalid or expired")
	}
	if err != nil {
		return internalError(c, h.Log, "validate refresh", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !u.IsActive) {
		return errorJSON(c, http.StatusUnauthorized, "token is invalid or expired")
	}
	if err != nil {
		return internalError(c, h.Log, "load user", err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.IsStaff, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, h.Log, "issue access", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": access.Token})
}

// Logout handles POST /api/user/token/logout/ and revokes the given refresh
// token. Access tokens already issued stay valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))
	if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return errorJSON(c, http.StatusUnauthorized, "token is invalid or expired")
		}
		return internalError(c, h.Log, "validate refresh", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return internalError(c, h.Log, "revoke refresh", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /api/user/me/ and returns the bearer's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "load user", err)
	}
	return c.JSON(http.StatusOK, renderUser(u))
}

func (h *AuthHandler) badCredentials(c echo.Context, email string) error {
	h.Log.LogSecurity("login", "failed login for "+repository.NormalizeEmail(email))
	return errorJSON(c, http.StatusUnauthorized, "no active account found with the given credentials")
}
