package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/store"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

// UserStore is the part of repository.UserRepo the auth endpoints use.
type UserStore interface {
	Create(ctx context.Context, email, name, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is the part of repository.TokenRepo the auth endpoints use.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a CUSTOMER account and returns tokens immediately.
// Admin accounts are created with the CLI.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/name/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Name, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, utils.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	resp, err := h.issue(ctx, model.User{ID: uid, Email: req.Email, Name: req.Name, Role: model.RoleCustomer})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// refreshUser validates the raw refresh token of the body and loads its
// owner.  ok is false when a response has already been written.
func (h *AuthHandler) refreshUser(ctx context.Context, c echo.Context) (u model.User, hash string, ok bool, err error) {
	var req refreshReq
	if bindErr := c.Bind(&req); bindErr != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return u, "", false, c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash = utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	userID, vErr := h.Tokens.ValidateRefresh(ctx, hash, time.Now())
	if vErr != nil {
		return u, "", false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, gErr := h.Users.GetByID(ctx, userID)
	if gErr != nil {
		if errors.Is(gErr, store.ErrNotFound) {
			return u, "", false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return u, "", false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !u.IsActive {
		return u, "", false, c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	return u, hash, true, nil
}

// Refresh validates by hash, revokes the old token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, hash, ok, err := h.refreshUser(ctx, c)
	if !ok {
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, _, ok, err := h.refreshUser(ctx, c)
	if !ok {
		return err
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes one refresh token when the body carries it, otherwise
// every refresh token of the bearer's user.  It runs without JWTAuth so
// that a client holding only a refresh token can still log out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var caller model.Caller
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if parsed, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			caller = parsed
		}
	}
	var req refreshReq
	_ = c.Bind(&req) // an empty or malformed body leaves RefreshToken empty
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now()); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	case caller.Authenticated():
		if err := h.Tokens.RevokeAllForUser(ctx, caller.UserID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
}
