package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/calendar-booking/internal/config"
	"github.com/iliyamo/calendar-booking/internal/middleware"
	"github.com/iliyamo/calendar-booking/internal/repository"
	"github.com/iliyamo/calendar-booking/internal/utils"
)

// AuthHandler issues and revokes admin sessions. There is a single admin
// whose credentials come from configuration.
type AuthHandler struct {
	Cfg    config.Config
	Tokens *repository.TokenRepo
	Log    zerolog.Logger
}

// NewAuthHandler builds the admin login, refresh and logout endpoints.
func NewAuthHandler(cfg config.Config, t *repository.TokenRepo, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Tokens: t, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
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
	Username string `json:"username"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login: verify the admin credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	if !utils.VerifyAdmin(h.Cfg.AdminUsername, h.Cfg.AdminPasswordHash, req.Username, req.Password) {
		h.Log.Warn().Str("username", req.Username).Str("ip", c.RealIP()).Msg("admin login failed")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp, err := h.issue(ctx, req.Username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	h.Log.Info().Str("username", req.Username).Msg("admin logged in")
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subject, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil || subject != h.Cfg.AdminUsername {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke refresh failed"})
	}

	resp, err := h.issue(ctx, subject)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout: revoke one refresh token when given, otherwise every session of
// the authenticated admin.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	subject := middleware.Subject(c)
	if subject == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Tokens.RevokeAllForSubject(ctx, subject); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	role, _ := c.Get(middleware.CtxRole).(string)
	return c.JSON(http.StatusOK, userPart{Username: middleware.Subject(c), Role: role})
}

var (
	errIssueAccess  = errors.New("issue access failed")
	errIssueRefresh = errors.New("issue refresh failed")
	errSaveRefresh  = errors.New("save refresh failed")
)

func (h *AuthHandler) issue(ctx context.Context, subject string) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, subject, middleware.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, errIssueAccess
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, errIssueRefresh
	}
	if err := h.Tokens.StoreRefresh(ctx, subject, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.Log.Error().Err(err).Msg("store refresh token failed")
		return authResp{}, errSaveRefresh
	}
	return authResp{
		User:    userPart{Username: subject, Role: middleware.RoleAdmin},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
