package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kanrihq/kanri-backend/internal/apperr"
	"github.com/kanrihq/kanri-backend/internal/config"
	"github.com/kanrihq/kanri-backend/internal/middleware"
	"github.com/kanrihq/kanri-backend/internal/queue"
	"github.com/kanrihq/kanri-backend/internal/response"
	"github.com/kanrihq/kanri-backend/internal/service"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/v1/auth/refresh"
)

// AuthHandler exposes the session endpoints: register, login, refresh and
// change-password.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Gender   string `json:"gender"`
	ImageURL string `json:"imageUrl"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type authResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register creates a new member. The optional ?mode=SUPPORT query selects
// the SUPPORT role; everything else registers a CUSTOMER.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.ErrMalformedBody
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return apperr.New("E40001", "username, email and password are required", http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Auth.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		Gender:   req.Gender,
		ImageURL: req.ImageURL,
	}, c.QueryParam("mode"))
	if err != nil {
		return err
	}

	// Best effort; a down broker must not fail the registration.
	_ = queue.PublishMemberRegistered(ctx, queue.MemberRegisteredEvent{
		MemberID:     m.ID,
		Username:     m.Username,
		Email:        m.Email,
		Role:         m.RoleName,
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return response.Created(c, "registration successful", toMemberResponse(m))
}

// Login verifies credentials and returns the token pair, also setting the
// HTTP-only auth cookies. The refresh cookie is scoped to the refresh
// endpoint path so it never travels with ordinary requests.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.ErrMalformedBody
	}
	if req.Username == "" || req.Password == "" {
		return apperr.New("E40001", "username and password are required", http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setCookie(c, accessCookieName, pair.AccessToken, "/", h.Cfg.AccessTTL)
	h.setCookie(c, refreshCookieName, pair.RefreshToken, refreshCookiePath, h.Cfg.RefreshTTL)

	return response.OK(c, "login successful", authResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh exchanges a valid refresh token for a new access token. The
// token is read from the refreshToken cookie first, with a JSON body
// fallback for clients that do not use cookies. The refresh token itself
// is returned unchanged.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req refreshReq
		_ = c.Bind(&req)
		raw = strings.TrimSpace(req.RefreshToken)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	access, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}

	h.setCookie(c, accessCookieName, access, "/", h.Cfg.AccessTTL)

	return response.OK(c, "token refreshed", authResp{
		AccessToken:  access,
		RefreshToken: raw,
	})
}

// ChangePassword updates the authenticated member's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	m, ok := middleware.Principal(c)
	if !ok {
		return apperr.ErrUnauthorized
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.ErrMalformedBody
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return apperr.New("E40001", "oldPassword and newPassword are required", http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, m.Username, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return response.OK(c, "password changed", nil)
}

// Me returns the authenticated member's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	m, ok := middleware.Principal(c)
	if !ok {
		return apperr.ErrUnauthorized
	}
	return response.OK(c, "ok", toMemberResponse(m))
}

func (h *AuthHandler) setCookie(c echo.Context, name, value, path string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
	})
}
