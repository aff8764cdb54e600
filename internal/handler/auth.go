package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rentable/internal/model"
	"github.com/iliyamo/rentable/internal/service"
)

// AuthHandler exchanges provider sessions for API tokens.
type AuthHandler struct {
	Auth *service.AuthService
	Log  zerolog.Logger
}

func NewAuthHandler(a *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Auth: a, Log: log}
}

type sessionReq struct {
	SessionToken string `json:"session_token"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func sessionResp(s service.Session) authResp {
	return authResp{
		User:    s.User,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp},
	}
}

// Session: POST /v1/auth/session
func (h *AuthHandler) Session(c echo.Context) error {
	var req sessionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.SessionToken == "" {
		return badRequest(c, "session_token is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Exchange(ctx, req.SessionToken)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh: POST /v1/auth/refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Logout: POST /v1/auth/logout.  A refresh_token in the body revokes
// that token; otherwise an authenticated caller revokes every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, actor(c), req.RefreshToken); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: GET /v1/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	u := actor(c)
	if u == nil {
		return fail(c, h.Log, service.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, u)
}
