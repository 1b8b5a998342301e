package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

// CookieConfig controls the session cookie set alongside the bearer token.
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService services.AuthService, cookie CookieConfig, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		cookie:      cookie,
	}
}

// Signup registers a student account and logs it in
// @Summary Sign up
// @Tags users
// @Accept json
// @Produce json
// @Param body body services.SignupRequest true "Account details"
// @Success 201 {object} SuccessResponse{data=services.Session}
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Signing up user", "user_name", req.UserName)

	session, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendSession(c, http.StatusCreated, session)
}

// Login exchanges credentials for a session token
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param body body services.LoginRequest true "Credentials"
// @Success 200 {object} SuccessResponse{data=services.Session}
// @Failure 401 {object} ErrorResponse
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendSession(c, http.StatusOK, session)
}

// Logout revokes the current session token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims := ClaimsFromContext(c); claims != nil {
		if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "loggedout", 10, "/", "", h.cookie.Secure, true)
	respond(c, http.StatusOK, nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req services.ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Password reset requested")

	if err := h.authService.ForgotPassword(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "If the email is registered, a verification code has been sent"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	session, err := h.authService.ResetPassword(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendSession(c, http.StatusOK, session)
}

// UpdatePassword changes the caller's password and issues a fresh token, since
// tokens issued before the change stop working.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req services.UpdatePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p := PrincipalFromContext(c)
	session, err := h.authService.UpdatePassword(c.Request.Context(), p.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendSession(c, http.StatusOK, session)
}

func (h *AuthHandler) sendSession(c *gin.Context, status int, session *services.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, session.Token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
	respond(c, status, session)
}
