package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

// Keys under which authentication and access results are kept on the gin context.
const (
	principalKey  = "principal"
	userKey       = "user"
	claimsKey     = "token_claims"
	resolutionKey = "access_resolution"

	sessionCookie = "jwt"
)

var errNotLoggedIn = errors.New("you are not logged in, please log in to get access")

// SSOVerifier resolves a token issued by an external identity provider to a
// local account.
type SSOVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware turns a bearer token or session cookie into a principal.
// Local session tokens are tried first; when an SSO verifier is configured it
// gets a chance at tokens the local check rejects as malformed.
type AuthMiddleware struct {
	auth   services.AuthService
	sso    SSOVerifier
	logger utils.Logger
}

func NewAuthMiddleware(auth services.AuthService, sso SSOVerifier, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, sso: sso, logger: logger}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			fail(c, http.StatusUnauthorized, errNotLoggedIn.Error())
			return
		}

		ctx := c.Request.Context()
		user, claims, err := m.auth.Authenticate(ctx, token)
		if errors.Is(err, services.ErrInvalidToken) && m.sso != nil {
			user, err = m.sso.Verify(ctx, token)
		}
		if err != nil {
			m.reject(c, err)
			return
		}

		principal, err := access.NewPrincipal(user.ID, string(user.Role))
		if err != nil {
			utils.GetLogger(c, m.logger).Error("User has an unknown role", "user_id", user.ID, "role", user.Role)
			fail(c, http.StatusUnauthorized, "authentication failed")
			return
		}

		c.Set(principalKey, principal)
		c.Set(userKey, user)
		if claims != nil {
			c.Set(claimsKey, claims)
		}
		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, err error) {
	if status, ok := serviceStatus(err); ok && status == http.StatusUnauthorized {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	utils.GetLogger(c, m.logger).Error("Authentication failed", "error", err)
	fail(c, http.StatusUnauthorized, "authentication failed")
}

// bearerToken reads the Authorization header and falls back to the session cookie.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "loggedout" {
		return cookie
	}
	return ""
}

// PrincipalFromContext returns the authenticated principal or nil.
func PrincipalFromContext(c *gin.Context) *access.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*access.Principal); ok {
			return p
		}
	}
	return nil
}

// UserFromContext returns the authenticated user or nil.
func UserFromContext(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// ClaimsFromContext returns the verified session claims. It is nil for SSO tokens.
func ClaimsFromContext(c *gin.Context) *services.TokenClaims {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*services.TokenClaims); ok {
			return cl
		}
	}
	return nil
}

// ResolutionFromContext returns the entities resolved by the access guard.
func ResolutionFromContext(c *gin.Context) *access.Resolution {
	if v, ok := c.Get(resolutionKey); ok {
		if r, ok := v.(*access.Resolution); ok {
			return r
		}
	}
	return &access.Resolution{}
}
