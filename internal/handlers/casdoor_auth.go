package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/eduhub/course-service/internal/config"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

type casdoorTokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// UserResolver maps an external identity onto a local account.
type UserResolver interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// CasdoorVerifier accepts Casdoor-issued tokens for users that already have a
// local account with the same email. Roles always come from the local account.
type CasdoorVerifier struct {
	parser casdoorTokenParser
	users  UserResolver
	logger utils.Logger
}

// NewCasdoorVerifier returns a nil SSOVerifier when Casdoor is not configured.
func NewCasdoorVerifier(cfg config.CasdoorConfig, users UserResolver, logger utils.Logger) SSOVerifier {
	if !cfg.Enabled() {
		return nil
	}
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{parser: client, users: users, logger: logger}
}

func (v *CasdoorVerifier) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := v.parser.ParseJwtToken(token)
	if err != nil {
		v.logger.Debug("Casdoor token rejected", "error", err)
		return nil, services.ErrInvalidToken
	}

	email := strings.TrimSpace(claims.User.Email)
	if email == "" {
		v.logger.Warn("Casdoor token has no email", "subject", claims.Id)
		return nil, services.ErrInvalidToken
	}

	user, err := v.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, services.ErrTokenOrphan
		}
		return nil, fmt.Errorf("resolve casdoor user: %w", err)
	}
	if !user.Active {
		return nil, services.ErrAccountDisabled
	}
	return user, nil
}
