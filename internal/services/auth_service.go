package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduhub/course-service/internal/cache"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/notify"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

const bcryptCost = 12

// TokenConfig controls session token signing.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	mailer    notify.Sender
	denylist  TokenRevoker
	resets    ResetCodes
	tokens    TokenConfig
	now       func() time.Time
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher, mailer notify.Sender, denylist TokenRevoker, resets ResetCodes, tokens TokenConfig) AuthService {
	return &authService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		mailer:    mailer,
		denylist:  denylist,
		resets:    resets,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	taken, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}
	taken, err = s.repo.User().ExistsByUserName(ctx, nil, req.UserName)
	if err != nil {
		return nil, fmt.Errorf("check user name: %w", err)
	}
	if taken {
		return nil, ErrUserNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Self sign-up always yields a student; roles are raised by an admin.
	user := &models.User{
		UserName:     req.UserName,
		Email:        email,
		Role:         models.RoleStudent,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User signed up", "user_id", user.ID)
	s.publish(ctx, events.TopicUserRegistered, events.UserRegistered{
		UserID:   user.ID,
		UserName: user.UserName,
		Email:    user.Email,
	})

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Burn the same time as a real comparison
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, claims *TokenClaims) error {
	if claims == nil || claims.TokenID == "" {
		return ErrInvalidToken
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, *TokenClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, nil, fmt.Errorf("check token denylist: %w", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	user, err := s.repo.User().GetByID(ctx, nil, claims.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrTokenOrphan
		}
		return nil, nil, fmt.Errorf("load token user: %w", err)
	}
	if !user.Active {
		return nil, nil, ErrAccountDisabled
	}
	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, nil, ErrTokenStale
	}

	// The stored role wins over the one embedded at login time
	claims.Role = user.Role
	return user, claims, nil
}

func (s *authService) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// ForgotPassword emails a one-time code. Unknown addresses get the same
// answer as known ones. The code is sent directly and never published as an
// event, so it only exists in Redis and the email.
func (s *authService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if !s.resets.Available() {
		return ErrResetUnavailable
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Debug("Password reset for unknown email ignored")
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		s.logger.Info("Password reset for disabled account ignored", "user_id", user.ID)
		return nil
	}

	code, err := resetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	if err := s.resets.Save(ctx, user.Email, code); err != nil {
		if errors.Is(err, cache.ErrCacheNotAvailable) {
			return ErrResetUnavailable
		}
		return fmt.Errorf("store reset code: %w", err)
	}

	msg := notify.ResetCodeMessage(mail.Address{Name: user.UserName, Address: user.Email}, code, s.resets.TTL())
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.logger.Info("Password reset requested", "user_id", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if err := s.resets.Consume(ctx, email, req.Code); err != nil {
		if errors.Is(err, cache.ErrResetCodeInvalid) || errors.Is(err, cache.ErrCacheNotAvailable) {
			return nil, ErrInvalidResetCode
		}
		return nil, fmt.Errorf("check reset code: %w", err)
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidResetCode
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return nil, err
	}

	s.logger.Info("Password reset", "user_id", user.ID)
	return s.issue(user)
}

func (s *authService) UpdatePassword(ctx context.Context, userID uuid.UUID, req *UpdatePasswordRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return nil, ErrIncorrectPassword
	}
	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return nil, err
	}

	s.logger.Info("Password updated", "user_id", user.ID)
	return s.issue(user)
}

// ===== HELPERS =====

// dummyHash keeps login timing flat for unknown emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)

func (s *authService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// Back-dated by a second so the token issued right after is not stale;
	// token timestamps have whole-second precision.
	changed := s.now().Add(-time.Second)
	user.PasswordHash = string(hash)
	user.PasswordChangedAt = &changed
	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

func (s *authService) issue(user *models.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.tokens.TTL)
	claims := sessionClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.tokens.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokens.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{User: user, Token: signed, ExpiresAt: expires}, nil
}

func (s *authService) parse(raw string) (*TokenClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.tokens.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.tokens.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		TokenID:   claims.ID,
		UserID:    userID,
		Role:      role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// publish logs instead of failing; the triggering write has already happened.
func (s *authService) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Error("Failed to publish event", "topic", topic, "error", err)
	}
}

func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
