package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/course-service/internal/cache"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/notify"
	"github.com/eduhub/course-service/internal/validator"
)

var resetCodePattern = regexp.MustCompile(`\b\d{6}\b`)

type authFixture struct {
	svc       *authService
	repo      *memRepo
	publisher *events.MemoryPublisher
	mailer    *notify.ConsoleSender
}

func newAuthFixture(t *testing.T, cm *cache.CacheManager) *authFixture {
	t.Helper()
	repo := newMemRepo()
	pub := events.NewMemoryPublisher()
	mailer := notify.NewConsoleSender(testLogger())
	svc := NewAuthService(repo, testLogger(), testValidator(), pub, mailer,
		cache.NewTokenDenylist(cm),
		cache.NewResetCodeStore(cm, 15*time.Minute),
		TokenConfig{Secret: []byte("test-secret-test-secret-test-secret"), Issuer: "eduhub-test", TTL: 72 * time.Hour},
	).(*authService)
	return &authFixture{svc: svc, repo: repo, publisher: pub, mailer: mailer}
}

func signup(t *testing.T, f *authFixture, name, email string) *Session {
	t.Helper()
	s, err := f.svc.Signup(context.Background(), &SignupRequest{
		UserName:        name,
		Email:           email,
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	require.NoError(t, err)
	return s
}

func TestAuthSignup(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)

	session := signup(t, f, "ada", "Ada@Example.com")

	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, models.RoleStudent, session.User.Role)
	assert.NotEqual(t, "correct-horse", session.User.PasswordHash)
	assert.NotEmpty(t, session.Token)

	published := f.publisher.Events(events.TopicUserRegistered)
	require.Len(t, published, 1)
	var e events.UserRegistered
	require.NoError(t, json.Unmarshal(published[0].Payload, &e))
	assert.Equal(t, session.User.ID, e.UserID)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Signup(context.Background(), &SignupRequest{
			UserName: "ada2", Email: "ada@example.com", Password: "correct-horse", PasswordConfirm: "correct-horse",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("duplicate user name", func(t *testing.T) {
		_, err := f.svc.Signup(context.Background(), &SignupRequest{
			UserName: "ada", Email: "other@example.com", Password: "correct-horse", PasswordConfirm: "correct-horse",
		})
		assert.ErrorIs(t, err, ErrUserNameTaken)
	})

	t.Run("passwords differ", func(t *testing.T) {
		_, err := f.svc.Signup(context.Background(), &SignupRequest{
			UserName: "bob", Email: "bob@example.com", Password: "correct-horse", PasswordConfirm: "battery-staple",
		})
		var ve validator.ValidationErrors
		assert.ErrorAs(t, err, &ve)
	})
}

func TestAuthLoginAndAuthenticate(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)
	signup(t, f, "ada", "ada@example.com")
	ctx := context.Background()

	_, err := f.svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	user, claims, err := f.svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.TokenID)

	t.Run("role comes from the stored user", func(t *testing.T) {
		user.Role = models.RoleInstructor
		_, claims, err := f.svc.Authenticate(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleInstructor, claims.Role)
		user.Role = models.RoleStudent
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := f.svc.Authenticate(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := *f.svc
		other.tokens.Secret = []byte("another-secret-another-secret-xx")
		forged, err := other.issue(user)
		require.NoError(t, err)
		_, _, err = f.svc.Authenticate(ctx, forged.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("deactivated account", func(t *testing.T) {
		user.Active = false
		defer func() { user.Active = true }()
		_, _, err := f.svc.Authenticate(ctx, session.Token)
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, f.repo.User().Delete(ctx, nil, user.ID))
		_, _, err := f.svc.Authenticate(ctx, session.Token)
		assert.ErrorIs(t, err, ErrTokenOrphan)
	})
}

func TestAuthLogoutRevokesToken(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)
	session := signup(t, f, "ada", "ada@example.com")
	ctx := context.Background()

	_, claims, err := f.svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims))

	_, _, err = f.svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// A new login is unaffected
	fresh, err := f.svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, _, err = f.svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestAuthUpdatePasswordInvalidatesOlderTokens(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)
	old := signup(t, f, "ada", "ada@example.com")
	ctx := context.Background()

	_, err := f.svc.UpdatePassword(ctx, old.User.ID, &UpdatePasswordRequest{
		CurrentPassword: "wrong", Password: "new-password", PasswordConfirm: "new-password",
	})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	fresh, err := f.svc.UpdatePassword(ctx, old.User.ID, &UpdatePasswordRequest{
		CurrentPassword: "correct-horse", Password: "new-password", PasswordConfirm: "new-password",
	})
	require.NoError(t, err)

	_, _, err = f.svc.Authenticate(ctx, old.Token)
	assert.ErrorIs(t, err, ErrTokenStale)
	_, _, err = f.svc.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestAuthPasswordResetFlow(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)
	signup(t, f, "ada", "ada@example.com")
	ctx := context.Background()

	// Unknown addresses look the same as known ones and get no email
	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "nobody@example.com"}))
	assert.Empty(t, f.mailer.Sent())

	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "ada@example.com"}))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To.Address)
	assert.Contains(t, sent[0].Text, "valid for 15 minutes")
	code := resetCodePattern.FindString(sent[0].Text)
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{
		Email: "ada@example.com", Code: wrong, Password: "brand-new-pass", PasswordConfirm: "brand-new-pass",
	})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	session, err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{
		Email: "ada@example.com", Code: code, Password: "brand-new-pass", PasswordConfirm: "brand-new-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	// Codes are single use
	_, err = f.svc.ResetPassword(ctx, &ResetPasswordRequest{
		Email: "ada@example.com", Code: code, Password: "another-pass1", PasswordConfirm: "another-pass1",
	})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)

	// The code travels by email only, never over the event bus
	for _, e := range f.publisher.Events("") {
		assert.NotContains(t, string(e.Payload), code)
	}
}

func TestAuthPasswordResetGuessLimit(t *testing.T) {
	cm, _ := newTestCacheManager(t)
	f := newAuthFixture(t, cm)
	signup(t, f, "ada", "ada@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, &ForgotPasswordRequest{Email: "ada@example.com"}))
	code := resetCodePattern.FindString(f.mailer.Sent()[0].Text)

	for i := range cache.MaxResetAttempts {
		guess := fmt.Sprintf("9%05d", i)
		if guess == code {
			guess = "000000"
		}
		_, err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{
			Email: "ada@example.com", Code: guess, Password: "brand-new-pass", PasswordConfirm: "brand-new-pass",
		})
		require.ErrorIs(t, err, ErrInvalidResetCode)
	}

	_, err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{
		Email: "ada@example.com", Code: code, Password: "brand-new-pass", PasswordConfirm: "brand-new-pass",
	})
	assert.ErrorIs(t, err, ErrInvalidResetCode, "too many wrong guesses discard the code")
}

func TestAuthPasswordResetWithoutRedis(t *testing.T) {
	f := newAuthFixture(t, cache.NewCacheManager(nil))
	signup(t, f, "ada", "ada@example.com")

	err := f.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrResetUnavailable)
	err = f.svc.ForgotPassword(context.Background(), &ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, ErrResetUnavailable)
}
