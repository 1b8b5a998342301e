package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeAuth accepts the tokens in its map. Everything else is malformed.
type fakeAuth struct {
	services.AuthService
	tokens  map[string]*models.User
	revoked map[string]bool
	users   map[string]*models.User
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		tokens:  map[string]*models.User{},
		revoked: map[string]bool{},
		users:   map[string]*models.User{},
	}
}

func (a *fakeAuth) login(role models.UserRole) (string, *models.User) {
	u := &models.User{ID: uuid.New(), UserName: string(role), Email: string(role) + "@example.com", Role: role, Active: true}
	token := "token-" + u.ID.String()
	a.tokens[token] = u
	return token, u
}

func (a *fakeAuth) Authenticate(_ context.Context, token string) (*models.User, *services.TokenClaims, error) {
	if a.revoked[token] {
		return nil, nil, services.ErrTokenRevoked
	}
	u, ok := a.tokens[token]
	if !ok {
		return nil, nil, services.ErrInvalidToken
	}
	return u, &services.TokenClaims{TokenID: token, UserID: u.ID, Role: u.Role, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *fakeAuth) UserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := a.users[email]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

func (a *fakeAuth) Logout(_ context.Context, claims *services.TokenClaims) error {
	a.revoked[claims.TokenID] = true
	return nil
}

// stubStore serves a fixed set of courses, discussions and quizzes to the evaluator.
type stubStore struct {
	courses     []*models.Course
	discussions map[uuid.UUID]*models.Discussion
	quizzes     map[uuid.UUID]*models.Quiz
}

func (s *stubStore) find(match func(*models.Course) bool) (*models.Course, error) {
	for _, c := range s.courses {
		if match(c) {
			return c, nil
		}
	}
	return nil, repositories.NotFound("course")
}

func (s *stubStore) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool { return c.ID == id })
}

func (s *stubStore) CourseByLessonID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool { _, err := c.FindLesson(id); return err == nil })
}

func (s *stubStore) CourseByDiscussionID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool {
		for _, m := range c.Modules {
			for _, l := range m.Lessons {
				for _, d := range l.DiscussionIDs {
					if d == id {
						return true
					}
				}
			}
		}
		return false
	})
}

func (s *stubStore) CourseByModuleID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool { return c.HasModule(id) })
}

func (s *stubStore) ModuleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.CourseByModuleID(ctx, id)
	return err == nil, nil
}

func (s *stubStore) DiscussionByID(_ context.Context, id uuid.UUID) (*models.Discussion, error) {
	if d, ok := s.discussions[id]; ok {
		return d, nil
	}
	return nil, repositories.NotFound("discussion")
}

func (s *stubStore) QuizByID(_ context.Context, id uuid.UUID) (*models.Quiz, error) {
	if q, ok := s.quizzes[id]; ok {
		return q, nil
	}
	return nil, repositories.NotFound("quiz")
}

// fixture is a course with one module and one lesson, owned by an instructor
// and with one enrolled student.
type fixture struct {
	auth     *fakeAuth
	store    *stubStore
	course   *models.Course
	moduleID uuid.UUID
	lessonID uuid.UUID

	ownerToken, studentToken, outsiderToken, adminToken string
	owner, student, outsider, admin                     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{auth: newFakeAuth()}
	f.ownerToken, f.owner = f.auth.login(models.RoleInstructor)
	f.studentToken, f.student = f.auth.login(models.RoleStudent)
	f.outsiderToken, f.outsider = f.auth.login(models.RoleStudent)
	f.adminToken, f.admin = f.auth.login(models.RoleAdmin)

	now := time.Now()
	f.course = &models.Course{ID: uuid.New(), Title: "Concurrency in Go", InstructorID: f.owner.ID, Price: 4999}
	module := f.course.AddModule("Basics", 1, now)
	lesson, err := f.course.AddLesson(module.ID, "Goroutines", 12, "videos/goroutines.mp4", 1, now)
	require.NoError(t, err)
	require.NoError(t, f.course.Enroll(f.student.ID))
	f.moduleID, f.lessonID = module.ID, lesson.ID

	f.store = &stubStore{
		courses:     []*models.Course{f.course},
		discussions: map[uuid.UUID]*models.Discussion{},
		quizzes:     map[uuid.UUID]*models.Quiz{},
	}
	return f
}

func (f *fixture) guard() *AccessGuard {
	return NewAccessGuard(access.NewEvaluator(f.store, slog.New(slog.NewTextHandler(io.Discard, nil))), testLogger())
}

// engine returns a gin engine whose routes run behind the fixture's authentication.
func (f *fixture) engine() (*gin.Engine, *gin.RouterGroup) {
	r := gin.New()
	return r, r.Group("", NewAuthMiddleware(f.auth, nil, testLogger()).Authenticate())
}

func do(r http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
