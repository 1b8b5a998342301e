package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/cache"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

// memRepo is an in-memory Repository. Transactions run the callback against
// the same maps without rollback.
//
// By default courses and discussions are shared by pointer. With copies set
// every read returns a private copy and every write stores one, the way rows
// loaded by separate requests behave.
type memRepo struct {
	mu          sync.Mutex
	copies      bool
	users       map[uuid.UUID]*models.User
	courses     map[uuid.UUID]*models.Course
	discussions map[uuid.UUID]*models.Discussion
	quizzes     map[uuid.UUID]*models.Quiz
	progress    map[[2]uuid.UUID]*models.Progress
	payments    map[uuid.UUID]*models.Payment
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:       map[uuid.UUID]*models.User{},
		courses:     map[uuid.UUID]*models.Course{},
		discussions: map[uuid.UUID]*models.Discussion{},
		quizzes:     map[uuid.UUID]*models.Quiz{},
		progress:    map[[2]uuid.UUID]*models.Progress{},
		payments:    map[uuid.UUID]*models.Payment{},
	}
}

func (r *memRepo) User() repositories.UserRepository             { return memUsers{r} }
func (r *memRepo) Course() repositories.CourseRepository         { return memCourses{r} }
func (r *memRepo) Discussion() repositories.DiscussionRepository { return memDiscussions{r} }
func (r *memRepo) Quiz() repositories.QuizRepository             { return memQuizzes{r} }
func (r *memRepo) Progress() repositories.ProgressRepository     { return memProgress{r} }
func (r *memRepo) Payment() repositories.PaymentRepository       { return memPayments{r} }
func (r *memRepo) Ping(context.Context) error                    { return nil }
func (r *memRepo) Close() error                                  { return nil }

func (r *memRepo) WithTransaction(_ context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func snapshot[T any](r *memRepo, v *T) *T {
	if !r.copies {
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// ===== USERS =====

type memUsers struct{ r *memRepo }

func (m memUsers) Create(_ context.Context, _ *gorm.DB, u *models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, existing := range m.r.users {
		if existing.Email == u.Email || existing.UserName == u.UserName {
			return repositories.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.r.users[u.ID] = u
	return nil
}

func (m memUsers) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if u, ok := m.r.users[id]; ok {
		return u, nil
	}
	return nil, repositories.NotFound("user")
}

func (m memUsers) GetByEmail(_ context.Context, _ *gorm.DB, email string) (*models.User, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, u := range m.r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.NotFound("user")
}

func (m memUsers) Update(_ context.Context, _ *gorm.DB, u *models.User) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.users[u.ID] = u
	return nil
}

func (m memUsers) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.users[id]; !ok {
		return repositories.NotFound("user")
	}
	delete(m.r.users, id)
	return nil
}

func (m memUsers) List(_ context.Context, _ *gorm.DB, f repositories.UserFilters) ([]*models.User, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.User
	for _, u := range m.r.users {
		if f.Role == nil || u.Role == *f.Role {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (m memUsers) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, tx, email)
	return err == nil, nil
}

func (m memUsers) ExistsByUserName(_ context.Context, _ *gorm.DB, name string) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, u := range m.r.users {
		if u.UserName == name {
			return true, nil
		}
	}
	return false, nil
}

// ===== COURSES =====

type memCourses struct{ r *memRepo }

func (m memCourses) Create(_ context.Context, _ *gorm.DB, c *models.Course) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.r.courses[c.ID] = snapshot(m.r, c)
	return nil
}

func (m memCourses) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Course, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if c, ok := m.r.courses[id]; ok {
		return snapshot(m.r, c), nil
	}
	return nil, repositories.NotFound("course")
}

func (m memCourses) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	return m.GetByID(ctx, tx, id)
}

func (m memCourses) Update(_ context.Context, _ *gorm.DB, c *models.Course) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.courses[c.ID]; !ok {
		return repositories.NotFound("course")
	}
	c.RecalculateDuration()
	m.r.courses[c.ID] = snapshot(m.r, c)
	return nil
}

func (m memCourses) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.courses[id]; !ok {
		return repositories.NotFound("course")
	}
	delete(m.r.courses, id)
	return nil
}

func (m memCourses) List(_ context.Context, _ *gorm.DB, f repositories.CourseFilters) ([]*models.Course, int64, error) {
	return m.filter(func(c *models.Course) bool {
		return f.Category == "" || slices.Contains(c.Categories, f.Category)
	}), 0, nil
}

func (m memCourses) filter(match func(*models.Course) bool) []*models.Course {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Course
	for _, c := range m.r.courses {
		if match(c) {
			out = append(out, snapshot(m.r, c))
		}
	}
	return out
}

func (m memCourses) first(match func(*models.Course) bool, entity string) (*models.Course, error) {
	if found := m.filter(match); len(found) > 0 {
		return found[0], nil
	}
	return nil, repositories.NotFound(entity)
}

func referencesDiscussion(c *models.Course, id uuid.UUID) bool {
	for _, mod := range c.Modules {
		for _, l := range mod.Lessons {
			if slices.Contains(l.DiscussionIDs, id) {
				return true
			}
		}
	}
	return false
}

func (m memCourses) GetByLessonID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Course, error) {
	return m.first(func(c *models.Course) bool { _, err := c.FindLesson(id); return err == nil }, "lesson")
}

func (m memCourses) GetByDiscussionID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Course, error) {
	return m.first(func(c *models.Course) bool { return referencesDiscussion(c, id) }, "discussion")
}

func (m memCourses) GetByModuleID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Course, error) {
	return m.first(func(c *models.Course) bool { return c.HasModule(id) }, "module")
}

func (m memCourses) ModuleExists(_ context.Context, _ *gorm.DB, id uuid.UUID) (bool, error) {
	return len(m.filter(func(c *models.Course) bool { return c.HasModule(id) })) > 0, nil
}

func (m memCourses) ListByStudent(_ context.Context, _ *gorm.DB, id uuid.UUID) ([]*models.Course, error) {
	return m.filter(func(c *models.Course) bool { return c.IsEnrolled(id) }), nil
}

func (m memCourses) ListByDiscussionID(_ context.Context, _ *gorm.DB, id uuid.UUID) ([]*models.Course, error) {
	return m.filter(func(c *models.Course) bool { return referencesDiscussion(c, id) }), nil
}

// ===== DISCUSSIONS =====

type memDiscussions struct{ r *memRepo }

func (m memDiscussions) Create(_ context.Context, _ *gorm.DB, d *models.Discussion) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.r.discussions[d.ID] = snapshot(m.r, d)
	return nil
}

func (m memDiscussions) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Discussion, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if d, ok := m.r.discussions[id]; ok {
		return snapshot(m.r, d), nil
	}
	return nil, repositories.NotFound("discussion")
}

func (m memDiscussions) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discussion, error) {
	return m.GetByID(ctx, tx, id)
}

func (m memDiscussions) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*models.Discussion, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Discussion
	for _, id := range ids {
		if d, ok := m.r.discussions[id]; ok {
			out = append(out, snapshot(m.r, d))
		}
	}
	return out, nil
}

func (m memDiscussions) Update(_ context.Context, _ *gorm.DB, d *models.Discussion) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.discussions[d.ID]; !ok {
		return repositories.NotFound("discussion")
	}
	m.r.discussions[d.ID] = snapshot(m.r, d)
	return nil
}

func (m memDiscussions) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.discussions, id)
	return nil
}

func (m memDiscussions) List(_ context.Context, _ *gorm.DB, _ repositories.DiscussionFilters) ([]*models.Discussion, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Discussion
	for _, d := range m.r.discussions {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

// ===== QUIZZES =====

type memQuizzes struct{ r *memRepo }

func (m memQuizzes) Create(_ context.Context, _ *gorm.DB, q *models.Quiz) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	m.r.quizzes[q.ID] = q
	return nil
}

func (m memQuizzes) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Quiz, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if q, ok := m.r.quizzes[id]; ok {
		return q, nil
	}
	return nil, repositories.NotFound("quiz")
}

func (m memQuizzes) Update(_ context.Context, _ *gorm.DB, q *models.Quiz) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	m.r.quizzes[q.ID] = q
	return nil
}

func (m memQuizzes) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.quizzes[id]; !ok {
		return repositories.NotFound("quiz")
	}
	delete(m.r.quizzes, id)
	return nil
}

func (m memQuizzes) List(_ context.Context, _ *gorm.DB, scope repositories.QuizScope) ([]*models.Quiz, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Quiz
	for _, q := range m.r.quizzes {
		if scope.CourseID != nil && (q.CourseID == nil || *q.CourseID != *scope.CourseID) {
			continue
		}
		if scope.ModuleID != nil && (q.ModuleID == nil || *q.ModuleID != *scope.ModuleID) {
			continue
		}
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b *models.Quiz) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m memQuizzes) IDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	quizzes, err := m.List(ctx, tx, repositories.QuizScope{CourseID: &courseID})
	ids := make([]uuid.UUID, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	return ids, err
}

// ===== PROGRESS =====

type memProgress struct{ r *memRepo }

func (m memProgress) Get(_ context.Context, _ *gorm.DB, studentID, courseID uuid.UUID) (*models.Progress, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if p, ok := m.r.progress[[2]uuid.UUID{studentID, courseID}]; ok {
		return p, nil
	}
	return nil, repositories.NotFound("progress")
}

func (m memProgress) Save(_ context.Context, _ *gorm.DB, p *models.Progress) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.r.progress[[2]uuid.UUID{p.StudentID, p.CourseID}] = p
	return nil
}

func (m memProgress) ListByCourse(_ context.Context, _ *gorm.DB, courseID uuid.UUID) ([]*models.Progress, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Progress
	for _, p := range m.r.progress {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ===== PAYMENTS =====

type memPayments struct{ r *memRepo }

func (m memPayments) Create(_ context.Context, _ *gorm.DB, p *models.Payment) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.r.payments[p.ID] = p
	return nil
}

func (m memPayments) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if p, ok := m.r.payments[id]; ok {
		return p, nil
	}
	return nil, repositories.NotFound("payment")
}

func (m memPayments) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	return m.GetByID(ctx, tx, id)
}

func (m memPayments) GetByIntentIDForUpdate(_ context.Context, _ *gorm.DB, intentID string) (*models.Payment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, p := range m.r.payments {
		if p.GatewayIntentID == intentID {
			return p, nil
		}
	}
	return nil, repositories.NotFound("payment")
}

func (m memPayments) Update(_ context.Context, _ *gorm.DB, p *models.Payment) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.payments[p.ID]; !ok {
		return repositories.NotFound("payment")
	}
	m.r.payments[p.ID] = p
	return nil
}

func (m memPayments) List(_ context.Context, _ *gorm.DB, f repositories.PaymentFilters) ([]*models.Payment, int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.Payment
	for _, p := range m.r.payments {
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

// ===== FIXTURES =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *validator.Validator {
	return validator.New()
}

// newTestCacheManager returns a cache manager backed by miniredis.
func newTestCacheManager(t *testing.T) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCacheManager(client), mr
}

func principal(role models.UserRole) *access.Principal {
	return &access.Principal{ID: uuid.New(), Role: role}
}

// seedCourse stores a course owned by instructorID with one module holding
// one lesson.
func seedCourse(repo *memRepo, instructorID uuid.UUID, students ...uuid.UUID) (*models.Course, uuid.UUID, uuid.UUID) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &models.Course{
		ID:               uuid.New(),
		Title:            "Concurrency in Go",
		Description:      "Goroutines, channels and friends",
		InstructorID:     instructorID,
		Level:            models.LevelIntermediate,
		Language:         "English",
		Price:            4999,
		EnrolledStudents: students,
	}
	module := c.AddModule("Basics", 1, now)
	lesson, _ := c.AddLesson(module.ID, "Goroutines", 12, "videos/goroutines.mp4", 1, now)
	repo.courses[c.ID] = c
	return c, module.ID, lesson.ID
}
