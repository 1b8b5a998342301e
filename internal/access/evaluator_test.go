package access

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type memStore struct {
	mu          sync.Mutex
	courses     []*models.Course
	discussions map[uuid.UUID]*models.Discussion
	quizzes     map[uuid.UUID]*models.Quiz
	reads       atomic.Int64
	fail        error
}

func newMemStore() *memStore {
	return &memStore{
		discussions: map[uuid.UUID]*models.Discussion{},
		quizzes:     map[uuid.UUID]*models.Quiz{},
	}
}

func (s *memStore) find(match func(*models.Course) bool) (*models.Course, error) {
	s.reads.Add(1)
	if s.fail != nil {
		return nil, s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if match(c) {
			return c, nil
		}
	}
	return nil, repositories.NotFound("course")
}

func (s *memStore) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool { return c.ID == id })
}

func (s *memStore) CourseByLessonID(_ context.Context, lessonID uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool {
		_, err := c.FindLesson(lessonID)
		return err == nil
	})
}

func (s *memStore) CourseByDiscussionID(_ context.Context, discussionID uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool {
		for _, m := range c.Modules {
			for _, l := range m.Lessons {
				for _, id := range l.DiscussionIDs {
					if id == discussionID {
						return true
					}
				}
			}
		}
		return false
	})
}

func (s *memStore) CourseByModuleID(_ context.Context, moduleID uuid.UUID) (*models.Course, error) {
	return s.find(func(c *models.Course) bool { return c.HasModule(moduleID) })
}

func (s *memStore) ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error) {
	_, err := s.CourseByModuleID(ctx, moduleID)
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *memStore) DiscussionByID(_ context.Context, id uuid.UUID) (*models.Discussion, error) {
	s.reads.Add(1)
	if d, ok := s.discussions[id]; ok {
		return d, nil
	}
	return nil, repositories.NotFound("discussion")
}

func (s *memStore) QuizByID(_ context.Context, id uuid.UUID) (*models.Quiz, error) {
	s.reads.Add(1)
	if q, ok := s.quizzes[id]; ok {
		return q, nil
	}
	return nil, repositories.NotFound("quiz")
}

type fixture struct {
	store      *memStore
	eval       *Evaluator
	course     *models.Course
	other      *models.Course
	moduleID   uuid.UUID
	lessonID   uuid.UUID
	discussion *models.Discussion
	quiz       *models.Quiz

	admin, owner, instructor, enrolled, stranger *Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore()}

	f.admin = &Principal{ID: uuid.New(), Role: models.RoleAdmin}
	f.owner = &Principal{ID: uuid.New(), Role: models.RoleInstructor}
	f.instructor = &Principal{ID: uuid.New(), Role: models.RoleInstructor}
	f.enrolled = &Principal{ID: uuid.New(), Role: models.RoleStudent}
	f.stranger = &Principal{ID: uuid.New(), Role: models.RoleStudent}

	f.course = &models.Course{ID: uuid.New(), Title: "Go", InstructorID: f.owner.ID}
	require.NoError(t, f.course.Enroll(f.enrolled.ID))
	m := f.course.AddModule("Basics", 1, timeNow())
	f.moduleID = m.ID
	l, err := f.course.AddLesson(m.ID, "Intro", 10, "intro.mp4", 1, timeNow())
	require.NoError(t, err)
	f.lessonID = l.ID

	f.discussion = &models.Discussion{ID: uuid.New(), Belong: f.enrolled.ID, Title: "Q", Content: "?"}
	require.NoError(t, f.course.AttachDiscussion(f.lessonID, f.discussion.ID))
	f.store.discussions[f.discussion.ID] = f.discussion

	f.other = &models.Course{ID: uuid.New(), Title: "Rust", InstructorID: f.instructor.ID}
	f.other.AddModule("Ownership", 1, timeNow())

	f.quiz = &models.Quiz{ID: uuid.New(), Title: "Basics quiz", CourseID: &f.course.ID}
	f.store.quizzes[f.quiz.ID] = f.quiz

	f.store.courses = []*models.Course{f.course, f.other}
	f.eval = NewEvaluator(f.store, nil)
	return f
}

func requireDenial(t *testing.T, err error, status int, msg string) {
	t.Helper()
	d, ok := AsDenial(err)
	require.True(t, ok, "expected a denial, got %v", err)
	assert.Equal(t, status, d.Status())
	if msg != "" {
		assert.Equal(t, msg, d.Message)
	}
}

func TestCanAccess(t *testing.T) {
	owner := uuid.New()
	student := uuid.New()
	enrolled := []uuid.UUID{student}

	tests := []struct {
		name     string
		p        *Principal
		required Relation
		want     bool
	}{
		{"nil principal", nil, Owner | Member, false},
		{"admin needs no relation", &Principal{ID: uuid.New(), Role: models.RoleAdmin}, 0, true},
		{"owner instructor", &Principal{ID: owner, Role: models.RoleInstructor}, Owner, true},
		{"owner instructor without owner relation", &Principal{ID: owner, Role: models.RoleInstructor}, Member, false},
		{"other instructor", &Principal{ID: uuid.New(), Role: models.RoleInstructor}, Owner | Member, false},
		{"enrolled student", &Principal{ID: student, Role: models.RoleStudent}, Owner | Member, true},
		{"enrolled student on owner-only action", &Principal{ID: student, Role: models.RoleStudent}, Owner, false},
		{"student id equal to owner", &Principal{ID: owner, Role: models.RoleStudent}, Owner, false},
		{"unknown role", &Principal{ID: owner, Role: models.UserRole("root")}, Owner | Member, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(tt.p, owner, enrolled, tt.required))
		})
	}
}

func TestUnauthenticatedReadsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.course.ID.String()

	calls := map[string]func() error{
		"ModifyCourse":       func() error { _, err := f.eval.ModifyCourse(ctx, nil, id); return err },
		"AccessLessons":      func() error { _, err := f.eval.AccessLessons(ctx, nil, id); return err },
		"PostDiscussion":     func() error { _, err := f.eval.PostDiscussion(ctx, nil, f.lessonID.String()); return err },
		"InteractDiscussion": func() error { _, err := f.eval.InteractDiscussion(ctx, nil, f.discussion.ID.String()); return err },
		"CreateQuiz":         func() error { _, err := f.eval.CreateQuiz(ctx, nil, id, ""); return err },
		"ManageQuiz":         func() error { _, err := f.eval.ManageQuiz(ctx, nil, f.quiz.ID.String()); return err },
		"ListQuizzes":        func() error { _, err := f.eval.ListQuizzes(ctx, nil, id, f.moduleID.String()); return err },
		"TakeQuiz":           func() error { _, err := f.eval.TakeQuiz(ctx, nil, f.quiz.ID.String()); return err },
		"RequireRole":        func() error { return f.eval.RequireRole(nil, models.RoleAdmin) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			requireDenial(t, call(), http.StatusUnauthorized, "authentication failed")
		})
	}
	assert.Zero(t, f.store.reads.Load())
}

func TestAdminAlwaysAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eval.ModifyCourse(ctx, f.admin, f.course.ID.String())
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, res.Course.ID)

	_, err = f.eval.AccessLessons(ctx, f.admin, f.course.ID.String())
	require.NoError(t, err)
	_, err = f.eval.PostDiscussion(ctx, f.admin, f.lessonID.String())
	require.NoError(t, err)
	_, err = f.eval.InteractDiscussion(ctx, f.admin, f.discussion.ID.String())
	require.NoError(t, err)
	_, err = f.eval.CreateQuiz(ctx, f.admin, f.course.ID.String(), f.moduleID.String())
	require.NoError(t, err)
	_, err = f.eval.ManageQuiz(ctx, f.admin, f.quiz.ID.String())
	require.NoError(t, err)
	_, err = f.eval.TakeQuiz(ctx, f.admin, f.quiz.ID.String())
	require.NoError(t, err)
	_, err = f.eval.ListQuizzes(ctx, f.admin, f.course.ID.String(), "")
	require.NoError(t, err)
	require.NoError(t, f.eval.RequireRole(f.admin, models.RoleAdmin))
}

func TestModifyCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		p        *Principal
		courseID string
		status   int
		msg      string
	}{
		{"owner", f.owner, f.course.ID.String(), 0, ""},
		{"other instructor", f.instructor, f.course.ID.String(), http.StatusForbidden, "you do not have permission to perform this action"},
		{"enrolled student", f.enrolled, f.course.ID.String(), http.StatusForbidden, ""},
		{"missing id", f.owner, "", http.StatusBadRequest, "valid courseId must be provided"},
		{"malformed id", f.owner, "not-a-uuid", http.StatusBadRequest, "valid courseId must be provided"},
		{"unknown course", f.owner, uuid.NewString(), http.StatusNotFound, "course not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.eval.ModifyCourse(ctx, tt.p, tt.courseID)
			if tt.status == 0 {
				require.NoError(t, err)
				assert.Same(t, f.course, res.Course)
				return
			}
			requireDenial(t, err, tt.status, tt.msg)
		})
	}
}

func TestEnrollmentFlipsLessonAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eval.AccessLessons(ctx, f.stranger, f.course.ID.String())
	requireDenial(t, err, http.StatusForbidden, "")

	require.NoError(t, f.course.Enroll(f.stranger.ID))
	_, err = f.eval.AccessLessons(ctx, f.stranger, f.course.ID.String())
	require.NoError(t, err)

	f.course.Unenroll(f.stranger.ID)
	_, err = f.eval.AccessLessons(ctx, f.stranger, f.course.ID.String())
	requireDenial(t, err, http.StatusForbidden, "")
}

func TestPostDiscussion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eval.PostDiscussion(ctx, f.enrolled, f.lessonID.String())
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, res.Course.ID)

	_, err = f.eval.PostDiscussion(ctx, f.owner, f.lessonID.String())
	require.NoError(t, err)

	_, err = f.eval.PostDiscussion(ctx, f.stranger, f.lessonID.String())
	requireDenial(t, err, http.StatusForbidden, "")

	_, err = f.eval.PostDiscussion(ctx, f.enrolled, uuid.NewString())
	requireDenial(t, err, http.StatusNotFound, "lesson not found")

	_, err = f.eval.PostDiscussion(ctx, f.enrolled, "12")
	requireDenial(t, err, http.StatusBadRequest, "valid lessonId must be provided")
}

func TestInteractDiscussion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eval.InteractDiscussion(ctx, f.enrolled, f.discussion.ID.String())
	require.NoError(t, err)
	assert.Same(t, f.discussion, res.Discussion)
	assert.Equal(t, f.course.ID, res.Course.ID)

	_, err = f.eval.InteractDiscussion(ctx, f.instructor, f.discussion.ID.String())
	requireDenial(t, err, http.StatusForbidden, "")

	_, err = f.eval.InteractDiscussion(ctx, f.enrolled, uuid.NewString())
	requireDenial(t, err, http.StatusNotFound, "discussion not found")

	orphan := &models.Discussion{ID: uuid.New()}
	f.store.discussions[orphan.ID] = orphan
	_, err = f.eval.InteractDiscussion(ctx, f.enrolled, orphan.ID.String())
	requireDenial(t, err, http.StatusNotFound, "course for this discussion not found")
}

func TestCreateQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foreignModule := f.other.Modules[0].ID.String()

	_, err := f.eval.CreateQuiz(ctx, f.owner, f.course.ID.String(), f.moduleID.String())
	require.NoError(t, err)

	_, err = f.eval.CreateQuiz(ctx, f.owner, f.course.ID.String(), "")
	require.NoError(t, err)

	_, err = f.eval.CreateQuiz(ctx, f.enrolled, f.course.ID.String(), "")
	requireDenial(t, err, http.StatusForbidden, "")

	// the module check runs before the role check
	_, err = f.eval.CreateQuiz(ctx, f.enrolled, f.course.ID.String(), foreignModule)
	requireDenial(t, err, http.StatusBadRequest, "module not found")
	_, err = f.eval.CreateQuiz(ctx, f.instructor, f.course.ID.String(), uuid.NewString())
	requireDenial(t, err, http.StatusBadRequest, "module not found")

	_, err = f.eval.CreateQuiz(ctx, f.owner, uuid.NewString(), f.moduleID.String())
	requireDenial(t, err, http.StatusNotFound, "course not found")

	_, err = f.eval.CreateQuiz(ctx, f.owner, f.course.ID.String(), "bad")
	requireDenial(t, err, http.StatusBadRequest, "valid moduleId must be provided")
}

func TestQuizActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eval.TakeQuiz(ctx, f.enrolled, f.quiz.ID.String())
	require.NoError(t, err)
	assert.Same(t, f.quiz, res.Quiz)

	_, err = f.eval.ManageQuiz(ctx, f.enrolled, f.quiz.ID.String())
	requireDenial(t, err, http.StatusForbidden, "")

	_, err = f.eval.ManageQuiz(ctx, f.owner, f.quiz.ID.String())
	require.NoError(t, err)

	_, err = f.eval.TakeQuiz(ctx, f.stranger, f.quiz.ID.String())
	requireDenial(t, err, http.StatusForbidden, "")

	_, err = f.eval.TakeQuiz(ctx, f.enrolled, uuid.NewString())
	requireDenial(t, err, http.StatusNotFound, "quiz not found")

	moduleQuiz := &models.Quiz{ID: uuid.New(), ModuleID: &f.moduleID}
	f.store.quizzes[moduleQuiz.ID] = moduleQuiz
	res, err = f.eval.TakeQuiz(ctx, f.enrolled, moduleQuiz.ID.String())
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, res.Course.ID)

	loose := &models.Quiz{ID: uuid.New()}
	f.store.quizzes[loose.ID] = loose
	_, err = f.eval.ManageQuiz(ctx, f.admin, loose.ID.String())
	requireDenial(t, err, http.StatusBadRequest, "quiz does not belong to any course")
}

func TestListQuizzes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := f.course.ID.String()
	module := f.moduleID.String()

	tests := []struct {
		name     string
		p        *Principal
		courseID string
		moduleID string
		status   int
		msg      string
	}{
		{"course only, enrolled", f.enrolled, course, "", 0, ""},
		{"module only, owner", f.owner, "", module, 0, ""},
		{"both, enrolled", f.enrolled, course, module, 0, ""},
		{"module of another course still exists", f.enrolled, course, f.other.Modules[0].ID.String(), 0, ""},
		{"neither", f.enrolled, "", "", http.StatusBadRequest, ""},
		{"both, module nowhere", f.enrolled, course, uuid.NewString(), http.StatusBadRequest, "module not found"},
		{"both, course missing", f.enrolled, uuid.NewString(), module, http.StatusNotFound, "course not found"},
		{"both missing reports the course", f.enrolled, uuid.NewString(), uuid.NewString(), http.StatusNotFound, "course not found"},
		{"module only, nowhere", f.enrolled, "", uuid.NewString(), http.StatusBadRequest, "module not found"},
		{"course only, stranger", f.stranger, course, "", http.StatusForbidden, ""},
		{"malformed course", f.enrolled, "x", module, http.StatusBadRequest, "valid courseId must be provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.eval.ListQuizzes(ctx, tt.p, tt.courseID, tt.moduleID)
			if tt.status == 0 {
				require.NoError(t, err)
				require.NotNil(t, res.Course)
				return
			}
			requireDenial(t, err, tt.status, tt.msg)
		})
	}
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.eval.RequireRole(f.owner, models.RoleAdmin, models.RoleInstructor))
	requireDenial(t, f.eval.RequireRole(f.enrolled, models.RoleAdmin, models.RoleInstructor), http.StatusForbidden, "")
	requireDenial(t, f.eval.RequireRole(f.admin), http.StatusForbidden, "")
}

func TestStorageFailureIsNotADenial(t *testing.T) {
	f := newFixture(t)
	f.store.fail = errors.New("connection reset")

	_, err := f.eval.ModifyCourse(context.Background(), f.owner, f.course.ID.String())
	require.Error(t, err)
	_, isDenial := AsDenial(err)
	assert.False(t, isDenial)
	assert.ErrorIs(t, err, f.store.fail)
}

func TestNewPrincipal(t *testing.T) {
	p, err := NewPrincipal(uuid.New(), "Instructor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, p.Role)

	_, err = NewPrincipal(uuid.New(), "superuser")
	assert.Error(t, err)
}

func timeNow() time.Time { return time.Unix(1700000000, 0).UTC() }
