// Package access decides whether a principal may perform an action on a
// course, lesson, discussion or quiz.
//
// Every evaluation checks, in order: an authenticated principal (401), well
// formed identifiers (400), the existence of the referenced entities (404) and
// finally the relationship between principal and course (403). No storage is
// read before the principal is known to be present.
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

// Resolution carries the entities resolved while evaluating an allowed action.
type Resolution struct {
	Course     *models.Course
	Discussion *models.Discussion
	Quiz       *models.Quiz
}

type Evaluator struct {
	store  Store
	logger *slog.Logger
}

func NewEvaluator(store Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{store: store, logger: logger}
}

// ModifyCourse allows the owning instructor and admins to change a course.
func (e *Evaluator) ModifyCourse(ctx context.Context, p *Principal, courseID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	id, d := parseID(courseID, "courseId")
	if d != nil {
		return nil, d
	}
	course, err := e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return e.decide(p, course, Owner, &Resolution{Course: course})
}

// AccessLessons allows the owner, enrolled students and admins to read course content.
func (e *Evaluator) AccessLessons(ctx context.Context, p *Principal, courseID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	id, d := parseID(courseID, "courseId")
	if d != nil {
		return nil, d
	}
	course, err := e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return e.decide(p, course, Owner|Member, &Resolution{Course: course})
}

// PostDiscussion guards creating and listing the discussions of a lesson.
func (e *Evaluator) PostDiscussion(ctx context.Context, p *Principal, lessonID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	id, d := parseID(lessonID, "lessonId")
	if d != nil {
		return nil, d
	}
	course, err := e.course(ctx, "lesson", func() (*models.Course, error) { return e.store.CourseByLessonID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return e.decide(p, course, Owner|Member, &Resolution{Course: course})
}

// InteractDiscussion guards replying to and liking a discussion.
func (e *Evaluator) InteractDiscussion(ctx context.Context, p *Principal, discussionID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	id, d := parseID(discussionID, "discussionId")
	if d != nil {
		return nil, d
	}
	discussion, err := e.store.DiscussionByID(ctx, id)
	if err != nil {
		return nil, e.lookupFailure(err, "discussion")
	}
	course, err := e.course(ctx, "course for this discussion", func() (*models.Course, error) {
		return e.store.CourseByDiscussionID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return e.decide(p, course, Owner|Member, &Resolution{Course: course, Discussion: discussion})
}

// CreateQuiz allows the owner and admins to add a quiz to a course, optionally
// scoped to one of its modules. A module that is not part of the course is a
// bad request and is reported before the role check.
func (e *Evaluator) CreateQuiz(ctx context.Context, p *Principal, courseID, moduleID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	cid, d := parseID(courseID, "courseId")
	if d != nil {
		return nil, d
	}
	var mid uuid.UUID
	if moduleID != "" {
		if mid, d = parseID(moduleID, "moduleId"); d != nil {
			return nil, d
		}
	}
	course, err := e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByID(ctx, cid) })
	if err != nil {
		return nil, err
	}
	if moduleID != "" && !course.HasModule(mid) {
		return nil, errModuleNotFound
	}
	return e.decide(p, course, Owner, &Resolution{Course: course})
}

// ManageQuiz guards updating and deleting a quiz.
func (e *Evaluator) ManageQuiz(ctx context.Context, p *Principal, quizID string) (*Resolution, error) {
	return e.quizAction(ctx, p, quizID, Owner)
}

// TakeQuiz guards reading and submitting a quiz.
func (e *Evaluator) TakeQuiz(ctx context.Context, p *Principal, quizID string) (*Resolution, error) {
	return e.quizAction(ctx, p, quizID, Owner|Member)
}

// ListQuizzes guards listing quizzes by course, by module or by both. With
// both ids the course must exist and the module must exist somewhere; the two
// lookups are independent and run concurrently.
func (e *Evaluator) ListQuizzes(ctx context.Context, p *Principal, courseID, moduleID string) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	if courseID == "" && moduleID == "" {
		return nil, errListScopeMissing
	}

	var cid, mid uuid.UUID
	var d *Denial
	if courseID != "" {
		if cid, d = parseID(courseID, "courseId"); d != nil {
			return nil, d
		}
	}
	if moduleID != "" {
		if mid, d = parseID(moduleID, "moduleId"); d != nil {
			return nil, d
		}
	}

	switch {
	case courseID != "" && moduleID != "":
		var (
			course       *models.Course
			courseErr    error
			moduleExists bool
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			course, courseErr = e.store.CourseByID(gctx, cid)
			if courseErr != nil && !repositories.IsNotFoundError(courseErr) {
				return courseErr
			}
			return nil
		})
		g.Go(func() error {
			var err error
			moduleExists, err = e.store.ModuleExists(gctx, mid)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, e.storageFailure(err)
		}
		if courseErr != nil {
			return nil, notFound("course")
		}
		if !moduleExists {
			return nil, errModuleNotFound
		}
		return e.decide(p, course, Owner|Member, &Resolution{Course: course})

	case moduleID != "":
		course, err := e.store.CourseByModuleID(ctx, mid)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, errModuleNotFound
			}
			return nil, e.storageFailure(err)
		}
		return e.decide(p, course, Owner|Member, &Resolution{Course: course})

	default:
		course, err := e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByID(ctx, cid) })
		if err != nil {
			return nil, err
		}
		return e.decide(p, course, Owner|Member, &Resolution{Course: course})
	}
}

// RequireRole is a plain membership gate on the principal's role.
func (e *Evaluator) RequireRole(p *Principal, roles ...models.UserRole) error {
	if p == nil {
		return errUnauthenticated
	}
	if !p.HasRole(roles...) {
		return errNoPermission
	}
	return nil
}

func (e *Evaluator) quizAction(ctx context.Context, p *Principal, quizID string, required Relation) (*Resolution, error) {
	if p == nil {
		return nil, errUnauthenticated
	}
	id, d := parseID(quizID, "quizId")
	if d != nil {
		return nil, d
	}
	quiz, err := e.store.QuizByID(ctx, id)
	if err != nil {
		return nil, e.lookupFailure(err, "quiz")
	}

	var course *models.Course
	switch {
	case quiz.CourseID != nil:
		course, err = e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByID(ctx, *quiz.CourseID) })
	case quiz.ModuleID != nil:
		course, err = e.course(ctx, "course", func() (*models.Course, error) { return e.store.CourseByModuleID(ctx, *quiz.ModuleID) })
	default:
		return nil, errQuizWithoutCourse
	}
	if err != nil {
		return nil, err
	}
	return e.decide(p, course, required, &Resolution{Course: course, Quiz: quiz})
}

func (e *Evaluator) course(ctx context.Context, entity string, lookup func() (*models.Course, error)) (*models.Course, error) {
	course, err := lookup()
	if err != nil {
		return nil, e.lookupFailure(err, entity)
	}
	return course, nil
}

func (e *Evaluator) decide(p *Principal, course *models.Course, required Relation, res *Resolution) (*Resolution, error) {
	if !canAccessCourse(p, course, required) {
		return nil, errNoPermission
	}
	return res, nil
}

func (e *Evaluator) lookupFailure(err error, entity string) error {
	if repositories.IsNotFoundError(err) {
		return notFound(entity)
	}
	return e.storageFailure(err)
}

func (e *Evaluator) storageFailure(err error) error {
	e.logger.Error("Access lookup failed", "error", err)
	return fmt.Errorf("access lookup: %w", err)
}

func parseID(raw, name string) (uuid.UUID, *Denial) {
	if raw == "" {
		return uuid.Nil, invalidID(name)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, invalidID(name)
	}
	return id, nil
}
