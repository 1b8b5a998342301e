package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/utils"
)

type evaluation func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error)

// AccessGuard runs the access evaluator in front of a handler. On allow the
// resolved entities are stored on the gin context; on deny the chain stops
// with the evaluator's status and message.
type AccessGuard struct {
	evaluator *access.Evaluator
	logger    utils.Logger
}

func NewAccessGuard(evaluator *access.Evaluator, logger utils.Logger) *AccessGuard {
	return &AccessGuard{evaluator: evaluator, logger: logger}
}

func (g *AccessGuard) ModifyCourse() gin.HandlerFunc {
	return g.guard("modify_course", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.ModifyCourse(ctx, p, c.Param("courseId"))
	})
}

func (g *AccessGuard) AccessLessons() gin.HandlerFunc {
	return g.guard("access_lessons", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.AccessLessons(ctx, p, c.Param("courseId"))
	})
}

func (g *AccessGuard) PostDiscussion() gin.HandlerFunc {
	return g.guard("post_discussion", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.PostDiscussion(ctx, p, c.Param("lessonId"))
	})
}

func (g *AccessGuard) InteractDiscussion() gin.HandlerFunc {
	return g.guard("interact_discussion", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.InteractDiscussion(ctx, p, c.Param("discussionId"))
	})
}

// CreateQuiz reads moduleId from the path; it is absent on course-level routes.
func (g *AccessGuard) CreateQuiz() gin.HandlerFunc {
	return g.guard("create_quiz", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.CreateQuiz(ctx, p, c.Param("courseId"), c.Param("moduleId"))
	})
}

func (g *AccessGuard) ManageQuiz() gin.HandlerFunc {
	return g.guard("manage_quiz", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.ManageQuiz(ctx, p, c.Param("quizId"))
	})
}

func (g *AccessGuard) TakeQuiz() gin.HandlerFunc {
	return g.guard("take_quiz", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.TakeQuiz(ctx, p, c.Param("quizId"))
	})
}

// ListQuizzes reads courseId and moduleId from the query string.
func (g *AccessGuard) ListQuizzes() gin.HandlerFunc {
	return g.guard("list_quizzes", func(ctx context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		return g.evaluator.ListQuizzes(ctx, p, c.Query("courseId"), c.Query("moduleId"))
	})
}

func (g *AccessGuard) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return g.guard("require_role", func(_ context.Context, c *gin.Context, p *access.Principal) (*access.Resolution, error) {
		if err := g.evaluator.RequireRole(p, roles...); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

func (g *AccessGuard) guard(action string, eval evaluation) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := eval(c.Request.Context(), c, PrincipalFromContext(c))
		if err != nil {
			if d, ok := access.AsDenial(err); ok {
				utils.GetLogger(c, g.logger).Debug("Access denied", "action", action, "kind", d.Kind.String())
				fail(c, d.Status(), d.Message)
				return
			}
			utils.GetLogger(c, g.logger).Error("Access evaluation failed", "action", action, "error", err)
			fail(c, http.StatusInternalServerError, "Something went wrong")
			return
		}
		if res != nil {
			c.Set(resolutionKey, res)
		}
		c.Next()
	}
}
