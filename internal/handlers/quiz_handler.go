package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// CreateQuiz adds a quiz to a course, or to one of its modules when the
// route carries a moduleId
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param body body services.CreateQuizRequest true "Quiz"
// @Success 201 {object} SuccessResponse{data=models.Quiz}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/courses/{courseId} [post]
// @Router /quizzes/courses/{courseId}/modules/{moduleId} [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req services.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var moduleID *uuid.UUID
	if raw := c.Param("moduleId"); raw != "" {
		id, ok := h.parseUUIDParam(c, "moduleId")
		if !ok {
			return
		}
		moduleID = &id
	}

	course := ResolutionFromContext(c).Course
	h.LogRequest(c, "Creating quiz", "course_id", course.ID, "title", req.Title)

	quiz, err := h.quizService.Create(c.Request.Context(), course, moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// ListQuizzes lists quizzes by course, module or both. Identifiers were
// checked by the access guard.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	var scope repositories.QuizScope
	var ok bool
	if scope.CourseID, ok = h.parseUUIDQuery(c, "courseId"); !ok {
		return
	}
	if scope.ModuleID, ok = h.parseUUIDQuery(c, "moduleId"); !ok {
		return
	}

	quizzes, err := h.quizService.List(c.Request.Context(), PrincipalFromContext(c), ResolutionFromContext(c).Course, scope)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"quizzes": quizzes, "total": len(quizzes)})
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	res := ResolutionFromContext(c)
	view := h.quizService.Get(c.Request.Context(), PrincipalFromContext(c), res.Course, res.Quiz)
	respond(c, http.StatusOK, gin.H{"quiz": view})
}

func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req services.SubmitQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res := ResolutionFromContext(c)
	p := PrincipalFromContext(c)
	h.LogRequest(c, "Submitting quiz", "quiz_id", res.Quiz.ID, "user_id", p.ID)

	result, err := h.quizService.Submit(c.Request.Context(), p, res.Course, res.Quiz, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	var req services.UpdateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), ResolutionFromContext(c).Quiz, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"quiz": quiz})
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quiz := ResolutionFromContext(c).Quiz

	h.LogRequest(c, "Deleting quiz", "quiz_id", quiz.ID)

	if err := h.quizService.Delete(c.Request.Context(), quiz); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
