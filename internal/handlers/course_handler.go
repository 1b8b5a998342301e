package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

// CourseHandler serves courses and their embedded modules and lessons. Every
// route that targets a single course runs behind an access guard, so the
// course is taken from the resolution instead of being loaded again.
type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// ListCourses lists courses
// @Summary List courses
// @Tags courses
// @Produce json
// @Param category query string false "Category"
// @Param tag query string false "Tag"
// @Param instructor query string false "Instructor ID"
// @Param level query string false "Beginner, Intermediate or Advanced"
// @Param sort query string false "created_at, title or price"
// @Param order query string false "asc or desc"
// @Success 200 {object} SuccessResponse{data=services.CourseListResponse}
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	instructor, ok := h.parseUUIDQuery(c, "instructor")
	if !ok {
		return
	}
	limit, offset := pagination(c)
	filters := repositories.CourseFilters{
		Category:     c.Query("category"),
		Tag:          c.Query("tag"),
		InstructorID: instructor,
		Limit:        limit,
		Offset:       offset,
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}
	if raw := c.Query("level"); raw != "" {
		level := models.CourseLevel(raw)
		filters.Level = &level
	}

	courses, err := h.courseService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, courses)
}

// CreateCourse creates a course owned by the caller, or by the instructor an
// admin names in the request
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param body body services.CreateCourseRequest true "Course"
// @Success 201 {object} SuccessResponse{data=models.Course}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating course", "title", req.Title)

	course, err := h.courseService.Create(c.Request.Context(), PrincipalFromContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	course := ResolutionFromContext(c).Course

	h.LogRequest(c, "Updating course", "course_id", course.ID)

	updated, err := h.courseService.Update(c.Request.Context(), course, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"course": updated})
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	course := ResolutionFromContext(c).Course

	h.LogRequest(c, "Deleting course", "course_id", course.ID)

	if err := h.courseService.Delete(c.Request.Context(), course); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) AddModule(c *gin.Context) {
	var req services.CreateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	module, err := h.courseService.AddModule(c.Request.Context(), ResolutionFromContext(c).Course, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"module": module})
}

func (h *CourseHandler) UpdateModule(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}
	var req services.UpdateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	module, err := h.courseService.UpdateModule(c.Request.Context(), ResolutionFromContext(c).Course, moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"module": module})
}

func (h *CourseHandler) DeleteModule(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}

	if err := h.courseService.DeleteModule(c.Request.Context(), ResolutionFromContext(c).Course, moduleID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetLesson returns one lesson to the owner, enrolled students and admins.
func (h *CourseHandler) GetLesson(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := h.parseUUIDParam(c, "lessonId")
	if !ok {
		return
	}

	lesson, err := h.courseService.GetLesson(c.Request.Context(), ResolutionFromContext(c).Course, moduleID, lessonID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"lesson": lesson})
}

func (h *CourseHandler) AddLesson(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}
	var req services.CreateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lesson, err := h.courseService.AddLesson(c.Request.Context(), ResolutionFromContext(c).Course, moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"lesson": lesson})
}

func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := h.parseUUIDParam(c, "lessonId")
	if !ok {
		return
	}
	var req services.UpdateLessonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lesson, err := h.courseService.UpdateLesson(c.Request.Context(), ResolutionFromContext(c).Course, moduleID, lessonID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"lesson": lesson})
}

func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	moduleID, ok := h.parseUUIDParam(c, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := h.parseUUIDParam(c, "lessonId")
	if !ok {
		return
	}

	if err := h.courseService.DeleteLesson(c.Request.Context(), ResolutionFromContext(c).Course, moduleID, lessonID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
