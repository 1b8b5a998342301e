package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

type DiscussionHandler struct {
	BaseHandler
	discussionService services.DiscussionService
}

func NewDiscussionHandler(discussionService services.DiscussionService, logger utils.Logger) *DiscussionHandler {
	return &DiscussionHandler{
		BaseHandler:       NewBaseHandler(logger),
		discussionService: discussionService,
	}
}

// ListDiscussions pages through every discussion. Admins only.
func (h *DiscussionHandler) ListDiscussions(c *gin.Context) {
	limit, offset := pagination(c)

	discussions, err := h.discussionService.List(c.Request.Context(), repositories.DiscussionFilters{Limit: limit, Offset: offset})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, discussions)
}

// CreateDiscussion opens a discussion on a lesson
// @Summary Create discussion
// @Tags discussions
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param body body services.CreateDiscussionRequest true "Discussion"
// @Success 201 {object} SuccessResponse{data=models.Discussion}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /discussions/lessons/{lessonId} [post]
func (h *DiscussionHandler) CreateDiscussion(c *gin.Context) {
	lessonID, ok := h.parseUUIDParam(c, "lessonId")
	if !ok {
		return
	}
	var req services.CreateDiscussionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p := PrincipalFromContext(c)
	h.LogRequest(c, "Creating discussion", "lesson_id", lessonID, "user_id", p.ID)

	discussion, err := h.discussionService.Create(c.Request.Context(), ResolutionFromContext(c).Course, lessonID, p.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"discussion": discussion})
}

func (h *DiscussionHandler) ListLessonDiscussions(c *gin.Context) {
	lessonID, ok := h.parseUUIDParam(c, "lessonId")
	if !ok {
		return
	}

	discussions, err := h.discussionService.ListByLesson(c.Request.Context(), ResolutionFromContext(c).Course, lessonID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"discussions": discussions, "total": len(discussions)})
}

func (h *DiscussionHandler) Reply(c *gin.Context) {
	var req services.ReplyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	discussion, err := h.discussionService.Reply(c.Request.Context(), ResolutionFromContext(c).Discussion, PrincipalFromContext(c).ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"discussion": discussion})
}

// ToggleLike likes the discussion, or removes the caller's like when present.
func (h *DiscussionHandler) ToggleLike(c *gin.Context) {
	result, err := h.discussionService.ToggleLike(c.Request.Context(), ResolutionFromContext(c).Discussion, PrincipalFromContext(c).ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *DiscussionHandler) DeleteDiscussion(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "discussionId")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting discussion", "discussion_id", id)

	if err := h.discussionService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
