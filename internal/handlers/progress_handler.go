package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetProgress returns the caller's progress in a course.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	progress, err := h.progressService.Get(c.Request.Context(), PrincipalFromContext(c).ID, ResolutionFromContext(c).Course)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"progress": progress})
}

// ExportProgress downloads every enrolled student's progress as a spreadsheet
// @Summary Export course progress
// @Tags courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param courseId path string true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{courseId}/progress/export [get]
func (h *ProgressHandler) ExportProgress(c *gin.Context) {
	course := ResolutionFromContext(c).Course

	h.LogRequest(c, "Exporting progress", "course_id", course.ID)

	export, err := h.progressService.Export(c.Request.Context(), course)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, xlsxContentType, export.Content)
}
