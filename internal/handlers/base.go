package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
	"github.com/eduhub/course-service/internal/validator"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"

	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorResponse is the body of every failed request. Status is "fail" for
// client errors and "error" for server errors.
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps the payload of a successful request.
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler needs for logging and error mapping.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Status: statusSuccess, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	kind := statusFail
	if status >= http.StatusInternalServerError {
		kind = statusError
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Status: kind, Message: message})
}

// bindJSON decodes the request body and answers 400 when it is not valid JSON.
// Field rules are checked by the services.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Status:  statusFail,
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// parseUUIDParam reads a path parameter that must be a UUID.
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		fail(c, http.StatusBadRequest, "valid "+name+" must be provided")
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDQuery reads an optional UUID query parameter.
func (h *BaseHandler) parseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "valid "+name+" must be provided")
		return nil, false
	}
	return &id, true
}

// pagination reads the page and size query parameters into limit and offset.
func pagination(c *gin.Context) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit
}

// handleServiceError maps service and access errors onto the error envelope.
// Unknown errors are logged and reported without detail.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Status:  statusFail,
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var inputError *services.InputError
	if errors.As(err, &inputError) {
		fail(c, http.StatusBadRequest, inputError.Error())
		return
	}

	if d, ok := access.AsDenial(err); ok {
		fail(c, d.Status(), d.Message)
		return
	}

	if status, ok := serviceStatus(err); ok {
		fail(c, status, err.Error())
		return
	}

	h.LogError(c, err, "Unhandled service error")
	fail(c, http.StatusInternalServerError, "Something went wrong")
}

func serviceStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrModuleNotFound),
		errors.Is(err, services.ErrLessonNotFound),
		errors.Is(err, services.ErrDiscussionNotFound),
		errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		return http.StatusNotFound, true

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUserNameTaken),
		errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrPaymentNotRefundable):
		return http.StatusConflict, true

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrIncorrectPassword),
		errors.Is(err, services.ErrAccountDisabled),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenRevoked),
		errors.Is(err, services.ErrTokenStale),
		errors.Is(err, services.ErrTokenOrphan):
		return http.StatusUnauthorized, true

	case errors.Is(err, services.ErrInvalidResetCode),
		errors.Is(err, services.ErrNothingToPay),
		errors.Is(err, services.ErrAnswerCount),
		errors.Is(err, services.ErrInvalidSignature):
		return http.StatusBadRequest, true

	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, true

	case errors.Is(err, services.ErrResetUnavailable),
		errors.Is(err, services.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}
