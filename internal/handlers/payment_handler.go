package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/services"
	"github.com/eduhub/course-service/internal/utils"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type PaymentHandler struct {
	BaseHandler
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService, logger utils.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    NewBaseHandler(logger),
		paymentService: paymentService,
	}
}

// InitiatePayment starts a checkout for a course
// @Summary Initiate payment
// @Tags payments
// @Accept json
// @Produce json
// @Param body body services.InitiatePaymentRequest true "Checkout"
// @Success 201 {object} SuccessResponse{data=services.PaymentCheckout}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req services.InitiatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p := PrincipalFromContext(c)
	h.LogRequest(c, "Initiating payment", "course_id", req.CourseID, "user_id", p.ID)

	checkout, err := h.paymentService.Initiate(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, checkout)
}

// Webhook receives gateway events. It is not authenticated; the payload
// signature is verified instead.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read request body")
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	limit, offset := pagination(c)
	filters := repositories.PaymentFilters{Limit: limit, Offset: offset}

	var ok bool
	if filters.UserID, ok = h.parseUUIDQuery(c, "userId"); !ok {
		return
	}
	if filters.CourseID, ok = h.parseUUIDQuery(c, "courseId"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := models.PaymentStatus(raw)
		filters.Status = &status
	}

	payments, err := h.paymentService.List(c.Request.Context(), PrincipalFromContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, payments)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "paymentId")
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), PrincipalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"payment": payment})
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "paymentId")
	if !ok {
		return
	}

	h.LogRequest(c, "Refunding payment", "payment_id", id)

	payment, err := h.paymentService.Refund(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"payment": payment})
}
