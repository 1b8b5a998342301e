package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/payment"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

type paymentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	gateway   payment.Gateway
	publisher events.Publisher
	pricing   Pricing
}

// Pricing is the operator-controlled part of a charge. Course prices are in
// Currency; TaxPercent is added after the course discount.
type Pricing struct {
	Currency   string
	TaxPercent float64
}

// NewPaymentService builds the payment service. A nil gateway disables
// everything except listing and reading existing payments.
func NewPaymentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, gateway payment.Gateway, publisher events.Publisher, pricing Pricing) PaymentService {
	pricing.Currency = strings.ToLower(pricing.Currency)
	if pricing.Currency == "" {
		pricing.Currency = "usd"
	}
	return &paymentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		gateway:   gateway,
		publisher: publisher,
		pricing:   pricing,
	}
}

func (s *paymentService) Initiate(ctx context.Context, p *access.Principal, req *InitiatePaymentRequest) (*PaymentCheckout, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		return nil, invalidInput("course_id", "must be a valid id")
	}
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course.IsEnrolled(p.ID) {
		return nil, ErrAlreadyEnrolled
	}

	amount := models.TotalAmount(course.Price, course.Discount, s.pricing.TaxPercent)
	if amount <= 0 {
		return nil, ErrNothingToPay
	}
	currency := s.pricing.Currency

	record := &models.Payment{
		ID:            uuid.New(),
		CourseID:      course.ID,
		UserID:        p.ID,
		Amount:        amount,
		OriginalPrice: course.Price,
		Discount:      course.Discount,
		Tax:           s.pricing.TaxPercent,
		Currency:      currency,
		Status:        models.PaymentPending,
	}
	intent, err := s.gateway.CreateIntent(ctx, amount, currency, map[string]string{
		"payment_id": record.ID.String(),
		"course_id":  course.ID.String(),
		"user_id":    p.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	record.GatewayIntentID = intent.ID

	if err := s.repo.Payment().Create(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	s.logger.Info("Payment initiated",
		"payment_id", record.ID,
		"course_id", course.ID,
		"user_id", p.ID,
		"amount", amount,
		"currency", currency)
	return &PaymentCheckout{Payment: record, ClientSecret: intent.ClientSecret}, nil
}

// HandleWebhook applies a verified gateway notification. Redelivered events
// are no-ops once the payment has left the pending state.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentsDisabled
	}

	event, err := s.gateway.ParseWebhook(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("parse webhook: %w", err)
	}

	switch event.Kind {
	case payment.EventSucceeded:
		return s.complete(ctx, event.IntentID)
	case payment.EventFailed:
		return s.fail(ctx, event.IntentID)
	default:
		s.logger.Debug("Ignoring payment event", "type", event.Type)
		return nil
	}
}

func (s *paymentService) complete(ctx context.Context, intentID string) error {
	var (
		record *models.Payment
		course *models.Course
		done   bool
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		record, err = tx.Payment().GetByIntentIDForUpdate(ctx, nil, intentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if record.Status != models.PaymentPending {
			done = true
			return nil
		}

		record.Status = models.PaymentCompleted
		if err := tx.Payment().Update(ctx, nil, record); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}

		course, err = tx.Course().GetByIDForUpdate(ctx, nil, record.CourseID)
		if err != nil {
			return fmt.Errorf("load purchased course: %w", err)
		}
		if err := course.Enroll(record.UserID); err != nil {
			if errors.Is(err, models.ErrAlreadyEnrolled) {
				return nil
			}
			return err
		}
		if err := tx.Course().Update(ctx, nil, course); err != nil {
			return fmt.Errorf("enroll student: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if done {
		s.logger.Info("Payment already settled", "payment_id", record.ID, "status", record.Status)
		return nil
	}

	s.logger.Info("Payment completed", "payment_id", record.ID, "course_id", record.CourseID, "user_id", record.UserID)

	completed := events.PaymentCompleted{
		PaymentID:   record.ID,
		UserID:      record.UserID,
		CourseID:    record.CourseID,
		CourseTitle: course.Title,
		Amount:      record.Amount,
		Currency:    record.Currency,
	}
	if user, err := s.repo.User().GetByID(ctx, nil, record.UserID); err == nil {
		completed.UserName, completed.Email = user.UserName, user.Email
	} else {
		s.logger.Warn("Payment owner not loaded for receipt", "user_id", record.UserID, "error", err)
	}
	if err := s.publisher.Publish(ctx, events.TopicPaymentCompleted, completed); err != nil {
		s.logger.Error("Failed to publish event", "topic", events.TopicPaymentCompleted, "error", err)
	}
	return nil
}

func (s *paymentService) fail(ctx context.Context, intentID string) error {
	var (
		record  *models.Payment
		settled bool
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		record, err = tx.Payment().GetByIntentIDForUpdate(ctx, nil, intentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if record.Status != models.PaymentPending {
			settled = true
			return nil
		}
		record.Status = models.PaymentFailed
		if err := tx.Payment().Update(ctx, nil, record); err != nil {
			return fmt.Errorf("fail payment: %w", err)
		}
		return nil
	})
	if err != nil || settled {
		return err
	}
	s.logger.Info("Payment failed", "payment_id", record.ID)
	return nil
}

// List shows admins every payment and everybody else their own.
func (s *paymentService) List(ctx context.Context, p *access.Principal, filters repositories.PaymentFilters) (*PaymentListResponse, error) {
	if !p.IsAdmin() {
		own := p.ID
		filters.UserID = &own
	}
	payments, total, err := s.repo.Payment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &PaymentListResponse{Payments: payments, Total: total}, nil
}

func (s *paymentService) Get(ctx context.Context, p *access.Principal, paymentID uuid.UUID) (*models.Payment, error) {
	record, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && record.UserID != p.ID {
		return nil, ErrForbidden
	}
	return record, nil
}

// Refund returns a completed payment through the gateway and withdraws the
// enrollment it granted.
func (s *paymentService) Refund(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	record, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.PaymentCompleted {
		return nil, ErrPaymentNotRefundable
	}

	if err := s.gateway.Refund(ctx, record.GatewayIntentID); err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		locked, err := tx.Payment().GetByIDForUpdate(ctx, nil, record.ID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if locked.Status != models.PaymentCompleted {
			return ErrPaymentNotRefundable
		}
		locked.Status = models.PaymentRefunded
		if err := tx.Payment().Update(ctx, nil, locked); err != nil {
			return fmt.Errorf("mark refunded: %w", err)
		}
		record = locked

		course, err := tx.Course().GetByIDForUpdate(ctx, nil, record.CourseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil
			}
			return fmt.Errorf("load course: %w", err)
		}
		course.Unenroll(record.UserID)
		if err := tx.Course().Update(ctx, nil, course); err != nil {
			return fmt.Errorf("unenroll student: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment refunded", "payment_id", record.ID, "user_id", record.UserID)
	return record, nil
}

func (s *paymentService) load(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	record, err := s.repo.Payment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return record, nil
}
