package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/notify"
)

type notificationService struct {
	sender notify.Sender
	logger *slog.Logger
}

func NewNotificationService(sender notify.Sender, logger *slog.Logger) NotificationService {
	return &notificationService{
		sender: sender,
		logger: logger,
	}
}

// Register subscribes the email handlers. Must be called before the router runs.
func (s *notificationService) Register(router EventRouter) {
	router.Handle("email.welcome", events.TopicUserRegistered, s.onUserRegistered)
	router.Handle("email.payment_receipt", events.TopicPaymentCompleted, s.onPaymentCompleted)
}

func (s *notificationService) onUserRegistered(ctx context.Context, payload []byte) error {
	e, err := events.Decode[events.UserRegistered](payload)
	if err != nil {
		return err
	}
	return s.send(ctx, notify.WelcomeMessage(mail.Address{Name: e.UserName, Address: e.Email}))
}

func (s *notificationService) onPaymentCompleted(ctx context.Context, payload []byte) error {
	e, err := events.Decode[events.PaymentCompleted](payload)
	if err != nil {
		return err
	}
	if e.Email == "" {
		s.logger.Warn("Skipping receipt without recipient", "payment_id", e.PaymentID)
		return nil
	}
	return s.send(ctx, notify.PaymentReceiptMessage(mail.Address{Name: e.UserName, Address: e.Email}, e.CourseTitle, e.Amount, e.Currency))
}

func (s *notificationService) send(ctx context.Context, msg notify.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %q: %w", msg.Subject, err)
	}
	return nil
}
