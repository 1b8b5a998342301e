package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduhub/course-service/internal/events"
	"github.com/eduhub/course-service/internal/notify"
)

func TestNotificationsOverBus(t *testing.T) {
	logger := testLogger()
	bus, err := events.NewBus(events.BusConfig{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	mailer := notify.NewConsoleSender(logger)
	NewNotificationService(mailer, logger).Register(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()
	<-bus.Running()

	require.NoError(t, bus.Publish(ctx, events.TopicUserRegistered, events.UserRegistered{
		UserID: uuid.New(), UserName: "ada", Email: "ada@example.com",
	}))
	require.NoError(t, bus.Publish(ctx, events.TopicPaymentCompleted, events.PaymentCompleted{
		PaymentID: uuid.New(), Email: "ada@example.com", CourseTitle: "Concurrency in Go", Amount: 4999, Currency: "usd",
	}))
	// Receipts without an address are dropped, not retried
	require.NoError(t, bus.Publish(ctx, events.TopicPaymentCompleted, events.PaymentCompleted{PaymentID: uuid.New()}))

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, 5*time.Second, 20*time.Millisecond)

	subjects := map[string]notify.Message{}
	for _, m := range mailer.Sent() {
		subjects[m.Subject] = m
	}
	assert.Contains(t, subjects, "Welcome to EduHub")
	assert.Contains(t, subjects["Payment received"].Text, "49.99 usd")
}
