// Package events carries domain events between services over Watermill. The
// transport is an in-process Go channel unless Kafka brokers are configured.
package events

import (
	"github.com/google/uuid"
)

const (
	TopicUserRegistered   = "user.registered"
	TopicPaymentCompleted = "payment.completed"
)

type UserRegistered struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	Email    string    `json:"email"`
}

type PaymentCompleted struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	Email       string    `json:"email"`
	CourseID    uuid.UUID `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
}
