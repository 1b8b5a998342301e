// Package notify delivers transactional email.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"time"
)

type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func WelcomeMessage(to mail.Address) Message {
	return Message{
		To:      to,
		Subject: "Welcome to EduHub",
		Text:    fmt.Sprintf("Hi %s,\n\nyour account is ready. Browse the catalogue and enroll in your first course.", to.Name),
		HTML:    fmt.Sprintf("<p>Hi %s,</p><p>your account is ready. Browse the catalogue and enroll in your first course.</p>", to.Name),
	}
}

func ResetCodeMessage(to mail.Address, code string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		To:      to,
		Subject: "Your password reset code",
		Text:    fmt.Sprintf("Your password reset code is %s. It is valid for %d minutes.", code, minutes),
		HTML:    fmt.Sprintf("<p>Your password reset code is <strong>%s</strong>.</p><p>It is valid for %d minutes.</p>", code, minutes),
	}
}

func PaymentReceiptMessage(to mail.Address, courseTitle string, amount int64, currency string) Message {
	total := fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
	return Message{
		To:      to,
		Subject: "Payment received",
		Text:    fmt.Sprintf("Thanks for your purchase of %q. We received %s and you are now enrolled.", courseTitle, total),
		HTML:    fmt.Sprintf("<p>Thanks for your purchase of <em>%s</em>.</p><p>We received %s and you are now enrolled.</p>", courseTitle, total),
	}
}
