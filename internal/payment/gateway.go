// Package payment wraps the card payment provider behind a small contract.
package payment

import (
	"context"
	"errors"
)

var ErrInvalidSignature = errors.New("webhook signature verification failed")

type Intent struct {
	ID           string
	ClientSecret string
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventSucceeded
	EventFailed
)

// Event is a verified provider notification about a payment intent.
type Event struct {
	Kind     EventKind
	Type     string
	IntentID string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	// ParseWebhook verifies the signature header against the raw body.
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Refund(ctx context.Context, intentID string) error
}
