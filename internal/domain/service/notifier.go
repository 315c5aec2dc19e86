package service

import (
	"context"
)

// Message is a single outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
	// ReplyTo is optional; the contact form sets it to the visitor's address.
	ReplyTo string
}

// Notifier defines the interface for sending account emails.
type Notifier interface {
	// Send delivers the message or reports why it could not.
	Send(ctx context.Context, msg Message) error
}
