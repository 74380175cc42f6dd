package notifications

import (
	"context"
	"fmt"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is a rendered email ready for a Mailer.
type Message struct {
	Subject string
	Body    string
}

// VerificationMessage renders the one-time code email.
func VerificationMessage(appName, code string, ttl time.Duration) Message {
	return Message{
		Subject: appName + " - Verification Code",
		Body: fmt.Sprintf(
			"Your verification code is: %s\n\nThis code will expire in %d minutes.\n\nIf you didn't request this code, please ignore this email.",
			code, int(ttl.Minutes()),
		),
	}
}
