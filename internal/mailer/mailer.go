// Package mailer dispatches the confirmation email for a new subscription.
// Dispatch is best-effort: a failure here never rolls back the store write.
package mailer

import "context"

// Mailer sends a single transactional message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
