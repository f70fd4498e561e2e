// Package queue defines message payloads exchanged over the message
// broker and the background consumers that process them.
package queue

const (
	// SessionCleanupQueueName carries ids of sessions found expired
	// during reads; the consumer deletes them off the request path.
	SessionCleanupQueueName = "session.cleanup"
	// MailQueueName carries notification requests for reset and
	// verification tokens. Actual SMTP delivery is out of scope; the
	// consumer records the request so an external mailer can act on it.
	MailQueueName = "user.mail"
)

// SessionCleanupEvent lists sessions scheduled for deletion. Deletion is
// idempotent, so re-delivery of the same event is harmless.
type SessionCleanupEvent struct {
	SessionUUIDs []string `json:"session_uuids"`
}

// MailEvent is published fire-and-forget whenever a short-lived token is
// issued. Kind is "reset" or "verification".
type MailEvent struct {
	UserUUID string `json:"user_uuid"`
	Username string `json:"username"`
	Kind     string `json:"kind"`
	Token    string `json:"token"`
	IssuedAt string `json:"issued_at"`
}
