package model

import "time"

// Session models a row in the `sessions` table. A session is created on
// login (or when a short-lived reset/verification token is issued) and
// destroyed on logout, on expiry detection, or by the cleanup consumer.
//
// The signing secret is unique per session and never leaves the server;
// the token embeds the session UUID, so the secret can always be looked
// up again from the token alone. Expiry is not a stored column: the exp
// claim inside the token is authoritative.
//
// Fields:
//
//	UUID     – primary key; UUIDv7, so creation order is recoverable.
//	UserUUID – owning user.
//	Token    – signed claims payload handed to the client.
//	Secret   – per-session HMAC secret (never serialized outward).
//	Role     – role snapshot carried by the token claims. Not a column;
//	           populated at creation and when a token is verified.
type Session struct {
	UUID      string
	UserUUID  string
	Token     string
	Secret    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID returns the owning user's UUID. It satisfies the ownership
// capability the authorization policy checks for owned resources.
func (s *Session) OwnerID() string { return s.UserUUID }
