package model

import "time"

// User represents a row in the `users` table. Each field corresponds to a
// column. Users are soft-deleted: DeletedAt is set instead of removing the
// row, so sessions and other owned records keep a valid reference.
//
// A user is valid when it carries either a username plus password hash or
// an external identity (provider + provider uid). OAuth-only accounts have
// no username and no password hash.
//
// Fields:
//
//	UUID              – primary key, opaque identifier.
//	Username          – unique email-shaped login name; empty for OAuth-only accounts.
//	PasswordHash      – bcrypt hash; empty for OAuth-only accounts.
//	Role              – ordered privilege level (see Role).
//	Verified          – whether the email address has been confirmed.
//	ResetToken        – last issued password-reset token (a short-lived session token).
//	VerificationToken – last issued email-verification token.
//	APIKey            – unique key generated at creation; alternative credential.
//	OAuthProvider     – external identity provider name, if any.
//	OAuthUID          – stable identifier at the external provider.
//	OAuthName         – display name reported by the provider.
//	DeletedAt         – soft-delete marker (nil while the account is live).
type User struct {
	UUID              string
	Username          string
	PasswordHash      string
	Role              Role
	Verified          bool
	ResetToken        string
	VerificationToken string
	APIKey            string
	OAuthProvider     string
	OAuthUID          string
	OAuthName         string
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasCredentials reports whether the record satisfies the account
// invariant: local credentials or an external identity must be present.
func (u *User) HasCredentials() bool {
	if u.Username != "" && u.PasswordHash != "" {
		return true
	}
	return u.OAuthProvider != "" && u.OAuthUID != ""
}
