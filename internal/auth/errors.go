package auth

import "errors"

// ErrUnauthorized is the single error surfaced for every authentication
// or authorization denial: malformed tokens, bad signatures, expiry,
// unknown users or sessions, insufficient role. The underlying cause is
// logged server-side but deliberately never reaches a caller, so a
// client cannot distinguish "no such account" from "wrong credentials".
var ErrUnauthorized = errors.New("unauthorized")

// ErrValidation is returned when an operation's preconditions are not
// met, e.g. creating a session without a user or registering an account
// with neither local credentials nor an external identity.
var ErrValidation = errors.New("validation failed")
