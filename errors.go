package board

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrMismatchedHashAndPassword is the single failure kind for bad logins.
// Unknown usernames map to it too, so callers cannot enumerate accounts.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password cannot be an empty string")

// ErrNotAuthenticated is the access gate rejection
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrWrongPasscode is returned when the club passcode does not match
var ErrWrongPasscode = errors.New("wrong passcode")

// ErrUsernameTaken signals a registration conflict
var ErrUsernameTaken = errors.New("username already exists")

// ErrUnableToFindSession is the error when the request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrSessionExpired marks sessions past their server-side lifetime
var ErrSessionExpired = errors.New("session expired")

// IsUniqueViolation checks driver errors for a unique constraint failure.
// The database constraint, not the application pre-check, is the authority
// on username uniqueness, so conflict mapping happens here. Repository
// wrappers print a generic message and keep the driver error inside, so
// the whole chain is searched, not just the outermost value.
func IsUniqueViolation(err error) bool {
	for err != nil {
		msg := err.Error()
		if strings.Contains(msg, "duplicate key value") || // postgres 23505
			strings.Contains(msg, "UNIQUE constraint failed") { // sqlite
			return true
		}

		if rich, ok := err.(*goerrors.Error); ok && rich.Source != nil {
			err = rich.Source
			continue
		}
		err = errors.Unwrap(err)
	}
	return false
}
