package board

import (
	"context"
	"crypto/subtle"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// VerifiedSetter is the slice of the credential store the verification
// gate writes through.
type VerifiedSetter interface {
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

// Verifier runs the one-time club passcode gate. The passcode is
// process-wide configuration injected at construction, never read from a
// global. The transition it drives is Unverified -> Verified, fires once,
// and has no inverse in this codebase.
type Verifier struct {
	passcode string
	users    VerifiedSetter
	logger   Logger
}

func NewVerifier(passcode string, users VerifiedSetter) *Verifier {
	return &Verifier{
		passcode: passcode,
		users:    users,
		logger:   defLogger{},
	}
}

func (v *Verifier) WithLogger(l Logger) *Verifier {
	v.logger = l
	return v
}

// AttemptVerify compares the submitted key against the configured passcode
// and, on a match, persists verified=true for the calling identity only.
// A mismatch returns ErrWrongPasscode without touching state. Verifying an
// already verified user succeeds again rather than erroring.
func (v *Verifier) AttemptVerify(ctx context.Context, identity Identity, key string) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(v.passcode)) != 1 {
		v.logger.Debug("verification denied", "user", identity.Username())
		return ErrWrongPasscode
	}

	uid, err := uuid.Parse(identity.ID())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "identity has a malformed user id")
	}

	if err := v.users.SetVerified(ctx, uid, true); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification")
	}

	v.logger.Info("user verified", "user", identity.Username())
	return nil
}
