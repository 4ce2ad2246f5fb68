package board

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserLookup is the slice of the credential store VerifyIdentity needs.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
}

// UserProvider resolves identities against the credential store.
type UserProvider struct {
	store  UserLookup
	logger Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserLookup) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. Unknown usernames and wrong passwords both come back as
// ErrMismatchedHashAndPassword; the distinction lives only in log lines.
func (u *UserProvider) VerifyIdentity(ctx context.Context, username, password string) (Identity, error) {
	user, err := u.store.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			u.logger.Debug("verify identity: incorrect username", "username", username)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("verify identity: incorrect password", "username", username)
		return nil, ErrMismatchedHashAndPassword
	}

	return NewIdentity(user), nil
}

// FindIdentityByID resolves a stored user id to its current record. Session
// restore calls this on every request so mutations, the verified flag
// included, are always fresh.
func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	user, err := u.store.GetByUserID(ctx, uid)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by id")
	}

	return NewIdentity(user), nil
}

type authIdentity struct {
	id       string
	username string
	verified bool
	admin    bool
}

// NewIdentity adapts a user record to the Identity interface.
func NewIdentity(user *User) Identity {
	if user == nil {
		return nil
	}
	return authIdentity{
		id:       user.ID.String(),
		username: user.Username,
		verified: user.Verified,
		admin:    user.Admin,
	}
}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Username() string { return a.username }
func (a authIdentity) IsVerified() bool { return a.verified }
func (a authIdentity) IsAdmin() bool    { return a.admin }

// MarshalJSON exposes the identity as plain data for the presentation
// collaborator. The password hash never crosses this boundary.
func (a authIdentity) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":       a.id,
		"username": a.username,
		"verified": a.verified,
		"admin":    a.admin,
	})
}

var _ Identity = authIdentity{}
