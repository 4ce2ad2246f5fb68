package board

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// FieldErrors maps form field names to user-facing messages, the shape the
// presentation collaborator renders next to each input.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

// AsFieldErrors unwraps a FieldErrors map from an error chain.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type RegisterUserMessage struct {
	Username             string `json:"username" form:"username"`
	Password             string `json:"password,omitempty" form:"password"`
	PasswordConfirmation string `json:"passwordConfirmation,omitempty" form:"passwordConfirmation"`
	Admin                bool   `json:"admin" form:"admin"`
	UseHashid            bool   `json:"-" form:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate runs the static field rules. The username-taken check needs a
// store round trip, so it lives in the handler, not here.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required.Error("Username is required")),
		validation.Field(&e.Password, validation.Required.Error("Password is required")),
		validation.Field(
			&e.PasswordConfirmation,
			validation.By(ValidateStringEquals(e.Password, "Passwords do not match")),
		),
	)
}

// RegisterUserHandler creates user accounts. Registration never opens a
// session; the caller logs in separately.
type RegisterUserHandler struct {
	Repo   RepositoryManager
	Logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		Repo:   repo,
		Logger: defLogger{},
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	// padded usernames collapse to one account rather than registering as
	// distinct names
	event.Username = strings.TrimSpace(event.Username)

	fieldErrs := FieldErrors{}
	if err := event.Validate(); err != nil {
		fieldErrs = FormatValidationErrorToMap(err)
	}

	// The pre-check is a UX nicety; the unique constraint the insert hits
	// below is the authority under concurrent registrations.
	if _, ok := fieldErrs["username"]; !ok {
		if _, err := h.Repo.Users().GetByUsername(ctx, event.Username); err == nil {
			fieldErrs["username"] = "Username already exists"
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Username = event.Username
		user.PasswordHash = hash
		user.Admin = event.Admin
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Username); err == nil {
				user.ID = id
			}
		}

		if user, err = h.Repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if errors.Is(err, ErrUsernameTaken) {
				return FieldErrors{"username": "Username already exists"}
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		if fe, ok := AsFieldErrors(err); ok {
			return nil, fe
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}
