package board

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// DefaultSessionCookieName is the cookie the session token travels in.
var DefaultSessionCookieName = "board_session"

type BoardControllerRoutes struct {
	Home      string
	SignUp    string
	LogIn     string
	LoginPage string
	LogOut    string
	Verify    string
	Post      string
	PostReply string
}

type BoardController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Sessions   *SessionManager
	Provider   IdentityProvider
	Verifier   *Verifier
	Register   *RegisterUserHandler
	CookieName string
	Routes     *BoardControllerRoutes
}

type BoardControllerOption func(*BoardController) *BoardController

func NewBoardController(opts ...BoardControllerOption) *BoardController {
	c := &BoardController{
		Logger:     defLogger{},
		CookieName: DefaultSessionCookieName,
		Routes: &BoardControllerRoutes{
			Home:      "/",
			SignUp:    "/sign-up",
			LogIn:     "/log-in",
			LoginPage: "/login-page",
			LogOut:    "/log-out",
			Verify:    "/verify",
			Post:      "/post",
			PostReply: "/post/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in board controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in board controller...")
	}

	if c.Verifier == nil {
		panic("Missing Verifier in board controller...")
	}

	if c.Provider == nil {
		c.Provider = NewUserProvider(c.Repo.Users())
	}

	if c.Register == nil {
		c.Register = NewRegisterUserHandler(c.Repo)
	}

	return c
}

func WithRepository(repo RepositoryManager) BoardControllerOption {
	return func(c *BoardController) *BoardController {
		c.Repo = repo
		return c
	}
}

func WithSessionManager(manager *SessionManager) BoardControllerOption {
	return func(c *BoardController) *BoardController {
		c.Sessions = manager
		return c
	}
}

func WithVerifier(verifier *Verifier) BoardControllerOption {
	return func(c *BoardController) *BoardController {
		c.Verifier = verifier
		return c
	}
}

func WithControllerLogger(logger Logger) BoardControllerOption {
	return func(c *BoardController) *BoardController {
		c.Logger = logger
		return c
	}
}

// RegisterBoardRoutes mounts the board on a fiber app. The session
// middleware runs on every request; the login gate wraps only the
// protected operations. Posting requires login, not verification.
func RegisterBoardRoutes(app *fiber.App, controller *BoardController) {
	app.Use(RestoreSession(controller.Sessions, controller.CookieName))

	gated := RequireLogin(controller.Routes.Home)

	app.Get(controller.Routes.Home, controller.Home)

	app.Get(controller.Routes.SignUp, controller.SignUpShow)
	app.Post(controller.Routes.SignUp, controller.SignUpCreate)

	app.Post(controller.Routes.LogIn, controller.LogInPost)
	app.Get(controller.Routes.LoginPage, controller.LoginPageShow)
	app.Get(controller.Routes.LogOut, controller.LogOut)

	app.Get(controller.Routes.Verify, gated, controller.VerifyShow)
	app.Post(controller.Routes.Verify, gated, controller.VerifyPost)

	app.Get(controller.Routes.Post, gated, controller.PostShow)
	app.Get(controller.Routes.PostReply, gated, controller.PostReplyShow)
	app.Post(controller.Routes.Post, gated, controller.PostCreate)
	app.Post(controller.Routes.PostReply, gated, controller.PostReplyCreate)
}

// ErrorHandler is the top-level handler store failures propagate to. The
// failure is preserved for operators in the log; the client only ever sees
// a generic response.
func (a *BoardController) ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).SendString(fiberErr.Message)
	}

	a.Logger.Error("request failed", "path", ctx.Path(), "error", err)
	return ctx.Status(fiber.StatusInternalServerError).SendString("Something went wrong")
}

// Home returns the current identity plus the full feed in both sort
// orders: newest-first for the top-level list, oldest-first for reply
// threading context.
func (a *BoardController) Home(ctx *fiber.Ctx) error {
	messages, err := a.Repo.Messages().ListNewestFirst(ctx.UserContext())
	if err != nil {
		return err
	}

	replies, err := a.Repo.Messages().ListOldestFirst(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"user":     IdentityFromCtx(ctx),
		"messages": messages,
		"replies":  replies,
	})
}

func (a *BoardController) SignUpShow(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user":   IdentityFromCtx(ctx),
		"errors": FieldErrors{},
		"record": RegisterUserMessage{},
	})
}

func (a *BoardController) SignUpCreate(ctx *fiber.Ctx) error {
	payload := new(RegisterUserMessage)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("sign up parse payload", "error", err)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": FieldErrors{"form": "Failed to parse form"},
			"record": RegisterUserMessage{},
		})
	}

	if a.Debug {
		fmt.Println("======= SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("======================")
	}

	if _, err := a.Register.Execute(ctx.UserContext(), *payload); err != nil {
		if fieldErrs, ok := AsFieldErrors(err); ok {
			// echo the input back, never the passwords
			return ctx.JSON(fiber.Map{
				"errors": fieldErrs,
				"record": RegisterUserMessage{
					Username: payload.Username,
					Admin:    payload.Admin,
				},
			})
		}
		return err
	}

	// registration establishes no session; the user logs in separately
	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

// LogInRequest payload
type LogInRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LogInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *BoardController) LogInPost(ctx *fiber.Ctx) error {
	payload := new(LogInRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("log in parse payload", "error", err)
		return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
	}

	identity, err := a.Provider.VerifyIdentity(ctx.UserContext(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			// same failure path for unknown user and bad password
			return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
		}
		return err
	}

	token, err := a.Sessions.Create(ctx.UserContext(), identity)
	if err != nil {
		return err
	}

	a.setSessionCookie(ctx, token)
	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *BoardController) LoginPageShow(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user": IdentityFromCtx(ctx),
	})
}

func (a *BoardController) LogOut(ctx *fiber.Ctx) error {
	cookie := ctx.Cookies(a.CookieName)
	if cookie != "" {
		if token, err := a.Sessions.VerifyToken(cookie); err == nil {
			if err := a.Sessions.Destroy(ctx.UserContext(), token); err != nil {
				return err
			}
		}
	}

	a.clearSessionCookie(ctx)
	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *BoardController) VerifyShow(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user":   IdentityFromCtx(ctx),
		"errors": FieldErrors{},
	})
}

func (a *BoardController) VerifyPost(ctx *fiber.Ctx) error {
	identity := IdentityFromCtx(ctx)
	key := ctx.FormValue("key")

	if err := a.Verifier.AttemptVerify(ctx.UserContext(), identity, key); err != nil {
		if errors.Is(err, ErrWrongPasscode) {
			return ctx.JSON(fiber.Map{
				"user":   identity,
				"errors": FieldErrors{"key": "Incorrect passcode. Try again."},
			})
		}
		return err
	}

	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *BoardController) PostShow(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user":     IdentityFromCtx(ctx),
		"reply_id": nil,
	})
}

func (a *BoardController) PostReplyShow(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"user":     IdentityFromCtx(ctx),
		"reply_id": ctx.Params("id"),
	})
}

func (a *BoardController) PostCreate(ctx *fiber.Ctx) error {
	identity := IdentityFromCtx(ctx)
	body := ctx.FormValue("message")

	if _, err := a.Repo.Messages().Append(ctx.UserContext(), identity.Username(), body, nil); err != nil {
		return err
	}

	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *BoardController) PostReplyCreate(ctx *fiber.Ctx) error {
	identity := IdentityFromCtx(ctx)
	body := ctx.FormValue("message")

	parent, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid parent id")
	}

	// parent existence is not checked against the store, matching the
	// append contract
	if _, err := a.Repo.Messages().Append(ctx.UserContext(), identity.Username(), body, &parent); err != nil {
		return err
	}

	return ctx.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

func (a *BoardController) setSessionCookie(ctx *fiber.Ctx, token string) {
	ctx.Cookie(&fiber.Cookie{
		Name:     a.CookieName,
		Value:    a.Sessions.SignToken(token),
		Path:     "/",
		Expires:  time.Now().Add(a.Sessions.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *BoardController) clearSessionCookie(ctx *fiber.Ctx) {
	ctx.Cookie(&fiber.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into the
// field-keyed map the presentation layer renders.
func FormatValidationErrorToMap(err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(message)
		}
		return nil
	}
}
