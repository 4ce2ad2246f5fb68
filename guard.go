package board

import (
	"github.com/gofiber/fiber/v2"
)

// IdentityContextKey is the Locals key the middleware stores the restored
// identity under.
var IdentityContextKey = "current_user"

// Authorize is the access gate: Allow iff the identity is not Anonymous.
// It is a pure predicate; callers must stop before any side effect on Deny.
func Authorize(identity Identity) error {
	if identity == nil {
		return ErrNotAuthenticated
	}
	return nil
}

// IdentityFromCtx returns the identity the session middleware restored for
// this request, or nil for anonymous requests.
func IdentityFromCtx(c *fiber.Ctx) Identity {
	identity, ok := c.Locals(IdentityContextKey).(Identity)
	if !ok {
		return nil
	}
	return identity
}

// RestoreSession restores the request identity from the session cookie and
// stores it in Locals. It never rejects: anonymous requests pass through
// so public routes can render for logged-out visitors.
func RestoreSession(manager *SessionManager, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(cookieName)
		if cookie == "" {
			return c.Next()
		}

		token, err := manager.VerifyToken(cookie)
		if err != nil {
			// tampered or stale cookie: treat as anonymous
			return c.Next()
		}

		identity, err := manager.Restore(c.UserContext(), token)
		if err != nil {
			return err
		}

		if identity != nil {
			c.Locals(IdentityContextKey, identity)
		}

		return c.Next()
	}
}

// RequireLogin guards protected routes. Denied requests are redirected to
// the given target before the handler runs, so no partial side effects
// happen. An empty target falls back to the feed.
func RequireLogin(redirect string) fiber.Handler {
	if redirect == "" {
		redirect = "/"
	}
	return func(c *fiber.Ctx) error {
		if err := Authorize(IdentityFromCtx(c)); err != nil {
			return c.Redirect(redirect, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
