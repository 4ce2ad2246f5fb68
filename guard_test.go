package board_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clubgate/board"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	t.Run("Allow for any authenticated identity", func(t *testing.T) {
		assert.NoError(t, board.Authorize(TestIdentity{id: "1", username: "bob"}))
	})

	t.Run("Allow does not depend on verification", func(t *testing.T) {
		assert.NoError(t, board.Authorize(TestIdentity{id: "1", username: "bob", verified: false}))
	})

	t.Run("Deny for anonymous", func(t *testing.T) {
		assert.ErrorIs(t, board.Authorize(nil), board.ErrNotAuthenticated)
	})
}

func TestRequireLogin(t *testing.T) {
	newApp := func(identity board.Identity) *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			if identity != nil {
				c.Locals(board.IdentityContextKey, identity)
			}
			return c.Next()
		})
		app.Post("/post", board.RequireLogin("/"), func(c *fiber.Ctx) error {
			return c.SendString("posted")
		})
		return app
	}

	t.Run("Anonymous is redirected before the handler runs", func(t *testing.T) {
		app := newApp(nil)

		res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/post", nil))
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/", res.Header.Get("Location"))
	})

	t.Run("Redirect target follows the configured home route", func(t *testing.T) {
		app := fiber.New()
		app.Post("/post", board.RequireLogin("/board"), func(c *fiber.Ctx) error {
			return c.SendString("posted")
		})

		res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/post", nil))
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/board", res.Header.Get("Location"))
	})

	t.Run("Empty target falls back to the feed", func(t *testing.T) {
		app := fiber.New()
		app.Post("/post", board.RequireLogin(""), func(c *fiber.Ctx) error {
			return c.SendString("posted")
		})

		res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/post", nil))
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, fiber.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/", res.Header.Get("Location"))
	})

	t.Run("Authenticated passes through", func(t *testing.T) {
		app := newApp(TestIdentity{id: "1", username: "bob"})

		res, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/post", nil))
		require.NoError(t, err)
		defer res.Body.Close()

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})
}

func TestRestoreSession(t *testing.T) {
	ctx := context.Background()

	db := setupTestDB(t)
	repo := board.NewRepositoryManager(db)
	user := mustRegister(t, repo, "bob", "secret123")

	provider := board.NewUserProvider(repo.Users())
	manager := board.NewSessionManager(repo.Sessions(), provider, "test-session-secret")

	token, err := manager.Create(ctx, board.NewIdentity(user))
	require.NoError(t, err)

	app := fiber.New()
	app.Use(board.RestoreSession(manager, "board_session"))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		identity := board.IdentityFromCtx(c)
		if identity == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(identity.Username())
	})

	whoami := func(t *testing.T, cookie string) string {
		t.Helper()
		req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "board_session", Value: cookie})
		}
		res, err := app.Test(req)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, fiber.StatusOK, res.StatusCode)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return string(body)
	}

	t.Run("Signed cookie restores the user", func(t *testing.T) {
		assert.Equal(t, "bob", whoami(t, manager.SignToken(token)))
	})

	t.Run("No cookie is anonymous", func(t *testing.T) {
		assert.Equal(t, "anonymous", whoami(t, ""))
	})

	t.Run("Unsigned token is anonymous", func(t *testing.T) {
		assert.Equal(t, "anonymous", whoami(t, token))
	})

	t.Run("Forged signature is anonymous", func(t *testing.T) {
		other := board.NewSessionManager(repo.Sessions(), provider, "another-secret")
		assert.Equal(t, "anonymous", whoami(t, other.SignToken(token)))
	})

	t.Run("Destroyed session is anonymous", func(t *testing.T) {
		require.NoError(t, manager.Destroy(ctx, token))
		assert.Equal(t, "anonymous", whoami(t, manager.SignToken(token)))
	})
}
