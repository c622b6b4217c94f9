package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-quest/models"
	"career-quest/services"
)

type stubUsers map[string]*models.User

func (s stubUsers) Get(id string) (*models.User, error) {
	if id == "boom" {
		return nil, errors.New("connection reset")
	}
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, services.ErrNotFound
}

func newAuthApp() *fiber.App {
	users := stubUsers{"u1": {ID: "u1", Name: "Ada"}}
	app := fiber.New()
	whoami := func(c *fiber.Ctx) error { return c.SendString(UserID(c)) }
	app.Get("/stream", SSEAuthMiddleware(users), whoami)
	app.Get("/me", BearerAuth(users), whoami)
	app.Get("/admin", AdminToken("letmein"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/closed", AdminToken(""), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app
}

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestBearerAuth(t *testing.T) {
	app := newAuthApp()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"empty token", "Bearer ", fiber.StatusUnauthorized},
		{"unknown user", "Bearer nobody", fiber.StatusUnauthorized},
		{"lookup failure", "Bearer boom", fiber.StatusInternalServerError},
		{"known user", "Bearer u1", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, status(t, app, req))
		})
	}
}

func TestSSEAuth_QueryTokenOrHeader(t *testing.T) {
	app := newAuthApp()

	assert.Equal(t, fiber.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/stream?token=u1", nil)))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/stream?token=nobody", nil)))

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Authorization", "Bearer u1")
	assert.Equal(t, fiber.StatusOK, status(t, app, req))

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/stream", nil)))
}

func TestAdminToken(t *testing.T) {
	app := newAuthApp()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Token", "letmein")
	assert.Equal(t, fiber.StatusNoContent, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Token", "guess")
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("X-Admin-Token", "")
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, req))
}
