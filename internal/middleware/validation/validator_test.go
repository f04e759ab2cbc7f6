package validation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidationApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/chat", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post("/api/v1/states/query", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

func postChat(t *testing.T, app *fiber.App, body map[string]any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestValidMessagePassesThrough(t *testing.T) {
	app := newValidationApp(Config{})

	resp := postChat(t, app, map[string]any{
		"messages": []map[string]any{{"role": "user", "text": "¿Cómo está Jalisco?"}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRejectsScriptInjectionWithZeroConfig(t *testing.T) {
	// A zero Config has no logger; the rejection path must still log
	// through the nop default instead of panicking.
	app := newValidationApp(Config{})

	resp := postChat(t, app, map[string]any{
		"messages": []map[string]any{{"role": "user", "text": `<script>alert(1)</script>`}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsMissingMessages(t *testing.T) {
	app := newValidationApp(Config{})

	resp := postChat(t, app, map[string]any{"messages": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsNonUserLastMessage(t *testing.T) {
	app := newValidationApp(Config{})

	resp := postChat(t, app, map[string]any{
		"messages": []map[string]any{{"role": "assistant", "text": "hola"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsOversizedMessage(t *testing.T) {
	app := newValidationApp(Config{MaxMessageLength: 10})

	resp := postChat(t, app, map[string]any{
		"messages": []map[string]any{{"role": "user", "text": "este mensaje excede el límite"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsUnsupportedContentType(t *testing.T) {
	app := newValidationApp(Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte("state=jalisco")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestStateQueryRequiresState(t *testing.T) {
	app := newValidationApp(Config{})

	payload, err := json.Marshal(map[string]any{"state": "  "})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/states/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
