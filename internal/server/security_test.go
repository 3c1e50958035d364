package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersAndRequestID(t *testing.T) {
	_, app := newTestServer(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestReadinessCheck(t *testing.T) {
	srv, app := newTestServer(t)

	status, body := do(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"database":"healthy"`)

	srv.redis = nil
	status, body = do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), `"redis":"unavailable"`)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	_, app := newTestServer(t)

	status, body := do(t, app, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, string(body), `"error"`)
}
